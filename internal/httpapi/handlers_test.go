package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/models"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/pkg/apierr"
)

type mockStore struct {
	builds      map[string]*models.Build
	logs        map[string]*models.BuildLog
	verifiedIDs []string
}

func (m *mockStore) InsertBuild(ctx context.Context, b *models.Build) error { return nil }
func (m *mockStore) GetBuild(ctx context.Context, buildID string) (*models.Build, error) {
	b, ok := m.builds[buildID]
	if !ok {
		return nil, apierr.NotFound(errStub)
	}
	return b, nil
}
func (m *mockStore) GetLatestBuild(ctx context.Context, programID string) (*models.Build, error) {
	return nil, apierr.NotFound(errStub)
}
func (m *mockStore) FindDuplicate(ctx context.Context, params models.BuildParams, signer string) (*models.Build, error) {
	return nil, apierr.NotFound(errStub)
}
func (m *mockStore) UpdateBuildStatus(ctx context.Context, buildID string, status models.BuildStatus) error {
	return nil
}
func (m *mockStore) UpsertVerified(ctx context.Context, v *models.VerifiedProgram) error { return nil }
func (m *mockStore) UpdateOnChainHash(ctx context.Context, programID, newHash string, isVerified bool) error {
	return nil
}
func (m *mockStore) MarkUnverified(ctx context.Context, programID string) error { return nil }
func (m *mockStore) GetVerified(ctx context.Context, programID string, signer *string) (*models.VerifiedProgram, error) {
	return nil, apierr.NotFound(errStub)
}
func (m *mockStore) ListVerifiedWithSigner(ctx context.Context, programID string) ([]models.VerifiedBuildWithSigner, error) {
	return nil, nil
}
func (m *mockStore) UpsertProgramAuthority(ctx context.Context, programID string, authority *string, isFrozen, isClosed bool) error {
	return nil
}
func (m *mockStore) GetProgramAuthority(ctx context.Context, programID string) (*models.ProgramAuthority, error) {
	return nil, apierr.NotFound(errStub)
}
func (m *mockStore) IsFrozen(ctx context.Context, programID string) (bool, error) { return false, nil }
func (m *mockStore) IsClosed(ctx context.Context, programID string) (bool, error) { return false, nil }
func (m *mockStore) ListAllVerifiedProgramIDs(ctx context.Context) ([]string, error) {
	return m.verifiedIDs, nil
}
func (m *mockStore) InsertBuildLog(ctx context.Context, l *models.BuildLog) error { return nil }
func (m *mockStore) GetLatestBuildLog(ctx context.Context, programID string) (*models.BuildLog, error) {
	l, ok := m.logs[programID]
	if !ok {
		return nil, apierr.NotFound(errStub)
	}
	return l, nil
}

type stubErr string

func (e stubErr) Error() string { return string(e) }

const errStub = stubErr("not found")

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestIndexHandler(t *testing.T) {
	h := &handlers{}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.index(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestJobHandler(t *testing.T) {
	t.Run("known build maps unused to failed", func(t *testing.T) {
		st := &mockStore{builds: map[string]*models.Build{
			"b1": {BuildID: "b1", Status: models.BuildUnused},
		}}
		h := &handlers{store: st}
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/job/b1", nil), "build_id", "b1")
		w := httptest.NewRecorder()
		h.job(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp models.JobStatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, models.BuildFailed, resp.Status)
	})

	t.Run("in-progress build status passes through", func(t *testing.T) {
		st := &mockStore{builds: map[string]*models.Build{
			"b2": {BuildID: "b2", Status: models.BuildInProgress},
		}}
		h := &handlers{store: st}
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/job/b2", nil), "build_id", "b2")
		w := httptest.NewRecorder()
		h.job(w, req)

		var resp models.JobStatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, models.BuildInProgress, resp.Status)
	})

	t.Run("unknown build is a validation error, not 5xx", func(t *testing.T) {
		st := &mockStore{builds: map[string]*models.Build{}}
		h := &handlers{store: st}
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/job/missing", nil), "build_id", "missing")
		w := httptest.NewRecorder()
		h.job(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLogsHandlerNeverReturns5xxOnMiss(t *testing.T) {
	st := &mockStore{logs: map[string]*models.BuildLog{}}
	h := &handlers{store: st}
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/logs/prog1", nil), "program_id", "prog1")
	w := httptest.NewRecorder()
	h.logs(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp models.BuildLogResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "prog1", resp.ProgramID)
	assert.Empty(t, resp.ArtifactName)
}

func TestLogsHandlerHit(t *testing.T) {
	now := time.Now()
	st := &mockStore{logs: map[string]*models.BuildLog{
		"prog1": {ProgramID: "prog1", ArtifactName: "build.log", CreatedAt: now},
	}}
	h := &handlers{store: st}
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/logs/prog1", nil), "program_id", "prog1")
	w := httptest.NewRecorder()
	h.logs(w, req)

	var resp models.BuildLogResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "build.log", resp.ArtifactName)
}

func TestVerifiedProgramsPagination(t *testing.T) {
	ids := make([]string, 0, 120)
	for i := 0; i < 120; i++ {
		ids = append(ids, "program"+string(rune('A'+i%26)))
	}
	st := &mockStore{verifiedIDs: ids}
	h := &handlers{store: st}

	t.Run("first page", func(t *testing.T) {
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/verified-programs", nil), "page", "")
		w := httptest.NewRecorder()
		h.verifiedPrograms(w, req)

		var page models.VerifiedProgramsPage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
		assert.Equal(t, 1, page.Page)
		assert.Len(t, page.ProgramIDs, verifiedProgramsPageSize)
	})

	t.Run("page beyond range is empty, not an error", func(t *testing.T) {
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/verified-programs/99", nil), "page", "99")
		w := httptest.NewRecorder()
		h.verifiedPrograms(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var page models.VerifiedProgramsPage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
		assert.Empty(t, page.ProgramIDs)
	})
}
