package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/cache"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/models"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/pkg/apierr"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/pkg/response"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/resolver"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/store"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/sweeper"
)

var validate = validator.New()

const verifiedProgramsPageSize = 50

type handlers struct {
	store    store.Store
	cache    *cache.Cache
	resolver *resolver.Resolver
	sweeper  *sweeper.Sweeper
	interval time.Duration
}

// index is the GET / banner: a minimal liveness/identity response.
func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"name":   "solana-verified-programs-api",
		"status": "ok",
	})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	lastRun := h.lastSweepTime(r)
	status := sweeper.HealthStatus(lastRun, h.interval)
	response.OK(w, map[string]string{"status": status})
}

func (h *handlers) backgroundJobStatus(w http.ResponseWriter, r *http.Request) {
	lastRun := h.lastSweepTime(r)
	status := sweeper.HealthStatus(lastRun, h.interval)
	response.OK(w, models.BackgroundJobStatus{Status: status, LastRun: lastRun})
}

func (h *handlers) lastSweepTime(r *http.Request) *time.Time {
	val, ok := h.cache.Get(r.Context(), cache.KeyBackgroundJobStatus)
	if !ok {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func (h *handlers) decodeVerifyRequest(w http.ResponseWriter, r *http.Request) (*models.VerifyRequest, bool) {
	var req models.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierr.NewValidationError("malformed request body"))
		return nil, false
	}
	if err := validate.Struct(req); err != nil {
		response.Error(w, apierr.NewValidationError(err.Error()))
		return nil, false
	}
	if err := resolver.ValidateVerifyRequest(req); err != nil {
		response.Error(w, err)
		return nil, false
	}
	return &req, true
}

func (h *handlers) verify(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeVerifyRequest(w, r)
	if !ok {
		return
	}
	req.Signer = nil // signer is always inferred from the PDA chain on this route
	ack, err := h.resolver.SubmitAsync(r.Context(), *req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, ack)
}

func (h *handlers) verifyWithSigner(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeVerifyRequest(w, r)
	if !ok {
		return
	}
	if req.Signer == nil {
		response.Error(w, apierr.NewValidationError("signer is required"))
		return
	}
	ack, err := h.resolver.SubmitAsync(r.Context(), *req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, ack)
}

func (h *handlers) verifySync(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeVerifyRequest(w, r)
	if !ok {
		return
	}
	result, err := h.resolver.SubmitSync(r.Context(), *req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, result)
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	programID := chi.URLParam(r, "program_id")
	status, err := h.resolver.CheckIsVerified(r.Context(), programID, nil)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, status)
}

func (h *handlers) statusAll(w http.ResponseWriter, r *http.Request) {
	programID := chi.URLParam(r, "program_id")
	all, err := h.resolver.GetAllVerificationInfo(r.Context(), programID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, all)
}

func (h *handlers) job(w http.ResponseWriter, r *http.Request) {
	buildID := chi.URLParam(r, "build_id")
	build, err := h.store.GetBuild(r.Context(), buildID)
	if err != nil {
		if apierr.IsNotFound(err) {
			response.Error(w, apierr.NewValidationError("build not found"))
			return
		}
		response.Error(w, err)
		return
	}
	status := build.Status
	if status == models.BuildUnused {
		status = models.BuildFailed
	}
	response.OK(w, models.JobStatusResponse{BuildID: build.BuildID, Status: status})
}

func (h *handlers) logs(w http.ResponseWriter, r *http.Request) {
	programID := chi.URLParam(r, "program_id")
	log, err := h.store.GetLatestBuildLog(r.Context(), programID)
	if err != nil {
		if apierr.IsNotFound(err) {
			response.OK(w, models.BuildLogResponse{ProgramID: programID})
			return
		}
		response.Error(w, err)
		return
	}
	response.OK(w, models.BuildLogResponse{ProgramID: log.ProgramID, ArtifactName: log.ArtifactName, CreatedAt: log.CreatedAt})
}

func (h *handlers) verifiedPrograms(w http.ResponseWriter, r *http.Request) {
	page := 1
	if p := chi.URLParam(r, "page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}

	ids, err := h.store.ListAllVerifiedProgramIDs(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	start := (page - 1) * verifiedProgramsPageSize
	end := start + verifiedProgramsPageSize
	if start > len(ids) {
		start = len(ids)
	}
	if end > len(ids) {
		end = len(ids)
	}

	response.OK(w, models.VerifiedProgramsPage{Page: page, ProgramIDs: ids[start:end]})
}

func (h *handlers) verifiedProgramsStatus(w http.ResponseWriter, r *http.Request) {
	ids, err := h.store.ListAllVerifiedProgramIDs(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	entries := make([]models.StatusAll, 0, len(ids))
	for _, id := range ids {
		all, err := h.resolver.GetAllVerificationInfo(r.Context(), id)
		if err != nil {
			continue
		}
		entries = append(entries, *all)
	}
	response.OK(w, entries)
}
