// Package resolver implements the Request Resolver: setup, deduplication,
// spawn-and-track dispatch of verification attempts, and the read path's
// cache/DB/chain reconciliation.
package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/cache"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/chain"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/engine"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/models"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/pkg/apierr"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/pkg/ulid"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/store"
)

// webhookDispatchTimeout is long enough to tolerate a slow receiver without
// ever becoming the reason an async verification is reported as failed — the
// dispatch runs after the job has already been recorded.
const webhookDispatchTimeout = 18000 * time.Second

// Resolver ties together Store, Cache, Chain Adapter and Engine to implement
// the verify/status request lifecycle.
type Resolver struct {
	store         store.Store
	cache         *cache.Cache
	chain         *chain.Adapter
	engine        *engine.Engine
	rpcURL        string
	webhookClient *http.Client
}

// New constructs a Resolver.
func New(st store.Store, c *cache.Cache, ch *chain.Adapter, eng *engine.Engine, rpcURL string) *Resolver {
	return &Resolver{
		store:         st,
		cache:         c,
		chain:         ch,
		engine:        eng,
		rpcURL:        rpcURL,
		webhookClient: &http.Client{Timeout: webhookDispatchTimeout},
	}
}

// ValidateVerifyRequest checks the syntactic preconditions of a verify
// request: program_id and signer (if present) are chain addresses;
// repository and webhook (if present) are http/https URLs with a host.
func ValidateVerifyRequest(req models.VerifyRequest) error {
	if !isValidChainAddress(req.ProgramID) {
		return apierr.NewValidationError("program_id is not a valid chain address")
	}
	if req.Signer != nil && !isValidChainAddress(*req.Signer) {
		return apierr.NewValidationError("signer is not a valid chain address")
	}
	if !isHTTPURLWithHost(req.Repository) {
		return apierr.NewValidationError("repository must be an http/https URL with a host")
	}
	if req.Webhook != nil && !isHTTPURLWithHost(*req.Webhook) {
		return apierr.NewValidationError("webhook must be an http/https URL with a host")
	}
	return nil
}

func isHTTPURLWithHost(raw string) bool {
	return strings.HasPrefix(raw, "http://") && len(raw) > len("http://") ||
		strings.HasPrefix(raw, "https://") && len(raw) > len("https://")
}

// setupResult is the outcome of setup_verification.
type setupResult struct {
	buildParams *models.BuildParams
	signer      string
	authority   *string
	isFrozen    bool
	isClosed    bool
}

// setupVerification resolves on-chain authority and otter-verify PDA
// parameters for a verify request. A "closed" authority lookup is swallowed
// into isClosed=true rather than aborting, since a closed program can still
// be meaningfully recorded as unverifiable; any other authority error is
// swallowed as "unknown" so a transient RPC hiccup doesn't block setup.
func (r *Resolver) setupVerification(ctx context.Context, programID string, explicitSigner *string) (*setupResult, error) {
	var authority *string
	var isFrozen, isClosed bool

	auth, err := r.chain.GetProgramAuthority(ctx, programID)
	switch {
	case err == nil:
		authority, isFrozen, isClosed = auth.Address, auth.IsFrozen, auth.IsClosed
	case apierr.IsClosed(err):
		isClosed = true
	default:
		slog.Warn("setup_verification: authority lookup failed, proceeding without it", "program_id", programID, "error", err)
	}

	params, signer, err := r.chain.GetOtterVerifyParams(ctx, programID, explicitSigner, authority)
	if err != nil {
		return nil, apierr.ErrPdaNotFound
	}

	if err := r.store.UpsertProgramAuthority(ctx, programID, authority, isFrozen, isClosed); err != nil {
		slog.Warn("setup_verification: authority upsert failed", "program_id", programID, "error", err)
	}

	return &setupResult{buildParams: params, signer: signer, authority: authority, isFrozen: isFrozen, isClosed: isClosed}, nil
}

// dedupeOutcome classifies what find_duplicate found.
type dedupeOutcome int

const (
	dedupeNone dedupeOutcome = iota
	dedupeCompleted
	dedupeInProgress
)

func (r *Resolver) dedupe(ctx context.Context, params models.BuildParams, signer string) (dedupeOutcome, *models.Build, error) {
	existing, err := r.store.FindDuplicate(ctx, params, signer)
	if err != nil {
		if apierr.IsNotFound(err) {
			return dedupeNone, nil, nil
		}
		return dedupeNone, nil, err
	}
	if existing == nil {
		return dedupeNone, nil, nil
	}
	switch existing.Status {
	case models.BuildCompleted:
		return dedupeCompleted, existing, nil
	case models.BuildInProgress:
		return dedupeInProgress, existing, nil
	default:
		return dedupeNone, nil, nil
	}
}

// SubmitAsync runs setup and dedupe synchronously, then spawns Engine in the
// background and returns immediately with the new build's id.
func (r *Resolver) SubmitAsync(ctx context.Context, req models.VerifyRequest) (*models.VerifyAck, error) {
	setup, err := r.setupVerification(ctx, req.ProgramID, req.Signer)
	if err != nil {
		return nil, err
	}

	outcome, existing, err := r.dedupe(ctx, *setup.buildParams, setup.signer)
	if err != nil {
		return nil, err
	}
	switch outcome {
	case dedupeCompleted:
		r.checkProgramClosed(ctx, req.ProgramID)
		return &models.VerifyAck{Status: string(models.BuildCompleted), RequestID: existing.BuildID}, nil
	case dedupeInProgress:
		return &models.VerifyAck{Status: string(models.BuildInProgress), RequestID: existing.BuildID}, nil
	}

	buildID, err := r.insertAttempt(ctx, *setup.buildParams, setup.signer)
	if err != nil {
		return nil, err
	}

	go r.runAttempt(context.Background(), *setup.buildParams, buildID, req.Webhook)

	return &models.VerifyAck{Status: string(models.BuildInProgress), RequestID: buildID}, nil
}

// SubmitSync is identical to SubmitAsync through dedupe, but runs Engine
// inline and returns the final verdict. A dedupe hit against an in-progress
// build is not an error: it returns the same in-progress verify-ack shape
// SubmitAsync would, carrying the original build's id, rather than blocking
// the caller on a build it didn't start.
func (r *Resolver) SubmitSync(ctx context.Context, req models.VerifyRequest) (any, error) {
	setup, err := r.setupVerification(ctx, req.ProgramID, req.Signer)
	if err != nil {
		return nil, err
	}

	outcome, existing, err := r.dedupe(ctx, *setup.buildParams, setup.signer)
	if err != nil {
		return nil, err
	}
	if outcome == dedupeCompleted {
		r.checkProgramClosed(ctx, req.ProgramID)
		return r.statusFromExistingBuild(ctx, existing)
	}
	if outcome == dedupeInProgress {
		return &models.VerifyAck{Status: string(models.BuildInProgress), RequestID: existing.BuildID}, nil
	}

	buildID, err := r.insertAttempt(ctx, *setup.buildParams, setup.signer)
	if err != nil {
		return nil, err
	}

	verified, err := r.engine.Verify(ctx, *setup.buildParams, buildID, "")
	if err != nil {
		_ = r.store.UpdateBuildStatus(ctx, buildID, models.BuildFailed)
		return nil, apierr.ErrBuildSync
	}
	if err := r.store.UpsertVerified(ctx, verified); err != nil {
		slog.Warn("sync verify: upsert verified failed", "build_id", buildID, "error", err)
	}
	if err := r.store.UpdateBuildStatus(ctx, buildID, models.BuildCompleted); err != nil {
		slog.Warn("sync verify: status update failed", "build_id", buildID, "error", err)
	}

	return &models.VerificationStatus{
		IsVerified:     verified.IsVerified,
		OnChainHash:    verified.OnChainHash,
		ExecutableHash: verified.ExecutableHash,
		RepoURL:        setup.buildParams.Repository,
		Commit:         derefOr(setup.buildParams.Commit, ""),
		IsFrozen:       setup.isFrozen,
	}, nil
}

// insertAttempt records the two-row audit trail: an initial row immediately
// marked Completed standing for the dedupe source that seeded this attempt,
// and a second InProgress row for the actual attempt.
func (r *Resolver) insertAttempt(ctx context.Context, params models.BuildParams, signer string) (string, error) {
	seed := buildFromParams(params, signer)
	seed.Status = models.BuildCompleted
	if err := r.store.InsertBuild(ctx, &seed); err != nil {
		return "", err
	}

	attempt := buildFromParams(params, signer)
	attempt.Status = models.BuildInProgress
	if err := r.store.InsertBuild(ctx, &attempt); err != nil {
		return "", err
	}
	return attempt.BuildID, nil
}

func buildFromParams(params models.BuildParams, signer string) models.Build {
	bpfFlag := false
	if params.BPFFlag != nil {
		bpfFlag = *params.BPFFlag
	}
	return models.Build{
		BuildID:     ulid.New(),
		ProgramID:   params.ProgramID,
		Repository:  params.Repository,
		Commit:      params.Commit,
		LibraryName: params.LibraryName,
		BaseImage:   params.BaseImage,
		MountPath:   params.MountPath,
		CargoArgs:   params.CargoArgs,
		BPFFlag:     bpfFlag,
		Arch:        params.Arch,
		Signer:      signer,
	}
}

// runAttempt runs Engine for a background attempt and, on completion,
// best-effort dispatches the caller's webhook. It never propagates an error
// to a caller — there is no caller left to hear it.
func (r *Resolver) runAttempt(ctx context.Context, params models.BuildParams, buildID string, webhook *string) {
	verified, err := r.engine.Verify(ctx, params, buildID, "")
	if err != nil {
		slog.Error("async verify failed", "build_id", buildID, "error", err)
		if uerr := r.store.UpdateBuildStatus(ctx, buildID, models.BuildFailed); uerr != nil {
			slog.Warn("async verify: status update failed", "build_id", buildID, "error", uerr)
		}
		r.dispatchWebhook(ctx, webhook, models.WebhookOutPayload{
			Status:    string(models.BuildFailed),
			RequestID: buildID,
			Message:   err.Error(),
		})
		return
	}

	if err := r.store.UpsertVerified(ctx, verified); err != nil {
		slog.Warn("async verify: upsert verified failed", "build_id", buildID, "error", err)
	}
	if err := r.store.UpdateBuildStatus(ctx, buildID, models.BuildCompleted); err != nil {
		slog.Warn("async verify: status update failed", "build_id", buildID, "error", err)
	}

	r.dispatchWebhook(ctx, webhook, models.WebhookOutPayload{
		Status:         string(models.BuildCompleted),
		RequestID:      buildID,
		OnChainHash:    verified.OnChainHash,
		ExecutableHash: verified.ExecutableHash,
	})
}

func (r *Resolver) dispatchWebhook(ctx context.Context, webhook *string, payload models.WebhookOutPayload) {
	if webhook == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("webhook dispatch: marshal failed", "error", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *webhook, bytes.NewReader(body))
	if err != nil {
		slog.Warn("webhook dispatch: request construction failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.webhookClient.Do(req)
	if err != nil {
		slog.Warn("webhook dispatch failed", "url", *webhook, "error", err)
		return
	}
	defer resp.Body.Close()
}

// checkProgramClosed re-checks a program's authority and marks it unverified
// in the Store if it's gone. Errors are logged, not returned: this runs as a
// side effect of a status answer, never as the thing the caller waited on.
func (r *Resolver) checkProgramClosed(ctx context.Context, programID string) {
	auth, err := r.chain.GetProgramAuthority(ctx, programID)
	if err != nil {
		if !apierr.IsClosed(err) {
			return
		}
		if err := r.store.MarkUnverified(ctx, programID); err != nil {
			slog.Warn("check_program_closed: mark_unverified failed", "program_id", programID, "error", err)
		}
		return
	}
	if auth.IsClosed {
		if err := r.store.MarkUnverified(ctx, programID); err != nil {
			slog.Warn("check_program_closed: mark_unverified failed", "program_id", programID, "error", err)
		}
	}
}

func (r *Resolver) statusFromExistingBuild(ctx context.Context, build *models.Build) (*models.VerificationStatus, error) {
	verified, err := r.store.GetVerified(ctx, build.ProgramID, &build.Signer)
	if err != nil && !apierr.IsNotFound(err) {
		return nil, err
	}
	frozen, _ := r.store.IsFrozen(ctx, build.ProgramID)

	status := &models.VerificationStatus{
		RepoURL:  build.Repository,
		Commit:   derefOr(build.Commit, ""),
		IsFrozen: frozen,
	}
	if verified != nil {
		status.IsVerified = verified.IsVerified
		status.OnChainHash = verified.OnChainHash
		status.ExecutableHash = verified.ExecutableHash
		verifiedAt := verified.VerifiedAt
		status.LastVerifiedAt = &verifiedAt
	}
	return status, nil
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
