package resolver

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/cache"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/models"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/pkg/apierr"
)

// CheckIsVerified answers a single-program status query, consulting cache,
// then Store, then live chain state, repairing drift it finds along the way.
func (r *Resolver) CheckIsVerified(ctx context.Context, programID string, authorityInfo *string) (*models.VerificationStatus, error) {
	if cached, ok := r.cache.Get(ctx, cache.CheckVerifiedKey(programID)); ok {
		var status models.VerificationStatus
		if err := json.Unmarshal([]byte(cached), &status); err == nil {
			return &status, nil
		}
	}

	verified, verr := r.store.GetVerified(ctx, programID, nil)
	if verr != nil && !apierr.IsNotFound(verr) {
		return nil, verr
	}
	build, berr := r.store.GetLatestBuild(ctx, programID)
	if berr != nil && !apierr.IsNotFound(berr) {
		return nil, berr
	}
	dbFrozen, _ := r.store.IsFrozen(ctx, programID)

	isFrozen := dbFrozen
	var authority *string
	switch {
	case authorityInfo != nil:
		authority = authorityInfo
	case dbFrozen:
		// Trust the cached frozen flag; skip the chain round trip.
	default:
		auth, err := r.chain.GetProgramAuthority(ctx, programID)
		if err == nil {
			authority = auth.Address
			isFrozen = auth.IsFrozen
			if isFrozen != dbFrozen {
				if err := r.store.UpsertProgramAuthority(ctx, programID, authority, isFrozen, auth.IsClosed); err != nil {
					slog.Warn("check_is_verified: authority upsert failed", "program_id", programID, "error", err)
				}
			}
		}
	}

	status := &models.VerificationStatus{IsFrozen: isFrozen}
	if build != nil {
		status.RepoURL = build.Repository
		status.Commit = derefOr(build.Commit, "")
	}
	if verified != nil {
		status.OnChainHash = verified.OnChainHash
		status.ExecutableHash = verified.ExecutableHash
		verifiedAt := verified.VerifiedAt
		status.LastVerifiedAt = &verifiedAt
	}

	if cachedHash, hit := r.cache.Get(ctx, programID); hit && verified != nil && cachedHash == verified.ExecutableHash {
		status.IsVerified = true
		r.populateCache(ctx, programID, status)
		return status, nil
	}

	if isFrozen {
		if verified != nil {
			status.IsVerified = verified.OnChainHash != "" && verified.OnChainHash == verified.ExecutableHash
		}
		r.populateCache(ctx, programID, status)
		return status, nil
	}

	onChainHash, err := r.chain.GetOnChainHash(ctx, programID, r.rpcURL)
	if err != nil {
		if verified != nil {
			status.IsVerified = verified.OnChainHash != "" && verified.OnChainHash == verified.ExecutableHash
		}
		r.populateCache(ctx, programID, status)
		return status, nil
	}

	r.cache.SetOnChainHash(ctx, programID, onChainHash)
	status.OnChainHash = onChainHash
	if verified != nil {
		status.IsVerified = onChainHash == verified.ExecutableHash
		if onChainHash != verified.OnChainHash {
			isVerifiedAfter := onChainHash == verified.ExecutableHash
			if err := r.store.UpdateOnChainHash(ctx, programID, onChainHash, isVerifiedAfter); err != nil {
				slog.Warn("check_is_verified: update_onchain_hash failed", "program_id", programID, "error", err)
			}
			if build != nil {
				go r.ReverifyProgram(context.Background(), *build)
			}
		}
	}

	r.populateCache(ctx, programID, status)
	return status, nil
}

func (r *Resolver) populateCache(ctx context.Context, programID string, status *models.VerificationStatus) {
	body, err := json.Marshal(status)
	if err != nil {
		return
	}
	r.cache.SetCheckVerified(ctx, programID, string(body))
}

// GetAllVerificationInfo answers the per-signer listing query.
func (r *Resolver) GetAllVerificationInfo(ctx context.Context, programID string) (*models.StatusAll, error) {
	if cached, ok := r.cache.Get(ctx, cache.AllVerificationKey(programID)); ok {
		var all models.StatusAll
		if err := json.Unmarshal([]byte(cached), &all); err == nil {
			return &all, nil
		}
	}

	rows, err := r.store.ListVerifiedWithSigner(ctx, programID)
	if err != nil && !apierr.IsNotFound(err) {
		return nil, err
	}

	onChainHash, hit := r.cache.Get(ctx, programID)
	if !hit {
		if h, err := r.chain.GetOnChainHash(ctx, programID, r.rpcURL); err == nil {
			onChainHash = h
			r.cache.SetOnChainHash(ctx, programID, h)
		}
	}

	var needsReverify *models.Build
	entries := make([]models.StatusAllEntry, 0, len(rows))
	for i := range rows {
		row := rows[i]
		entry := models.StatusAllEntry{
			Signer: row.Build.Signer,
			RepoURL: row.Build.Repository,
			Commit:  derefOr(row.Build.Commit, ""),
		}
		if row.IsFrozen != nil {
			entry.IsFrozen = *row.IsFrozen
		}
		if row.Verified != nil {
			entry.OnChainHash = row.Verified.OnChainHash
			entry.ExecutableHash = row.Verified.ExecutableHash
			verifiedAt := row.Verified.VerifiedAt
			entry.LastVerifiedAt = &verifiedAt
			entry.IsVerified = row.Verified.IsVerified

			if onChainHash != "" && onChainHash != row.Verified.ExecutableHash {
				if err := r.store.UpdateOnChainHash(ctx, row.Build.ProgramID, onChainHash, false); err != nil {
					slog.Warn("get_all_verification_info: update_onchain_hash failed", "program_id", programID, "error", err)
				}
				entry.IsVerified = false
				b := row.Build
				needsReverify = &b
			}
		}

		if row.IsFrozen == nil || !*row.IsFrozen {
			auth, err := r.chain.GetProgramAuthority(ctx, row.Build.ProgramID)
			if err == nil {
				wasFrozen := row.IsFrozen != nil && *row.IsFrozen
				if auth.IsFrozen != wasFrozen {
					if err := r.store.UpsertProgramAuthority(ctx, row.Build.ProgramID, auth.Address, auth.IsFrozen, auth.IsClosed); err != nil {
						slog.Warn("get_all_verification_info: authority upsert failed", "program_id", programID, "error", err)
					}
				}
			}
		}

		entries = append(entries, entry)
	}

	result := &models.StatusAll{ProgramID: programID, Verified: entries}

	if needsReverify != nil {
		go r.ReverifyProgram(context.Background(), *needsReverify)
	}

	if body, err := json.Marshal(result); err == nil {
		r.cache.SetAllVerification(ctx, programID, string(body))
	}
	return result, nil
}

// ReverifyProgram re-derives authority and PDA params for build's program and
// re-runs Engine with the on-chain params, which replace the stored build's.
// It runs synchronously; callers start it in its own goroutine.
func (r *Resolver) ReverifyProgram(ctx context.Context, build models.Build) {
	setup, err := r.setupVerification(ctx, build.ProgramID, &build.Signer)
	if err != nil {
		slog.Warn("reverify_program: setup failed", "program_id", build.ProgramID, "error", err)
		return
	}

	params := *setup.buildParams
	newBuild := buildFromParams(params, setup.signer)
	newBuild.Status = models.BuildInProgress
	if err := r.store.InsertBuild(ctx, &newBuild); err != nil {
		slog.Warn("reverify_program: insert build failed", "program_id", build.ProgramID, "error", err)
		return
	}

	verified, err := r.engine.Verify(ctx, params, newBuild.BuildID, "")
	if err != nil {
		if uerr := r.store.UpdateBuildStatus(ctx, newBuild.BuildID, models.BuildFailed); uerr != nil {
			slog.Warn("reverify_program: status update failed", "build_id", newBuild.BuildID, "error", uerr)
		}
		return
	}
	if err := r.store.UpsertVerified(ctx, verified); err != nil {
		slog.Warn("reverify_program: upsert verified failed", "build_id", newBuild.BuildID, "error", err)
	}
	if err := r.store.UpdateBuildStatus(ctx, newBuild.BuildID, models.BuildCompleted); err != nil {
		slog.Warn("reverify_program: status update failed", "build_id", newBuild.BuildID, "error", err)
	}
}
