// Package sweeper implements the Fleet Sweeper: a periodic job that refreshes
// authority/frozen/closed flags for every verified program.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/cache"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/chain"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/config"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/store"
)

const interBatchDelay = 100 * time.Millisecond
const maxConsecutiveFailures = 5
const backoffSleep = 5 * time.Minute

// Sweeper periodically refreshes ProgramAuthority rows for every verified
// program, in bounded-concurrency batches.
type Sweeper struct {
	store         store.Store
	cache         *cache.Cache
	chain         *chain.Adapter
	interval      time.Duration
	batchSize     int
	maxConcurrent int
}

// New constructs a Sweeper from its tuning config.
func New(st store.Store, c *cache.Cache, ch *chain.Adapter, cfg config.SweeperConfig) *Sweeper {
	return &Sweeper{
		store:         st,
		cache:         c,
		chain:         ch,
		interval:      time.Duration(cfg.IntervalSeconds) * time.Second,
		batchSize:     cfg.BatchSize,
		maxConcurrent: cfg.MaxConcurrent,
	}
}

// Run blocks ticking the sweep until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	consecutiveFailures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.tick(ctx); err != nil {
				consecutiveFailures++
				slog.Error("sweeper tick failed", "error", err, "consecutive_failures", consecutiveFailures)
				if consecutiveFailures >= maxConsecutiveFailures {
					slog.Warn("sweeper backing off after repeated failures", "sleep", backoffSleep)
					select {
					case <-time.After(backoffSleep):
					case <-ctx.Done():
						return
					}
					consecutiveFailures = 0
				}
			} else {
				consecutiveFailures = 0
			}
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) error {
	s.cache.SetBackgroundJobStatus(ctx, time.Now().UTC().Format(time.RFC3339))

	programIDs, err := s.store.ListAllVerifiedProgramIDs(ctx)
	if err != nil {
		return err
	}

	for start := 0; start < len(programIDs); start += s.batchSize {
		end := start + s.batchSize
		if end > len(programIDs) {
			end = len(programIDs)
		}
		s.sweepBatch(ctx, programIDs[start:end])

		if end < len(programIDs) {
			select {
			case <-time.After(interBatchDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

func (s *Sweeper) sweepBatch(ctx context.Context, programIDs []string) {
	sem := make(chan struct{}, s.maxConcurrent)
	done := make(chan struct{}, len(programIDs))

	for _, programID := range programIDs {
		sem <- struct{}{}
		go func(id string) {
			defer func() { <-sem; done <- struct{}{} }()
			s.sweepOne(ctx, id)
		}(programID)
	}
	for range programIDs {
		<-done
	}
}

func (s *Sweeper) sweepOne(ctx context.Context, programID string) {
	result, err := s.chain.GetProgramAuthority(ctx, programID)
	if err != nil {
		result = &chain.Authority{IsClosed: true, IsFrozen: false}
	}

	current, err := s.store.GetProgramAuthority(ctx, programID)
	var currentFrozen, currentClosed bool
	if err == nil && current != nil {
		currentFrozen, currentClosed = current.IsFrozen, current.IsClosed
	}

	if result.IsFrozen != currentFrozen || result.IsClosed != currentClosed {
		if err := s.store.UpsertProgramAuthority(ctx, programID, result.Address, result.IsFrozen, result.IsClosed); err != nil {
			slog.Warn("sweeper: authority upsert failed", "program_id", programID, "error", err)
		}
	}

	if result.IsClosed && !currentClosed {
		if err := s.store.MarkUnverified(ctx, programID); err != nil {
			slog.Warn("sweeper: mark_unverified failed", "program_id", programID, "error", err)
		}
	}
}

// HealthStatus classifies the sweeper's liveness for GET /health and
// GET /background-job/status.
func HealthStatus(lastRun *time.Time, interval time.Duration) string {
	if lastRun == nil {
		return "Unknown"
	}
	if time.Since(*lastRun) > 2*interval {
		return "Inactive"
	}
	return "Active"
}
