// Package cache provides the opaque string key-value layer every read path
// consults before falling back to the Store or the Chain Adapter.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/database"
)

// Cache keys, fixed per the service's read paths.
const (
	KeyOnChainHashPrefix     = ""
	KeyCheckVerifiedPrefix   = "check_is_verified:"
	KeyAllVerificationPrefix = "get_all_verification_info:"
	KeyBackgroundJobStatus   = "background_job:last_execution"

	onChainHashTTL   = 5 * time.Minute
	statusTTL        = 5 * time.Minute
	allVerifiedTTL   = 5 * time.Minute
	backgroundJobTTL = time.Hour
	authorityTTL     = time.Hour
)

// Cache is a best-effort string KV store with per-key TTLs. Every method
// swallows transport errors: a cache outage never fails a caller, it just
// falls through to a miss.
type Cache struct {
	redis *database.Redis
}

// New wraps redis as a Cache.
func New(redis *database.Redis) *Cache {
	return &Cache{redis: redis}
}

// Set stores value under key with ttl. Failures are logged and swallowed.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := c.redis.Set(ctx, key, value, ttl); err != nil {
		slog.Warn("cache set failed", "key", key, "error", err)
	}
}

// Get returns (value, true) on a hit, ("", false) on a miss or any error.
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.redis.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		slog.Warn("cache get failed", "key", key, "error", err)
		return "", false
	}
	return val, true
}

// Compare reports whether key is present and equal to value. A miss or
// transport error both report false.
func (c *Cache) Compare(ctx context.Context, key, value string) bool {
	got, ok := c.Get(ctx, key)
	return ok && got == value
}

// OnChainHashKey is the cache key for a program's last observed on-chain hash.
func OnChainHashKey(programID string) string { return programID }

// SetOnChainHash caches the latest observed on-chain hash for programID.
func (c *Cache) SetOnChainHash(ctx context.Context, programID, hash string) {
	c.Set(ctx, OnChainHashKey(programID), hash, onChainHashTTL)
}

// CheckVerifiedKey is the cache key for a serialized status response.
func CheckVerifiedKey(programID string) string { return KeyCheckVerifiedPrefix + programID }

// SetCheckVerified caches a serialized check_is_verified response.
func (c *Cache) SetCheckVerified(ctx context.Context, programID, serialized string) {
	c.Set(ctx, CheckVerifiedKey(programID), serialized, statusTTL)
}

// AllVerificationKey is the cache key for a serialized per-signer listing.
func AllVerificationKey(programID string) string { return KeyAllVerificationPrefix + programID }

// SetAllVerification caches a serialized get_all_verification_info response.
func (c *Cache) SetAllVerification(ctx context.Context, programID, serialized string) {
	c.Set(ctx, AllVerificationKey(programID), serialized, allVerifiedTTL)
}

// SetBackgroundJobStatus records the sweeper's last execution timestamp.
func (c *Cache) SetBackgroundJobStatus(ctx context.Context, timestamp string) {
	c.Set(ctx, KeyBackgroundJobStatus, timestamp, backgroundJobTTL)
}

// AuthorityKey is the cache key for a program's cached authority row.
func AuthorityKey(programID string) string { return "authority:" + programID }

// SetAuthority caches a serialized program-authority row.
func (c *Cache) SetAuthority(ctx context.Context, programID, serialized string) {
	c.Set(ctx, AuthorityKey(programID), serialized, authorityTTL)
}
