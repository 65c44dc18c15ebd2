// Package httpapi assembles the HTTP Surface: routing, rate limits, CORS,
// and compression over the verify/status/job/logs/webhook handlers.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"golang.org/x/time/rate"

	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/cache"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/config"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/database"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/middleware"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/resolver"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/store"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/sweeper"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/webhook"
)

// Deps collects everything the router needs to build handlers.
type Deps struct {
	Store    store.Store
	Cache    *cache.Cache
	Redis    *database.Redis
	Resolver *resolver.Resolver
	Webhook  *webhook.Handler
	Sweeper  *sweeper.Sweeper
	Auth     config.AuthConfig
	Interval time.Duration
}

// NewRouter builds the chi router covering every route in spec.md §4.H.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(middleware.CORS())
	r.Use(middleware.Metrics())
	r.Use(middleware.Logging(slog.Default()))
	r.Use(chimiddleware.Recoverer)

	h := &handlers{store: d.Store, cache: d.Cache, resolver: d.Resolver, sweeper: d.Sweeper, interval: d.Interval}

	r.Get("/", h.index)
	r.Get("/health", h.health)
	r.Get("/background-job/status", h.backgroundJobStatus)

	writeGroup := r.Group(nil)
	writeGroup.Use(gzhttp.GzipHandler)
	writeGroup.Use(middleware.Global(rate.NewLimiter(rate.Limit(5), 5), 1024))
	writeGroup.Use(middleware.PerIP(d.Redis, middleware.PerIPConfig{Limit: 1, Window: 30 * time.Second}))
	writeGroup.Post("/verify", h.verify)
	writeGroup.Post("/verify-with-signer", h.verifyWithSigner)
	writeGroup.Post("/verify_sync", h.verifySync)

	webhookGroup := r.Group(nil)
	webhookGroup.Use(middleware.Global(rate.NewLimiter(rate.Limit(100), 100), 1024))
	webhookGroup.Use(middleware.PerIP(d.Redis, middleware.PerIPConfig{Limit: 100, Window: time.Second}))
	webhookGroup.Use(middleware.WebhookAuth(d.Auth.Secret))
	webhookGroup.Post("/unverify", d.Webhook.Unverify)
	webhookGroup.Post("/pda-updates", d.Webhook.PdaUpdates)

	readGroup := r.Group(nil)
	readGroup.Use(middleware.Global(rate.NewLimiter(rate.Limit(10000), 10000), 4096))
	readGroup.Use(middleware.PerIP(d.Redis, middleware.PerIPConfig{Limit: 100, Window: time.Second}))
	readGroup.Get("/status/{program_id}", h.status)
	readGroup.Get("/status-all/{program_id}", h.statusAll)
	readGroup.Get("/job/{build_id}", h.job)
	readGroup.Get("/logs/{program_id}", h.logs)
	readGroup.Get("/verified-programs", h.verifiedPrograms)
	readGroup.Get("/verified-programs/{page}", h.verifiedPrograms)
	readGroup.Get("/verified-programs-status", h.verifiedProgramsStatus)

	return r
}
