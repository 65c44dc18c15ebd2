// Package main is the entry point for the program-verification service.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/cache"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/chain"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/config"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/database"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/engine"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/httpapi"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/resolver"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/store"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/sweeper"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/webhook"
)

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.Info("starting verification service", slog.Int("port", cfg.Server.Port))

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("connected to postgres")

	if err := store.Migrate(cfg.Database.URL); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
	logger.Info("migrations applied")

	redis, err := database.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redis.Close()
	logger.Info("connected to redis")

	st := store.New(db.Pool())
	cch := cache.New(redis)
	chainAdapter := chain.New(cfg.Chain, cfg.Builder)
	eng := engine.New(cfg.Builder)
	rv := resolver.New(st, cch, chainAdapter, eng, cfg.Chain.RPCURL)
	wh := webhook.New(st, chainAdapter, rv, cfg.Chain.RPCURL, cfg.Chain.VerifierProgram)
	sw := sweeper.New(st, cch, chainAdapter, cfg.Sweeper)

	sweeperCtx, cancelSweeper := context.WithCancel(context.Background())
	go sw.Run(sweeperCtx)

	router := httpapi.NewRouter(httpapi.Deps{
		Store:    st,
		Cache:    cch,
		Redis:    redis,
		Resolver: rv,
		Webhook:  wh,
		Sweeper:  sw,
		Auth:     cfg.Auth,
		Interval: time.Duration(cfg.Sweeper.IntervalSeconds) * time.Second,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Minute,
	}

	go func() {
		logger.Info("server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutting down", slog.String("signal", sig.String()))

	cancelSweeper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server shutdown error: %v", err)
	}
}
