package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"attendgate/internal/aggregate"
	"attendgate/internal/auth"
	"attendgate/internal/gateway"
	"attendgate/internal/gateway/handler"
	"attendgate/internal/platform/config"
	"attendgate/internal/platform/httpserver"
	"attendgate/internal/platform/logger"
	"attendgate/internal/platform/metrics"
	redisclient "attendgate/internal/platform/redis"
	"attendgate/internal/ratelimit/ports"
	ratelimit "attendgate/internal/ratelimit/service"
	"attendgate/internal/ratelimit/store/bucket"
	"attendgate/internal/registry"
	"attendgate/internal/security/audit"
	"attendgate/internal/security/gate"
	"attendgate/internal/security/ipfilter"
	"attendgate/internal/token"
)

// main wires dependencies and owns the server lifecycle. Business logic lives
// in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := redisclient.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}

	var store ports.BucketStore
	if redisClient != nil {
		store = bucket.NewRedisBucketStore(redisClient.Client)
		log.Info("rate limiting backed by redis")
	} else {
		memStore := bucket.NewInMemoryBucketStore()
		memStore.StartJanitor(ctx, time.Minute, cfg.RateLimitWindow)
		store = memStore
		log.Info("rate limiting backed by in-memory store")
	}

	recorder := audit.New(log, audit.WithMetrics(m))

	limiter, err := ratelimit.New(store, cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.BlockDuration,
		ratelimit.WithLogger(log), ratelimit.WithAudit(recorder), ratelimit.WithMetrics(m))
	if err != nil {
		log.Error("invalid rate limit configuration", "error", err)
		os.Exit(1)
	}

	tokens := token.NewService(cfg.TokenSecret, cfg.TokenIssuer, cfg.TokenTTL)
	chain := auth.NewChain(
		auth.NewTokenVerifier(tokens),
		auth.NewStaticKeyVerifier(cfg.StaticKeys),
	)
	if cfg.DevAllowNoAuth {
		log.Warn("authentication disabled by development override")
	}

	reg, err := registry.FromEnv(cfg.BackendsFile)
	if err != nil {
		log.Error("backend registry load failed", "error", err)
		os.Exit(1)
	}
	if reg.Len() == 0 {
		log.Warn("no backend targets configured, aggregation endpoints will return empty results")
	}

	client := aggregate.NewClient(tokens, cfg.BackendKey, log, aggregate.WithMetrics(m))
	service := aggregate.New(reg, client, log,
		aggregate.WithAudit(recorder), aggregate.WithServiceMetrics(m))

	g := gate.New(ipfilter.New(cfg.AllowedIPs), limiter, cfg.MaxRequestSize, recorder, log, gate.WithMetrics(m))
	h := handler.New(service, reg)
	router := gateway.NewRouter(h, g, auth.RequireAuth(chain, recorder, log, cfg.DevAllowNoAuth), cfg.AllowedOrigins)

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("gateway listening", "addr", cfg.Addr, "backends", reg.Len())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
