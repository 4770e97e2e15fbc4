package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/matchfeed/internal/adapter/httpserver"
	"github.com/pscheid92/matchfeed/internal/adapter/metrics"
	"github.com/pscheid92/matchfeed/internal/adapter/postgres"
	"github.com/pscheid92/matchfeed/internal/adapter/redis"
	"github.com/pscheid92/matchfeed/internal/admission"
	"github.com/pscheid92/matchfeed/internal/app"
	"github.com/pscheid92/matchfeed/internal/broadcast"
	"github.com/pscheid92/matchfeed/internal/platform/config"
	"github.com/pscheid92/matchfeed/internal/platform/logging"
	"github.com/pscheid92/matchfeed/internal/platform/retry"
	"github.com/pscheid92/matchfeed/internal/platform/version"
	goredis "github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// setupDB retries the initial connection so the server survives a database that
// comes up a few seconds after it.
func setupDB(cfg *config.Config, clock clockwork.Clock, reg prometheus.Registerer) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	tracer := postgres.NewMetricsTracer(metrics.NewDBMetrics(reg))
	policy := retry.Policy{
		MaxAttempts:    6,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
		Clock:          clock,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Database not reachable, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		},
	}

	pool, err := retry.Do(ctx, policy, retry.UnlessCanceled, func(ctx context.Context) (*pgxpool.Pool, error) {
		return postgres.Connect(ctx, cfg.DatabaseURL, tracer)
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

// setupRedis returns nil when REDIS_URL is unset; Redis only adds shared
// connect limits and status sync leader election.
func setupRedis(cfg *config.Config, reg prometheus.Registerer) *goredis.Client {
	if cfg.RedisURL == "" {
		slog.Info("REDIS_URL not set, running without shared connect limits")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	redisMetrics := metrics.NewRedisMetrics(reg)
	client, err := redis.NewClient(ctx, cfg.RedisURL,
		redis.NewMetricsHook(redisMetrics),
		redis.NewCircuitBreakerHook(redisMetrics),
	)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func setupAdmission(cfg *config.Config, clock clockwork.Clock, rdb *goredis.Client) admission.Gate {
	gates := admission.Chain{
		admission.NewOriginGate(cfg.AppURL, !cfg.IsProduction()),
		admission.NewConnectionLimits(clock, admission.LimitsConfig{
			MaxConnections:       cfg.MaxConnections,
			MaxConnectionsPerIP:  cfg.MaxConnectionsPerIP,
			ConnectionsPerSecond: cfg.ConnectRate,
			Burst:                cfg.ConnectBurst,
			TrustProxyHeaders:    cfg.TrustProxyHeaders,
		}),
	}
	if rdb != nil {
		gates = append(gates, redis.NewConnectRateGate(rdb, clock, cfg.RedisConnectBurst, cfg.RedisConnectsPerMinute, cfg.TrustProxyHeaders))
	}
	return gates
}

func healthChecks(pool *pgxpool.Pool, rdb *goredis.Client) []httpserver.HealthCheck {
	checks := []httpserver.HealthCheck{
		{Name: "postgres", Check: pool.Ping},
	}
	if rdb != nil {
		checks = append(checks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}
	return checks
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.NewString()[:8])
}

func runGracefulShutdown(srv *httpserver.Server, hub *broadcast.Hub, stopBackground context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := hub.Stop(shutdownCtx); err != nil {
			slog.Error("Hub shutdown error", "error", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		stopBackground()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	info := version.Get()
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", info.Version, "commit", info.Commit)

	reg := metrics.NewRegistry()

	pool := setupDB(cfg, clock, reg)
	defer pool.Close()

	redisClient := setupRedis(cfg, reg)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	hub := broadcast.NewHub(broadcast.Config{
		Path:              cfg.WebSocketPath,
		MaxMessageBytes:   cfg.WebSocketMaxMessageBytes,
		HeartbeatInterval: cfg.HeartbeatInterval,
		SendBuffer:        cfg.SendBufferSize,
	}, setupAdmission(cfg, clock, redisClient), clock, metrics.NewHubMetrics(reg))
	hub.Start()

	matchRepo := postgres.NewMatchRepo(pool)
	appSvc := app.NewService(matchRepo, postgres.NewCommentaryRepo(pool), hub, clock)

	// Pass nil explicitly to avoid a typed-nil interface.
	var leader app.Leadership
	if redisClient != nil {
		// The lease outlives a few missed ticks before another instance takes over.
		leader = app.NewLeaderElector(redisClient, instanceID(), 3*cfg.StatusSyncInterval)
	}
	backgroundCtx, stopBackground := context.WithCancel(context.Background())
	syncer := app.NewStatusSyncer(matchRepo, leader, clock, cfg.StatusSyncInterval)
	syncDone := make(chan struct{})
	go func() {
		defer close(syncDone)
		syncer.Run(backgroundCtx)
	}()

	srv := httpserver.NewServer(cfg, appSvc, hub, metrics.NewHTTPMetrics(reg), metrics.Handler(reg), healthChecks(pool, redisClient), clock)

	done := runGracefulShutdown(srv, hub, stopBackground)

	if err := srv.Start(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
	<-syncDone
	slog.Info("Shutdown complete")
}
