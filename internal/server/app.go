package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/adminauth"
	"github.com/MrEthical07/adminauth/middleware"
	"github.com/MrEthical07/adminauth/store/postgres"
)

// App is a wired server ready to listen.
type App struct {
	Engine  *adminauth.Engine
	Handler http.Handler

	cfg     *Config
	logger  *slog.Logger
	db      *sql.DB
	closers []func()
}

// New builds the engine and router from cfg. Storage is selected by
// DATABASE_URL and REDIS_ADDR: Postgres holds accounts, roles and audit
// events; Redis, when set, holds sessions and rate windows.
func New(ctx context.Context, cfg *Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{cfg: cfg, logger: logger}

	engineCfg := adminauth.DefaultConfig()
	engineCfg.JWT.Secret = []byte(cfg.JWTSecret)
	engineCfg.JWT.Issuer = cfg.JWTIssuer
	engineCfg.JWT.AccessTTL = cfg.AccessTTL
	engineCfg.JWT.RefreshTTL = cfg.RefreshTTL
	engineCfg.RateLimit.Enabled = cfg.RateLimitEnabled
	engineCfg.RateLimit.Guest = cfg.RateLimitGuest
	engineCfg.RateLimit.Authenticated = cfg.RateLimitAuthenticated
	engineCfg.RateLimit.AuthEndpoints = cfg.RateLimitAuthEndpoints
	engineCfg.Session.CheckAccountState = cfg.CheckAccountState
	engineCfg.Metrics.EnableLatencyHistograms = true

	builder := adminauth.New().WithConfig(engineCfg).WithLogger(logger)
	sinks := adminauth.MultiSink{adminauth.NewSlogSink(logger)}

	var auditStore *postgres.AuditStore
	if cfg.DatabaseURL != "" {
		if cfg.RunMigrations {
			if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
				return nil, err
			}
			logger.Info("database migrations applied")
		}
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func() { _ = db.Close() })
		if err := db.PingContext(ctx); err != nil {
			app.Close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		app.db = db
		logger.Info("database connection established")

		accounts := postgres.NewAccountStore(db, nil)
		auditStore = postgres.NewAuditStore(db)
		builder.WithAccountStore(accounts).WithRoleStore(accounts)
		sinks = append(sinks, auditStore)
		if cfg.RedisAddr == "" {
			builder.WithSessionStore(postgres.NewSessionStore(db, nil))
		}
	}

	if cfg.RedisAddr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.RedisAddr},
			Password: cfg.RedisPassword,
		})
		app.closers = append(app.closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			app.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		builder.WithRedis(client)
		logger.Info("redis connection established", slog.String("addr", cfg.RedisAddr))
	}

	builder.WithAuditSink(sinks)
	engine, err := builder.Build()
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("build engine: %w", err)
	}
	app.Engine = engine
	app.closers = append(app.closers, engine.Close)

	seed, err := engine.Seed(ctx, adminauth.SeedConfig{
		AdminEmail:     cfg.AdminEmail,
		AdminPassword:  cfg.AdminPassword,
		AdminFirstName: cfg.AdminFirstName,
		AdminLastName:  cfg.AdminLastName,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("seed: %w", err)
	}
	logger.Info("seed complete",
		slog.Int("roles", seed.Roles),
		slog.Bool("admin_created", seed.AdminCreated),
		slog.String("admin_id", seed.AdminID),
	)

	var pinger Pinger
	if app.db != nil {
		pinger = app.db
	}
	h := NewHandler(engine, auditStore, pinger, logger)
	gate := middleware.NewGate(engine)
	gate.Logger = logger
	app.Handler = NewRouter(h, gate, MetricsHandler(engine))
	return app, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Serve listens on the configured port until ctx is cancelled, then shuts
// down gracefully.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      a.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("API server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
