package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wealthforge/network/internal/config"
	"github.com/wealthforge/network/internal/domain"
	"github.com/wealthforge/network/internal/feed"
	"github.com/wealthforge/network/internal/handler"
	"github.com/wealthforge/network/internal/repository/postgres"
	"github.com/wealthforge/network/internal/repository/sqlite"
	"github.com/wealthforge/network/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load configuration", "error", err)
		os.Exit(1)
	}

	logOpts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.Env == "production" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, logOpts)))
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, logOpts)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		slog.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		slog.Error("run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations applied")

	if err := seedAdmin(ctx, db, cfg.AdminEmail); err != nil {
		slog.Error("seed admin account", "error", err)
		os.Exit(1)
	}

	broker, err := openBroker(ctx, cfg)
	if err != nil {
		slog.Error("open change feed broker", "error", err)
		os.Exit(1)
	}

	authService := service.NewAuthService(db.Profiles(), cfg.JWTSecret, cfg.BcryptCost, cfg.AdminEmail)
	profileService := service.NewProfileService(db.Profiles(), db.Projects())
	messageService := service.NewMessageService(db.Messages(), db.Profiles(), broker)
	projectService := service.NewProjectService(db.Projects(), broker)

	// 10 login attempts per client address, refilling one every 6s.
	loginLimiter := service.NewRateLimiter(1.0/6.0, 10)
	defer loginLimiter.Stop()

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, db, authService, profileService, messageService, projectService, broker, loginLimiter, cfg.CookieSecure)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.SecurityHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openDatabase selects the backend: Postgres when DATABASE_URL is set,
// SQLite otherwise.
func openDatabase(ctx context.Context, cfg *config.Config) (domain.Database, error) {
	if cfg.DatabaseURL != "" {
		slog.Info("using postgres backend")
		return postgres.New(ctx, cfg.DatabaseURL)
	}
	slog.Info("using sqlite backend", "path", cfg.DatabasePath)
	return sqlite.New(cfg.DatabasePath)
}

// seedAdmin promotes the configured admin account if it already exists.
// An account registered later with the same email is promoted at
// registration instead.
func seedAdmin(ctx context.Context, db domain.Database, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil
	}

	profile, err := db.Profiles().GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		slog.Info("admin account not registered yet", "email", email)
		return nil
	}
	if err != nil {
		return err
	}
	if profile.IsAdmin {
		return nil
	}

	profile.IsAdmin = true
	if err := db.Profiles().Update(ctx, profile); err != nil {
		return err
	}
	slog.Info("admin account promoted", "email", email)
	return nil
}

// openBroker selects the change feed: Redis pub/sub when REDIS_URL is
// set so events reach subscribers on other instances, otherwise the
// in-process broker.
func openBroker(ctx context.Context, cfg *config.Config) (feed.Broker, error) {
	if cfg.RedisURL == "" {
		return feed.NewMemoryBroker(), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	slog.Info("using redis change feed")
	return feed.NewRedisBroker(client), nil
}
