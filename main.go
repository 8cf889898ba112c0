package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"puceats-api/accounts"
	"puceats-api/catalog"
	"puceats-api/config"
	"puceats-api/directory"
	"puceats-api/handlers"
	"puceats-api/ledger"
	"puceats-api/logging"
	"puceats-api/metrics"
	"puceats-api/middleware"
	"puceats-api/routes"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configFile := flag.String("config", os.Getenv("PUCEATS_CONFIG"), "Path to YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logging.New("puceats", logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if cfg.UsesDefaultSecret() {
		log.Warn("auth.secret is the built-in development value; set PUCEATS_AUTH_SECRET in production")
	}

	gin.SetMode(cfg.HTTP.Mode)

	// Initialize database
	db, err := config.OpenDB(cfg.DB, log)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	m := metrics.New()
	l := ledger.New(db, log, ledger.WithMetrics(m))
	registry := catalog.NewRegistry(db, l, log, m)
	h := &handlers.Handler{
		Ledger:        l,
		Registry:      registry,
		Catalog:       catalog.New(db, registry, log, m),
		Directory:     directory.New(db, log),
		Accounts:      accounts.New(db, l, registry, log),
		Auth:          middleware.NewAuthenticator(cfg.Auth.Secret, cfg.Auth.TTL),
		Log:           log.Named("api"),
		TokenValidity: cfg.Tokens.Validity,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := seedAdmin(ctx, cfg, h, log); err != nil {
		return err
	}

	r := routes.NewEngine(h, routes.Options{
		Log:         log,
		Metrics:     m,
		Limiter:     middleware.NewRateLimiterRegistry(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 10*time.Minute),
		CORSOrigins: cfg.CORS.Origins,
	})
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTP.Addr, "db_driver", cfg.DB.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}
	return closeDB(db)
}

// seedAdmin creates the configured admin account and hands it any
// establishments that predate ownership.
func seedAdmin(ctx context.Context, cfg *config.Config, h *handlers.Handler, log hclog.Logger) error {
	if cfg.Admin.Username == "" || cfg.Admin.Password == "" {
		return nil
	}
	admin, err := h.Accounts.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if _, err := h.Registry.AdoptOrphans(ctx, admin.ID); err != nil {
		return fmt.Errorf("adopt ownerless establishments: %w", err)
	}
	log.Debug("admin account ready", "user_id", admin.ID)
	return nil
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
