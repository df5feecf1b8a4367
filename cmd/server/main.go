// Package main is the entry point for the datagate server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/robfig/cron/v3"

	"datagate/internal/api"
	"datagate/internal/authz"
	"datagate/internal/catalogue"
	"datagate/internal/config"
	internaldb "datagate/internal/db"
	"datagate/internal/domain"
	"datagate/internal/engine"
	"datagate/internal/middleware"
	"datagate/internal/reconcile"
	"datagate/internal/service"
	"datagate/internal/validate"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "datagate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
	for _, warning := range cfg.Warnings {
		logger.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metastore.
	writeDB, readDB, err := internaldb.OpenPair(cfg.MetaDBPath, 4)
	if err != nil {
		return fmt.Errorf("open metastore: %w", err)
	}
	defer writeDB.Close()
	defer readDB.Close()
	if err := internaldb.RunMigrations(writeDB); err != nil {
		return fmt.Errorf("migrate metastore: %w", err)
	}

	// Warehouse.
	warehouse, err := sql.Open("duckdb", cfg.WarehouseDB)
	if err != nil {
		return fmt.Errorf("open warehouse: %w", err)
	}
	defer warehouse.Close()
	backend := engine.New(warehouse)

	store, err := catalogue.NewStore(ctx, writeDB, readDB)
	if err != nil {
		return fmt.Errorf("load catalogue: %w", err)
	}
	audit := catalogue.NewAuditRepo(writeDB, readDB)

	// Policy oracle: external service when configured, built-in rules
	// otherwise. Either way the gateway denies on any oracle failure.
	var oracle domain.PolicyOracle
	if cfg.Policy.URL != "" {
		oracle = authz.NewOPAClient(cfg.Policy.URL, cfg.Policy.Path, cfg.Policy.Timeout)
		logger.Info("using external policy oracle", "url", cfg.Policy.URL, "path", cfg.Policy.Path)
	} else {
		oracle = authz.NewRuleOracle(authz.DefaultRules())
	}
	gateway := authz.New(oracle, logger.With("component", "authz"))

	validator := validate.New(validate.Limits{
		DefaultLimit: cfg.DefaultLimit,
		MaxLimit:     cfg.MaxLimit,
		MaxOffset:    cfg.MaxOffset,
		MaxJoins:     validate.DefaultLimits().MaxJoins,
	})

	querySvc := service.NewQueryService(validator, store, gateway, backend, audit,
		logger.With("component", "query"), cfg.QueryTimeout)
	datasetSvc := service.NewDatasetService(store, gateway)
	reconciler := reconcile.New(store, backend, logger.With("component", "reconcile"), cfg.ReflectParallel)

	if cfg.DatasetsFile != "" {
		if err := applyDocument(ctx, reconciler, cfg.DatasetsFile, logger); err != nil {
			return fmt.Errorf("initial reconcile: %w", err)
		}
	}

	// Periodic sweep keeps the catalogue converged with the document while
	// the server runs.
	var sweeper *cron.Cron
	if cfg.SweepSchedule != "" && cfg.DatasetsFile != "" {
		sweeper = cron.New()
		_, err := sweeper.AddFunc(cfg.SweepSchedule, func() {
			if err := applyDocument(context.Background(), reconciler, cfg.DatasetsFile, logger); err != nil {
				logger.Warn("scheduled reconcile failed", "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("sweep schedule: %w", err)
		}
		sweeper.Start()
		defer sweeper.Stop()
		logger.Info("cleanup sweep scheduled", "schedule", cfg.SweepSchedule)
	}

	tokenValidator, err := buildTokenValidator(ctx, cfg)
	if err != nil {
		return err
	}

	handler := api.NewHandler(querySvc, datasetSvc, audit, reconciler, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		Validator: tokenValidator,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		CORSOrigins: cfg.CORSAllowedOrigins,
	})

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http api listening", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// applyDocument re-reads the desired-state file and runs one reconciliation
// pass. The file is read fresh each time so edits take effect without a
// restart.
func applyDocument(ctx context.Context, reconciler *reconcile.Reconciler, path string, logger *slog.Logger) error {
	doc, err := reconcile.LoadFile(path)
	if err != nil {
		return err
	}
	plan, err := reconciler.Run(ctx, doc, reconcile.Options{})
	if err != nil {
		return err
	}
	summary := plan.Summary()
	logger.Info("reconcile complete",
		"creates", summary.Creates,
		"updates", summary.Updates,
		"deletes", summary.Deletes,
		"invalid", summary.Invalid,
	)
	return nil
}

func buildTokenValidator(ctx context.Context, cfg *config.Config) (middleware.TokenValidator, error) {
	if cfg.Auth.OIDCEnabled() {
		v, err := middleware.NewOIDCValidator(ctx, cfg.Auth.IssuerURL, cfg.Auth.Audience)
		if err != nil {
			return nil, fmt.Errorf("oidc validator: %w", err)
		}
		return v, nil
	}
	if cfg.Auth.JWTSecret != "" {
		return middleware.NewHS256Validator(cfg.Auth.JWTSecret)
	}
	return nil, nil
}
