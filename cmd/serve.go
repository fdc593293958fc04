package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kayiwa/browsertrix-cloud/internal/api"
	"github.com/kayiwa/browsertrix-cloud/internal/clock/system"
	"github.com/kayiwa/browsertrix-cloud/internal/config"
	"github.com/kayiwa/browsertrix-cloud/internal/crawlconfig"
	"github.com/kayiwa/browsertrix-cloud/internal/id/uuid"
	"github.com/kayiwa/browsertrix-cloud/internal/logging"
	"github.com/kayiwa/browsertrix-cloud/internal/manager"
	"github.com/kayiwa/browsertrix-cloud/internal/metrics"
	"github.com/kayiwa/browsertrix-cloud/internal/storage/memory"
	"github.com/kayiwa/browsertrix-cloud/internal/storage/postgres"
)

const shutdownGrace = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the crawl config HTTP service.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics.Init()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	ops := crawlconfig.New(
		store,
		manager.NewNoOpManager(),
		uuid.NewGenerator(),
		system.New(),
		logger,
	)

	server := api.NewServer(ops, cfg, logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("crawl config service listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func newStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (crawlconfig.ConfigStore, func(), error) {
	switch cfg.DB.Provider {
	case "postgres":
		logger.Info("connecting to postgres")
		store, err := postgres.NewConfigStore(ctx, postgres.ConfigStoreConfig{
			DSN:             cfg.DB.DSN,
			MaxConns:        cfg.DB.MaxConns,
			MinConns:        cfg.DB.MinConns,
			MaxConnLifetime: cfg.DB.ConnLifetime(),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init postgres store: %w", err)
		}
		return store, store.Close, nil
	case "memory":
		logger.Info("using in-memory store, records will not survive restarts")
		return memory.NewConfigStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown db provider: %s", cfg.DB.Provider)
	}
}
