package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/chrissnell/groundwatch/internal/controllers/restserver"
	"github.com/chrissnell/groundwatch/internal/dashboard"
	"github.com/chrissnell/groundwatch/internal/datasource"
	"github.com/chrissnell/groundwatch/internal/log"
	"github.com/chrissnell/groundwatch/internal/managers"
	"github.com/chrissnell/groundwatch/internal/observability"
	"github.com/chrissnell/groundwatch/internal/opendata"
	"github.com/chrissnell/groundwatch/pkg/config"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading configuration: %v", err)
	}

	metrics := observability.NewMetrics()

	client, err := opendata.NewClient(cfg.Portal, metrics, a.logger)
	if err != nil {
		return err
	}

	registry, err := datasource.NewRegistry(cfg, client, metrics, a.logger)
	if err != nil {
		return err
	}

	if cfg.Preload {
		log.Info("preloading datasets...")
		if err := registry.Preload(ctx); err != nil {
			// Datasets that failed are fetched again on first use.
			log.Warnf("dataset preload incomplete: %v", err)
		}
	}

	binding := dashboard.NewBinding(dashboard.DefaultParams(cfg.Dashboard), registry, dashboard.Input{
		Location:       client.Location(),
		StationIDWidth: cfg.Portal.StationIDWidth,
	})

	// Initialize the controller manager
	cm, err := managers.NewControllerManager(ctx, &wg, cfg, restserver.Deps{
		Registry:  registry,
		Binding:   binding,
		Portal:    client,
		Metrics:   metrics,
		Location:  client.Location(),
		Dashboard: cfg.Dashboard,
	}, a.logger)
	if err != nil {
		return err
	}
	err = cm.StartControllers()
	if err != nil {
		return err
	}

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}
