package bootstrap

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

	"golang.org/x/sync/errgroup"

	"github.com/fabworks/jobshop/config"
	"github.com/fabworks/jobshop/internal/adapters/sweeper"
	"github.com/fabworks/jobshop/internal/observability/statsd"
)

// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
const shutdownWaitTimeout = 15 * time.Second

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	DB       *sql.DB
	Logger   *slog.Logger
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

func buildBackgroundServices(cfg *ServiceOrchestrationConfig, logger *slog.Logger) []backgroundService {
	return []backgroundService{
		newSweeperBackgroundService(cfg, logger),
	}
}

func newSweeperBackgroundService(cfg *ServiceOrchestrationConfig, logger *slog.Logger) backgroundService {
	return backgroundService{
		mode: config.ServiceModeSweeper,
		name: "sweeper",
		start: func(ctx context.Context) error {
			var sweeperCfg config.SweeperConfig
			if cfg.Config != nil {
				sweeperCfg = cfg.Config.Sweeper
			}
			var sink statsd.Sink
			if cfg.Services.Observability.MetricsSink != nil {
				sink = cfg.Services.Observability.MetricsSink
			}
			runner, err := sweeper.NewRunner(sweeper.RunnerOptions{
				DB:      cfg.DB,
				Config:  sweeperCfg,
				Logger:  logger,
				Metrics: sink,
			})
			if err != nil {
				return fmt.Errorf("wire sweeper runner: %w", err)
			}
			return runner.Run(ctx)
		},
	}
}

// RunServicesWithShutdown starts all enabled services and manages their
// lifecycle. It blocks until a shutdown signal is received or a service
// fails, then stops everything gracefully.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var httpServer *http.Server
	if enabled[config.ServiceModeHTTP] {
		httpServer = StartHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			DB:       cfg.DB,
			Logger:   logger,
		})
	}

	group, groupCtx := errgroup.WithContext(serviceCtx)
	for _, svc := range buildBackgroundServices(cfg, logger) {
		if !enabled[svc.mode] {
			continue
		}
		svc := svc
		logger.Info("background service started", "service", svc.name, "mode", svc.mode)
		group.Go(func() error {
			if err := svc.start(groupCtx); err != nil {
				return fmt.Errorf("%s failed: %w", svc.name, err)
			}
			return nil
		})
	}

	return waitForShutdown(shutdownConfig{
		cancel:     cancel,
		group:      group,
		groupCtx:   groupCtx,
		httpServer: httpServer,
		logger:     logger,
	})
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	cancel     context.CancelFunc
	group      *errgroup.Group
	groupCtx   context.Context
	httpServer *http.Server
	logger     *slog.Logger
}

// waitForShutdown waits for a shutdown signal or a background service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
	case <-cfg.groupCtx.Done():
		cfg.logger.Error("background service failed, shutting down")
	}

	cfg.cancel()
	return gracefulStop(cfg)
}

// gracefulStop stops the HTTP server and waits for background services.
func gracefulStop(cfg shutdownConfig) error {
	if cfg.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
		defer cancel()
		if err := ShutdownHTTPServer(shutdownCtx, cfg.httpServer, cfg.logger); err != nil {
			cfg.logger.Error("HTTP server shutdown failed", "error", err)
		}
	}

	done := make(chan error, 1)
	go func() { done <- cfg.group.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-time.After(shutdownWaitTimeout):
		cfg.logger.Warn("timeout waiting for background services to stop")
	}
	return nil
}
