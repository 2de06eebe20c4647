package bootstrap

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fabworks/jobshop/config"
	"github.com/fabworks/jobshop/internal/core"
	"github.com/fabworks/jobshop/internal/data"
	"github.com/fabworks/jobshop/internal/observability/statsd"
	"github.com/fabworks/jobshop/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs          *service.JobService
	Deltas        *service.DeltaService
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   *statsd.Client
	MetricsConfig config.ObservabilityMetricsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	JobRepo       *data.JobRepo
	EventRepo     *data.EventRepo
	RejectionRepo *data.RejectionRepo
	VersionCache  core.VersionCache
}

// buildObservability configures the metrics sink.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled:    true,
			Address:    cfg.Metrics.StatsdAddress,
			Prefix:     cfg.Metrics.StatsdPrefix,
			Logger:     obsLogger,
			GlobalTags: map[string]string{"service": "jobshop-api"},
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:   metricsSink,
		MetricsConfig: cfg.Metrics,
	}
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(deps ServiceDeps) *serviceRepositories {
	repos := &serviceRepositories{
		JobRepo:       data.NewJobRepo(deps.DB, data.RepoConfig{Logger: deps.Logger}),
		EventRepo:     data.NewEventRepo(deps.DB),
		RejectionRepo: data.NewRejectionRepo(deps.DB),
	}
	if deps.RedisClient != nil {
		var ttl time.Duration
		if deps.Config != nil {
			ttl = deps.Config.Redis.VersionTTL
		}
		repos.VersionCache = data.NewRedisVersionCache(deps.RedisClient, ttl)
	}
	return repos
}

// BuildServices constructs the full service container from shared deps.
func BuildServices(deps ServiceDeps) (ServiceContainer, error) {
	var obsCfg config.ObservabilityConfig
	if deps.Config != nil {
		obsCfg = deps.Config.Observability
	}
	obs := buildObservability(deps.Logger, obsCfg)
	repos := buildRepositories(deps)

	var sink statsd.Sink
	if obs.MetricsSink != nil {
		sink = obs.MetricsSink
	}

	jobs, err := service.NewJobService(service.JobServiceOptions{
		Jobs:     repos.JobRepo,
		Versions: repos.VersionCache,
		Logger:   deps.Logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	deltas, err := service.NewDeltaService(service.DeltaServiceOptions{
		Jobs:       repos.JobRepo,
		Events:     repos.EventRepo,
		Rejections: repos.RejectionRepo,
		Versions:   repos.VersionCache,
		Logger:     deps.Logger,
		Metrics:    sink,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	return ServiceContainer{
		Jobs:          jobs,
		Deltas:        deltas,
		Observability: obs,
	}, nil
}
