package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"github.com/fabworks/jobshop/config"
	"github.com/fabworks/jobshop/internal/core"
	"github.com/fabworks/jobshop/internal/observability/metrics"
	"github.com/fabworks/jobshop/internal/observability/statsd"
)

// SweeperServiceOptions groups dependencies for SweeperService.
type SweeperServiceOptions struct {
	Repo    core.RejectionRepository // Required: rejection repository
	Config  config.SweeperConfig     // Required: sweeper configuration
	Logger  *slog.Logger             // Optional: structured logger
	Metrics statsd.Sink              // Optional: metrics sink (StatsD-compatible)
	Clock   func() time.Time         // Optional: override for tests
}

// SweeperService prunes rejection telemetry past its retention window so
// the forensic table does not grow without bound. Deletion runs in bounded
// batches under an advisory lock, so multiple instances can all run the
// sweeper safely.
type SweeperService struct {
	repo    core.RejectionRepository
	config  config.SweeperConfig
	logger  *slog.Logger
	metrics statsd.Sink
	clock   func() time.Time
}

// NewSweeperService constructs a new SweeperService.
func NewSweeperService(opts SweeperServiceOptions) (*SweeperService, error) {
	if opts.Repo == nil {
		return nil, errors.New("RejectionRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "sweeper_service")
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	return &SweeperService{
		repo:    opts.Repo,
		config:  opts.Config,
		logger:  logger,
		metrics: opts.Metrics,
		clock:   clock,
	}, nil
}

// Run starts the sweep loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *SweeperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting sweeper service",
			"interval", s.config.Interval,
			"retention", s.config.Retention,
		)
	}

	// Jitter prevents a thundering herd when multiple instances start together.
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if err := s.Sweep(ctx); err != nil {
		s.logSweepError(err)
	}

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "sweeper service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logSweepError(err)
			}
		}
	}
}

// Sweep performs one pruning pass and emits metrics for it.
func (s *SweeperService) Sweep(ctx context.Context) error {
	started := s.clock()
	cutoff := started.Add(-s.config.Retention)

	pruned, err := s.repo.PruneOlderThan(ctx, cutoff, s.config.BatchSize)
	if err != nil {
		return err
	}

	metrics.EmitSweep(s.metrics, pruned, s.clock().Sub(started))
	if pruned > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "pruned old rejections",
			"pruned", pruned,
			"cutoff", cutoff,
		)
	}
	return nil
}

func (s *SweeperService) logSweepError(err error) {
	// Context errors surface through Run's select; everything else is
	// logged and retried next tick.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	if s.logger != nil {
		s.logger.Error("sweep failed", "error", err)
	}
}

// waitWithJitter adds a random delay up to 10% of the interval.
func (s *SweeperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// If crypto/rand fails, skip jitter rather than failing startup.
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
		// Graceful shutdown during jitter
	}
}
