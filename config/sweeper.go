package config

import "time"

// SweeperConfig contains rejection retention sweeper configuration.
type SweeperConfig struct {
	// Interval is how often the sweeper wakes up to prune old rejections.
	Interval time.Duration `env:"SWEEPER_INTERVAL" envDefault:"1h"`

	// Retention is how long rejection telemetry is kept before pruning.
	Retention time.Duration `env:"SWEEPER_RETENTION" envDefault:"2160h"` // 90 days

	// BatchSize bounds the rows deleted per sweep transaction.
	BatchSize int `env:"SWEEPER_BATCH_SIZE" envDefault:"1000"`
}

const (
	minSweepInterval = time.Minute
	minRetention     = 24 * time.Hour
)

// Sanitize applies guardrails to sweeper configuration values.
func (s *SweeperConfig) Sanitize() {
	if s.Interval < minSweepInterval {
		s.Interval = minSweepInterval
	}
	if s.Retention < minRetention {
		s.Retention = minRetention
	}
	if s.BatchSize < 1 {
		s.BatchSize = 1
	}
}
