package config

import (
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:  "single service - http",
			input: "http",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP: true,
			},
		},
		{
			name:  "single service - sweeper",
			input: "sweeper",
			expected: map[ServiceMode]bool{
				ServiceModeSweeper: true,
			},
		},
		{
			name:  "multiple services",
			input: "http,sweeper",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:    true,
				ServiceModeSweeper: true,
			},
		},
		{
			name:  "services with spaces",
			input: " http , sweeper ",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:    true,
				ServiceModeSweeper: true,
			},
		},
		{
			name:  "duplicate services",
			input: "http,http,sweeper",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:    true,
				ServiceModeSweeper: true,
			},
		},
		{
			name:        "empty string",
			input:       "",
			expectError: true,
		},
		{
			name:        "invalid service",
			input:       "http,reaper",
			expectError: true,
		},
		{
			name:        "only commas",
			input:       ",,,",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServices(tt.input)
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error for input %q, got none", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("ParseServices(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestAppConfig_Defaults(t *testing.T) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("env.Parse: %v", err)
	}
	cfg.Sanitize()

	if cfg.Postgres.Host != "localhost" {
		t.Errorf("Postgres.Host = %q, want localhost", cfg.Postgres.Host)
	}
	if cfg.Postgres.Port != 5432 {
		t.Errorf("Postgres.Port = %d, want 5432", cfg.Postgres.Port)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("HTTP.Addr = %q, want :8080", cfg.HTTP.Addr)
	}
	if cfg.Services != "http" {
		t.Errorf("Services = %q, want http", cfg.Services)
	}
	if cfg.Redis.VersionTTL != 5*time.Minute {
		t.Errorf("Redis.VersionTTL = %v, want 5m", cfg.Redis.VersionTTL)
	}
	if !cfg.IsHTTPServerEnabled() {
		t.Error("IsHTTPServerEnabled() = false, want true")
	}
	if cfg.IsSweeperEnabled() {
		t.Error("IsSweeperEnabled() = true, want false")
	}
}

func TestSweeperConfig_Sanitize(t *testing.T) {
	cfg := SweeperConfig{Interval: time.Second, Retention: time.Hour, BatchSize: 0}
	cfg.Sanitize()

	if cfg.Interval != minSweepInterval {
		t.Errorf("Interval = %v, want %v", cfg.Interval, minSweepInterval)
	}
	if cfg.Retention != minRetention {
		t.Errorf("Retention = %v, want %v", cfg.Retention, minRetention)
	}
	if cfg.BatchSize != 1 {
		t.Errorf("BatchSize = %d, want 1", cfg.BatchSize)
	}
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "   ", StatsdPrefix: " jobshop.staging "}
	cfg.Sanitize()

	if cfg.Enabled {
		t.Error("Enabled should be false when address is blank")
	}
	if cfg.IsEnabled() {
		t.Error("IsEnabled() = true, want false")
	}
	if cfg.StatsdPrefix != "jobshop.staging" {
		t.Errorf("StatsdPrefix = %q, want trimmed value", cfg.StatsdPrefix)
	}
}
