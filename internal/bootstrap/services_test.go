package bootstrap

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabworks/jobshop/config"
)

func TestBuildServices_WiresContainer(t *testing.T) {
	cfg := config.AppConfig{Services: "http"}
	cfg.Sanitize()

	container, err := BuildServices(ServiceDeps{Config: &cfg, Logger: InitLogger()})
	require.NoError(t, err)

	assert.NotNil(t, container.Jobs)
	assert.NotNil(t, container.Deltas)
	// Metrics disabled by default
	assert.Nil(t, container.Observability.MetricsSink)
}

func TestValidateServiceConfig(t *testing.T) {
	valid := config.AppConfig{Services: "http,sweeper"}
	require.NoError(t, ValidateServiceConfig(&valid))

	invalid := config.AppConfig{Services: "http,reaper"}
	require.Error(t, ValidateServiceConfig(&invalid))

	require.Error(t, ValidateServiceConfig(nil))
}

func TestGetEnabledServices(t *testing.T) {
	cfg := config.AppConfig{Services: "sweeper,http"}
	got := GetEnabledServices(&cfg)
	sort.Strings(got)
	assert.Equal(t, []string{"http", "sweeper"}, got)

	assert.Empty(t, GetEnabledServices(nil))
}
