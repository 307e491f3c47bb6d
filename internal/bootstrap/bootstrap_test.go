package bootstrap

import (
	"context"
	"testing"
	"time"

	"indian-airlines-ivr/internal/config"
	"indian-airlines-ivr/internal/observability"
	"indian-airlines-ivr/internal/readiness"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, MaxUploadBytes: 1 << 20},
		Manifest: config.ManifestConfig{
			MaintainedReleases: []string{"1.24", "1.23"},
			ReportCacheTTL:     time.Minute,
		},
		Readiness: config.ReadinessConfig{CheckTimeout: time.Second, CacheTTL: 10 * time.Second},
	}
}

func TestInitialize_NothingConfigured(t *testing.T) {
	deps, err := Initialize(context.Background(), testConfig(), observability.NewNopLogger())
	require.NoError(t, err)
	defer deps.Cleanup()

	assert.Nil(t, deps.Redis)
	assert.Nil(t, deps.OpenAI)
	assert.Nil(t, deps.Twilio)
	assert.Equal(t, []string{"openai", "redis", "twilio"}, deps.Readiness.Checkers())
	assert.Empty(t, deps.Scheduler.Jobs())
	assert.False(t, deps.ValidateLimiter.Enabled())

	report := deps.Readiness.Ready(context.Background())
	assert.True(t, report.Ready)
	assert.Equal(t, readiness.StatusDegraded, report.Status)
	assert.Equal(t, "1.0.0", report.Version)
	for name, check := range report.Checks {
		assert.Equal(t, "not configured", check.Message, name)
	}
}

func TestInitialize_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Redis.Addr = mr.Addr()
	cfg.Manifest.ReportRefreshInterval = time.Minute
	cfg.Readiness.ProbeInterval = 30 * time.Second
	cfg.RateLimit.ValidatePerMinute = 10

	deps, err := Initialize(context.Background(), cfg, observability.NewNopLogger())
	require.NoError(t, err)
	defer deps.Cleanup()

	require.True(t, deps.Redis.IsEnabled())
	assert.Equal(t, []string{"manifest-report-refresh", "readiness-probe"}, deps.Scheduler.Jobs())
	assert.True(t, deps.ValidateLimiter.Enabled())

	report := deps.Readiness.Ready(context.Background())
	assert.Equal(t, readiness.StatusHealthy, report.Checks["redis"].Status)
	assert.True(t, mr.Exists("ivr:readiness"))

	_, err = deps.ManifestProcessor.Report(context.Background())
	require.NoError(t, err)
	assert.True(t, mr.Exists("ivr:manifest:report"))
}

func TestInitialize_BadManifestPath(t *testing.T) {
	cfg := testConfig()
	cfg.Manifest.Path = t.TempDir() + "/missing.yaml"

	_, err := Initialize(context.Background(), cfg, observability.NewNopLogger())
	assert.Error(t, err)
}

func TestInitialize_UnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig()
	cfg.Redis.Addr = addr
	_, err := Initialize(context.Background(), cfg, observability.NewNopLogger())
	assert.Error(t, err)
}
