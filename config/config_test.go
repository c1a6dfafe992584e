package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
	assert.Equal(t, 60*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 5*time.Second, cfg.HTTP.HealthTimeout)
	assert.True(t, cfg.Register.Verify)
	assert.False(t, cfg.Execute.Streaming)
	assert.Equal(t, 0.0, cfg.Execute.RateLimitRPS)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "seqflow", cfg.Telemetry.ServiceName)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seqflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  base_url: https://workflows.internal:9090
  base_path: /api/v1
http:
  timeout: 30s
register:
  verify: false
execute:
  streaming: true
  rate_limit_rps: 2.5
log:
  level: debug
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://workflows.internal:9090", cfg.Server.BaseURL)
	assert.Equal(t, "/api/v1", cfg.Server.BasePath)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.False(t, cfg.Register.Verify)
	assert.True(t, cfg.Execute.Streaming)
	assert.Equal(t, 2.5, cfg.Execute.RateLimitRPS)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Fields the file omits keep their defaults.
	assert.Equal(t, 5*time.Second, cfg.HTTP.HealthTimeout)
	assert.Equal(t, "seqflow", cfg.Telemetry.ServiceName)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadNoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seqflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  base_url: http://from-file\n"), 0o600))

	t.Setenv("SEQFLOW_SERVER_BASE_URL", "http://from-env")
	t.Setenv("SEQFLOW_HTTP_TIMEOUT", "90s")
	t.Setenv("SEQFLOW_REGISTER_VERIFY", "false")
	t.Setenv("SEQFLOW_EXECUTE_RATE_LIMIT_RPS", "1.5")
	t.Setenv("SEQFLOW_EXECUTE_RATE_LIMIT_BURST", "3")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env", cfg.Server.BaseURL)
	assert.Equal(t, 90*time.Second, cfg.HTTP.Timeout)
	assert.False(t, cfg.Register.Verify)
	assert.Equal(t, 1.5, cfg.Execute.RateLimitRPS)
	assert.Equal(t, 3, cfg.Execute.RateLimitBurst)
}

func TestEnvParseErrors(t *testing.T) {
	t.Setenv("SEQFLOW_HTTP_TIMEOUT", "not-a-duration")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEQFLOW_HTTP_TIMEOUT")
}

func TestEnvBoolVariants(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "t"} {
		t.Setenv("SEQFLOW_EXECUTE_STREAMING", v)
		cfg, err := Load("")
		require.NoError(t, err)
		assert.True(t, cfg.Execute.Streaming, "value %q", v)
	}
}
