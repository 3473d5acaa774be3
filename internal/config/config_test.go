package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{
		"RESERVAS_API_URL", "RESERVAS_TIMEOUT", "RESERVAS_ADMIN_REDIRECT_DELAY",
		"RESERVAS_NOTIFY_TTL", "RESERVAS_LOG_ENABLED", "RESERVAS_INSECURE_TLS",
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, 2*time.Second, cfg.UI.AdminRedirectDelay)
	assert.Equal(t, 5*time.Second, cfg.UI.NotifyTTL)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.True(t, cfg.Logging.Enabled)
	assert.False(t, cfg.API.InsecureTLS)
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RESERVAS_API_URL", "https://reservas.example.com")
	t.Setenv("RESERVAS_TIMEOUT", "3s")
	t.Setenv("RESERVAS_ADMIN_REDIRECT_DELAY", "500ms")
	t.Setenv("RESERVAS_LOG_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://reservas.example.com", cfg.API.URL)
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.UI.AdminRedirectDelay)
	assert.False(t, cfg.Logging.Enabled)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RESERVAS_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESERVAS_TIMEOUT")
}
