package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
auth:
  secret: s3cret
engine:
  waiver_window: 24h
  max_exempt: 3
redis:
  addr: redis:6379
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "conf.yaml"), yaml, 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Auth.Secret)
	assert.Equal(t, 24*time.Hour, cfg.Engine.WaiverWindow)
	assert.Equal(t, 3, cfg.Engine.MaxExempt)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 30*time.Second, cfg.Engine.OfferTimeout)
	assert.Equal(t, 30*time.Second, cfg.Engine.TradeResponseTimeout)
	assert.Equal(t, 365, cfg.Engine.DefaultTermDays)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_EnvOverridesSecret(t *testing.T) {
	t.Setenv("HOCKEYBOT_AUTH_SECRET", "from-env")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.Secret)
	assert.Equal(t, 48*time.Hour, cfg.Engine.WaiverWindow)
}

func TestLoad_RequiresSecret(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("HOCKEYBOT_AUTH_SECRET", "x")
	t.Setenv("HOCKEYBOT_POSTGRES_DRIVER", "sqlite")
	_, err := Load(t.TempDir())
	assert.ErrorContains(t, err, "postgres.driver")

	t.Setenv("HOCKEYBOT_POSTGRES_DRIVER", "memory")
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Postgres.Driver)
}
