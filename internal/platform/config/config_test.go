package config_test

import (
	"testing"
	"time"

	"github.com/SscSPs/rates_tracker_app/internal/platform/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := config.FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://api.nbp.pl/api", cfg.NBPBaseURL)
	assert.Equal(t, 10*time.Second, cfg.NBPTimeout)
	assert.Equal(t, 2, cfg.NBPRetries)
	assert.Equal(t, 200*time.Millisecond, cfg.NBPRetryBackoff)
	assert.Equal(t, 2*time.Second, cfg.LockWait)
	assert.Equal(t, 10*time.Second, cfg.LockLease)
	assert.Equal(t, "Europe/Warsaw", cfg.Location.String())
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "0 6 * * *", cfg.SyncCron)
	assert.Equal(t, "15 6 * * *", cfg.CacheRatesCron)
	assert.Empty(t, cfg.RedisURL)
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("NBP_BASE_URL", "http://localhost:9999/api/")
	v.Set("LOCK_WAIT", "500ms")
	v.Set("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	v.Set("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999/api", cfg.NBPBaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.LockWait)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestFromViper_Invalid(t *testing.T) {
	tests := map[string][2]string{
		"bad duration": {"NBP_TIMEOUT", "ten seconds"},
		"bad timezone": {"TIMEZONE", "Mars/Olympus"},
		"zero lease":   {"LOCK_LEASE", "0s"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			v := viper.New()
			v.Set(kv[0], kv[1])
			_, err := config.FromViper(v)
			assert.Error(t, err)
		})
	}
}

func TestFromViper_ProductionRequiresSecret(t *testing.T) {
	v := viper.New()
	v.Set("IS_PRODUCTION", true)
	_, err := config.FromViper(v)
	assert.Error(t, err)

	v.Set("JWT_SECRET", "prod-secret")
	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "prod-secret", cfg.JWTSecret)
}
