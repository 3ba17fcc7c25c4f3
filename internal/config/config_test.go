package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setEnvs is a helper that sets multiple env vars and returns a cleanup function.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

const strongSecret = "this-is-a-very-secure-secret-key-for-production-use-1234"

func TestLoad_Development_AcceptsDefaultSecrets(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT": "development",
	})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "change-this-to-a-secure-secret", cfg.SessionJWTSecret)
	assert.False(t, cfg.SecureCookies())
}

func TestLoad_Production_RejectsDefaultSessionSecret(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT": "production",
	})

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_JWT_SECRET must be explicitly set")
}

func TestLoad_Production_RejectsShortSessionSecret(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT":        "production",
		"SESSION_JWT_SECRET": "short-but-not-default",
	})

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_JWT_SECRET must be at least 32 characters")
}

func TestLoad_Production_RejectsDefaultGatewaySecrets(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT":        "production",
		"SESSION_JWT_SECRET": strongSecret,
	})

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "GATEWAY_KEY_SECRET must be explicitly set")
}

func TestLoad_Production_AcceptsExplicitSecrets(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT":            "production",
		"SESSION_JWT_SECRET":     strongSecret,
		"GATEWAY_KEY_SECRET":     "live_key_secret",
		"GATEWAY_WEBHOOK_SECRET": "live_webhook_secret",
	})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.True(t, cfg.SecureCookies())
}

func TestLoad_Defaults(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT": "development",
	})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 300, cfg.ProductCacheTTLS)
}

func TestPostgresDSN(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT":       "development",
		"POSTGRES_HOST":     "db.internal",
		"POSTGRES_PORT":     "5433",
		"POSTGRES_USER":     "shop",
		"POSTGRES_PASSWORD": "pw",
		"POSTGRES_DB":       "shop_db",
	})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "postgres://shop:pw@db.internal:5433/shop_db?sslmode=disable", cfg.PostgresDSN())
}
