package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/telecare")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ENV", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, int32(20), cfg.DBMaxConns)
	assert.Equal(t, 60, cfg.TokenTTLMinutes)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 6, cfg.PasswordMinLen)
	assert.True(t, cfg.IsDev())
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestDevFallbackJWTSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/telecare")
	t.Setenv("ENV", "development")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestValidateRejectsProductionWithoutSecret(t *testing.T) {
	cfg := &Config{
		Env:            "production",
		JWTSecret:      "dev-secret-do-not-use-in-production",
		BcryptCost:     10,
		PasswordMinLen: 6,
	}
	require.Error(t, cfg.Validate())

	cfg.JWTSecret = "a-real-secret"
	require.NoError(t, cfg.Validate())
}

func TestValidateBcryptCostBounds(t *testing.T) {
	cfg := &Config{
		Env:            "development",
		JWTSecret:      "x",
		BcryptCost:     3,
		PasswordMinLen: 6,
	}
	require.Error(t, cfg.Validate())

	cfg.BcryptCost = 32
	require.Error(t, cfg.Validate())

	cfg.BcryptCost = 12
	require.NoError(t, cfg.Validate())
}
