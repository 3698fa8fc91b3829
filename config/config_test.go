package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("STYLIST_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.JWTSecret)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, "5432", cfg.DB.Port)
	assert.Equal(t, 30*time.Second, cfg.Stylist.Timeout)
	assert.Equal(t, 2*time.Hour, cfg.Stylist.SessionTTL)
	assert.Equal(t, 15*time.Minute, cfg.R2.PresignExpiry)
	assert.Equal(t, 12*time.Minute, cfg.R2.URLCacheTTL)
	assert.Equal(t, "https://api.openai.com/v1", cfg.OpenAI.BaseURL)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "placeholder")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsCacheOutlivingPresign(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("R2_URL_CACHE_TTL", "20m")

	_, err := Load()
	assert.ErrorContains(t, err, "R2_URL_CACHE_TTL")
}

func TestLoadStylist(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("STYLIST_MODEL", "gpt-test")

	openAI, stylist, err := LoadStylist()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", openAI.APIKey)
	assert.Equal(t, "gpt-test", stylist.Model)
	assert.Equal(t, 45*time.Second, stylist.Timeout)
}

func TestLoadJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	secret, err := LoadJWTSecret()
	require.NoError(t, err)
	assert.Equal(t, "cli-secret", secret)
}
