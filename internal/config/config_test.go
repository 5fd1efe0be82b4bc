package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutConfigFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.NotEmpty(t, cfg.Server.CORS)
	assert.Equal(t, "utf8mb4", cfg.MySQL.Charset)
	assert.Equal(t, 24*time.Hour, cfg.JWT.AccessExpire)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.AI.BaseURL)
	assert.Equal(t, "tngtech/deepseek-r1t2-chimera:free", cfg.AI.Model)
	assert.Equal(t, "Arzuno Builder", cfg.AI.Title)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test")
	t.Setenv("IMAGEKIT_URL_ENDPOINT", "https://ik.imagekit.io/test")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sk-or-test", cfg.AI.APIKey)
	assert.Equal(t, "https://ik.imagekit.io/test", cfg.ImageKit.URLEndpoint)
}
