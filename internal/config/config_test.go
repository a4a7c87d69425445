package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "LOG_LEVEL", "OWNER_NUMBER", "TECHNICIAN_NUMBER", "PREVIEW_MODE",
		"POLISH_REPLIES", "STORE_BACKEND", "SQLITE_PATH", "SESSION_TTL", "PREVIEW_TTL", "SWEEP_INTERVAL",
		"AI_PROVIDER", "AI_MODEL", "AI_TIMEOUT", "WHATSAPP_TOKEN", "WHATSAPP_PHONE_NUMBER_ID", "WEBHOOK_ALLOW_UNSIGNED"} {
		unsetEnv(t, k)
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.True(t, cfg.PreviewMode)
	assert.False(t, cfg.PolishReplies)
	assert.Equal(t, StoreRedis, cfg.Store.Backend)
	assert.Equal(t, "./data/sessions.db", cfg.Store.SQLitePath)
	assert.Equal(t, 24*time.Hour, cfg.Store.SessionTTL)
	assert.Equal(t, 15*time.Minute, cfg.Store.PreviewTTL)
	assert.Equal(t, 10*time.Minute, cfg.Store.SweepInterval)
	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.AI.Model)
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
	assert.True(t, cfg.WhatsApp.DryRun())
	assert.False(t, cfg.WhatsApp.AllowUnsigned)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("OWNER_NUMBER", "5511900000001")
	t.Setenv("PREVIEW_MODE", "off")
	t.Setenv("POLISH_REPLIES", "yes")
	t.Setenv("STORE_BACKEND", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/s.db")
	t.Setenv("SESSION_TTL", "3600")
	t.Setenv("PREVIEW_TTL", "5m")
	t.Setenv("SWEEP_INTERVAL", "1m")
	t.Setenv("AI_PROVIDER", "mock")
	t.Setenv("AI_TIMEOUT", "10s")
	t.Setenv("WHATSAPP_TOKEN", "")
	t.Setenv("WEBHOOK_ALLOW_UNSIGNED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "5511900000001", cfg.OwnerNumber)
	assert.False(t, cfg.PreviewMode)
	assert.True(t, cfg.PolishReplies)
	assert.Equal(t, StoreSQLite, cfg.Store.Backend)
	assert.Equal(t, time.Hour, cfg.Store.SessionTTL)
	assert.Equal(t, 5*time.Minute, cfg.Store.PreviewTTL)
	assert.Equal(t, "mock", cfg.AI.Provider)
	assert.True(t, cfg.WhatsApp.DryRun())
	assert.True(t, cfg.WhatsApp.AllowUnsigned)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:  "8080",
			Store: StoreConfig{Backend: StoreMemory, SessionTTL: time.Hour, PreviewTTL: time.Minute, SweepInterval: time.Minute},
			AI:    AIConfig{Provider: "mock", Timeout: time.Second},
		}
	}
	require.NoError(t, valid().Validate())

	tests := map[string]func(c *Config){
		"empty port":       func(c *Config) { c.Port = "" },
		"unknown backend":  func(c *Config) { c.Store.Backend = "etcd" },
		"unknown AI":       func(c *Config) { c.AI.Provider = "claude" },
		"zero TTL":         func(c *Config) { c.Store.SessionTTL = 0 },
		"negative preview": func(c *Config) { c.Store.PreviewTTL = -time.Second },
		"sqlite no path": func(c *Config) {
			c.Store.Backend = StoreSQLite
			c.Store.SQLitePath = ""
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("X_DUR", "garbage")
	assert.Equal(t, time.Minute, getEnvDuration("X_DUR", time.Minute))
	t.Setenv("X_DUR", "90")
	assert.Equal(t, 90*time.Second, getEnvDuration("X_DUR", time.Minute))
	assert.Equal(t, 2*time.Second, getEnvDuration("X_DUR_UNSET", 2*time.Second))
}
