// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config holds all application configuration.
type Config struct {
	Port     string
	LogLevel slog.Level

	OwnerNumber      string
	TechnicianNumber string
	PreviewMode      bool
	PolishReplies    bool
	HandoverMessage  string
	SystemPrompt     string

	Store    StoreConfig
	AI       AIConfig
	WhatsApp WhatsAppConfig
}

// StoreConfig selects and tunes the durable session backend.
type StoreConfig struct {
	Backend       string
	RedisURL      string
	SQLitePath    string
	SessionTTL    time.Duration
	PreviewTTL    time.Duration
	SweepInterval time.Duration
}

// AIConfig selects the completion backend.
type AIConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// WhatsAppConfig holds Cloud API credentials and webhook secrets.
type WhatsAppConfig struct {
	Token         string
	PhoneNumberID string
	APIURL        string
	AppSecret     string
	VerifyToken   string
	// AllowUnsigned accepts webhook posts without an app secret. Development only.
	AllowUnsigned bool
}

// DryRun reports whether outbound messages should only be logged.
func (w WhatsAppConfig) DryRun() bool {
	return w.Token == "" || w.PhoneNumberID == ""
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		LogLevel:         getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		OwnerNumber:      getEnv("OWNER_NUMBER", ""),
		TechnicianNumber: getEnv("TECHNICIAN_NUMBER", ""),
		PreviewMode:      getEnvBool("PREVIEW_MODE", true),
		PolishReplies:    getEnvBool("POLISH_REPLIES", false),
		HandoverMessage:  getEnv("HANDOVER_MESSAGE", ""),
		SystemPrompt:     getEnv("SYSTEM_PROMPT", ""),
		Store: StoreConfig{
			Backend:       strings.ToLower(getEnv("STORE_BACKEND", StoreRedis)),
			RedisURL:      getEnv("REDIS_URL", ""),
			SQLitePath:    getEnv("SQLITE_PATH", "./data/sessions.db"),
			SessionTTL:    getEnvDuration("SESSION_TTL", 24*time.Hour),
			PreviewTTL:    getEnvDuration("PREVIEW_TTL", 15*time.Minute),
			SweepInterval: getEnvDuration("SWEEP_INTERVAL", 10*time.Minute),
		},
		AI: AIConfig{
			Provider: strings.ToLower(getEnv("AI_PROVIDER", "gemini")),
			Model:    getEnv("AI_MODEL", "gemini-2.0-flash"),
			APIKey:   getEnv("AI_API_KEY", ""),
			BaseURL:  getEnv("AI_BASE_URL", "https://api.openai.com"),
			Timeout:  getEnvDuration("AI_TIMEOUT", 30*time.Second),
		},
		WhatsApp: WhatsAppConfig{
			Token:         getEnv("WHATSAPP_TOKEN", ""),
			PhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
			APIURL:        getEnv("WHATSAPP_API_URL", ""),
			AppSecret:     getEnv("WHATSAPP_APP_SECRET", ""),
			VerifyToken:   getEnv("WHATSAPP_VERIFY_TOKEN", ""),
			AllowUnsigned: getEnvBool("WEBHOOK_ALLOW_UNSIGNED", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.Store.Backend {
	case StoreRedis, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be redis, sqlite or memory, got %q", c.Store.Backend)
	}
	if c.Store.Backend == StoreSQLite && c.Store.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH cannot be empty")
	}
	switch c.AI.Provider {
	case "gemini", "openai", "mock":
	default:
		return fmt.Errorf("AI_PROVIDER must be gemini, openai or mock, got %q", c.AI.Provider)
	}
	if c.Store.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.Store.PreviewTTL <= 0 {
		return fmt.Errorf("PREVIEW_TTL must be > 0")
	}
	if c.Store.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be > 0")
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI_TIMEOUT must be > 0")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("90s", "24h") or a bare number of
// seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n := getEnvInt(key, -1); n >= 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return fallback
	}
	return level
}
