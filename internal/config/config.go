package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr                string
	DBPath              string
	FlowAPIURL          string
	ConnectionToken     string
	RefreshIntervalMins int
	ProfilesDir         string
	SessionCookieName   string
	LabsURL             string
	ChromePath          string
	BrowserDebugPort    int
	BrowserTimeoutSecs  int
	SyncQueueSize       int
	LogLevel            string
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:                envOr("ADDR", ":8080"),
		DBPath:              envOr("DB_PATH", "file:flowsync.db"),
		FlowAPIURL:          envOr("FLOW_API_URL", "http://localhost:8000"),
		ConnectionToken:     envOr("CONNECTION_TOKEN", ""),
		RefreshIntervalMins: envIntOr("REFRESH_INTERVAL_MINUTES", 30),
		ProfilesDir:         envOr("PROFILES_DIR", "profiles"),
		SessionCookieName:   envOr("SESSION_COOKIE_NAME", "__Secure-next-auth.session-token"),
		LabsURL:             envOr("LABS_URL", "https://labs.google/fx/tools/flow"),
		ChromePath:          envOr("CHROME_PATH", "chromium"),
		BrowserDebugPort:    envIntOr("BROWSER_DEBUG_PORT", 9222),
		BrowserTimeoutSecs:  envIntOr("BROWSER_TIMEOUT_SECONDS", 30),
		SyncQueueSize:       envIntOr("SYNC_QUEUE_SIZE", 16),
		LogLevel:            envOr("LOG_LEVEL", "INFO"),
	}
}

// Validate checks the configuration for values that would prevent the
// service from operating. A missing CONNECTION_TOKEN is allowed here:
// the syncer reports it per batch instead of refusing to start.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("ADDR cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.FlowAPIURL == "" {
		return fmt.Errorf("FLOW_API_URL cannot be empty")
	}
	if c.ProfilesDir == "" {
		return fmt.Errorf("PROFILES_DIR cannot be empty")
	}
	if c.SessionCookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME cannot be empty")
	}
	if c.RefreshIntervalMins < 0 {
		return fmt.Errorf("REFRESH_INTERVAL_MINUTES must be >= 0 (0 disables the scheduler), got %d", c.RefreshIntervalMins)
	}
	if c.BrowserDebugPort < 1024 || c.BrowserDebugPort > 65535 {
		return fmt.Errorf("BROWSER_DEBUG_PORT must be between 1024 and 65535, got %d", c.BrowserDebugPort)
	}
	if c.BrowserTimeoutSecs < 1 {
		return fmt.Errorf("BROWSER_TIMEOUT_SECONDS must be >= 1, got %d", c.BrowserTimeoutSecs)
	}
	if c.SyncQueueSize < 1 {
		return fmt.Errorf("SYNC_QUEUE_SIZE must be >= 1, got %d", c.SyncQueueSize)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}
