package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
type AppConfig struct {
	TelegramToken   string
	DatabaseURL     string
	AdminTelegramID int64
	LogLevel        string
	Environment     string

	// Dispatch settings.
	DefaultTimezone string        // timezone assigned to new subscribers
	CronSpecTick    string        // five-field spec for the minute tick
	TickWorkers     int           // bounded fan-out within one tick
	TickTimeout     time.Duration // soft budget for one tick, well under the tick period

	// Generative content settings.
	UseAI        bool
	OpenAIAPIKey string
	OpenAIModel  string
	AITimeout    time.Duration

	// Authored corpus settings.
	CorpusDir          string
	CorpusOverrideFile string

	// Optional city-to-timezone lookup service, used only by the settings
	// flow, never by the tick loop.
	TZLookupURL string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
	if adminIDStr == "" {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}
	cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.DefaultTimezone = os.Getenv("DEFAULT_TIMEZONE")
	if cfg.DefaultTimezone == "" {
		cfg.DefaultTimezone = "Europe/Moscow"
	}
	if _, err := time.LoadLocation(cfg.DefaultTimezone); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_TIMEZONE %q: %w", cfg.DefaultTimezone, err)
	}

	cfg.CronSpecTick = os.Getenv("CRON_SPEC_TICK")
	if cfg.CronSpecTick == "" {
		cfg.CronSpecTick = "* * * * *" // every minute, at second zero
	}

	cfg.TickWorkers, err = intEnv("TICK_WORKERS", 8)
	if err != nil {
		return nil, err
	}
	if cfg.TickWorkers < 1 {
		return nil, fmt.Errorf("TICK_WORKERS must be at least 1")
	}

	cfg.TickTimeout, err = durationEnv("TICK_TIMEOUT", 50*time.Second)
	if err != nil {
		return nil, err
	}

	cfg.UseAI = boolEnv("USE_AI", false)
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIModel = os.Getenv("OPENAI_MODEL")
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}
	cfg.AITimeout, err = durationEnv("AI_TIMEOUT", 20*time.Second)
	if err != nil {
		return nil, err
	}

	cfg.CorpusDir = os.Getenv("CORPUS_DIR")
	if cfg.CorpusDir == "" {
		cfg.CorpusDir = "./corpus"
	}
	cfg.CorpusOverrideFile = os.Getenv("CORPUS_OVERRIDE_FILE")

	cfg.TZLookupURL = os.Getenv("TZ_LOOKUP_URL")

	return cfg, nil
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func boolEnv(key string, def bool) bool {
	raw := strings.ToLower(os.Getenv(key))
	if raw == "" {
		return def
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
