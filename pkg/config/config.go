package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// Loaded once at process start and passed by reference; no package
// reads environment variables outside of Load.
type Config struct {
	// Server (ops API)
	Port string
	Env  string // development, staging, production

	// Storage
	DataPath   string
	ChartsPath string

	// Output destination: "telegram", "notion" or "both"
	OutputMode string

	// Per-market schedules
	Domestic MarketConfig
	US       MarketConfig
	HK       MarketConfig

	// HK fetch mode: "etf" (default) or "index"
	HKDataMode string

	// Collaborators
	Telegram TelegramConfig
	Notion   NotionConfig
	Chart    ChartConfig

	// HTTP
	HTTPTimeout time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// MarketConfig holds one market's schedule knobs.
type MarketConfig struct {
	Enabled    bool
	TimeOfDay  string // HH:MM, local clock
	ActiveDays string // cron day-of-week range, e.g. MON-FRI
}

// TelegramConfig holds Telegram bot credentials.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// NotionConfig holds Notion integration credentials.
type NotionConfig struct {
	APIKey       string
	ParentPageID string
	DatabaseID   string
	BaseURL      string
}

// ChartConfig holds chart-rendering settings.
type ChartConfig struct {
	Enabled bool
	BaseURL string // QuickChart-compatible endpoint
}

// Load reads configuration from environment variables.
// This is the only function that calls os.Getenv.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8087"),
		Env:  getEnv("ENV", "development"),

		DataPath:   getEnv("DATA_PATH", "./data"),
		ChartsPath: getEnv("CHARTS_PATH", "./charts"),

		OutputMode: getEnv("OUTPUT_MODE", "notion"),

		Domestic: MarketConfig{
			Enabled:    getEnvAsBool("A_SHARE_ENABLED", true),
			TimeOfDay:  getEnv("A_SHARE_SCHEDULE_TIME", "15:05"),
			ActiveDays: getEnv("A_SHARE_DAYS_OF_WEEK", "MON-FRI"),
		},
		US: MarketConfig{
			Enabled:    getEnvAsBool("US_ENABLED", true),
			TimeOfDay:  getEnv("US_SCHEDULE_TIME", "06:00"), // morning after the US close
			ActiveDays: getEnv("US_DAYS_OF_WEEK", "TUE-SAT"),
		},
		HK: MarketConfig{
			Enabled:    getEnvAsBool("HK_ENABLED", true),
			TimeOfDay:  getEnv("HK_SCHEDULE_TIME", "16:05"),
			ActiveDays: getEnv("HK_DAYS_OF_WEEK", "MON-FRI"),
		},

		HKDataMode: getEnv("HK_DATA_MODE", "etf"),

		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		},
		Notion: NotionConfig{
			APIKey:       getEnv("NOTION_API_KEY", ""),
			ParentPageID: getEnv("NOTION_PARENT_PAGE_ID", ""),
			DatabaseID:   getEnv("NOTION_DATABASE_ID", ""),
			BaseURL:      getEnv("NOTION_BASE_URL", "https://api.notion.com/v1"),
		},
		Chart: ChartConfig{
			Enabled: getEnvAsBool("CHARTS_ENABLED", true),
			BaseURL: getEnv("CHART_BASE_URL", "https://quickchart.io"),
		},

		HTTPTimeout: getEnvAsDuration("HTTP_TIMEOUT", "30s"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.OutputMode {
	case "telegram", "notion", "both":
	default:
		return fmt.Errorf("OUTPUT_MODE must be one of: telegram, notion, both")
	}

	switch c.HKDataMode {
	case "etf", "index":
	default:
		return fmt.Errorf("HK_DATA_MODE must be one of: etf, index")
	}

	if c.DataPath == "" {
		return fmt.Errorf("DATA_PATH is required")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
