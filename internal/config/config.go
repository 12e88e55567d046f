package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	Port              string
	DBPath            string
	LogLevel          string
	DueSoonWindowDays int
	OverdueScanCron   string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	windowDays, err := strconv.Atoi(getEnv("DUE_SOON_WINDOW_DAYS", "30"))
	if err != nil || windowDays < 1 {
		return nil, fmt.Errorf("DUE_SOON_WINDOW_DAYS must be a positive integer: %v", err)
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DBPath:            getEnv("DB_PATH", "mutuo.db"),
		LogLevel:          getEnv("LOG_LEVEL", "INFO"),
		DueSoonWindowDays: windowDays,
		OverdueScanCron:   getEnv("OVERDUE_SCAN_CRON", "0 6 * * *"),
	}

	if cfg.DBPath == "" {
		return nil, fmt.Errorf("DB_PATH is required")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
