package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/photo-reactions-bot/internal/models"
)

// Load loads configuration from environment variables
// It first attempts to load from .env file, then reads environment variables
func Load() (*models.BotConfig, error) {
	// Try to load .env file (optional, ignore error if not found)
	_ = godotenv.Load()

	allowedChats, err := parseChatIDs(getEnv("ALLOWED_CHAT_IDS", ""))
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	config := &models.BotConfig{
		// Telegram settings
		TelegramToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		AllowedChatIDs: allowedChats,

		// Storage settings
		DatabasePath: getEnv("DATABASE_PATH", "data/bot.db"),

		// Scheduling settings
		TimezoneOffsetHours:     getEnvInt("TIMEZONE_OFFSET_HOURS", 4),
		MonthlyAnnounceHour:     getEnvInt("MONTHLY_ANNOUNCE_HOUR", 9),
		TopMessageUpdateMinutes: getEnvInt("TOP_MESSAGE_UPDATE_MINUTES", 5),

		// Ranking settings
		ReactionKindMaxLen: getEnvInt("REACTION_KIND_MAX_LEN", 4),

		// HTTP settings
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		// App settings
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Environment: getEnv("ENVIRONMENT", "production"),
	}

	// Validate configuration
	if err := validate(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// parseChatIDs parses the comma-separated chat ID list.
func parseChatIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ALLOWED_CHAT_IDS contains invalid chat ID %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// validate checks if all required configuration values are set
func validate(cfg *models.BotConfig) error {
	if cfg.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if len(cfg.AllowedChatIDs) == 0 {
		return fmt.Errorf("ALLOWED_CHAT_IDS is required")
	}
	if cfg.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}

	if cfg.TimezoneOffsetHours < -12 || cfg.TimezoneOffsetHours > 14 {
		return fmt.Errorf("TIMEZONE_OFFSET_HOURS must be between -12 and 14, got %d", cfg.TimezoneOffsetHours)
	}
	if cfg.MonthlyAnnounceHour < 0 || cfg.MonthlyAnnounceHour > 23 {
		return fmt.Errorf("MONTHLY_ANNOUNCE_HOUR must be between 0 and 23, got %d", cfg.MonthlyAnnounceHour)
	}
	if cfg.TopMessageUpdateMinutes <= 0 {
		return fmt.Errorf("TOP_MESSAGE_UPDATE_MINUTES must be positive, got %d", cfg.TopMessageUpdateMinutes)
	}
	if cfg.ReactionKindMaxLen < 0 {
		return fmt.Errorf("REACTION_KIND_MAX_LEN must not be negative, got %d", cfg.ReactionKindMaxLen)
	}
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error; got %s", cfg.LogLevel)
	}

	return nil
}

// getEnv retrieves environment variable or returns default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves environment variable as integer or returns default value
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
