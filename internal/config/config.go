package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	BotToken     string
	DatabasePath string

	// AllowedUserIDs is the static allow-list of Telegram user IDs; every
	// inbound event is checked against it before any state change, and
	// the scheduled digest is pushed to exactly these users.
	AllowedUserIDs []int64

	// Digest schedule: five-field cron expression plus IANA timezone
	DigestCron     string
	DigestTimezone string

	// Path to the device verification spreadsheet (.xlsx)
	VerificationFile string
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	cfg := &Config{
		BotToken:         getEnv("BOT_TOKEN", ""),
		DatabasePath:     getEnv("DATABASE_PATH", "reports.db"),
		AllowedUserIDs:   parseUserIDs(getEnv("ALLOWED_USER_IDS", "")),
		DigestCron:       getEnv("DIGEST_CRON", "0 9 * * 1-5"),
		DigestTimezone:   getEnv("DIGEST_TIMEZONE", "Europe/Moscow"),
		VerificationFile: getEnv("VERIFICATION_FILE", "verification.xlsx"),
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}
	if len(cfg.AllowedUserIDs) == 0 {
		return nil, fmt.Errorf("ALLOWED_USER_IDS is required (comma-separated Telegram user IDs)")
	}

	return cfg, nil
}

// parseUserIDs parses a comma-separated list of Telegram user IDs,
// silently dropping malformed entries
func parseUserIDs(value string) []int64 {
	if value == "" {
		return nil
	}

	var ids []int64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
