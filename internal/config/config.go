package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

var (
	DiscordToken         string
	BotOwnerID           string
	TwitchClientID       string
	TwitchClientSecret   string
	WebhookSecret        string
	WebhookPublicURL     string
	WebhookPort          string
	WebhookPath          string
	DatabaseType         string
	DatabasePath         string
	PostgresURL          string
	ReportChannelID      string
	LogChannelID         string
	MaxStreamersPerGuild int
)

// Load reads the environment (optionally from a .env file) into the package
// variables. Required values are fatal when missing.
func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	DiscordToken = mustGetenv("DISCORD_TOKEN")
	BotOwnerID = os.Getenv("BOT_OWNER_ID")
	TwitchClientID = mustGetenv("TWITCH_CLIENT_ID")
	TwitchClientSecret = mustGetenv("TWITCH_CLIENT_SECRET")
	WebhookSecret = mustGetenv("TWITCH_WEBHOOK_SECRET")
	WebhookPublicURL = mustGetenv("WEBHOOK_PUBLIC_URL")
	WebhookPort = getEnvOrDefault("WEBHOOK_PORT", "8080")
	WebhookPath = getEnvOrDefault("WEBHOOK_PATH", "/callback")
	DatabaseType = getEnvOrDefault("DATABASE_TYPE", "sqlite")
	DatabasePath = getEnvOrDefault("DATABASE_PATH", "streamherald.db")
	PostgresURL = os.Getenv("DATABASE_URL")
	ReportChannelID = os.Getenv("REPORT_CHANNEL_ID")
	LogChannelID = os.Getenv("LOG_CHANNEL_ID")
	MaxStreamersPerGuild = getEnvIntOrDefault("MAX_STREAMERS_PER_GUILD", 25)

	if len(WebhookSecret) < 10 || len(WebhookSecret) > 100 {
		log.Fatal("TWITCH_WEBHOOK_SECRET must be between 10 and 100 characters")
	}

	if DatabaseType == "postgres" && PostgresURL == "" {
		log.Fatal("DATABASE_URL is required when DATABASE_TYPE is postgres")
	}
}

// GetDatabaseConnectionString returns the DSN matching DatabaseType.
func GetDatabaseConnectionString() string {
	if DatabaseType == "postgres" {
		return PostgresURL
	}
	return DatabasePath
}

func mustGetenv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("%s is required", key)
	}
	return value
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid value for %s: %v, using default %d", key, err, defaultValue)
		return defaultValue
	}
	return n
}
