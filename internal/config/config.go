package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DefaultReviewsChannelID is where reviews land when no channel is
// configured. Override with REVIEWS_CHANNEL_ID.
const DefaultReviewsChannelID = "1394722440713147473"

// Config holds service configuration.
type Config struct {
	DatabaseURL string
	ServerAddr  string

	// APIKeyHash is a bcrypt hash of the gateway API key. Empty
	// disables authentication, for local development only.
	APIKeyHash string

	// GatewayBaseURL is the bot gateway's callback API; GatewayAPIKey
	// authenticates outbound calls to it.
	GatewayBaseURL string
	GatewayAPIKey  string

	MediatorRoleID    string
	ReviewsChannelID  string
	LogChannelID      string
	MediatorChannelID string

	HelpUnlockWindow time.Duration
	RelockInterval   time.Duration

	DispatchQueueSize int
	DispatchWorkers   int
	DispatchInterval  time.Duration
}

// Load reads configuration from environment.
func Load() (*Config, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := getenv("POSTGRES_USER", "middleman_hub")
		pass := getenv("POSTGRES_PASSWORD", "middleman_hub_pass")
		db := getenv("POSTGRES_DB", "middleman_hub")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}

	return &Config{
		DatabaseURL:       dsn,
		ServerAddr:        getenv("SERVER_ADDR", "0.0.0.0:8080"),
		APIKeyHash:        os.Getenv("API_KEY_HASH"),
		GatewayBaseURL:    getenv("GATEWAY_BASE_URL", "http://localhost:8090"),
		GatewayAPIKey:     os.Getenv("GATEWAY_API_KEY"),
		MediatorRoleID:    os.Getenv("MEDIATOR_ROLE_ID"),
		ReviewsChannelID:  getenv("REVIEWS_CHANNEL_ID", DefaultReviewsChannelID),
		LogChannelID:      os.Getenv("LOG_CHANNEL_ID"),
		MediatorChannelID: os.Getenv("MEDIATOR_CHANNEL_ID"),
		HelpUnlockWindow:  parseDuration(getenv("HELP_UNLOCK_WINDOW", "15m"), 15*time.Minute),
		RelockInterval:    parseDuration(getenv("RELOCK_INTERVAL", "30s"), 30*time.Second),
		DispatchQueueSize: parseInt(getenv("DISPATCH_QUEUE_SIZE", "256"), 256),
		DispatchWorkers:   parseInt(getenv("DISPATCH_WORKERS", "2"), 2),
		DispatchInterval:  parseDuration(getenv("DISPATCH_INTERVAL", "250ms"), 250*time.Millisecond),
	}, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}
