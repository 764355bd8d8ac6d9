package core

import "time"

// Settings represents the main configuration for the application
type Settings struct {
	Storage  StorageSettings  // Token storage settings
	Telegram TelegramSettings // Telegram bot settings
	Commands CommandSettings  // Chat command settings
	Monitor  MonitorSettings  // Price polling settings
	Feed     FeedSettings     // Market data settings
	Metrics  MetricsSettings  // Prometheus settings
}

// StorageSettings holds the storage connection configuration
type StorageSettings struct {
	URL           string // Connection string, sqlite path when no scheme is given
	MongoDatabase string // Database name used by mongodb:// connection strings
}

// TelegramSettings holds configuration for Telegram integration
type TelegramSettings struct {
	Token string  // Telegram bot token
	Users []int64 // Optional allow-list of user IDs, empty allows everyone
}

// CommandSettings holds the chat command configuration
type CommandSettings struct {
	MaxTokens int            // Per-user token cap, MaxTokensPerUser when zero
	Location  *time.Location // Timezone of /list timestamps, UTC when nil
}

// MonitorSettings holds the polling loop configuration
type MonitorSettings struct {
	Interval       time.Duration // Sleep between scans
	CheckEvery     time.Duration // Minimum age of a token before it is checked again
	AlertThreshold float64       // Absolute 1h change, in percent, that triggers an alert
}

// FeedSettings holds the market data client configuration
type FeedSettings struct {
	BaseURL string
}

// MetricsSettings holds the Prometheus endpoint configuration
type MetricsSettings struct {
	Addr string // Listen address, empty disables the endpoint
}
