// Package config handles application configuration management using Viper
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/raykavin/cryptoalert/pkg/core"
	"github.com/raykavin/cryptoalert/pkg/feed"
	"github.com/raykavin/cryptoalert/pkg/monitor"
	"github.com/raykavin/cryptoalert/pkg/storage"
	"github.com/spf13/viper"
	str2duration "github.com/xhit/go-str2duration/v2"
)

// Environment variable names
const (
	EnvTelegramToken  = "TELEGRAM_TOKEN"
	EnvTelegramUsers  = "TELEGRAM_USERS"
	EnvMaxTokens      = "MAX_TOKENS"
	EnvListTimezone   = "LIST_TIMEZONE"
	EnvDatabaseURL    = "DATABASE_URL"
	EnvMongoDatabase  = "MONGO_DATABASE"
	EnvScanInterval   = "SCAN_INTERVAL"
	EnvCheckEvery     = "CHECK_EVERY"
	EnvAlertThreshold = "ALERT_THRESHOLD"
	EnvDexScreenerURL = "DEXSCREENER_URL"
	EnvMetricsAddr    = "METRICS_ADDR"
)

// Load reads the settings from environment variables
func Load() (*core.Settings, error) {
	// Set up Viper for environment variables
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault(EnvDatabaseURL, storage.DefaultDatabase)
	viper.SetDefault(EnvMongoDatabase, storage.DefaultMongoDatabase)
	viper.SetDefault(EnvScanInterval, "1m")
	viper.SetDefault(EnvCheckEvery, "15m")
	viper.SetDefault(EnvAlertThreshold, monitor.DefaultAlertThreshold)
	viper.SetDefault(EnvDexScreenerURL, feed.DefaultBaseURL)
	viper.SetDefault(EnvMaxTokens, core.MaxTokensPerUser)
	viper.SetDefault(EnvListTimezone, "UTC")

	interval, err := duration(EnvScanInterval)
	if err != nil {
		return nil, err
	}

	checkEvery, err := duration(EnvCheckEvery)
	if err != nil {
		return nil, err
	}

	users, err := parseUsers(viper.GetString(EnvTelegramUsers))
	if err != nil {
		return nil, err
	}

	maxTokens := viper.GetInt(EnvMaxTokens)
	if maxTokens <= 0 {
		return nil, fmt.Errorf("%s must be positive, got %q", EnvMaxTokens, viper.GetString(EnvMaxTokens))
	}

	timezone := viper.GetString(EnvListTimezone)
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvListTimezone, timezone, err)
	}

	threshold := viper.GetFloat64(EnvAlertThreshold)
	if threshold <= 0 {
		return nil, fmt.Errorf("%s must be positive, got %q", EnvAlertThreshold, viper.GetString(EnvAlertThreshold))
	}

	return &core.Settings{
		Storage: core.StorageSettings{
			URL:           viper.GetString(EnvDatabaseURL),
			MongoDatabase: viper.GetString(EnvMongoDatabase),
		},
		Telegram: core.TelegramSettings{
			Token: viper.GetString(EnvTelegramToken),
			Users: users,
		},
		Commands: core.CommandSettings{
			MaxTokens: maxTokens,
			Location:  location,
		},
		Monitor: core.MonitorSettings{
			Interval:       interval,
			CheckEvery:     checkEvery,
			AlertThreshold: threshold,
		},
		Feed: core.FeedSettings{
			BaseURL: viper.GetString(EnvDexScreenerURL),
		},
		Metrics: core.MetricsSettings{
			Addr: viper.GetString(EnvMetricsAddr),
		},
	}, nil
}

// duration parses values such as "90s", "15m" or "1d"
func duration(key string) (time.Duration, error) {
	value := viper.GetString(key)

	d, err := str2duration.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", key, value)
	}
	return d, nil
}

// parseUsers reads a comma or space separated list of telegram ids
func parseUsers(value string) ([]int64, error) {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' '
	})

	users := make([]int64, 0, len(fields))
	for _, field := range fields {
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q: %w", EnvTelegramUsers, field, err)
		}
		users = append(users, id)
	}
	return users, nil
}
