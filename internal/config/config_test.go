package config

import (
	"testing"
	"time"

	"github.com/raykavin/cryptoalert/pkg/feed"
	"github.com/raykavin/cryptoalert/pkg/storage"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	settings, err := Load()
	require.NoError(t, err)

	require.Equal(t, storage.DefaultDatabase, settings.Storage.URL)
	require.Equal(t, storage.DefaultMongoDatabase, settings.Storage.MongoDatabase)
	require.Equal(t, time.Minute, settings.Monitor.Interval)
	require.Equal(t, 15*time.Minute, settings.Monitor.CheckEvery)
	require.Equal(t, 10.0, settings.Monitor.AlertThreshold)
	require.Equal(t, feed.DefaultBaseURL, settings.Feed.BaseURL)
	require.Empty(t, settings.Telegram.Users)
	require.Empty(t, settings.Metrics.Addr)
	require.Equal(t, 10, settings.Commands.MaxTokens)
	require.Equal(t, time.UTC, settings.Commands.Location)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv(EnvTelegramToken, "123:abc")
	t.Setenv(EnvTelegramUsers, "10, 20,30")
	t.Setenv(EnvDatabaseURL, "postgres://bot:secret@db/alerts")
	t.Setenv(EnvScanInterval, "30s")
	t.Setenv(EnvCheckEvery, "1d")
	t.Setenv(EnvAlertThreshold, "5.5")
	t.Setenv(EnvMetricsAddr, ":9090")
	t.Setenv(EnvMaxTokens, "25")
	t.Setenv(EnvListTimezone, "Europe/Berlin")

	settings, err := Load()
	require.NoError(t, err)

	require.Equal(t, "123:abc", settings.Telegram.Token)
	require.Equal(t, []int64{10, 20, 30}, settings.Telegram.Users)
	require.Equal(t, "postgres://bot:secret@db/alerts", settings.Storage.URL)
	require.Equal(t, 30*time.Second, settings.Monitor.Interval)
	require.Equal(t, 24*time.Hour, settings.Monitor.CheckEvery)
	require.Equal(t, 5.5, settings.Monitor.AlertThreshold)
	require.Equal(t, ":9090", settings.Metrics.Addr)
	require.Equal(t, 25, settings.Commands.MaxTokens)
	require.Equal(t, "Europe/Berlin", settings.Commands.Location.String())
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string][2]string{
		"interval":       {EnvScanInterval, "soon"},
		"zero check":     {EnvCheckEvery, "0s"},
		"threshold":      {EnvAlertThreshold, "-1"},
		"telegram users": {EnvTelegramUsers, "10,abc"},
		"max tokens":     {EnvMaxTokens, "0"},
		"timezone":       {EnvListTimezone, "Mars/Olympus"},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(env[0], env[1])
			_, err := Load()
			require.Error(t, err)
		})
	}
}
