package cryptoalert

import (
	"github.com/raykavin/cryptoalert/pkg/core"
	"github.com/raykavin/cryptoalert/pkg/logger"
	"github.com/raykavin/cryptoalert/pkg/metric"
)

// Option is a functional option for configuring a Bot instance
type Option func(*Bot)

// WithStorage sets the storage for the bot, by default it is opened from the storage settings
func WithStorage(storage core.TokenStorage) Option {
	return func(bot *Bot) {
		bot.storage = storage
	}
}

// WithFeed replaces the DexScreener client
func WithFeed(feed core.PriceFeed) Option {
	return func(bot *Bot) {
		bot.feed = feed
	}
}

// WithNotifier registers the notifier used for price updates and alerts.
// A notifier that can be started is also run as the chat transport.
func WithNotifier(notifier core.Notifier) Option {
	return func(bot *Bot) {
		bot.notifier = notifier
		if starter, ok := notifier.(core.NotifierWithStart); ok {
			bot.telegram = starter
		}
	}
}

func WithLogger(log logger.Logger) Option {
	return func(bot *Bot) {
		bot.log = log
	}
}

// WithMetrics sets the collectors, they are only served when a metrics address is configured
func WithMetrics(metrics *metric.Metrics) Option {
	return func(bot *Bot) {
		bot.metrics = metrics
	}
}
