package cryptoalert

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/raykavin/cryptoalert/pkg/command"
	"github.com/raykavin/cryptoalert/pkg/core"
	"github.com/raykavin/cryptoalert/pkg/feed"
	"github.com/raykavin/cryptoalert/pkg/logger"
	"github.com/raykavin/cryptoalert/pkg/metric"
	"github.com/raykavin/cryptoalert/pkg/monitor"
	"github.com/raykavin/cryptoalert/pkg/storage"
)

// DefaultLog is the default logger instance
var DefaultLog logger.Logger

const metricsNamespace = "cryptoalert"

// Bot ties the chat commands, the token storage and the polling loop together
type Bot struct {
	settings *core.Settings
	storage  core.TokenStorage
	feed     core.PriceFeed
	notifier core.Notifier
	telegram core.NotifierWithStart
	metrics  *metric.Metrics
	log      logger.Logger

	handler *command.Handler
	monitor *monitor.Monitor
}

// NewBot creates a new bot instance with the provided settings and dependencies
func NewBot(ctx context.Context, settings *core.Settings, options ...Option) (*Bot, error) {
	bot := &Bot{
		settings: settings,
		log:      DefaultLog,
	}

	// Apply custom options
	for _, option := range options {
		option(bot)
	}

	if err := initializeStorage(ctx, bot); err != nil {
		return nil, err
	}

	initializeMetrics(bot)

	if bot.feed == nil {
		var feedOptions []feed.Option
		if settings.Feed.BaseURL != "" {
			feedOptions = append(feedOptions, feed.WithBaseURL(settings.Feed.BaseURL))
		}
		bot.feed = feed.NewDexScreener(feedOptions...)
	}

	bot.handler = command.NewHandler(bot.storage, bot.log, commandOptions(bot)...)

	if err := initializeNotifications(ctx, bot); err != nil {
		_ = bot.storage.Close()
		return nil, err
	}

	bot.monitor = monitor.New(bot.storage, bot.feed, bot.notifier, bot.log, monitorOptions(bot)...)

	return bot, nil
}

// initializeStorage opens the storage described by the settings unless one was provided
func initializeStorage(ctx context.Context, bot *Bot) error {
	if bot.storage != nil {
		return nil
	}

	store, err := storage.Open(ctx, bot.settings.Storage)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}

	bot.storage = store
	return nil
}

// initializeMetrics registers the collectors when an endpoint is configured
func initializeMetrics(bot *Bot) {
	if bot.metrics != nil || bot.settings.Metrics.Addr == "" {
		return
	}

	bot.metrics = metric.New(metricsNamespace, prometheus.NewRegistry())
}

func commandOptions(bot *Bot) []command.Option {
	cfg := bot.settings.Commands
	options := []command.Option{command.WithMetrics(bot.metrics)}

	if cfg.MaxTokens > 0 {
		options = append(options, command.WithMaxTokens(cfg.MaxTokens))
	}
	if cfg.Location != nil {
		options = append(options, command.WithLocation(cfg.Location))
	}

	return options
}

func monitorOptions(bot *Bot) []monitor.Option {
	cfg := bot.settings.Monitor
	options := []monitor.Option{monitor.WithMetrics(bot.metrics)}

	if cfg.Interval > 0 {
		options = append(options, monitor.WithInterval(cfg.Interval))
	}
	if cfg.CheckEvery > 0 {
		options = append(options, monitor.WithCheckEvery(cfg.CheckEvery))
	}
	if cfg.AlertThreshold > 0 {
		options = append(options, monitor.WithAlertThreshold(cfg.AlertThreshold))
	}

	return options
}

// Commands returns the chat commands served by the bot
func (b *Bot) Commands() []command.Command {
	return b.handler.Commands()
}

// Run starts the chat transport and the polling loop and blocks until ctx is done.
// The storage is closed on return.
func (b *Bot) Run(ctx context.Context) error {
	defer func() {
		if err := b.storage.Close(); err != nil {
			b.log.WithError(err).Error("failed to close storage")
		}
	}()

	if b.telegram != nil {
		b.telegram.Start()
		defer b.telegram.Stop()
	}

	if b.metrics != nil && b.settings.Metrics.Addr != "" {
		stop := b.serveMetrics(b.settings.Metrics.Addr)
		defer stop()
	}

	err := b.monitor.Run(ctx)
	if errors.Is(err, context.Canceled) {
		b.log.Info("shutting down")
		return nil
	}
	return err
}

// serveMetrics exposes the Prometheus handler and returns a function that stops it
func (b *Bot) serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", b.metrics.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		b.log.WithField("addr", addr).Info("serving metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.log.WithError(err).Error("metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}
