// Package monitor runs the periodic price check over every tracked token
package monitor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/raykavin/cryptoalert/pkg/core"
	"github.com/raykavin/cryptoalert/pkg/logger"
	"github.com/raykavin/cryptoalert/pkg/metric"
)

const (
	DefaultInterval       = time.Minute
	DefaultCheckEvery     = 15 * time.Minute
	DefaultAlertThreshold = 10.0
)

// Monitor walks all tracked tokens on a fixed interval, fetches their price
// and notifies the owners. Tokens are processed one at a time.
type Monitor struct {
	storage  core.TokenStorage
	feed     core.PriceFeed
	notifier core.Notifier
	log      logger.Logger
	metrics  *metric.Metrics

	interval   time.Duration
	checkEvery time.Duration
	threshold  float64
	now        func() time.Time
}

// Option configures a Monitor
type Option func(*Monitor)

// WithInterval sets the sleep between two scans
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		m.interval = d
	}
}

// WithCheckEvery sets how old a token's last check must be before it is fetched again
func WithCheckEvery(d time.Duration) Option {
	return func(m *Monitor) {
		m.checkEvery = d
	}
}

// WithAlertThreshold sets the absolute 1h change, in percent, above which an alert is sent
func WithAlertThreshold(percent float64) Option {
	return func(m *Monitor) {
		m.threshold = percent
	}
}

// WithClock replaces the time source used for the due check
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

func WithMetrics(metrics *metric.Metrics) Option {
	return func(m *Monitor) {
		m.metrics = metrics
	}
}

func New(storage core.TokenStorage, feed core.PriceFeed, notifier core.Notifier, log logger.Logger, options ...Option) *Monitor {
	m := &Monitor{
		storage:    storage,
		feed:       feed,
		notifier:   notifier,
		log:        log,
		interval:   DefaultInterval,
		checkEvery: DefaultCheckEvery,
		threshold:  DefaultAlertThreshold,
		now:        time.Now,
	}

	for _, option := range options {
		option(m)
	}

	return m
}

// Run scans right away and then again one interval after each scan finishes,
// until ctx is cancelled. A failed scan is logged and the loop goes on.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.WithFields(map[string]any{
		"interval":    m.interval.String(),
		"check_every": m.checkEvery.String(),
		"threshold":   m.threshold,
	}).Info("price monitor started")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info("price monitor stopped")
			return ctx.Err()
		case <-timer.C:
		}

		if err := m.Scan(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.log.WithError(err).Error("scan aborted")
		}

		timer.Reset(m.interval)
	}
}

// Scan runs one pass over all tracked tokens. The due check uses the wall
// clock read once at the start of the scan. Cancellation is honoured between
// tokens; a token that is being processed always finishes.
func (m *Monitor) Scan(ctx context.Context) error {
	started := time.Now()
	err := m.scan(ctx)
	m.metrics.RecordScan(started, err)
	return err
}

func (m *Monitor) scan(ctx context.Context) error {
	tracked, err := m.storage.ListAllTracked(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tracked tokens: %w", err)
	}

	now := m.now()
	work := context.WithoutCancel(ctx)
	checked := 0

	for _, userID := range core.SortedUserIDs(tracked) {
		for _, token := range tracked[userID] {
			if err := ctx.Err(); err != nil {
				return err
			}

			if !token.DueAt(now, m.checkEvery) {
				m.metrics.RecordSkip()
				continue
			}

			if err := m.check(work, token); err != nil {
				return err
			}
			checked++
		}
	}

	m.log.WithFields(map[string]any{"users": len(tracked), "checked": checked}).Debug("scan finished")
	return nil
}

// check fetches one token and notifies its owner. Tokens without data keep
// their last check so they are retried on the next scan.
func (m *Monitor) check(ctx context.Context, token core.TrackedToken) error {
	m.metrics.RecordCheck()
	log := m.log.WithFields(map[string]any{"user": token.TelegramID, "address": token.Address})

	snapshot, err := m.feed.FetchPrice(ctx, token.Address)
	if err != nil {
		m.metrics.RecordFetchFailure()
		log.WithError(err).Warn("no price data")
		return m.send(ctx, token.TelegramID, FormatFetchFailed(token.Address))
	}

	if err := m.send(ctx, token.TelegramID, FormatUpdate(snapshot)); err != nil {
		return err
	}

	if math.Abs(snapshot.Change1h) > m.threshold {
		m.metrics.RecordAlert()
		log.WithField("change_1h", snapshot.Change1h).Info("price alert")

		if err := m.send(ctx, token.TelegramID, FormatAlert(snapshot)); err != nil {
			return err
		}
	}

	if err := m.storage.UpdateCheck(ctx, token.TelegramID, token.Address, snapshot.Price); err != nil {
		return fmt.Errorf("failed to update token %s: %w", token.Address, err)
	}

	return nil
}

func (m *Monitor) send(ctx context.Context, telegramID int64, text string) error {
	err := m.notifier.Send(ctx, telegramID, text)
	m.metrics.RecordDelivery(err)
	if err != nil {
		return fmt.Errorf("failed to notify user %d: %w", telegramID, err)
	}
	return nil
}
