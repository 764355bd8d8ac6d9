// Package metric exposes Prometheus metrics for the price polling loop
package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultNamespace = "cryptoalert"

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ScansTotal          *prometheus.CounterVec
	ScanDuration        prometheus.Histogram
	TokensChecked       prometheus.Counter
	TokensSkipped       prometheus.Counter
	FetchFailures       prometheus.Counter
	AlertsSent          prometheus.Counter
	NotificationsSent   prometheus.Counter
	NotificationsFailed prometheus.Counter
	Commands            *prometheus.CounterVec
	LastScan            prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates the metrics and registers them on reg; a nil reg gets a fresh registry
func New(namespace string, reg *prometheus.Registry) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	factory := promauto.With(reg)

	return &Metrics{
		ScansTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "scans_total",
			Help:      "Total number of scans by outcome",
		}, []string{"status"}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "scan_duration_seconds",
			Help:      "Duration of a full scan in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		TokensChecked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "tokens_checked_total",
			Help:      "Total number of tokens passed to the price feed",
		}),
		TokensSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "tokens_skipped_total",
			Help:      "Total number of tokens skipped because they were checked recently",
		}),
		FetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "fetch_failures_total",
			Help:      "Total number of price fetches that returned no data",
		}),
		AlertsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "alerts_sent_total",
			Help:      "Total number of 1h change alerts sent",
		}),
		NotificationsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notification",
			Name:      "sent_total",
			Help:      "Total number of messages delivered",
		}),
		NotificationsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notification",
			Name:      "failed_total",
			Help:      "Total number of messages that could not be delivered",
		}),
		Commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "command",
			Name:      "handled_total",
			Help:      "Total number of chat commands handled by name",
		}, []string{"command"}),
		LastScan: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "last_scan_timestamp_seconds",
			Help:      "Unix timestamp of the last completed scan",
		}),
		gatherer: reg,
	}
}

// Handler returns the HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordScan records the outcome of one scan
func (m *Metrics) RecordScan(started time.Time, err error) {
	if m == nil {
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
	}

	m.ScansTotal.WithLabelValues(status).Inc()
	m.ScanDuration.Observe(time.Since(started).Seconds())
	m.LastScan.SetToCurrentTime()
}

// RecordDelivery counts a message send attempt
func (m *Metrics) RecordDelivery(err error) {
	if m == nil {
		return
	}

	if err != nil {
		m.NotificationsFailed.Inc()
		return
	}
	m.NotificationsSent.Inc()
}

// RecordCommand counts a handled chat command
func (m *Metrics) RecordCommand(name string) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(name).Inc()
}

// RecordCheck counts a token handed to the price feed
func (m *Metrics) RecordCheck() {
	if m != nil {
		m.TokensChecked.Inc()
	}
}

// RecordSkip counts a token that was not due yet
func (m *Metrics) RecordSkip() {
	if m != nil {
		m.TokensSkipped.Inc()
	}
}

// RecordFetchFailure counts a price fetch that returned no data
func (m *Metrics) RecordFetchFailure() {
	if m != nil {
		m.FetchFailures.Inc()
	}
}

// RecordAlert counts a 1h change alert
func (m *Metrics) RecordAlert() {
	if m != nil {
		m.AlertsSent.Inc()
	}
}
