package metric

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordScan(t *testing.T) {
	m := New("", nil)

	m.RecordScan(time.Now(), nil)
	m.RecordScan(time.Now(), errors.New("boom"))
	m.RecordScan(time.Now(), nil)

	require.Equal(t, 2.0, testutil.ToFloat64(m.ScansTotal.WithLabelValues("ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ScansTotal.WithLabelValues("error")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	require.NotPanics(t, func() {
		m.RecordScan(time.Now(), nil)
		m.RecordDelivery(nil)
		m.RecordCommand("add")
		m.RecordCheck()
		m.RecordSkip()
		m.RecordFetchFailure()
		m.RecordAlert()
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New("test", nil)
	m.RecordDelivery(nil)
	m.RecordDelivery(errors.New("blocked"))
	m.RecordAlert()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(body, "test_notification_sent_total 1"))
	require.True(t, strings.Contains(body, "test_notification_failed_total 1"))
	require.True(t, strings.Contains(body, "test_monitor_alerts_sent_total 1"))
}
