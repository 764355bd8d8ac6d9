package zerolog

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/raykavin/cryptoalert/pkg/logger"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "info", JSON: true, Out: &buf})
	require.NoError(t, err)

	log := NewAdapter(l)
	log.Debug("hidden")
	log.WithField("user", 42).WithError(errors.New("boom")).Error("delivery failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "error", entry["level"])
	require.Equal(t, "delivery failed", entry["message"])
	require.Equal(t, "boom", entry["error"])
	require.EqualValues(t, 42, entry["user"])
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "debug", TimeFormat: "15:04:05", Out: &buf})
	require.NoError(t, err)

	NewAdapter(l).Infof("scan finished in %s", "2s")
	require.Contains(t, buf.String(), "[INF]")
	require.Contains(t, buf.String(), "scan finished in 2s")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	require.Error(t, err)
}

func TestAdapter_Level(t *testing.T) {
	log := Nop()
	log.SetLevel(logger.WarnLevel)
	require.Equal(t, logger.WarnLevel, log.GetLevel())
	log.SetLevel(logger.InfoLevel)
}
