package cryptoalert

import (
	"testing"

	"github.com/raykavin/cryptoalert/pkg/logger"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	t.Run("zerolog", func(t *testing.T) {
		t.Setenv(envLogLevel, "warn")
		log, err := initLogger()
		require.NoError(t, err)
		require.Equal(t, logger.WarnLevel, log.GetLevel())
	})

	t.Run("logrus", func(t *testing.T) {
		t.Setenv(envLogBackend, "logrus")
		t.Setenv(envLogLevel, "debug")
		t.Setenv(envLogJSON, "true")
		log, err := initLogger()
		require.NoError(t, err)
		require.Equal(t, logger.DebugLevel, log.GetLevel())
	})

	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv(envLogBackend, "syslog")
		_, err := initLogger()
		require.Error(t, err)
	})

	t.Run("invalid bool", func(t *testing.T) {
		t.Setenv(envLogColor, "maybe")
		_, err := initLogger()
		require.Error(t, err)
	})
}
