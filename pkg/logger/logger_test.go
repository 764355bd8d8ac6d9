package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"":        InfoLevel,
		" warn ":  WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"fatal":   FatalLevel,
		"off":     Disabled,
	}

	for input, expected := range tests {
		level, err := ParseLevel(input)
		require.NoError(t, err, input)
		require.Equal(t, expected, level, input)
	}

	_, err := ParseLevel("verbose")
	require.Error(t, err)
}
