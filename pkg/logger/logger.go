// Package logger defines the logging facade used across cryptoalert
package logger

import (
	"fmt"
	"strings"
)

type Level int8

const (
	Disabled   Level = -1   // Disabled turns logging off.
	DebugLevel Level = iota // DebugLevel is used for scan and request details.
	InfoLevel               // InfoLevel is used for lifecycle messages.
	WarnLevel               // WarnLevel is used for recoverable problems such as missing price data.
	ErrorLevel              // ErrorLevel is used for failed deliveries and storage errors.
	FatalLevel              // FatalLevel is used for errors that end the process.
)

// ParseLevel converts a textual level ("debug", "info", ...) into a Level
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "disabled", "off":
		return Disabled, nil
	case "debug", "trace":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal", "panic":
		return FatalLevel, nil
	}

	return Disabled, fmt.Errorf("unknown log level %q", level)
}

type Logger interface {
	// Returns a logger decorated with the given context.
	WithField(key string, value any) Logger  // WithField returns a logger with the given key-value pair.
	WithFields(fields map[string]any) Logger // WithFields returns a logger with the given fields.
	WithError(err error) Logger              // WithError returns a logger with the given error.

	Debug(args ...any) // Debug logs the message with the debug level.
	Info(args ...any)  // Info logs the message with the info level.
	Warn(args ...any)  // Warn logs the message with the warning level.
	Error(args ...any) // Error logs the message with the error level.
	Fatal(args ...any) // Fatal logs the message and then exits the program.

	Debugf(format string, args ...any) // Debugf formats and logs the message with the debug level.
	Infof(format string, args ...any)  // Infof formats and logs the message with the info level.
	Warnf(format string, args ...any)  // Warnf formats and logs the message with the warning level.
	Errorf(format string, args ...any) // Errorf formats and logs the message with the error level.
	Fatalf(format string, args ...any) // Fatalf formats and logs the message and then exits the program.

	SetLevel(level Level) // SetLevel sets the logging level for the logger.
	GetLevel() Level      // GetLevel returns the logging level for the logger.
}
