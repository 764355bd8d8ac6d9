package cryptoalert

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/raykavin/cryptoalert/pkg/logger"
	logrusadapter "github.com/raykavin/cryptoalert/pkg/logger/logrus"
	"github.com/raykavin/cryptoalert/pkg/logger/zerolog"
	"github.com/sirupsen/logrus"
)

const (
	// Default configuration values
	defaultLogLevel      = "info"
	defaultLogTimeFormat = "2006-01-02 15:04:05"
	defaultLogColored    = "true"
	defaultLogJSON       = "false"
	defaultLogBackend    = "zerolog"
)

// Environment variable names
const (
	envLogLevel      = "CRYPTOALERT_LOG_LEVEL"
	envLogTimeFormat = "CRYPTOALERT_LOG_TIME_FORMAT"
	envLogColor      = "CRYPTOALERT_LOG_COLOR"
	envLogJSON       = "CRYPTOALERT_LOG_JSON"
	envLogBackend    = "CRYPTOALERT_LOG_BACKEND"
)

func init() {
	// Initialize the logger with configuration from environment variables
	log, err := initLogger()
	if err != nil {
		panic(err)
	}

	DefaultLog = log
}

// initLogger creates a new logger instance configured from environment variables
func initLogger() (logger.Logger, error) {
	opts := zerolog.Options{
		Level:      getEnvWithDefault(envLogLevel, defaultLogLevel),
		TimeFormat: getEnvWithDefault(envLogTimeFormat, defaultLogTimeFormat),
	}

	var err error
	if opts.Colored, err = parseBoolEnv(envLogColor, defaultLogColored); err != nil {
		return nil, err
	}
	if opts.JSON, err = parseBoolEnv(envLogJSON, defaultLogJSON); err != nil {
		return nil, err
	}

	switch backend := strings.ToLower(getEnvWithDefault(envLogBackend, defaultLogBackend)); backend {
	case "zerolog":
		log, err := zerolog.New(opts)
		if err != nil {
			return nil, err
		}
		return zerolog.NewAdapter(log), nil
	case "logrus":
		return newLogrus(opts)
	default:
		return nil, fmt.Errorf("%s: unknown log backend %q", envLogBackend, backend)
	}
}

// newLogrus builds the logrus alternative from the same options
func newLogrus(opts zerolog.Options) (logger.Logger, error) {
	level, err := logger.ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	l := logrus.New()
	l.SetOutput(os.Stdout)
	if opts.JSON {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: opts.TimeFormat})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: opts.TimeFormat,
			DisableColors:   !opts.Colored,
		})
	}

	log := logrusadapter.New(l)
	log.SetLevel(level)
	return log, nil
}

// getEnvWithDefault returns the value of the environment variable or the default if not set
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// parseBoolEnv gets a boolean environment variable with a default value
func parseBoolEnv(key, defaultValue string) (bool, error) {
	value := getEnvWithDefault(key, defaultValue)
	return strconv.ParseBool(value)
}
