package zerolog

import (
	"fmt"

	"github.com/raykavin/cryptoalert/pkg/logger"
	"github.com/rs/zerolog"
)

// Adapter exposes a zerolog.Logger through the logger.Logger facade
type Adapter struct {
	log *zerolog.Logger
}

func NewAdapter(log *zerolog.Logger) *Adapter {
	return &Adapter{log: log}
}

// Nop returns an adapter that discards everything, handy for tests
func Nop() *Adapter {
	l := zerolog.Nop()
	return &Adapter{log: &l}
}

func (a *Adapter) GetLevel() logger.Level {
	return toLevel(zerolog.GlobalLevel())
}

func (a *Adapter) SetLevel(level logger.Level) {
	zerolog.SetGlobalLevel(toZerologLevel(level))
}

func (a *Adapter) Debug(args ...any) { a.log.Debug().Msg(fmt.Sprint(args...)) }
func (a *Adapter) Info(args ...any)  { a.log.Info().Msg(fmt.Sprint(args...)) }
func (a *Adapter) Warn(args ...any)  { a.log.Warn().Msg(fmt.Sprint(args...)) }
func (a *Adapter) Error(args ...any) { a.log.Error().Msg(fmt.Sprint(args...)) }
func (a *Adapter) Fatal(args ...any) { a.log.Fatal().Msg(fmt.Sprint(args...)) }

func (a *Adapter) Debugf(format string, args ...any) { a.log.Debug().Msgf(format, args...) }
func (a *Adapter) Infof(format string, args ...any)  { a.log.Info().Msgf(format, args...) }
func (a *Adapter) Warnf(format string, args ...any)  { a.log.Warn().Msgf(format, args...) }
func (a *Adapter) Errorf(format string, args ...any) { a.log.Error().Msgf(format, args...) }
func (a *Adapter) Fatalf(format string, args ...any) { a.log.Fatal().Msgf(format, args...) }

// WithError implements logger.Logger.
func (a *Adapter) WithError(err error) logger.Logger {
	l := a.log.With().Err(err).Logger()
	return &Adapter{log: &l}
}

// WithField implements logger.Logger.
func (a *Adapter) WithField(key string, value any) logger.Logger {
	l := a.log.With().Interface(key, value).Logger()
	return &Adapter{log: &l}
}

// WithFields implements logger.Logger.
func (a *Adapter) WithFields(fields map[string]any) logger.Logger {
	l := a.log.With().Fields(fields).Logger()
	return &Adapter{log: &l}
}

var levels = map[zerolog.Level]logger.Level{
	zerolog.Disabled:   logger.Disabled,
	zerolog.TraceLevel: logger.DebugLevel,
	zerolog.DebugLevel: logger.DebugLevel,
	zerolog.InfoLevel:  logger.InfoLevel,
	zerolog.WarnLevel:  logger.WarnLevel,
	zerolog.ErrorLevel: logger.ErrorLevel,
	zerolog.FatalLevel: logger.FatalLevel,
	zerolog.PanicLevel: logger.FatalLevel,
}

func toLevel(level zerolog.Level) logger.Level {
	if l, ok := levels[level]; ok {
		return l
	}
	return logger.InfoLevel
}

func toZerologLevel(level logger.Level) zerolog.Level {
	switch level {
	case logger.Disabled:
		return zerolog.Disabled
	case logger.DebugLevel:
		return zerolog.DebugLevel
	case logger.WarnLevel:
		return zerolog.WarnLevel
	case logger.ErrorLevel:
		return zerolog.ErrorLevel
	case logger.FatalLevel:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
