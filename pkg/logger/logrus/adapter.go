// Package logrus adapts a logrus logger to the logger.Logger facade
package logrus

import (
	"github.com/raykavin/cryptoalert/pkg/logger"
	"github.com/sirupsen/logrus"
)

type Adapter struct {
	entry *logrus.Entry
}

func New(l *logrus.Logger) *Adapter {
	return &Adapter{entry: logrus.NewEntry(l)}
}

func (a *Adapter) WithField(key string, value any) logger.Logger {
	return &Adapter{entry: a.entry.WithField(key, value)}
}

func (a *Adapter) WithFields(fields map[string]any) logger.Logger {
	return &Adapter{entry: a.entry.WithFields(logrus.Fields(fields))}
}

func (a *Adapter) WithError(err error) logger.Logger {
	return &Adapter{entry: a.entry.WithError(err)}
}

func (a *Adapter) Debug(args ...any) { a.entry.Debug(args...) }
func (a *Adapter) Info(args ...any)  { a.entry.Info(args...) }
func (a *Adapter) Warn(args ...any)  { a.entry.Warn(args...) }
func (a *Adapter) Error(args ...any) { a.entry.Error(args...) }
func (a *Adapter) Fatal(args ...any) { a.entry.Fatal(args...) }

func (a *Adapter) Debugf(format string, args ...any) { a.entry.Debugf(format, args...) }
func (a *Adapter) Infof(format string, args ...any)  { a.entry.Infof(format, args...) }
func (a *Adapter) Warnf(format string, args ...any)  { a.entry.Warnf(format, args...) }
func (a *Adapter) Errorf(format string, args ...any) { a.entry.Errorf(format, args...) }
func (a *Adapter) Fatalf(format string, args ...any) { a.entry.Fatalf(format, args...) }

func (a *Adapter) SetLevel(level logger.Level) {
	switch level {
	case logger.Disabled:
		a.entry.Logger.SetLevel(logrus.PanicLevel)
	case logger.DebugLevel:
		a.entry.Logger.SetLevel(logrus.DebugLevel)
	case logger.WarnLevel:
		a.entry.Logger.SetLevel(logrus.WarnLevel)
	case logger.ErrorLevel:
		a.entry.Logger.SetLevel(logrus.ErrorLevel)
	case logger.FatalLevel:
		a.entry.Logger.SetLevel(logrus.FatalLevel)
	default:
		a.entry.Logger.SetLevel(logrus.InfoLevel)
	}
}

func (a *Adapter) GetLevel() logger.Level {
	switch a.entry.Logger.GetLevel() {
	case logrus.TraceLevel, logrus.DebugLevel:
		return logger.DebugLevel
	case logrus.WarnLevel:
		return logger.WarnLevel
	case logrus.ErrorLevel:
		return logger.ErrorLevel
	case logrus.FatalLevel, logrus.PanicLevel:
		return logger.FatalLevel
	default:
		return logger.InfoLevel
	}
}
