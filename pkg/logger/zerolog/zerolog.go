// Package zerolog provides the console logger used by default
package zerolog

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/goterm/term"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Options configures the console output
type Options struct {
	Level      string
	TimeFormat string
	Colored    bool
	JSON       bool
	Out        io.Writer
}

// New builds a zerolog logger writing either JSON or a coloured console layout
func New(opts Options) (*zerolog.Logger, error) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(level)

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	if opts.JSON {
		l := zerolog.New(out).With().Timestamp().Caller().Logger()
		return &l, nil
	}

	output := zerolog.ConsoleWriter{
		Out:             out,
		NoColor:         !opts.Colored,
		TimeFormat:      opts.TimeFormat,
		FormatLevel:     formatLevel,
		FormatMessage:   formatMessage,
		FormatCaller:    formatCaller,
		FormatTimestamp: func(i any) string { return formatTimestamp(i, opts.TimeFormat) },
	}

	l := zerolog.New(output).With().Timestamp().CallerWithSkipFrameCount(3).Logger()
	return &l, nil
}

func formatLevel(i any) string {
	level, _ := i.(string)
	switch level {
	case zerolog.LevelTraceValue, zerolog.LevelDebugValue:
		return term.Cyanf("[DBG]")
	case zerolog.LevelInfoValue:
		return term.Greenf("[INF]")
	case zerolog.LevelWarnValue:
		return term.Yellowf("[WAR]")
	case zerolog.LevelErrorValue:
		return term.Redf("[ERR]")
	case zerolog.LevelFatalValue, zerolog.LevelPanicValue:
		return term.Redf("[FTL]")
	default:
		return term.Whitef("[UNK]")
	}
}

func formatMessage(i any) string {
	const width = 60

	msg, ok := i.(string)
	if !ok || msg == "" {
		return ">"
	}

	if len(msg) < width {
		msg += strings.Repeat(" ", width-len(msg))
	}

	return term.Whitef("> %s", msg)
}

func formatCaller(i any) string {
	fname, ok := i.(string)
	if !ok || fname == "" {
		return ""
	}

	file, line, found := strings.Cut(filepath.Base(fname), ":")
	if !found {
		return term.Yellowf("[%s]", file)
	}

	return term.Yellowf("[%-16.16s:%4s]", file, line)
}

func formatTimestamp(i any, layout string) string {
	raw, ok := i.(string)
	if !ok {
		return term.Cyanf("[%v]", i)
	}

	ts, err := time.ParseInLocation(time.RFC3339, raw, time.Local)
	if err != nil {
		return term.Cyanf("[%s]", raw)
	}

	return term.Cyanf("[%s]", ts.Format(layout))
}
