// Package logging builds the zerolog loggers used by the engine and CLI.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel maps a level name onto a zerolog level. Unknown names are info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New returns a console logger writing to w at the given level.
func New(w io.Writer, level string) zerolog.Logger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	return zerolog.New(cw).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// JSON returns a JSON logger writing to w at the given level.
func JSON(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}
