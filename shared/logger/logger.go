package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds a logger writing to out. format is "console" or "json";
// anything else falls back to json.
func New(out io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}

	if format == "console" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

// Setup builds the process logger on stdout and installs it as the global
// zerolog logger.
func Setup(level, format string) (zerolog.Logger, error) {
	l, err := New(os.Stdout, level, format)
	if err != nil {
		return l, err
	}
	zerolog.SetGlobalLevel(l.GetLevel())
	log.Logger = l
	return l, nil
}
