package shared

import (
	"io"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/rs/zerolog"
)

// SetupLogger configures zerolog with pretty console output
func SetupLogger(debug bool) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level(debug)).
		With().
		Timestamp().
		Logger()
}

// SetupStructuredLogger configures zerolog for structured (JSON) output
func SetupStructuredLogger(debug bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	return zerolog.New(os.Stderr).
		Level(level(debug)).
		With().
		Timestamp().
		Logger()
}

// NewLogger picks the console or JSON logger
func NewLogger(debug, jsonLogs bool) zerolog.Logger {
	if jsonLogs {
		return SetupStructuredLogger(debug)
	}
	return SetupLogger(debug)
}

// SimulatorLogger returns the logger handed to the evaluation simulator.
func SimulatorLogger(w io.Writer, debug, jsonLogs bool) *charmlog.Logger {
	opts := charmlog.Options{
		Level:           charmlog.InfoLevel,
		ReportTimestamp: true,
		Prefix:          "eval",
	}
	if debug {
		opts.Level = charmlog.DebugLevel
	}
	if jsonLogs {
		opts.Formatter = charmlog.JSONFormatter
	}
	return charmlog.NewWithOptions(w, opts)
}

func level(debug bool) zerolog.Level {
	if debug {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
