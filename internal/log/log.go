// Package log configures the global zerolog logger used for patchbay's
// diagnostics. Run reports are produced separately by pkg/journal.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is the string form of a zerolog.Level accepted on the command line.
type LogLevel string

const (
	DEBUG    LogLevel = "debug"
	INFO     LogLevel = "info"
	WARN     LogLevel = "warn"
	ERROR    LogLevel = "error"
	DISABLED LogLevel = "disabled"
	TRACE    LogLevel = "trace"
)

var Levels = []LogLevel{DEBUG, INFO, WARN, ERROR, DISABLED, TRACE}

var logFile *os.File

func (ll LogLevel) String() string {
	return string(ll)
}

func (ll *LogLevel) Set(v string) error {
	v = strings.ToLower(v)
	for _, l := range Levels {
		if LogLevel(v) == l {
			*ll = l
			return nil
		}
	}
	return fmt.Errorf("must be one of %v", Levels)
}

func (ll LogLevel) Type() string {
	return "LogLevel"
}

// Zerolog() maps the level onto zerolog's own levels.
func (ll LogLevel) Zerolog() (zerolog.Level, error) {
	switch ll {
	case DISABLED:
		return zerolog.Disabled, nil
	case "":
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(string(ll))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level '%s' (options: %v)", ll, Levels)
	}
	return level, nil
}

// InitWithLogLevel() points the global logger at stderr and, when logPath
// is set, appends the same records to that file as JSON.
func InitWithLogLevel(logLevel LogLevel, logPath string) error {
	level, err := logLevel.Zerolog()
	if err != nil {
		return fmt.Errorf("failed to convert log level: %w", err)
	}

	writers := []io.Writer{
		&zerolog.FilteredLevelWriter{
			Writer: zerolog.LevelWriterAdapter{Writer: zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}},
			Level:  level,
		},
	}

	if logPath != "" {
		Close()
		logFile, err = os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o664)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, &zerolog.FilteredLevelWriter{
			Writer: zerolog.LevelWriterAdapter{Writer: logFile},
			Level:  level,
		})
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().Caller().
		Logger()
	return nil
}

// Close() releases the log file opened by InitWithLogLevel, if any.
func Close() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
