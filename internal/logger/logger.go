package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the service logger. Development gets a human readable console
// writer, every other environment gets JSON lines on stdout.
func New(environment, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339

	var log zerolog.Logger
	if environment == "development" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"})
	} else {
		log = zerolog.New(os.Stdout)
	}

	return log.Level(lvl).With().Timestamp().Str("service", "proposals").Logger()
}
