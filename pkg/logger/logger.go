package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Log is the shared application logger. Call Init before use.
var Log zerolog.Logger

func Init(dev bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	if dev {
		Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
			With().Timestamp().Logger().Level(zerolog.DebugLevel)
		return
	}

	Log = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)
}

func IsDev() bool {
	return os.Getenv("APP_ENV") != "production"
}
