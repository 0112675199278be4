package logging

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Log is the process-wide logger. Packages derive their own with For.
var Log = zerolog.New(os.Stderr).Output(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

// For returns a sub-logger tagged with the given service name.
func For(service string) zerolog.Logger {
	return Log.With().Str("service", service).Logger()
}

// SetLevel sets the global log level ("debug", "info", "warn", ...).
func SetLevel(level string) error {
	if level == "" {
		return nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", level)
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}
