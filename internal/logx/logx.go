package logx

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitFromEnv configures zerolog using env vars and writes logs to w.
// Stdout is reserved for the checksum listing, so callers pass stderr.
// - LOG_LEVEL  : trace|debug|info|warn|error (default: warn)
// - LOG_FORMAT : json|console                (default: console)
func InitFromEnv(w io.Writer) {
	level := strings.ToLower(getenv("LOG_LEVEL", "warn"))
	format := strings.ToLower(getenv("LOG_FORMAT", "console"))

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	zerolog.SetGlobalLevel(parseLevel(level))

	var logger zerolog.Logger
	if format == "json" {
		logger = zerolog.New(w).With().Timestamp().Logger()
	} else {
		cw := zerolog.NewConsoleWriter(func(cw *zerolog.ConsoleWriter) {
			cw.Out = w
			cw.TimeFormat = time.RFC3339
			cw.NoColor = !isTerminal(w)
		})
		logger = zerolog.New(cw).With().Timestamp().Logger()
	}
	log.Logger = logger
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.WarnLevel
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

// getenv returns the env var value if set and non-empty, otherwise def.
func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}
