package junction

import (
	"log/slog"
	"os"
	"strings"
)

// logLevel backs the package default logger so the level can change while
// the server runs, for example after a configuration reload.
var logLevel = new(slog.LevelVar)

var defaultLog = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

func defaultLogger() *slog.Logger {
	return defaultLog
}

// SetDefaultLogger replaces the logger used by servers created afterwards.
// Call it before InitHTTPServer.
func SetDefaultLogger(log *slog.Logger) {
	if log != nil {
		defaultLog = log
	}
}

// SetLogLevel changes the level of the package default logger.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

// ParseLogLevel accepts the slog level names, case-insensitively.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(strings.TrimSpace(s)))
	return level, err
}
