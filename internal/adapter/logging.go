package adapter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogger returns a JSON logger writing to the configured watchdone log
// file, rotated by size and age. The log directory is created if missing.
func SetupLogger(cfg *LoggingConfig) (*slog.Logger, error) {
	logPath, err := resolveLogPath(cfg.File)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return newLogger(&lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}, cfg.Level), nil
}

// resolveLogPath expands environment variables and a leading "~/" in file.
// An empty file selects the platform default.
func resolveLogPath(file string) (string, error) {
	file = os.ExpandEnv(strings.TrimSpace(file))
	switch {
	case file == "":
		return defaultLogPath(), nil
	case file == "~" || strings.HasPrefix(file, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve log path %q: %w", file, err)
		}
		return filepath.Join(home, strings.TrimPrefix(file[1:], "/")), nil
	}
	return file, nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLogLevel(level)})
	return slog.New(handler).With("app", "watchdone")
}

// parseLogLevel accepts slog level names in any case, plus "warning".
// Unknown names log at INFO.
func parseLogLevel(level string) slog.Level {
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// NullLogger discards everything.
func NullLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
