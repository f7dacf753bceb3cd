package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	auth "github.com/goliatone/go-conduit-auth"
)

// slogLogger adapts slog to the printf style auth.Logger
type slogLogger struct {
	l *slog.Logger
}

var _ auth.Logger = slogLogger{}

func newLogger(level string) slogLogger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slogLogger{l: slog.New(handler).With(slog.String("service", "conduit-auth"))}
}

func (s slogLogger) Debug(format string, args ...any) {
	s.l.Debug(fmt.Sprintf(format, args...))
}

func (s slogLogger) Info(format string, args ...any) {
	s.l.Info(fmt.Sprintf(format, args...))
}

func (s slogLogger) Warn(format string, args ...any) {
	s.l.Warn(fmt.Sprintf(format, args...))
}

func (s slogLogger) Error(format string, args ...any) {
	s.l.Error(fmt.Sprintf(format, args...))
}
