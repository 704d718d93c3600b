package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the JSON slog logger shared by every component
type Logger struct {
	logger *slog.Logger
}

// New builds a stdout logger for a config level name
func New(level string) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return NewLogger(lvl), nil
}

func NewLogger(level slog.Level) *Logger {
	return NewLoggerWithWriter(os.Stdout, level)
}

func NewLoggerWithWriter(w io.Writer, level slog.Level) *Logger {
	return &Logger{logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))}
}

// Discard drops every record
func Discard() *Logger {
	return &Logger{logger: slog.New(slog.NewJSONHandler(io.Discard, nil))}
}

// ParseLevel accepts debug, info, warn and error
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level: %s", level)
}

// With returns a child logger carrying args on every record
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

func (l *Logger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }

// LogError logs at error level. An AppError is expanded into its type,
// code, cause and context attributes.
func (l *Logger) LogError(err error, msg string, args ...any) {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		l.logger.Error(msg, append([]any{"error", fmt.Sprint(err)}, args...)...)
		return
	}

	attrs := make([]any, 0, 8+2*len(appErr.Context)+len(args))
	attrs = append(attrs,
		"error_type", appErr.Type,
		"error_code", appErr.Code,
		"error_message", appErr.Message)
	if appErr.Cause != nil {
		attrs = append(attrs, "error_cause", appErr.Cause.Error())
	}
	for k, v := range appErr.Context {
		attrs = append(attrs, k, v)
	}
	l.logger.Error(msg, append(attrs, args...)...)
}
