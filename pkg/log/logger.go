package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rs/zerolog"

	nperrors "github.com/YuminosukeSato/npreg/pkg/errors"
)

// SetupLogger function setup the process-wide slog logger.
func SetupLogger(loglevel string) {
	ops := slog.HandlerOptions{
		AddSource: true,
		Level:     ToLogLevel(loglevel),
	}
	handler := slog.NewJSONHandler(os.Stdout, &ops)
	errFmtHandler := WrapByErrFmtHandler(handler)
	slog.SetDefault(slog.New(errFmtHandler))
}

func ToLogLevel(level string) slog.Level {
	switch level {
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		panic(fmt.Sprintf("invalid log level :%s", level))
	}
}

const (
	ErrAttrKey        = "error"
	ErrKindAttrKey    = "error.kind"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}

// EnableZerologWarnings routes pkg/errors warnings (OutOfSupportWarning,
// OrderFallbackWarning, ConvergenceWarning) to a zerolog logger writing to w.
// Warning types implementing zerolog.LogObjectMarshaler are embedded as a
// structured object; others fall back to their Error() string.
func EnableZerologWarnings(w io.Writer) {
	zl := zerolog.New(w).With().Timestamp().Logger()
	nperrors.SetZerologWarnFunc(func(warning error) {
		ev := zl.Warn()
		if obj, ok := warning.(zerolog.LogObjectMarshaler); ok {
			ev.Object("warning", obj)
		} else {
			ev.Str("warning", warning.Error())
		}
		ev.Msg("npreg warning")
	})
}

// slogLogger adapts *slog.Logger to the package Logger interface.
type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps an existing *slog.Logger. Passing nil wraps slog.Default().
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return &slogLogger{l: l}
}

// GetLogger returns the default Logger backed by slog.Default().
func GetLogger() Logger {
	return &slogLogger{l: slog.Default()}
}

func (s *slogLogger) Debug(msg string, fields ...any) { s.l.Debug(msg, fields...) }
func (s *slogLogger) Info(msg string, fields ...any)  { s.l.Info(msg, fields...) }
func (s *slogLogger) Warn(msg string, fields ...any)  { s.l.Warn(msg, fields...) }
func (s *slogLogger) Error(msg string, fields ...any) { s.l.Error(msg, fields...) }

func (s *slogLogger) With(fields ...any) Logger {
	return &slogLogger{l: s.l.With(fields...)}
}

func (s *slogLogger) Enabled(ctx context.Context, level Level) bool {
	return s.l.Enabled(ctx, slog.Level(level))
}
