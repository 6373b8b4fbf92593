package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	scierrors "github.com/YuminosukeSato/scistat/pkg/errors"
)

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger = nopLogger{}
)

// GetLogger returns the package default logger. It is a no-op logger until
// SetLogger, SetupLogger or SetupZerolog installs one.
func GetLogger() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetLogger replaces the package default logger. A nil logger restores the
// no-op logger.
func SetLogger(l Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if l == nil {
		l = nopLogger{}
	}
	defaultLogger = l
}

// cloudLoggingKeys renames slog's built-in keys to the names Cloud Logging
// reads from structured payloads.
var cloudLoggingKeys = map[string]string{
	slog.LevelKey:   "severity",
	slog.MessageKey: "message",
	slog.SourceKey:  "logging.googleapis.com/sourceLocation",
}

// SetupLogger installs a JSON slog handler on stdout as both slog's default
// and this package's default logger. Records carrying ErrAttr gain the
// error's stack trace.
func SetupLogger(loglevel string) error {
	level, err := ParseLevel(loglevel)
	if err != nil {
		return err
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.Level(level),
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return attr
			}
			if key, ok := cloudLoggingKeys[attr.Key]; ok {
				attr.Key = key
			}
			return attr
		},
	})
	logger := slog.New(WrapByErrFmtHandler(handler))
	slog.SetDefault(logger)
	SetLogger(NewSlogLogger(logger))
	return nil
}

// SetupZerolog installs a zerolog-backed default logger writing to w and
// routes pkg/errors warnings through it as structured records.
func SetupZerolog(w io.Writer, loglevel string) error {
	level, err := ParseLevel(loglevel)
	if err != nil {
		return err
	}
	zl := NewZerologLogger(w, level)
	SetLogger(zl)
	scierrors.SetZerologWarnFunc(zl.warnError)
	return nil
}

// ParseLevel accepts "debug", "info", "warn" or "error".
func ParseLevel(level string) (Level, error) {
	for _, l := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		if level == strings.ToLower(l.String()) {
			return l, nil
		}
	}
	return LevelInfo, scierrors.NewInvalidParameterError("loglevel", "must be one of debug, info, warn, error", level)
}

// ToZerologLevel maps a Level onto the zerolog level scale.
func ToZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr attaches err under ErrAttrKey, where WrapByErrFmtHandler looks for it.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)                {}
func (nopLogger) Info(string, ...any)                 {}
func (nopLogger) Warn(string, ...any)                 {}
func (nopLogger) Error(string, ...any)                {}
func (n nopLogger) With(...any) Logger                { return n }
func (nopLogger) Enabled(context.Context, Level) bool { return false }
