// Package log is the structured logging layer shared by the glm and
// montecarlo packages.
//
// Components never print. They hold a Logger, which is a no-op until the
// caller installs one with SetLogger or passes one as an option. Backends
// exist for log/slog, zerolog and an in-memory TestLogger.
//
//	logger := log.NewZerologLogger(os.Stderr, log.LevelInfo).
//	    With(log.ModelNameKey, "PoissonRegressor")
//	logger.Info("fit completed", log.OperationKey, log.OperationFit, log.IterationKey, 12)
package log

import (
	"context"
	"log/slog"
)

// Logger takes a message plus alternating key/value fields, the same
// convention as slog.Logger.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	// Warn is for recoverable numeric trouble: clipped overflow, a fit
	// that stopped before its tolerance.
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)

	// With returns a child whose records all carry fields.
	With(fields ...any) Logger

	// Enabled lets hot loops skip building per-iteration fields.
	Enabled(ctx context.Context, level Level) bool
}

// Level shares slog.Level's numbering so conversion is a plain cast.
type Level int

const (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

func (l Level) String() string {
	return slog.Level(l).String()
}
