// Copyright (c) 2025 Sealbox Authors
// See the file LICENSE for licensing terms.

// Package log wraps zap so the rest of the module depends on a small
// interface instead of a concrete logging backend.
package log

import "go.uber.org/zap"

// Logger is the logging surface every package takes instead of reaching
// for a global.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Sync() error
}

type zapLogger struct {
	z *zap.Logger
}

// New creates a production zap logger named for the given component.
func New(name string) Logger {
	z, err := zap.NewProduction()
	if err != nil {
		return NoOp()
	}
	return &zapLogger{z: z.Named(name)}
}

// NewDevelopment creates a human-readable console logger, for cmd/ binaries
// run outside production.
func NewDevelopment(name string) Logger {
	z, err := zap.NewDevelopment()
	if err != nil {
		return NoOp()
	}
	return &zapLogger{z: z.Named(name)}
}

// NoOp returns a logger that discards everything, used pervasively in tests.
func NoOp() Logger { return noOpLogger{} }

func (l *zapLogger) Debug(msg string, fields ...zap.Field) { l.z.Debug(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...zap.Field)  { l.z.Info(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...zap.Field)  { l.z.Warn(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...zap.Field) { l.z.Error(msg, fields...) }
func (l *zapLogger) Sync() error                           { return l.z.Sync() }

type noOpLogger struct{}

func (noOpLogger) Debug(string, ...zap.Field) {}
func (noOpLogger) Info(string, ...zap.Field)  {}
func (noOpLogger) Warn(string, ...zap.Field)  {}
func (noOpLogger) Error(string, ...zap.Field) {}
func (noOpLogger) Sync() error                { return nil }

// String, Int and Err re-export the zap field constructors most callers need,
// so packages that only ever log strings/ints/errors don't need their own
// zap import.
func String(key, val string) zap.Field { return zap.String(key, val) }
func Int(key string, val int) zap.Field { return zap.Int(key, val) }
func Err(err error) zap.Field           { return zap.Error(err) }
