package core

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type loggerKey struct{}

var nopLogger = zap.NewNop().Sugar()

// NewConsoleLogger returns a logger writing console-encoded lines to every
// sink. With no sinks the logger discards everything.
func NewConsoleLogger(level zapcore.Level, sinks ...io.Writer) *zap.Logger {
	if len(sinks) == 0 {
		return zap.NewNop()
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encoder := zapcore.NewConsoleEncoder(encCfg)

	cores := make([]zapcore.Core, 0, len(sinks))
	for _, sink := range sinks {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(sink), level))
	}
	return zap.New(zapcore.NewTee(cores...))
}

// ParseLevel maps a level name such as "debug" or "info" to a zap level.
func ParseLevel(name string) (zapcore.Level, error) {
	if name == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(name)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("parse log level %q: %w", name, err)
	}
	return lvl, nil
}

// WithLogger stores logger in the context.
func WithLogger(parent context.Context, logger *zap.SugaredLogger) context.Context {
	return context.WithValue(parent, loggerKey{}, logger)
}

// WithDefaultLogger attaches a logger named after the run to the context.
func WithDefaultLogger(parent context.Context, logger *zap.Logger, runName string) context.Context {
	return WithLogger(parent, logger.Sugar().With("run", runName))
}

// FromContext returns the context's logger or a no-op logger.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if ctx == nil {
		return nopLogger
	}
	if logger, ok := ctx.Value(loggerKey{}).(*zap.SugaredLogger); ok && logger != nil {
		return logger
	}
	return nopLogger
}

func Infof(ctx context.Context, tpl string, args ...any) {
	FromContext(ctx).Infof(tpl, args...)
}

func Errorf(ctx context.Context, tpl string, args ...any) {
	FromContext(ctx).Errorf(tpl, args...)
}

func Debugf(ctx context.Context, tpl string, args ...any) {
	FromContext(ctx).Debugf(tpl, args...)
}

func Warnf(ctx context.Context, tpl string, args ...any) {
	FromContext(ctx).Warnf(tpl, args...)
}
