package skald

import (
	"io"

	"github.com/skald-logger/skald/core"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func newRunLogger(opts Options, files []afero.File) *zap.Logger {
	sinks := make([]io.Writer, 0, len(files)+1)
	for _, f := range files {
		sinks = append(sinks, f)
	}
	if opts.Echo != nil && !opts.DisableConsole {
		sinks = append(sinks, opts.Echo)
	}
	return core.NewConsoleLogger(opts.LogLevel, sinks...)
}

// 📃 Console logging

// Logger returns the run's console logger. After Close it discards output.
func (r *Run) Logger() *zap.Logger {
	return r.logger
}

func (r *Run) Debug(msg string, fields ...zap.Field) {
	r.logger.Debug(msg, fields...)
}

func (r *Run) Info(msg string, fields ...zap.Field) {
	r.logger.Info(msg, fields...)
}

func (r *Run) Warn(msg string, fields ...zap.Field) {
	r.logger.Warn(msg, fields...)
}

func (r *Run) Error(msg string, fields ...zap.Field) {
	r.logger.Error(msg, fields...)
}
