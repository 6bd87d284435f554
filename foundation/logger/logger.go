// Package logger provides a thin configuration wrapper around zap so every
// service constructs its structured logger the same way.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New constructs a production-tuned, JSON-encoded *zap.SugaredLogger
// tagged with service, the name every log line is stamped with so
// multi-process deployments can tell which node emitted it.
func New(service string) (*zap.SugaredLogger, error) {
	return NewWithLevel(service, zapcore.InfoLevel)
}

// NewWithLevel is New with an explicit minimum level.
func NewWithLevel(service string, level zapcore.Level) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stdout"}
	config.Level = zap.NewAtomicLevelAt(level)
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	log, err := config.Build(zap.WithCaller(true), zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, err
	}

	return log.Sugar().With("service", service), nil
}
