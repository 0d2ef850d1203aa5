// Package logger builds the zap loggers used across the service.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON production logger, or a colored console logger when dev
// is true. Every entry carries the service name.
func New(serviceName string, dev bool) (*zap.Logger, error) {
	var cfg zap.Config
	if dev {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.InitialFields = map[string]interface{}{"service": serviceName}
	return cfg.Build()
}

// Must is New that panics on error, for process entry points.
func Must(serviceName string, dev bool) *zap.Logger {
	l, err := New(serviceName, dev)
	if err != nil {
		panic(err)
	}
	return l
}
