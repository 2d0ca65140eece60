package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type zapLogger struct {
	base *zap.Logger
}

// NewZap adapts a zap logger to the SDK Logger interface.
func NewZap(base *zap.Logger) Logger {
	if base == nil {
		return noopLogger{}
	}
	return &zapLogger{base: base}
}

// NewProductionZap builds a production zap logger wired to the SDK interface.
func NewProductionZap() (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return NewZap(base), nil
}

func (l *zapLogger) Debug(msg string, fields ...Field) {
	l.base.Debug(msg, zapFields(fields)...)
}

func (l *zapLogger) Info(msg string, fields ...Field) {
	l.base.Info(msg, zapFields(fields)...)
}

func (l *zapLogger) Warn(msg string, fields ...Field) {
	l.base.Warn(msg, zapFields(fields)...)
}

func (l *zapLogger) Error(msg string, fields ...Field) {
	l.base.Error(msg, zapFields(fields)...)
}

func zapFields(fields []Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}
