package logging

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type zapLogger struct {
	z      *zap.Logger
	level  zap.AtomicLevel
	fields []Field
}

// NewZapLogger wraps a zap logger. Levels set through SetLevel are applied
// on top of whatever the zap core already filters.
func NewZapLogger(z *zap.Logger) Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &zapLogger{z: z, level: zap.NewAtomicLevelAt(zapcore.InfoLevel)}
}

// NewZapProduction builds a JSON zap logger writing to stderr.
func NewZapProduction() (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return NewZapLogger(z), nil
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }
func (l *zapLogger) Fatal(msg string, fields ...Field) { l.log(FatalLevel, msg, fields) }

func (l *zapLogger) WithFields(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &zapLogger{z: l.z, level: l.level, fields: merged}
}

func (l *zapLogger) WithContext(ctx context.Context) Logger {
	return l.WithFields(contextFields(ctx)...)
}

func (l *zapLogger) WithError(err error) Logger {
	return l.WithFields(errorFields(err)...)
}

func (l *zapLogger) SetLevel(level Level) {
	l.level.SetLevel(toZapLevel(level))
}

func (l *zapLogger) GetLevel() Level {
	return fromZapLevel(l.level.Level())
}

func (l *zapLogger) log(level Level, msg string, fields []Field) {
	zl := toZapLevel(level)
	if !l.level.Enabled(zl) {
		return
	}
	zfields := make([]zap.Field, 0, len(l.fields)+len(fields))
	for _, f := range l.fields {
		zfields = append(zfields, toZapField(f))
	}
	for _, f := range fields {
		zfields = append(zfields, toZapField(f))
	}
	if ce := l.z.Check(zl, msg); ce != nil {
		ce.Write(zfields...)
	}
}

func toZapField(f Field) zap.Field {
	switch v := f.Value.(type) {
	case error:
		return zap.NamedError(f.Key, v)
	case time.Duration:
		return zap.Duration(f.Key, v)
	default:
		return zap.Any(f.Key, v)
	}
}

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.FatalLevel
	}
}

func fromZapLevel(level zapcore.Level) Level {
	switch level {
	case zapcore.DebugLevel:
		return DebugLevel
	case zapcore.InfoLevel:
		return InfoLevel
	case zapcore.WarnLevel:
		return WarnLevel
	case zapcore.ErrorLevel:
		return ErrorLevel
	default:
		return FatalLevel
	}
}
