// Package logger wraps the zap logger used across the service.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger struct {
	Log   *zap.Logger
	level zap.AtomicLevel
}

func New() *Logger {
	return &Logger{
		Log:   zap.NewNop(),
		level: zap.NewAtomicLevelAt(zap.InfoLevel),
	}
}

// Init replaces the no-op logger with a JSON production logger at level.
func (l *Logger) Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zl, err := cfg.Build()
	if err != nil {
		return err
	}
	l.Log = zl
	l.level = lvl
	return nil
}

// SetFile additionally writes every entry to path, rotating it by size.
func (l *Logger) SetFile(path string) {
	if path == "" {
		return
	}

	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    100, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	})

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), w, l.level)

	l.Log = l.Log.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, fileCore)
	}))
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	sugar := l.Log.Sugar()

	sugar.Infow(msg, keysAndValues...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() {
	_ = l.Log.Sync()
}
