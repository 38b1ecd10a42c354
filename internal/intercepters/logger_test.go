package intercepters_test

import (
	"context"
	"testing"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/atinyakov/kv-url-shortener/internal/intercepters"
)

func TestInterceptorLogger(t *testing.T) {
	core, observedLogs := observer.New(zap.DebugLevel)
	il := intercepters.InterceptorLogger(zap.New(core))

	tests := []struct {
		name     string
		level    logging.Level
		msg      string
		fields   []any
		wantLvl  zapcore.Level
		wantKeys []string
	}{
		{
			name:     "finished call",
			level:    logging.LevelInfo,
			msg:      "finished call",
			fields:   []any{"grpc.service", "grpc.health.v1.Health", "grpc.method", "Check", "grpc.code", "OK"},
			wantLvl:  zap.InfoLevel,
			wantKeys: []string{"grpc.service", "grpc.method", "grpc.code"},
		},
		{
			name:     "debug with bool and int",
			level:    logging.LevelDebug,
			msg:      "started call",
			fields:   []any{"streaming", true, "attempt", 2},
			wantLvl:  zap.DebugLevel,
			wantKeys: []string{"streaming", "attempt"},
		},
		{
			name:     "warn with struct field",
			level:    logging.LevelWarn,
			msg:      "slow call",
			fields:   []any{"peer", struct{ Addr string }{Addr: "10.0.0.1"}},
			wantLvl:  zap.WarnLevel,
			wantKeys: []string{"peer"},
		},
		{
			name:    "error without fields",
			level:   logging.LevelError,
			msg:     "call failed",
			wantLvl: zap.ErrorLevel,
		},
		{
			name:     "dangling key is dropped",
			level:    logging.LevelInfo,
			msg:      "odd fields",
			fields:   []any{"grpc.method", "Watch", "orphan"},
			wantLvl:  zap.InfoLevel,
			wantKeys: []string{"grpc.method"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			observedLogs.TakeAll()

			il.Log(context.Background(), tt.level, tt.msg, tt.fields...)

			logs := observedLogs.TakeAll()
			require.Len(t, logs, 1)
			entry := logs[0]

			assert.Equal(t, tt.wantLvl, entry.Level)
			assert.Equal(t, tt.msg, entry.Message)

			keys := make([]string, 0, len(entry.Context))
			for _, f := range entry.Context {
				keys = append(keys, f.Key)
			}
			assert.ElementsMatch(t, tt.wantKeys, keys)
		})
	}
}

func TestInterceptorLogger_UnknownLevelPanics(t *testing.T) {
	core, _ := observer.New(zap.DebugLevel)
	il := intercepters.InterceptorLogger(zap.New(core))

	assert.Panics(t, func() {
		il.Log(context.Background(), logging.Level(999), "panic test")
	})
}
