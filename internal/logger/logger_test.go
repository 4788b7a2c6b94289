package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			z, err := New(tt.level)
			require.NoError(t, err)
			assert.True(t, z.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, z.Core().Enabled(tt.want-1))
			}
		})
	}
}

func TestCron_RoutesIntoZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Cron(zap.New(core))

	l.Info("skip", "entry", 1)
	l.Error(errors.New("boom"), "panic", "entry", 2)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "cron", entries[0].LoggerName)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
}
