package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/restaurant-grades-etl/internal/config"
)

func restoreDefault(t *testing.T) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestNewLogger_Levels(t *testing.T) {
	restoreDefault(t)

	tests := []struct {
		level string
		debug bool
		info  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, false},
		{"", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := NewLogger(&config.Config{LogLevel: tt.level, LogFormat: "text"})
			assert.Equal(t, tt.debug, logger.Enabled(context.Background(), slog.LevelDebug))
			assert.Equal(t, tt.info, logger.Enabled(context.Background(), slog.LevelInfo))
		})
	}
}

func TestNewLogger_SetsDefault(t *testing.T) {
	restoreDefault(t)
	logger := NewLogger(&config.Config{LogLevel: "error", LogFormat: "json"})
	assert.NotNil(t, logger)
	assert.False(t, slog.Default().Enabled(context.Background(), slog.LevelWarn))
}
