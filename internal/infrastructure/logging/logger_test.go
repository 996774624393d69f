package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.name))
		})
	}
}

func TestNewLogger_AddsServiceAndContextIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{
		Level:       "info",
		Format:      "json",
		Output:      &buf,
		ServiceName: "service-desk-analytics",
		Environment: "test",
	})

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithUserID(ctx, "user-1")
	ctx = WithDatasetID(ctx, "ds-1")
	logger.InfoContext(ctx, "dashboard built")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "dashboard built", entry["msg"])
	assert.Equal(t, "service-desk-analytics", entry["service"])
	assert.Equal(t, "test", entry["environment"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "user-1", entry["user_id"])
	assert.Equal(t, "ds-1", entry["dataset_id"])
}

func TestNewLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: "warn", Output: &buf})

	logger.Info("skipped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.Equal(t, "kept", decodeLine(t, &buf)["msg"])
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(Config{Output: &buf})

	assert.Same(t, base, LoggerFromContext(context.Background(), base))

	ctx := WithRequestID(context.Background(), "req-9")
	LoggerFromContext(ctx, base).Info("bound")

	assert.Equal(t, "req-9", decodeLine(t, &buf)["request_id"])
	assert.Equal(t, "req-9", GetRequestID(ctx))
}

func TestHTTPRequestLogger_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{200, "INFO"},
		{404, "WARN"},
		{503, "ERROR"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		l := &HTTPRequestLogger{Logger: NewLogger(Config{Output: &buf})}
		l.LogRequest(context.Background(), "GET", "/health", tt.status, time.Millisecond, 2, "127.0.0.1", "test")

		entry := decodeLine(t, &buf)
		assert.Equal(t, tt.want, entry["level"], "status %d", tt.status)
		assert.Equal(t, float64(tt.status), entry["status_code"])
	}
}
