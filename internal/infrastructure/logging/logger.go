// Package logging builds the service's slog logger and carries request-scoped
// attributes (request, user and dataset IDs) through the context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	UserIDKey    contextKey = "user_id"
	DatasetIDKey contextKey = "dataset_id"
)

// contextKeys are copied onto every record, in this order, when present.
var contextKeys = []contextKey{RequestIDKey, UserIDKey, DatasetIDKey}

// Config holds logger configuration
type Config struct {
	Level       string // debug, info, warn, error
	Format      string // json, text
	Output      io.Writer
	ServiceName string
	Environment string
}

// ParseLevel maps a configured level name to a slog level. Unknown names
// fall back to info.
func ParseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewLogger creates the structured logger used by every component.
func NewLogger(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(a.Key, a.Value.Time().UTC().Format(time.RFC3339Nano))
			}
			return a
		},
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	return slog.New(&contextHandler{
		handler: handler.WithAttrs([]slog.Attr{
			slog.String("service", cfg.ServiceName),
			slog.String("environment", cfg.Environment),
		}),
	})
}

// contextHandler adds the request-scoped IDs found in the record's context.
type contextHandler struct {
	handler slog.Handler
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, key := range contextKeys {
		if v := value(ctx, key); v != "" {
			r.AddAttrs(slog.String(string(key), v))
		}
	}
	return h.handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{handler: h.handler.WithGroup(name)}
}

func value(ctx context.Context, key contextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithUserID adds a user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithDatasetID adds the dataset a request operates on to the context
func WithDatasetID(ctx context.Context, datasetID string) context.Context {
	return context.WithValue(ctx, DatasetIDKey, datasetID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	return value(ctx, RequestIDKey)
}

// LoggerFromContext binds the context's IDs to logger, for call sites that
// log without passing ctx.
func LoggerFromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	var attrs []any
	for _, key := range contextKeys {
		if v := value(ctx, key); v != "" {
			attrs = append(attrs, string(key), v)
		}
	}
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(attrs...)
}

// LogPanic logs a recovered panic with the current goroutine's stack.
func LogPanic(logger *slog.Logger, panicValue any) {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)

	logger.Error("panic recovered",
		"panic", panicValue,
		"stack_trace", string(buf[:n]),
	)
}

// HTTPRequestLogger writes one access-log line per request.
type HTTPRequestLogger struct {
	Logger *slog.Logger
}

// LogRequest logs an HTTP request at a level chosen by its status code.
func (l *HTTPRequestLogger) LogRequest(
	ctx context.Context,
	method string,
	path string,
	statusCode int,
	duration time.Duration,
	bytesWritten int64,
	clientIP string,
	userAgent string,
) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}

	l.Logger.Log(ctx, level, "http request",
		"method", method,
		"path", path,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
		"bytes_written", bytesWritten,
		"client_ip", clientIP,
		"user_agent", userAgent,
	)
}
