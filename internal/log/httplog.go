package log

import (
	"time"

	"go.uber.org/zap"
)

// HTTPLogEntry describes one served HTTP request
type HTTPLogEntry struct {
	RequestID  string
	Method     string
	Path       string
	Query      string
	Status     int
	Duration   time.Duration
	Size       int
	RemoteAddr string
	UserAgent  string
}

// LogHTTPRequest writes an access log line for entry. Server errors are
// logged at error level, client errors at warn level.
func LogHTTPRequest(logger *zap.SugaredLogger, entry HTTPLogEntry) {
	kv := []any{
		"request_id", entry.RequestID,
		"method", entry.Method,
		"path", entry.Path,
		"status", entry.Status,
		"duration_ms", entry.Duration.Milliseconds(),
		"size", entry.Size,
		"remote_addr", entry.RemoteAddr,
		"user_agent", entry.UserAgent,
	}
	if entry.Query != "" {
		kv = append(kv, "query", entry.Query)
	}

	switch {
	case entry.Status >= 500:
		logger.Errorw("http request", kv...)
	case entry.Status >= 400:
		logger.Warnw("http request", kv...)
	default:
		logger.Infow("http request", kv...)
	}
}
