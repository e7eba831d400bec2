package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// slogFormatter feeds chi's request logging into the application logger so
// request lines share its format.
type slogFormatter struct {
	log *slog.Logger
}

func (f slogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &slogEntry{log: f.log.With(
		"request_id", middleware.GetReqID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"remote", r.RemoteAddr,
	)}
}

type slogEntry struct {
	log *slog.Logger
}

func (e *slogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	e.log.Log(context.Background(), level, "request", "status", status, "bytes", bytes, "elapsed", elapsed)
}

func (e *slogEntry) Panic(v interface{}, stack []byte) {
	e.log.Error("panic", "panic", v, "stack", string(stack))
}
