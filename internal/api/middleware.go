package api

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// AuthMiddleware validates the bearer API key.
func AuthMiddleware(apiKey string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, `{"error":"missing authorization"}`, http.StatusUnauthorized)
				return
			}
			token := strings.TrimPrefix(auth, "Bearer ")
			if apiKey == "" || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				log.Warn("rejected api key",
					"request_id", middleware.GetReqID(r.Context()),
					"path", r.URL.Path,
					"remote", r.RemoteAddr,
				)
				http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs each request with its matched route. Job and family
// attributes are added by the split handlers through annotate, and the
// jobID route parameter is logged for status, plan and outline lookups.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: 200}
			fields := &requestFields{}
			next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), requestFieldsKey{}, fields)))

			attrs := []any{
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					attrs = append(attrs, "route", pattern)
				}
				if id := rctx.URLParam("jobID"); id != "" && !fields.has("job_id") {
					attrs = append(attrs, "job_id", id)
				}
			}
			attrs = append(attrs, fields.list()...)
			attrs = append(attrs, "status", sw.status, "duration_ms", time.Since(start).Milliseconds())
			log.Info("request", attrs...)
		})
	}
}

type requestFieldsKey struct{}

// requestFields collects log attributes that are only known once a handler
// has parsed the request.
type requestFields struct {
	mu    sync.Mutex
	attrs []any
}

func (f *requestFields) add(args ...any) {
	f.mu.Lock()
	f.attrs = append(f.attrs, args...)
	f.mu.Unlock()
}

func (f *requestFields) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < len(f.attrs); i += 2 {
		if f.attrs[i] == key {
			return true
		}
	}
	return false
}

func (f *requestFields) list() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.attrs...)
}

// annotate attaches key/value pairs to the request's log line. It is a
// no-op outside RequestLogger.
func annotate(r *http.Request, args ...any) {
	if f, ok := r.Context().Value(requestFieldsKey{}).(*requestFields); ok {
		f.add(args...)
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
