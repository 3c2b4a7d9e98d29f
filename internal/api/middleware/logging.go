package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// statusWriter records what left the process so the access log can report it.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	n, err := sw.ResponseWriter.Write(b)
	sw.written += n
	return n, err
}

// RequestLogging emits one structured access-log line per request. The caller
// id from the identity header is attached when present so wallet activity is
// traceable per user; request bodies are never logged — they can carry
// mnemonics and signing payloads.
func RequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"bytes", sw.written,
			"duration", time.Since(start).Round(time.Microsecond).String(),
			"remoteAddr", r.RemoteAddr,
		}
		if userID := r.Header.Get("X-User-ID"); userID != "" {
			attrs = append(attrs, "userId", userID)
		}

		if sw.status >= http.StatusInternalServerError {
			slog.Error("http request", attrs...)
			return
		}
		slog.Info("http request", attrs...)
	})
}
