package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/framenote/framenote/internal/geoip"
	"github.com/mssola/useragent"
)

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// requestLogger emits one slog line per request, enriched with the parsed
// user agent and, when a geoip database is loaded, the request's country.
// Health checks stay out of the log.
func requestLogger(resolver *geoip.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/health" {
				next.ServeHTTP(w, r)
				return
			}

			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(recorder, r)

			args := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_addr", r.RemoteAddr,
			}
			if uaHeader := r.UserAgent(); uaHeader != "" {
				ua := useragent.New(uaHeader)
				browser, version := ua.Browser()
				args = append(args, "browser", browser+" "+version, "os", ua.OS())
			}
			if resolver != nil {
				if country, _ := resolver.Lookup(r.RemoteAddr); country != "" {
					args = append(args, "country", country)
				}
			}
			slog.Info("http request", args...)
		})
	}
}
