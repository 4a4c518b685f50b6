package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"evchargenet/pkg/config"
	"evchargenet/pkg/logger"
	"evchargenet/pkg/metrics"
	"evchargenet/pkg/ratelimit"
)

// Middleware wraps an http.Handler with cross-cutting behavior.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares in order, so the first middleware listed
// is the outermost wrapper (runs first on the way in).
func Chain(h http.Handler, mw ...Middleware) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// statusRecorder captures the status code written by the wrapped
// handler, since http.ResponseWriter does not expose it afterward.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestID assigns a per-request correlation id, reusing an inbound
// X-Request-Id header when the caller supplied one.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-Id")
			if id == "" {
				id = generateRequestID()
			}
			w.Header().Set("X-Request-Id", id)
			next.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), id)))
		})
	}
}

// Recover converts a panic in the handler chain into a 500 response
// instead of crashing the process.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered in http handler", "error", rec, "path", r.URL.Path, "requestId", GetRequestID(r.Context()))
					writeError(w, http.StatusInternalServerError, "INTERNAL_FAILURE", "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Logging logs each request's route, status, and duration.
func Logging() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			duration := time.Since(start)
			logFields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", duration.Milliseconds(),
				"requestId", GetRequestID(r.Context()),
			}

			if rec.status >= 500 {
				logger.Error("http request failed", logFields...)
			} else {
				logger.Info("http request completed", logFields...)
			}
		})
	}
}

// Metrics records request count and latency histograms per route.
func Metrics() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := metrics.Get()

			m.Requests.Start(r.Method)
			defer m.Requests.End(r.Method)

			timer := metrics.NewTimer(m.HTTPRequestDuration, routeLabel(r), r.Method)
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			timer.ObserveDuration()
			m.HTTPRequestsTotal.WithLabelValues(routeLabel(r), r.Method, strconv.Itoa(rec.status)).Inc()
		})
	}
}

// routeLabel collapses path parameters so metrics cardinality stays
// bounded (e.g. "/station/ST_101/score" -> "/station/:id/score").
func routeLabel(r *http.Request) string {
	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	for i, s := range segments {
		if i > 0 && (segments[0] == "recommend" || segments[0] == "station") && s != "" &&
			s != "select" && s != "feedback" && s != "score" && s != "health" {
			segments[i] = ":id"
		}
	}
	return "/" + strings.Join(segments, "/")
}

// RateLimit rejects requests exceeding cfg's limiter, keyed by the
// first X-Forwarded-For entry, else X-Real-Ip, else the connection's
// remote address.
func RateLimit(limiter ratelimit.Limiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := rateLimitKey(r)
			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("rate limit check failed, failing open", "error", err, "key", key)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				metrics.Get().RateLimitHits.Inc()
				info, infoErr := limiter.GetInfo(r.Context(), key)
				retryAfter := time.Minute
				if infoErr == nil && info != nil {
					retryAfter = time.Until(info.ResetAt)
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
				writeError(w, http.StatusTooManyRequests, "OVERLOAD", "rate limit exceeded")
				return
			}

			metrics.Get().RateLimitPassed.Inc()
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return "ip:" + strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return "ip:" + xri
	}
	return "ip:" + r.RemoteAddr
}

// CORS applies cfg's cross-origin policy ahead of every handler.
func CORS(cfg config.CORSConfig) Middleware {
	allowedHeaders := prepareAllowedHeaders(cfg.AllowedHeaders)
	allowedMethods := strings.Join(cfg.AllowedMethods, ", ")
	exposedHeaders := strings.Join(cfg.ExposedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			allowedOrigin := ""
			for _, o := range cfg.AllowedOrigins {
				if o == "*" {
					allowedOrigin = "*"
					break
				}
				if o == origin {
					allowedOrigin = origin
					break
				}
			}

			if allowedOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			}
			w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
			if exposedHeaders != "" {
				w.Header().Set("Access-Control-Expose-Headers", exposedHeaders)
			}
			if cfg.AllowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Max-Age", maxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func prepareAllowedHeaders(headers []string) string {
	for _, h := range headers {
		if h == "*" {
			return strings.Join([]string{
				"Accept", "Accept-Language", "Content-Language", "Content-Type",
				"Authorization", "Origin", "X-Requested-With", "X-Request-Id",
			}, ", ")
		}
	}

	hasAuth := false
	for _, h := range headers {
		if strings.EqualFold(h, "Authorization") {
			hasAuth = true
			break
		}
	}
	if !hasAuth {
		headers = append(headers, "Authorization")
	}
	return strings.Join(headers, ", ")
}
