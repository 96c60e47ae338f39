// Package log provides the process-wide structured logger.
package log

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config configures the global logger.
type Config struct {
	Level   string
	Output  io.Writer
	Service string
}

var (
	mu          sync.RWMutex
	base        zerolog.Logger
	initialized bool
)

// Configure initializes the global zerolog logger.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()

	level := zerolog.InfoLevel
	if cfg.Level != "" {
		if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	w := cfg.Output
	if w == nil {
		w = os.Stdout
	}
	service := cfg.Service
	if service == "" {
		service = "audiogated"
	}

	base = zerolog.New(w).With().Timestamp().Str("service", service).Logger()
	initialized = true
}

func ensureInitialized() {
	mu.RLock()
	if initialized {
		mu.RUnlock()
		return
	}
	mu.RUnlock()
	Configure(Config{})
}

// L returns a pointer to a copy of the global logger.
func L() *zerolog.Logger {
	ensureInitialized()
	mu.RLock()
	defer mu.RUnlock()
	l := base
	return &l
}

// WithComponent returns a child logger tagged with a component name.
func WithComponent(component string) zerolog.Logger {
	return L().With().Str("component", component).Logger()
}

type ctxKey int

const requestIDKey ctxKey = iota

// ContextWithRequestID attaches a request id to ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the request id, or "" if absent.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// Middleware logs each HTTP request with method, path, status, duration,
// and the request id (also echoed as X-Request-ID).
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := RequestIDFromContext(r.Context())
			if reqID == "" {
				reqID = uuid.New().String()
			}
			ctx := ContextWithRequestID(r.Context(), reqID)
			r = r.WithContext(ctx)

			if w.Header().Get("X-Request-ID") == "" {
				w.Header().Set("X-Request-ID", reqID)
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			WithComponent("http").Info().
				Str("request_id", reqID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request handled")
		})
	}
}

// RedactSecret returns a fixed-width masked form of a sensitive value for
// logging, never the value itself.
func RedactSecret(v string) string {
	if v == "" {
		return ""
	}
	return "***redacted***"
}

// sensitiveTagKeywords flags tag keys whose values are likely
// credential-shaped, mirroring xg2g/internal/config/logmask.go's
// keyword-matching idiom (isSensitiveKey).
var sensitiveTagKeywords = []string{
	"password", "passwd", "secret", "token", "apikey", "api_key", "credential", "auth", "key",
}

// RedactTags returns a copy of tags with credential-shaped values masked
// by key name, so `AudioProcessingParams.Tags` can be logged without
// leaking anything that looks like a secret (spec §6.1 domain expansion).
func RedactTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return tags
	}
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		if looksLikeCredentialKey(k) {
			out[k] = RedactSecret(v)
		} else {
			out[k] = v
		}
	}
	return out
}

func looksLikeCredentialKey(key string) bool {
	lower := strings.ToLower(key)
	for _, kw := range sensitiveTagKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
