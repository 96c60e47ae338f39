package log

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_WritesJSONWithServiceField(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "info", Output: &buf, Service: "test-service"})

	L().Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "test-service", entry["service"])
	assert.Equal(t, "hello", entry["message"])
}

func TestContextWithRequestID_RoundTrip(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-123")
	assert.Equal(t, "req-123", RequestIDFromContext(ctx))
}

func TestRequestIDFromContext_EmptyWhenAbsent(t *testing.T) {
	assert.Equal(t, "", RequestIDFromContext(context.Background()))
}

func TestMiddleware_SetsRequestIDHeader(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "info", Output: &buf, Service: "test-service"})

	handler := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRedactSecret_NeverReturnsRawValue(t *testing.T) {
	got := RedactSecret("super-secret-value")
	assert.NotContains(t, got, "super-secret-value")
	assert.Equal(t, "", RedactSecret(""))
}

func TestRedactSecret_OutputHasNoLeadingOrTrailingWhitespace(t *testing.T) {
	got := RedactSecret("x")
	assert.Equal(t, strings.TrimSpace(got), got)
}

func TestRedactTags_MasksCredentialShapedKeysOnly(t *testing.T) {
	in := map[string]string{
		"artist":    "Celtic Orchestra",
		"api_key":   "sk-abc123",
		"AuthToken": "Bearer xyz",
	}
	out := RedactTags(in)

	assert.Equal(t, "Celtic Orchestra", out["artist"])
	assert.NotEqual(t, "sk-abc123", out["api_key"])
	assert.NotEqual(t, "Bearer xyz", out["AuthToken"])
}

func TestRedactTags_NilAndEmptyPassThrough(t *testing.T) {
	assert.Nil(t, RedactTags(nil))
	assert.Empty(t, RedactTags(map[string]string{}))
}
