package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/shortlink/internal/handlers"
	"github.com/serroba/shortlink/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testOutput struct {
	Body string `json:"body"`
}

// captureMeta serves one request through RequestMeta and returns what the handler saw.
func captureMeta(t *testing.T, prepare func(*http.Request)) handlers.RequestMeta {
	t.Helper()

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))
	api.UseMiddleware(middleware.RequestMeta(api))

	metas := make(chan handlers.RequestMeta, 1)

	huma.Get(api, "/test", func(ctx context.Context, _ *struct{}) (*testOutput, error) {
		metas <- handlers.RequestMetaFromContext(ctx)

		return &testOutput{Body: "ok"}, nil
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "198.51.100.7:4242"
	prepare(req)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	return <-metas
}

func TestRequestMeta(t *testing.T) {
	t.Run("extracts user-agent and referrer", func(t *testing.T) {
		meta := captureMeta(t, func(r *http.Request) {
			r.Header.Set("User-Agent", "TestAgent/1.0")
			r.Header.Set("Referer", "https://example.com")
		})

		assert.Equal(t, "TestAgent/1.0", meta.UserAgent)
		assert.Equal(t, "https://example.com", meta.Referrer)
	})

	t.Run("uses first X-Forwarded-For entry", func(t *testing.T) {
		meta := captureMeta(t, func(r *http.Request) {
			r.Header.Set("X-Forwarded-For", "192.168.1.1, 10.0.0.1, 172.16.0.1")
			r.Header.Set("X-Real-IP", "10.9.9.9")
		})

		assert.Equal(t, "192.168.1.1", meta.ClientIP)
	})

	t.Run("uses X-Real-IP without X-Forwarded-For", func(t *testing.T) {
		meta := captureMeta(t, func(r *http.Request) {
			r.Header.Set("X-Real-IP", "10.0.0.1")
		})

		assert.Equal(t, "10.0.0.1", meta.ClientIP)
	})

	t.Run("falls back to socket address", func(t *testing.T) {
		meta := captureMeta(t, func(*http.Request) {})

		assert.Equal(t, "198.51.100.7", meta.ClientIP)
	})

	t.Run("reports unknown without any address", func(t *testing.T) {
		meta := captureMeta(t, func(r *http.Request) { r.RemoteAddr = "" })

		assert.Equal(t, middleware.UnknownClientIP, meta.ClientIP)
	})
}

func TestPeerIP(t *testing.T) {
	t.Run("ignores forwarded headers", func(t *testing.T) {
		ctx := newMockHumaContext()
		ctx.headers["X-Forwarded-For"] = "203.0.113.1"
		ctx.headers["X-Real-IP"] = "203.0.113.2"

		assert.Equal(t, "192.168.1.1", middleware.PeerIP(ctx))
		assert.Equal(t, "203.0.113.1", middleware.ClientIP(ctx))
	})

	t.Run("reports unknown without a socket address", func(t *testing.T) {
		ctx := newMockHumaContext()
		ctx.remoteAddr = ""

		assert.Equal(t, middleware.UnknownClientIP, middleware.PeerIP(ctx))
	})
}
