package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/handlers"
	"github.com/serroba/shortlink/internal/middleware"
	"github.com/serroba/shortlink/internal/shortener"
	"github.com/serroba/shortlink/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testBaseURL = "http://localhost:8888"

type testServer struct {
	router *chi.Mux
	events *eventRecorder
}

func newServer(t *testing.T, service handlers.URLService, events analytics.Publishers, logger *zap.Logger) *chi.Mux {
	t.Helper()

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))
	api.UseMiddleware(middleware.RequestMeta(api))

	handlers.RegisterRoutes(api, handlers.NewURLHandler(service, testBaseURL, events, logger))

	return router
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	codes := 0
	generator := func() string {
		codes++

		return fmt.Sprintf("c%05d", codes)
	}

	recorder := &eventRecorder{}
	service := shortener.NewService(store.NewMemoryStore(), generator, zap.NewNop())

	return &testServer{
		router: newServer(t, service, recorder.publishers(), zap.NewNop()),
		events: recorder,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	return w
}

func (s *testServer) create(t *testing.T, body map[string]any) map[string]any {
	t.Helper()

	w := s.do(t, http.MethodPost, "/shorten", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	return decode(t, w)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))

	return out
}

func TestCreateShortURL(t *testing.T) {
	t.Run("creates short url", func(t *testing.T) {
		s := newTestServer(t)

		w := s.do(t, http.MethodPost, "/shorten", map[string]any{"originalUrl": "https://example.com/very/long/path"})

		require.Equal(t, http.StatusCreated, w.Code)

		body := decode(t, w)
		assert.Equal(t, "c00001", body["shortUrl"])
		assert.Equal(t, "https://example.com/very/long/path", body["originalUrl"])
		assert.Equal(t, testBaseURL+"/c00001", body["link"])
		assert.InDelta(t, 0, body["clickCount"], 0)
		assert.NotEmpty(t, body["id"])
		assert.NotContains(t, body, "expiresAt")
		assert.Equal(t, testBaseURL+"/c00001", w.Header().Get("Location"))
	})

	t.Run("keeps alias and expiry", func(t *testing.T) {
		s := newTestServer(t)

		body := s.create(t, map[string]any{
			"originalUrl": "https://example.com",
			"customAlias": "promo",
			"expiresAt":   "2099-01-01T00:00:00Z",
		})

		assert.Equal(t, "promo", body["customAlias"])
		assert.Equal(t, "2099-01-01T00:00:00Z", body["expiresAt"])
	})

	t.Run("publishes created event", func(t *testing.T) {
		s := newTestServer(t)

		w := s.do(t, http.MethodPost, "/shorten", map[string]any{"originalUrl": "https://example.com"},
			"X-Forwarded-For", "203.0.113.9", "User-Agent", "TestAgent/1.0")
		require.Equal(t, http.StatusCreated, w.Code)

		require.Len(t, s.events.created, 1)
		assert.Equal(t, "c00001", s.events.created[0].Code)
		assert.Equal(t, "203.0.113.9", s.events.created[0].ClientIP)
		assert.Equal(t, "TestAgent/1.0", s.events.created[0].UserAgent)
	})

	t.Run("rejects bad input with 400", func(t *testing.T) {
		tests := []struct {
			name   string
			body   map[string]any
			detail string
		}{
			{name: "empty url", body: map[string]any{"originalUrl": ""}, detail: "original url is required"},
			{name: "missing url", body: map[string]any{}, detail: "original url is required"},
			{
				name:   "alias too long",
				body:   map[string]any{"originalUrl": "https://a.example", "customAlias": strings.Repeat("x", 21)},
				detail: "invalid custom alias",
			},
			{
				name:   "alias with slash",
				body:   map[string]any{"originalUrl": "https://a.example", "customAlias": "a/b"},
				detail: "invalid custom alias",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s := newTestServer(t)

				w := s.do(t, http.MethodPost, "/shorten", tt.body)

				require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
				assert.Contains(t, w.Body.String(), tt.detail)
				assert.Empty(t, s.events.created)
			})
		}
	})

	t.Run("rejects duplicates with 400", func(t *testing.T) {
		s := newTestServer(t)
		s.create(t, map[string]any{"originalUrl": "https://a.example", "customAlias": "promo"})

		w := s.do(t, http.MethodPost, "/shorten", map[string]any{"originalUrl": "https://b.example", "customAlias": "promo"})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "custom alias already in use")

		w = s.do(t, http.MethodPost, "/shorten", map[string]any{"originalUrl": "https://a.example"})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "already been shortened")
	})
}

func TestRedirectToURL(t *testing.T) {
	t.Run("redirects by code and alias", func(t *testing.T) {
		s := newTestServer(t)
		s.create(t, map[string]any{"originalUrl": "https://example.com/target", "customAlias": "promo"})

		for _, key := range []string{"c00001", "promo"} {
			w := s.do(t, http.MethodGet, "/"+key, nil)

			require.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, "https://example.com/target", w.Header().Get("Location"))
			assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
		}

		info := decode(t, s.do(t, http.MethodGet, "/info/c00001", nil))
		assert.InDelta(t, 2, info["clickCount"], 0)

		require.Len(t, s.events.clicked, 2)
		assert.Equal(t, "promo", s.events.clicked[1].Key)
		assert.Equal(t, int64(2), s.events.clicked[1].ClickCount)
	})

	t.Run("unknown key is 404", func(t *testing.T) {
		s := newTestServer(t)

		w := s.do(t, http.MethodGet, "/missing", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, s.events.clicked)
	})

	t.Run("expired url is 410 and not counted", func(t *testing.T) {
		s := newTestServer(t)
		s.create(t, map[string]any{"originalUrl": "https://example.com", "expiresAt": "2000-01-01T00:00:00Z"})

		w := s.do(t, http.MethodGet, "/c00001", nil)

		assert.Equal(t, http.StatusGone, w.Code)

		info := decode(t, s.do(t, http.MethodGet, "/info/c00001", nil))
		assert.InDelta(t, 0, info["clickCount"], 0)

		stats := decode(t, s.do(t, http.MethodGet, "/analytics/c00001", nil))
		assert.Empty(t, stats["recentClicks"])
	})
}

func TestGetInfo(t *testing.T) {
	s := newTestServer(t)
	s.create(t, map[string]any{"originalUrl": "https://example.com", "customAlias": "promo"})

	t.Run("by alias", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/info/promo", nil)

		require.Equal(t, http.StatusOK, w.Code)

		body := decode(t, w)
		assert.Equal(t, "https://example.com", body["originalUrl"])
		assert.InDelta(t, 0, body["clickCount"], 0)
		assert.NotEmpty(t, body["createdAt"])
	})

	t.Run("unknown key is 404", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/info/missing", nil).Code)
	})
}

func TestDeleteShortURL(t *testing.T) {
	s := newTestServer(t)
	s.create(t, map[string]any{"originalUrl": "https://example.com", "customAlias": "promo"})
	require.Equal(t, http.StatusFound, s.do(t, http.MethodGet, "/promo", nil).Code)

	w := s.do(t, http.MethodDelete, "/delete/promo", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, handlers.DeletedMessage, decode(t, w)["message"])

	require.Len(t, s.events.deleted, 1)
	assert.Equal(t, "c00001", s.events.deleted[0].Code)
	assert.Equal(t, int64(1), s.events.deleted[0].ClickCount)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/info/c00001", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/promo", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/delete/promo", nil).Code)

	// The original URL can be shortened again once deleted.
	s.create(t, map[string]any{"originalUrl": "https://example.com"})
}

func TestGetAnalytics(t *testing.T) {
	s := newTestServer(t)
	s.create(t, map[string]any{"originalUrl": "https://example.com", "customAlias": "promo"})

	for i := 1; i <= 7; i++ {
		w := s.do(t, http.MethodGet, "/c00001", nil, "X-Forwarded-For", fmt.Sprintf("10.0.0.%d, 172.16.0.1", i))
		require.Equal(t, http.StatusFound, w.Code)
	}

	t.Run("reports count and last five ips newest first", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/analytics/c00001", nil)

		require.Equal(t, http.StatusOK, w.Code)

		body := decode(t, w)
		assert.InDelta(t, 7, body["clickCount"], 0)
		assert.Equal(t, []any{"10.0.0.7", "10.0.0.6", "10.0.0.5", "10.0.0.4", "10.0.0.3"}, body["recentClicks"])
	})

	t.Run("alias is not accepted", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/analytics/promo", nil).Code)
	})
}

func TestInternalErrorsAreOpaque(t *testing.T) {
	for _, err := range []error{errMock, shortener.ErrInternal} {
		router := newServer(t, &failingService{err: err}, (&eventRecorder{}).publishers(), zap.NewNop())
		s := &testServer{router: router}

		for _, tc := range []struct{ method, path string }{
			{http.MethodPost, "/shorten"},
			{http.MethodGet, "/abc123"},
			{http.MethodGet, "/info/abc123"},
			{http.MethodDelete, "/delete/abc123"},
			{http.MethodGet, "/analytics/abc123"},
		} {
			w := s.do(t, tc.method, tc.path, map[string]any{"originalUrl": "https://example.com"})

			assert.Equal(t, http.StatusInternalServerError, w.Code, "%s %s", tc.method, tc.path)
			assert.NotContains(t, w.Body.String(), "connection reset")
		}
	}
}

func TestPublishFailuresDoNotFailRequests(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	service := shortener.NewService(store.NewMemoryStore(), func() string { return "abc123" }, zap.NewNop())
	s := &testServer{router: newServer(t, service, failingPublishers(errors.New("broker down")), zap.New(core))}

	assert.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/shorten", map[string]any{"originalUrl": "https://a.example"}).Code)
	assert.Equal(t, http.StatusFound, s.do(t, http.MethodGet, "/abc123", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/delete/abc123", nil).Code)

	require.Equal(t, 3, logs.Len())

	for _, entry := range logs.All() {
		assert.Equal(t, "failed to publish analytics event", entry.Message)
	}
}
