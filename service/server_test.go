package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"textbook-proxy/backend"
	"textbook-proxy/config"
	"textbook-proxy/proxy"
)

func newTestServer(t *testing.T) *server {
	t.Helper()

	fakeBackend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/chat":
			_, _ = w.Write([]byte(`{"response":"hi","sources":[]}`))
		case "/health":
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(fakeBackend.Close)

	return newServerWith(&config.Config{BackendURL: fakeBackend.URL, ChatTimeout: time.Second, HealthTimeout: time.Second})
}

func newServerWith(cfg *config.Config) *server {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := backend.NewForwardingClient(nil)
	return &server{
		chat:   proxy.NewChatProxy(cfg, client, logger),
		health: proxy.NewHealthProxy(cfg, client, logger),
		logger: logger,
	}
}

// serveCounting runs router on a real listener, so co-located requests can
// reach it, and counts every request it receives.
func serveCounting(t *testing.T, router http.Handler) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	hits := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, hits
}

func TestRoutes(t *testing.T) {
	s := newTestServer(t)
	router := s.router(nil)

	tests := []struct {
		method   string
		path     string
		body     string
		expected int
	}{
		{http.MethodPost, "/chat", `{"message":"hello"}`, http.StatusOK},
		{http.MethodPost, "/api/chat", `{"message":"hello"}`, http.StatusOK},
		{http.MethodGet, "/chat", "", http.StatusMethodNotAllowed},
		{http.MethodPost, "/chat", `{}`, http.StatusBadRequest},
		{http.MethodOptions, "/chat", "", http.StatusOK},
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/api/health", "", http.StatusOK},
		{http.MethodPost, "/health", "", http.StatusMethodNotAllowed},
		{http.MethodOptions, "/api/health", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expected, w.Code)
			for k, v := range proxy.CORSHeaders() {
				assert.Equal(t, v, w.Header().Get(k), k)
			}
		})
	}
}

func TestChatRouteRelaysBody(t *testing.T) {
	router := newTestServer(t).router(nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hello"}`)))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"response":"hi","sources":[]}`, w.Body.String())
}

func TestRestrictedOrigins(t *testing.T) {
	router := newTestServer(t).router([]string{"https://textbook.example.com"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://textbook.example.com")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://textbook.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://elsewhere.example.com")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCoLocatedLoopIsCut(t *testing.T) {
	// An empty prefix points the co-located backend at the proxy's own /chat.
	// Load rejects it, but the hop guard must hold even when it is bypassed.
	s := newServerWith(&config.Config{BackendURL: config.CoLocated, ChatTimeout: 2 * time.Second, HealthTimeout: 2 * time.Second})
	srv, hits := serveCounting(t, s.router(nil))

	resp, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(`{"message":"hello"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusLoopDetected, resp.StatusCode)
	assert.Contains(t, string(body), "Request looped back to the proxy")
	assert.Equal(t, int32(2), hits.Load())

	hits.Store(0)
	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()

	// Co-located health never calls out.
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCoLocatedDefaultPrefixStaysOffProxyRoutes(t *testing.T) {
	t.Setenv("BACKEND_URL", config.CoLocated)
	t.Setenv("BACKEND_PATH_PREFIX", "")
	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "/backend", cfg.BackendPathPrefix)

	srv, hits := serveCounting(t, newServerWith(cfg).router(nil))

	resp, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(`{"message":"hello"}`))
	require.NoError(t, err)
	resp.Body.Close()

	// The forwarded call lands on /backend/chat, which this service does not
	// route, and the 404 is relayed instead of recursing.
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int32(2), hits.Load())
}

func TestRestrictedPreflight(t *testing.T) {
	router := newTestServer(t).router([]string{"https://textbook.example.com"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "https://textbook.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://textbook.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Empty(t, w.Body.String())
}

func TestRestrictedWithoutOriginHasNoCORSHeaders(t *testing.T) {
	router := newTestServer(t).router([]string{"https://textbook.example.com"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Methods"))
}

func TestOversizedBodyIsRejected(t *testing.T) {
	router := newTestServer(t).router(nil)

	body := `{"message":"` + strings.Repeat("x", proxy.MaxRequestBytes) + `"}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "Request body too large")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
