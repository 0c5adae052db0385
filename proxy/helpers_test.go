package proxy

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"textbook-proxy/backend"
	"textbook-proxy/config"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeBackend records every call it receives and answers with a canned reply.
type fakeBackend struct {
	*httptest.Server

	mu       sync.Mutex
	calls    int
	lastPath string
	lastBody []byte
}

func newFakeBackend(t *testing.T, handler http.HandlerFunc) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	fb.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fb.mu.Lock()
		fb.calls++
		fb.lastPath = r.URL.Path
		fb.lastBody = body
		fb.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(fb.Close)
	return fb
}

func (fb *fakeBackend) Calls() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.calls
}

func (fb *fakeBackend) LastBody() []byte {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.lastBody
}

func (fb *fakeBackend) LastPath() string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.lastPath
}

func jsonReply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func testConfig(backendURL string) *config.Config {
	return &config.Config{
		BackendURL:    backendURL,
		ChatTimeout:   2 * time.Second,
		HealthTimeout: 2 * time.Second,
	}
}

// closedURL returns the address of a server that is no longer listening.
func closedURL() string {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func newChat(cfg *config.Config) *ChatProxy {
	return NewChatProxy(cfg, backend.NewForwardingClient(nil), discardLogger)
}

func newHealth(cfg *config.Config) *HealthProxy {
	return NewHealthProxy(cfg, backend.NewForwardingClient(nil), discardLogger)
}
