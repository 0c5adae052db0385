// Package serverless builds the proxies once per process for function
// platforms that invoke plain net/http handlers.
package serverless

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"textbook-proxy/backend"
	"textbook-proxy/config"
	"textbook-proxy/proxy"
)

var (
	initOnce sync.Once
	initErr  error

	chatHandler   http.HandlerFunc
	healthHandler http.HandlerFunc
)

func setup() error {
	initOnce.Do(func() {
		cfg, err := config.LoadWithSecrets(context.Background())
		if err != nil {
			initErr = err
			slog.Default().Error("failed to load configuration", slog.Any("error", err))
			return
		}
		logger := cfg.Logger()
		client := backend.NewForwardingClient(&http.Client{})

		chatHandler = proxy.HTTPHandler(proxy.NewChatProxy(cfg, client, logger), logger)
		healthHandler = proxy.HTTPHandler(proxy.NewHealthProxy(cfg, client, logger), logger)
	})
	return initErr
}

func serve(w http.ResponseWriter, r *http.Request, pick func() http.HandlerFunc) {
	if err := setup(); err != nil {
		proxy.WriteHTTP(w, proxy.ErrorResponse(http.StatusInternalServerError, "Internal server error"))
		return
	}
	pick()(w, r)
}

// resetForTest drops the cached handlers so the next call reloads configuration.
func resetForTest() {
	initOnce = sync.Once{}
	initErr = nil
	chatHandler = nil
	healthHandler = nil
}

// Chat serves the chat endpoint.
func Chat(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func() http.HandlerFunc { return chatHandler })
}

// Health serves the health endpoint.
func Health(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func() http.HandlerFunc { return healthHandler })
}
