package main

import (
	"errors"
	"log"
	"net/http"

	"textbook-proxy/backend"
	"textbook-proxy/config"
	"textbook-proxy/proxy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}
	logger := cfg.Logger()

	client := backend.NewForwardingClient(&http.Client{})
	s := &server{
		chat:   proxy.NewChatProxy(cfg, client, logger),
		health: proxy.NewHealthProxy(cfg, client, logger),
		logger: logger,
	}

	router := s.router(cfg.AllowOrigins)
	logger.Info("starting proxy service", "port", cfg.Port, "backend", cfg.BackendURL)

	err = router.Run(":" + cfg.Port)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Unexpected error in http server:", err)
	}
}
