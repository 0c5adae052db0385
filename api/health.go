package handler

import (
	"net/http"

	"textbook-proxy/serverless"
)

// Health is the Vercel entry point for /api/health.
func Health(w http.ResponseWriter, r *http.Request) {
	serverless.Health(w, r)
}
