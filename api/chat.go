package handler

import (
	"net/http"

	"textbook-proxy/serverless"
)

// Chat is the Vercel entry point for /api/chat.
func Chat(w http.ResponseWriter, r *http.Request) {
	serverless.Chat(w, r)
}
