// Package proxy forwards chat and health requests to the backend service.
//
// Handlers here work on a transport-independent Request/Response pair so the
// same logic serves API Gateway, Vercel style net/http functions and the gin
// service.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"textbook-proxy/config"
)

const (
	AllowedMethods = "GET,OPTIONS,PATCH,DELETE,POST,PUT"
	AllowedHeaders = "X-CSRF-Token, X-Requested-With, Accept, Accept-Version, Content-Length, Content-MD5, Content-Type, Date, X-Api-Version"

	contentTypeJSON = "application/json"
)

var errNoHost = errors.New("cannot derive co-located backend url: request has no host")

// Request is an inbound call as seen by a handler.
type Request struct {
	Method string
	Scheme string
	Host   string
	Body   []byte
	// Looped is set when the request was sent by a proxy's own backend client.
	Looped bool
}

// Response is what a handler wants written back. Headers always include the
// CORS set.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// Handler is implemented by ChatProxy and HealthProxy.
type Handler interface {
	Handle(ctx context.Context, req Request) Response
}

// CORSHeaders returns a fresh copy of the headers set on every response.
func CORSHeaders() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Credentials": "true",
		"Access-Control-Allow-Origin":      "*",
		"Access-Control-Allow-Methods":     AllowedMethods,
		"Access-Control-Allow-Headers":     AllowedHeaders,
	}
}

func preflight() Response {
	return Response{
		StatusCode: http.StatusOK,
		Headers:    CORSHeaders(),
	}
}

func raw(status int, contentType string, body []byte) Response {
	headers := CORSHeaders()
	if contentType != "" {
		headers["Content-Type"] = contentType
	}
	return Response{
		StatusCode: status,
		Headers:    headers,
		Body:       body,
	}
}

func jsonResponse(ctx context.Context, logger *slog.Logger, status int, v any) Response {
	body, err := json.Marshal(v)
	if err != nil {
		logger.ErrorContext(ctx, "serialize response", slog.Any("error", err))
		return raw(http.StatusInternalServerError, contentTypeJSON, []byte(`{"error":"something went wrong building the response"}`))
	}
	return raw(status, contentTypeJSON, body)
}

// ErrorResponse is a {"error": message} reply carrying the CORS headers.
func ErrorResponse(status int, message string) Response {
	body, _ := json.Marshal(map[string]string{"error": message})
	return raw(status, contentTypeJSON, body)
}

func loopDetected(ctx context.Context, logger *slog.Logger) Response {
	logger.ErrorContext(ctx, "request came back from this proxy, check the backend url")
	return ErrorResponse(http.StatusLoopDetected, "Request looped back to the proxy")
}

func methodNotAllowed() Response {
	return ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed")
}

// backendBase picks the backend base URL for req, deriving it from the
// inbound scheme and host when the deployment is co-located.
func backendBase(cfg *config.Config, req Request) (string, error) {
	if !cfg.IsCoLocated() {
		return cfg.BackendURL, nil
	}
	if req.Host == "" {
		return "", errNoHost
	}
	scheme := strings.ToLower(req.Scheme)
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + req.Host + cfg.BackendPathPrefix, nil
}
