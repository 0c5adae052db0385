package proxy

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"textbook-proxy/backend"
)

// MaxRequestBytes bounds inbound request bodies.
const MaxRequestBytes = 1 << 20

// HTTPHandler adapts h to net/http.
func HTTPHandler(h Handler, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		body, err := ReadBody(w, r)
		if err != nil {
			logger.ErrorContext(ctx, "failed to read request body", slog.Any("error", err))
			WriteHTTP(w, ReadErrorResponse(err))
			return
		}

		WriteHTTP(w, h.Handle(ctx, FromHTTP(r, body)))
	}
}

// ReadBody reads r's body, failing with *http.MaxBytesError past MaxRequestBytes.
func ReadBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	return io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBytes))
}

// ReadErrorResponse is the reply for a ReadBody failure: 413 when the body
// was too large, 400 otherwise.
func ReadErrorResponse(err error) Response {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return ErrorResponse(http.StatusRequestEntityTooLarge, "Request body too large")
	}
	return ErrorResponse(http.StatusBadRequest, "Invalid request body")
}

// FromHTTP converts r, whose body has already been read into body.
func FromHTTP(r *http.Request, body []byte) Request {
	scheme := firstValue(r.Header.Get("X-Forwarded-Proto"))
	if scheme == "" {
		if r.TLS != nil {
			scheme = "https"
		} else {
			scheme = "http"
		}
	}

	host := firstValue(r.Header.Get("X-Forwarded-Host"))
	if host == "" {
		host = r.Host
	}

	return Request{
		Method: strings.ToUpper(r.Method),
		Scheme: scheme,
		Host:   host,
		Body:   body,
		Looped: r.Header.Get(backend.HopHeader) != "",
	}
}

func WriteHTTP(w http.ResponseWriter, resp Response) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}
