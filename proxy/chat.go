package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"textbook-proxy/backend"
	"textbook-proxy/config"
)

var (
	nullJSON         = []byte("null")
	emptyHistoryJSON = []byte("[]")
)

type chatBackend interface {
	Chat(ctx context.Context, baseURL string, payload []byte, timeout time.Duration) (*backend.Reply, error)
}

// ChatProxy relays POST /chat to the backend.
type ChatProxy struct {
	cfg     *config.Config
	backend chatBackend
	logger  *slog.Logger
}

func NewChatProxy(cfg *config.Config, client *backend.Client, logger *slog.Logger) *ChatProxy {
	return &ChatProxy{cfg: cfg, backend: client, logger: logger}
}

// inboundChat keeps both fields raw so that the history can be forwarded
// exactly as received.
type inboundChat struct {
	Message             json.RawMessage `json:"message"`
	ConversationHistory json.RawMessage `json:"conversation_history"`
}

func (p *ChatProxy) Handle(ctx context.Context, req Request) Response {
	if req.Method == http.MethodOptions {
		return preflight()
	}
	if req.Method != http.MethodPost {
		return methodNotAllowed()
	}
	if req.Looped {
		return loopDetected(ctx, p.logger)
	}

	var inbound inboundChat
	if len(bytes.TrimSpace(req.Body)) > 0 {
		if err := json.Unmarshal(req.Body, &inbound); err != nil {
			p.logger.ErrorContext(ctx, "failed to parse request body", slog.Any("error", err))
			return ErrorResponse(http.StatusBadRequest, "Invalid request body")
		}
	}

	var message string
	if len(inbound.Message) > 0 && !bytes.Equal(inbound.Message, nullJSON) {
		if err := json.Unmarshal(inbound.Message, &message); err != nil {
			p.logger.ErrorContext(ctx, "message is not a string", slog.Any("error", err))
			return ErrorResponse(http.StatusBadRequest, "Invalid request body")
		}
	}
	if message == "" {
		return ErrorResponse(http.StatusBadRequest, "Message is required")
	}

	history := inbound.ConversationHistory
	if len(history) == 0 || bytes.Equal(history, nullJSON) {
		history = emptyHistoryJSON
	}

	payload, err := forwardPayload(message, history)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to build backend payload", slog.Any("error", err))
		return ErrorResponse(http.StatusInternalServerError, "Failed to process chat request")
	}

	base, err := backendBase(p.cfg, req)
	if err != nil {
		return p.unavailable(ctx, err)
	}

	p.logger.DebugContext(ctx, "forwarding chat request", slog.String("backend", base), slog.Int("payload_bytes", len(payload)))
	reply, err := p.backend.Chat(ctx, base, payload, p.cfg.ChatTimeout)
	if err != nil {
		var statusErr *backend.StatusError
		if errors.As(err, &statusErr) {
			p.logger.ErrorContext(ctx, "backend rejected chat request", slog.Int("status", statusErr.StatusCode), slog.Any("error", err))
			contentType := statusErr.ContentType
			if contentType == "" {
				contentType = contentTypeJSON
			}
			return raw(statusErr.StatusCode, contentType, statusErr.Body)
		}
		return p.unavailable(ctx, err)
	}

	return raw(reply.StatusCode, contentTypeJSON, reply.Body)
}

func (p *ChatProxy) unavailable(ctx context.Context, err error) Response {
	p.logger.ErrorContext(ctx, "chat backend unavailable", slog.Any("error", err))
	return jsonResponse(ctx, p.logger, http.StatusServiceUnavailable, map[string]string{
		"error":   "Backend service unavailable",
		"details": err.Error(),
	})
}

// forwardPayload writes {"message":...,"conversation_history":...} with the
// history bytes copied verbatim. json.Marshal would compact a RawMessage.
func forwardPayload(message string, history json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteString(`{"message":`)
	if err := enc.Encode(message); err != nil {
		return nil, err
	}
	// Encode terminates with a newline.
	buf.Truncate(buf.Len() - 1)
	buf.WriteString(`,"conversation_history":`)
	buf.Write(history)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
