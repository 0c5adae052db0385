package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"textbook-proxy/backend"
	"textbook-proxy/config"
)

const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
	StatusOnline   = "online"

	// maxDetailBytes caps how much of a failing backend body is echoed back.
	maxDetailBytes = 512
)

type healthBackend interface {
	Health(ctx context.Context, baseURL string, timeout time.Duration) (*backend.Reply, error)
}

// HealthProxy reports on the frontend and, when reachable, the backend. It
// always answers 200 to a GET so that a downed backend does not make the
// frontend look dead.
type HealthProxy struct {
	cfg     *config.Config
	backend healthBackend
	logger  *slog.Logger
}

func NewHealthProxy(cfg *config.Config, client *backend.Client, logger *slog.Logger) *HealthProxy {
	return &HealthProxy{cfg: cfg, backend: client, logger: logger}
}

func (p *HealthProxy) Handle(ctx context.Context, req Request) Response {
	if req.Method == http.MethodOptions {
		return preflight()
	}
	if req.Method != http.MethodGet {
		return methodNotAllowed()
	}
	if req.Looped {
		return loopDetected(ctx, p.logger)
	}

	if p.cfg.IsCoLocated() {
		return jsonResponse(ctx, p.logger, http.StatusOK, map[string]any{
			"status":   StatusHealthy,
			"frontend": "online",
			"backend":  "co-located",
			"message":  "Backend is served from the same deployment as the frontend",
		})
	}

	reply, err := p.backend.Health(ctx, p.cfg.BackendURL, p.cfg.HealthTimeout)
	if err != nil {
		var statusErr *backend.StatusError
		if errors.As(err, &statusErr) {
			p.logger.ErrorContext(ctx, "backend reported unhealthy", slog.Int("status", statusErr.StatusCode), slog.Any("error", err))
			return jsonResponse(ctx, p.logger, http.StatusOK, map[string]any{
				"status":              StatusDegraded,
				"frontend":            "online",
				"backend":             "error",
				"backend_status_code": statusErr.StatusCode,
				"details":             truncate(string(statusErr.Body), maxDetailBytes),
			})
		}

		p.logger.ErrorContext(ctx, "health check error", slog.Any("error", err))
		return jsonResponse(ctx, p.logger, http.StatusOK, map[string]any{
			"status":   StatusOnline,
			"frontend": "online",
			"backend":  "offline",
			"error":    "Backend service unavailable",
			"details":  err.Error(),
		})
	}

	envelope := map[string]any{}
	if err := json.Unmarshal(reply.Body, &envelope); err != nil || envelope == nil {
		// A 2xx without a JSON object still means the backend is up.
		p.logger.WarnContext(ctx, "backend health body is not a JSON object", slog.Any("error", err))
		envelope = map[string]any{}
	}
	if own, ok := envelope["status"]; ok {
		envelope["backend_status"] = own
	}
	envelope["status"] = StatusHealthy
	envelope["frontend"] = "online"
	envelope["backend"] = "online"

	return jsonResponse(ctx, p.logger, http.StatusOK, envelope)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
