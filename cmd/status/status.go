package status

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"textbook-proxy/backend"
	"textbook-proxy/proxy"
)

// Health prints the health envelope reported by the proxy and exits non-zero
// unless it reports healthy or online.
func Health(ctx *cli.Context) error {
	baseURL := strings.TrimRight(ctx.String("url"), "/")

	reply, err := backend.NewClient(nil).Health(ctx.Context, baseURL, ctx.Duration("timeout"))
	if err != nil {
		var statusErr *backend.StatusError
		if errors.As(err, &statusErr) {
			return cli.Exit(fmt.Sprintf("health check returned %d: %s", statusErr.StatusCode, strings.TrimSpace(string(statusErr.Body))), 1)
		}
		return cli.Exit(fmt.Sprintf("health check failed: %v", err), 1)
	}

	var envelope map[string]any
	if err := json.Unmarshal(reply.Body, &envelope); err != nil {
		return fmt.Errorf("failed to deserialize health response: %w", err)
	}

	pretty, err := json.MarshalIndent(envelope, "", " ")
	if err != nil {
		return fmt.Errorf("failed to format health response: %w", err)
	}
	fmt.Fprintln(ctx.App.Writer, string(pretty))

	switch envelope["status"] {
	case proxy.StatusHealthy, proxy.StatusOnline:
		return nil
	default:
		return cli.Exit(fmt.Sprintf("status is %v", envelope["status"]), 1)
	}
}
