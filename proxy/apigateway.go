package proxy

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"textbook-proxy/backend"
)

// LambdaHandler adapts h to the API Gateway proxy integration. The returned
// error is always nil: every outcome is expressed as a response, since a
// non-nil error would surface as a bare 502 from API Gateway.
func LambdaHandler(h Handler, logger *slog.Logger) func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return func(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		logger.InfoContext(ctx, "Handler started", slog.String("method", request.HTTPMethod), slog.String("path", request.Path))

		req, err := FromAPIGateway(request)
		if err != nil {
			logger.ErrorContext(ctx, "failed to decode request body", slog.Any("error", err))
			return ToAPIGateway(ErrorResponse(http.StatusBadRequest, "Invalid request body")), nil
		}

		return ToAPIGateway(h.Handle(ctx, req)), nil
	}
}

func FromAPIGateway(request events.APIGatewayProxyRequest) (Request, error) {
	body := []byte(request.Body)
	if request.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(request.Body)
		if err != nil {
			return Request{}, err
		}
		body = decoded
	}

	host := header(request.Headers, "X-Forwarded-Host")
	if host == "" {
		host = header(request.Headers, "Host")
	}
	if host == "" {
		host = request.RequestContext.DomainName
	}

	scheme := firstValue(header(request.Headers, "X-Forwarded-Proto"))
	if scheme == "" {
		scheme = "https"
	}

	return Request{
		Method: strings.ToUpper(request.HTTPMethod),
		Scheme: scheme,
		Host:   firstValue(host),
		Body:   body,
		Looped: header(request.Headers, backend.HopHeader) != "",
	}, nil
}

func ToAPIGateway(resp Response) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       string(resp.Body),
	}
}

// header does a case-insensitive lookup; API Gateway passes header names
// through as the client sent them.
func header(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// firstValue returns the first entry of a comma separated header value.
func firstValue(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return strings.TrimSpace(first)
}
