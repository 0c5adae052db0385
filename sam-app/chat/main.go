package main

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/lambda"

	"textbook-proxy/backend"
	"textbook-proxy/config"
	"textbook-proxy/proxy"
)

func main() {
	cfg, err := config.LoadWithSecrets(context.Background())
	if err != nil {
		panic(err)
	}
	// CloudWatch gets structured logs.
	cfg.LogFormat = "json"
	logger := cfg.Logger()

	chatProxy := proxy.NewChatProxy(cfg, backend.NewForwardingClient(&http.Client{}), logger)

	lambda.Start(proxy.LambdaHandler(chatProxy, logger))
}
