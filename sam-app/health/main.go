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
	cfg.LogFormat = "json"
	logger := cfg.Logger()

	healthProxy := proxy.NewHealthProxy(cfg, backend.NewForwardingClient(&http.Client{}), logger)

	lambda.Start(proxy.LambdaHandler(healthProxy, logger))
}
