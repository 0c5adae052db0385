package main

import (
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"textbook-proxy/cmd/ask"
	"textbook-proxy/cmd/status"
)

func main() {
	app := &cli.App{
		Usage: "Talk to the textbook assistant through its proxy",
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Aliases:   []string{"a"},
				Usage:     "Ask the assistant a question",
				ArgsUsage: "[question]",
				Flags: []cli.Flag{
					urlFlag(),
					&cli.DurationFlag{Name: "timeout", Value: 60 * time.Second, Usage: "Request timeout"},
					&cli.StringFlag{Name: "transcript", Usage: "JSON file the conversation is loaded from and saved to"},
					&cli.BoolFlag{Name: "interactive", Aliases: []string{"i"}, Usage: "Keep asking questions read from stdin"},
				},
				Action: ask.Ask,
			},
			{
				Name:    "health",
				Aliases: []string{"hc"},
				Usage:   "Check frontend and backend health",
				Flags: []cli.Flag{
					urlFlag(),
					&cli.DurationFlag{Name: "timeout", Value: 10 * time.Second, Usage: "Request timeout"},
				},
				Action: status.Health,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func urlFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "url",
		Usage:   "Base URL the chat and health endpoints live under",
		EnvVars: []string{"PROXY_URL"},
		Value:   "http://localhost:8080",
	}
}
