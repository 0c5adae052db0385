package ask

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"textbook-proxy/backend"
	"textbook-proxy/chat"
	"textbook-proxy/transcript"
)

// Ask sends a question through the chat proxy. With --interactive it keeps
// reading questions from stdin and carries the conversation history along.
func Ask(ctx *cli.Context) error {
	baseURL := strings.TrimRight(ctx.String("url"), "/")
	timeout := ctx.Duration("timeout")
	transcriptPath := ctx.String("transcript")
	client := backend.NewClient(nil)

	conversation := &chat.Conversation{}
	if transcriptPath != "" {
		loaded, err := transcript.Load(transcriptPath)
		if err != nil {
			return fmt.Errorf("failed to load transcript: %w", err)
		}
		conversation = loaded
	}

	turn := func(message string) error {
		reply, err := send(ctx.Context, client, baseURL, conversation.NewRequest(message), timeout)
		if err != nil {
			return err
		}
		printReply(ctx.App.Writer, reply)

		conversation.Record(message, *reply)
		if transcriptPath != "" {
			if err := transcript.Save(transcriptPath, conversation); err != nil {
				return fmt.Errorf("failed to update transcript: %w", err)
			}
		}
		return nil
	}

	interactive := ctx.Bool("interactive")
	message := strings.TrimSpace(strings.Join(ctx.Args().Slice(), " "))
	if message == "" && !interactive {
		return cli.Exit("a question is required, or use --interactive", 1)
	}
	if message != "" {
		if err := turn(message); err != nil {
			return err
		}
	}
	if !interactive {
		return nil
	}

	scanner := bufio.NewScanner(ctx.App.Reader)
	for {
		fmt.Fprint(ctx.App.Writer, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		if err := turn(line); err != nil {
			// Keep the session alive; the next question may go through.
			fmt.Fprintln(ctx.App.ErrWriter, "Error:", err)
		}
	}
	return scanner.Err()
}

func send(ctx context.Context, client *backend.Client, baseURL string, req chat.Request, timeout time.Duration) (*chat.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	reply, err := client.Chat(ctx, baseURL, payload, timeout)
	if err != nil {
		var statusErr *backend.StatusError
		if errors.As(err, &statusErr) {
			return nil, fmt.Errorf("chat request rejected with status %d: %s", statusErr.StatusCode, strings.TrimSpace(string(statusErr.Body)))
		}
		return nil, fmt.Errorf("failed to send chat request: %w", err)
	}

	var response chat.Response
	if err := json.Unmarshal(reply.Body, &response); err != nil {
		return nil, fmt.Errorf("failed to deserialize chat response: %w", err)
	}
	return &response, nil
}

func printReply(w io.Writer, reply *chat.Response) {
	fmt.Fprintln(w, reply.Response)
	if len(reply.Sources) == 0 {
		return
	}
	fmt.Fprintln(w, "\nSources:")
	for i, source := range reply.Sources {
		fmt.Fprintf(w, "  [%d] %s (%s) - %s\n", i+1, source.Title, source.Module, source.FilePath)
	}
}
