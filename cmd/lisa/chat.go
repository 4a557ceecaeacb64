package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/square-key-labs/strawgo-lisa/src/dialog"
)

// ChatCmd runs a text conversation on the terminal.
// Usage: lisa chat [--data]
type ChatCmd struct {
	Session string `short:"s" long:"session" description:"session id" default:"terminal"`
	Data    bool   `long:"data" description:"print action results as JSON"`
}

func (c *ChatCmd) Execute(_ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return c.run(ctx, a, os.Stdin, os.Stdout)
}

func (c *ChatCmd) run(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	c.print(out, a.engine.StartConversation(ctx, c.Session))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		resp := a.engine.HandleUtterance(ctx, dialog.Utterance{SessionID: c.Session, Transcript: line, IsFinal: true})
		c.print(out, resp)
		if _, open := a.engine.Stats(c.Session); !open {
			return nil
		}
	}
	a.engine.EndConversation(c.Session)
	return scanner.Err()
}

func (c *ChatCmd) print(out io.Writer, resp dialog.Response) {
	if resp.FillerWord != "" && resp.FillerWord != resp.Text {
		fmt.Fprintf(out, "LISA: %s\n", resp.FillerWord)
	}
	if resp.Text != "" {
		fmt.Fprintf(out, "LISA: %s\n", resp.Text)
	}
	if c.Data && resp.Data != nil {
		data, err := json.MarshalIndent(resp.Data, "", "  ")
		if err == nil {
			fmt.Fprintf(out, "%s\n", data)
		}
	}
}
