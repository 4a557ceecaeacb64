// Command lisa runs the LISA voice assistant: a websocket server for the
// browser client, or a text chat on the terminal.
package main

import (
	"errors"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/square-key-labs/strawgo-lisa/src/logger"
)

// version is set with -ldflags "-X main.version=..."
var version = "dev"

// Options is the root command. The struct tags are interpreted by
// github.com/jessevdk/go-flags.
type Options struct {
	Config string `short:"c" long:"config" env:"LISA_CONFIG" description:"YAML config path"`

	Serve   ServeCmd   `command:"serve" description:"Start the websocket server"`
	Chat    ChatCmd    `command:"chat" description:"Talk to LISA by typing"`
	Version VersionCmd `command:"version" description:"Print the version"`
}

var opts Options

func main() {
	logger.Init()

	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
