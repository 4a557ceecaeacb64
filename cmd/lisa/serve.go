package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"golang.org/x/sync/errgroup"

	"github.com/square-key-labs/strawgo-lisa/src/transports"
)

// ServeCmd starts the websocket server.
// Usage: lisa serve --port 8080
type ServeCmd struct {
	Port int  `short:"p" long:"port" description:"listen port (overrides config)"`
	Gops bool `long:"gops" description:"start the gops diagnostics agent"`
}

func (s *ServeCmd) Execute(_ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if s.Port > 0 {
		cfg.Server.Port = s.Port
	}

	if s.Gops || cfg.Debug.Gops {
		if err := agent.Listen(agent.Options{}); err != nil {
			return fmt.Errorf("start gops agent: %w", err)
		}
		defer agent.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.log.Warn("Closing store: %v", err)
		}
	}()

	server := transports.NewWebSocketServer(transports.WebSocketConfig{
		Port:               cfg.Server.Port,
		Path:               cfg.Server.Path,
		IdleTimeout:        time.Duration(cfg.Server.ReadTimeout) * time.Second,
		SampleRate:         cfg.Server.SampleRate,
		AllowInterruptions: true,
		Strategies:         a.strategies,
	}, a.pipelineFactory())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.ListenAndServe(ctx) })
	g.Go(func() error { return a.engine.RunSweeper(ctx) })

	a.log.Info("LISA %s serving on :%d%s (store: %s, stt: %s)",
		version, cfg.Server.Port, cfg.Server.Path, cfg.Store.Driver, cfg.Providers.STTMode)
	return g.Wait()
}
