// Package main implements a minimal echo bot: it connects to Hiven,
// waits for the session to become ready and echoes every message it
// sees back into the same room.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/frostbytespace/hiven-go/client"
	"github.com/frostbytespace/hiven-go/config"
	"github.com/frostbytespace/hiven-go/events"
	"github.com/frostbytespace/hiven-go/metric"
	"github.com/frostbytespace/hiven-go/types"
)

func main() {
	if err := run(); err != nil {
		slog.Error("bot failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = flag.String("config", "", "path to a YAML config file")
		metricsAddr = flag.String("metrics", "", "address to serve Prometheus metrics on (empty disables)")
		debug       = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	token := os.Getenv("HIVEN_TOKEN")
	if token == "" {
		return fmt.Errorf("HIVEN_TOKEN is not set")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	registry := metric.NewRegistry()
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", registry.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	bot, err := client.New(token, cfg, logger, registry)
	if err != nil {
		return err
	}

	if _, err := bot.On(events.EventReady, func(args ...any) error {
		logger.Info("ready",
			"user", bot.ClientUser().Username(),
			"startup_time", bot.StartupTime().String())
		return nil
	}); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := bot.On(events.EventMessageCreate, func(args ...any) error {
		msg, ok := args[0].(*types.Message)
		if !ok {
			return nil
		}
		self := bot.ClientUser()
		if self != nil && msg.AuthorID() == self.ID() {
			return nil
		}
		_, err := bot.REST().Post(ctx,
			"/rooms/"+msg.RoomID()+"/messages",
			map[string]string{"content": msg.Content()})
		return err
	}); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		if err := bot.Close(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}()

	logger.Info("connecting to hiven", "endpoint", cfg.WSEndpoint)
	return bot.Run(ctx)
}
