package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/Rekiiel/Poker/internal/server"
	"github.com/Rekiiel/Poker/internal/table"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"poker-server.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Server address to bind to (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg, err := server.LoadServerConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		kctx.Exit(1)
	}

	// Apply command line overrides
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		kctx.Exit(1)
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	addr := cfg.GetServerAddress()
	if CLI.Addr != "" {
		addr = CLI.Addr
	}

	logger.Info("Starting Poker Server",
		"addr", addr,
		"smallBlind", cfg.Tables.SmallBlind,
		"bigBlind", cfg.Tables.BigBlind,
		"startChips", cfg.Tables.StartChips)

	wsServer := server.NewServer(addr, logger)
	registry := table.NewRegistry(cfg.TableConfig(), wsServer, quartz.NewReal(), logger)
	wsServer.SetRegistry(registry)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(wsServer.Start)
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")
		registry.StopAll()
		return wsServer.Stop()
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server failed", "error", err)
		kctx.Exit(1)
	}
}
