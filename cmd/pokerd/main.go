package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/bokk3/gamble-fun-sub001/internal/server"
	"github.com/bokk3/gamble-fun-sub001/internal/store"
)

var CLI struct {
	Config          string `short:"c" default:"pokerd.hcl" help:"Path to HCL configuration file"`
	Addr            string `short:"a" help:"Server address to bind to (overrides config)"`
	Port            int    `short:"p" help:"Server port (overrides config)"`
	LogLevel        string `short:"l" help:"Log level (overrides config)"`
	DataDir         string `help:"Hand record directory (overrides config)"`
	StartingBalance int    `default:"10000" help:"Play-money balance granted to new accounts"`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("pokerd"),
		kong.Description("Real-time multiplayer poker server with provably fair dealing"),
		kong.UsageOnError(),
	)

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		kctx.Exit(1)
	}

	if CLI.Addr != "" {
		cfg.Server.Address = CLI.Addr
	}
	if CLI.Port != 0 {
		cfg.Server.Port = CLI.Port
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.DataDir != "" {
		cfg.Server.DataDir = CLI.DataDir
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

	handStore, err := store.NewFileStore(cfg.Server.DataDir, logger)
	if err != nil {
		logger.Error("Failed to open hand store", "dir", cfg.Server.DataDir, "error", err)
		kctx.Exit(1)
	}
	ledger := store.NewFundedMemLedger(CLI.StartingBalance)

	logger.Info("Starting pokerd",
		"addr", fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port),
		"tables", len(cfg.Tables),
		"profiles", len(cfg.Profiles),
		"data_dir", cfg.Server.DataDir)

	srv := server.NewServer(cfg, logger, handStore, ledger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server failed", "error", err)
		kctx.Exit(1)
	}
}
