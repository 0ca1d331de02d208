package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"celokudos/internal/app"
	"celokudos/internal/config"
)

// command is a CLI subcommand
type command struct {
	name  string
	usage string
	run   func(ctx context.Context, a *app.App, args []string) error
}

var commands = []command{
	{"send", "send kudos: --to <address> --amount <cUSD> [--message] [--private] [--connector]", runSend},
	{"get", "show one kudos: get <id>", runGet},
	{"sent", "list kudos sent: [--address] [--page] [--limit]", runSent},
	{"received", "list kudos received: [--address] [--page] [--limit]", runReceived},
	{"feed", "list public kudos: [--page] [--limit]", runFeed},
	{"recent", "latest sent and received kudos: [--address] [--limit]", runRecent},
	{"stats", "platform stats, plus user stats with --address or --connector", runStats},
	{"watch", "log KudosSent and KudosReceived events until interrupted", runWatch},
	{"serve", "run the read-only API, stats snapshots and event observer", runServe},
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	if err := run(os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(name string, args []string) error {
	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		usage()
		return fmt.Errorf("unknown command %q", name)
	}

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// 2. Configure logger
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.SlogLevel(cfg.LogLevel),
	})))

	// 3. Graceful shutdown on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Wire components
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return cmd.run(ctx, a, args)
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: kudos <command> [flags]")
	fmt.Fprintln(os.Stderr)
	for _, cmd := range commands {
		fmt.Fprintf(os.Stderr, "  %-9s %s\n", cmd.name, cmd.usage)
	}
}
