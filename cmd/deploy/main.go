package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"celokudos/internal/app"
	"celokudos/internal/chain"
	"celokudos/internal/config"
	"celokudos/internal/contract"
	"celokudos/internal/deploy"
	"celokudos/internal/wallet"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Deployment failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateNetwork(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	artifactPath := flag.String("artifact", cfg.ArtifactPath, "path to the compiled CeloKudos artifact")
	connector := flag.String("connector", "", "wallet connector (env, keystore); empty auto-connects")
	flag.Parse()

	// 2. Configure logger
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.SlogLevel(cfg.LogLevel),
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Load artifact and open the deployer wallet
	artifact, err := contract.LoadArtifact(*artifactPath)
	if err != nil {
		return err
	}

	connectors, err := app.Connectors(cfg, os.Stderr)
	if err != nil {
		return err
	}
	var session *wallet.Session
	if *connector == "" {
		session, err = wallet.AutoConnect(ctx, connectors)
	} else {
		session, err = wallet.Connect(ctx, connectors, *connector)
	}
	if err != nil {
		return err
	}

	// 4. Deploy
	backend, err := chain.Dial(ctx, cfg.RPCURL)
	if err != nil {
		return err
	}
	defer backend.Close()

	deployer := deploy.NewDeployer(backend, artifact, cfg.NetworkName, chain.Config{
		TokenAddress: cfg.TokenAddress(),
		PollInterval: cfg.ReceiptPollInterval,
		Retry:        cfg.Retry(),
	})
	summary, err := deployer.Deploy(ctx, session)
	if err != nil {
		return err
	}

	summary.Print(os.Stdout)
	return nil
}
