// Package app builds the kudos client components once per process from the
// loaded configuration.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"celokudos/internal/api"
	"celokudos/internal/cache"
	"celokudos/internal/chain"
	"celokudos/internal/config"
	"celokudos/internal/events"
	"celokudos/internal/jobs"
	"celokudos/internal/kudos"
	"celokudos/internal/query"
	"celokudos/internal/storage"
	"celokudos/internal/wallet"

	"github.com/ethereum/go-ethereum/ethclient"
)

// shutdownTimeout bounds the API server shutdown in Serve
const shutdownTimeout = 10 * time.Second

// App holds the wired components
type App struct {
	Config       *config.Config
	Chain        *chain.Client
	Orchestrator *kudos.Orchestrator
	Queries      *query.Service

	// Optional, nil when not configured
	Cache      *cache.RecordCache
	Repository *storage.PostgresRepository

	backend *ethclient.Client
}

// New dials the RPC endpoint and builds every component cfg enables
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	backend, err := chain.Dial(ctx, cfg.RPCURL)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, backend: backend}

	a.Chain, err = chain.NewClient(backend, chain.Config{
		KudosAddress: cfg.KudosAddress(),
		TokenAddress: cfg.TokenAddress(),
		PollInterval: cfg.ReceiptPollInterval,
		Retry:        cfg.Retry(),
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create chain client: %w", err)
	}

	chainID, err := a.Chain.ChainID(ctx)
	if err != nil {
		slog.Warn("Could not read chain id from rpc", "error", err)
	} else if chainID.Int64() != cfg.ChainID {
		a.Close()
		return nil, fmt.Errorf("rpc chain id %s does not match configured %d", chainID, cfg.ChainID)
	}

	if cfg.RedisAddr != "" {
		a.Cache, err = cache.New(ctx, cache.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("Record cache enabled", "addr", cfg.RedisAddr)
	}

	if cfg.DatabaseURL != "" {
		a.Repository, err = storage.NewPostgresRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := a.Repository.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
		slog.Info("Database connected successfully")
	}

	a.Orchestrator = kudos.NewOrchestrator(a.Chain, cfg.KudosAddress(), kudos.WithConfirmTimeout(cfg.ConfirmTimeout))
	a.Queries = query.NewService(a.Chain, a.recordCache())

	slog.Info("Client ready",
		"network", cfg.NetworkName,
		"chain_id", cfg.ChainID,
		"kudos_contract", cfg.KudosAddress().Hex(),
		"token_contract", cfg.TokenAddress().Hex(),
	)
	return a, nil
}

// Connectors builds the configured wallet connectors in order
func Connectors(cfg *config.Config, prompt io.Writer) ([]wallet.Connector, error) {
	connectors := make([]wallet.Connector, 0, len(cfg.WalletConnectors))
	for _, name := range cfg.WalletConnectors {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "env":
			connectors = append(connectors, wallet.NewEnvConnector(cfg.WalletPrivateKey, cfg.ChainIDBig()))
		case "keystore":
			connectors = append(connectors, wallet.NewKeystoreConnector(cfg.WalletKeystore, cfg.WalletPassphrase, cfg.ChainIDBig(), prompt))
		case "":
		default:
			return nil, fmt.Errorf("unknown wallet connector %q", name)
		}
	}
	return connectors, nil
}

// Connect opens a session with the named connector, or auto-connects when
// name is empty
func (a *App) Connect(ctx context.Context, name string, prompt io.Writer) (*wallet.Session, error) {
	connectors, err := Connectors(a.Config, prompt)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return wallet.AutoConnect(ctx, connectors)
	}
	return wallet.Connect(ctx, connectors, name)
}

// NewObserver creates an event observer that logs every event, and
// journals it when a database is configured
func (a *App) NewObserver() *events.Observer {
	handlers := []events.Handler{events.LogHandler{}}
	if a.Repository != nil {
		handlers = append(handlers, events.NewJournalHandler(a.Repository))
	}
	return events.NewObserver(a.Chain, handlers...)
}

// NewScheduler creates the stats snapshot scheduler
func (a *App) NewScheduler() *jobs.Scheduler {
	var store jobs.SnapshotStore
	if a.Repository != nil {
		store = a.Repository
	}
	return jobs.NewScheduler(a.Config.SnapshotSchedule, a.Queries, a.Chain, store)
}

// NewServer creates the read-only API server
func (a *App) NewServer() *api.Server {
	var repository storage.Repository
	if a.Repository != nil {
		repository = a.Repository
	}
	return api.NewServer(a.Config.APIPort, a.Queries, repository)
}

// Serve runs the API server, the snapshot scheduler and the event observer
// until ctx is cancelled
func (a *App) Serve(ctx context.Context) error {
	observer := a.NewObserver()
	if err := observer.Start(ctx); err != nil {
		// Plain HTTP endpoints cannot subscribe to logs
		slog.Warn("Event observer unavailable", "error", err)
	} else {
		defer observer.Stop()
	}

	scheduler := a.NewScheduler()
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	server := a.NewServer()
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error stopping API server", "error", err)
	}
	return nil
}

// Close releases the connections held by the app
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			slog.Error("Error closing record cache", "error", err)
		}
	}
	if a.Repository != nil {
		a.Repository.Close()
	}
	if a.backend != nil {
		a.backend.Close()
	}
}

func (a *App) recordCache() query.RecordCache {
	if a.Cache == nil {
		return nil
	}
	return a.Cache
}
