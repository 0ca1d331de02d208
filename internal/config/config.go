// Package config loads the client configuration from KUDOS_* environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"celokudos/internal/chain/retry"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix of every environment variable
const Prefix = "KUDOS"

// Alfajores defaults
const (
	DefaultRPCURL       = "https://alfajores-forno.celo-testnet.org"
	DefaultChainID      = 44787
	DefaultTokenAddress = "0x874069Fa1Eb16D44d622F2e0Ca25eeA172369bC1"
)

// Config holds every setting of the client
type Config struct {
	// --- Network ---
	RPCURL      string `envconfig:"RPC_URL" default:"https://alfajores-forno.celo-testnet.org"`
	ChainID     int64  `envconfig:"CHAIN_ID" default:"44787"`
	NetworkName string `envconfig:"NETWORK_NAME" default:"alfajores"`

	// --- Contracts ---
	KudosContract string `envconfig:"KUDOS_CONTRACT_ADDRESS"`
	TokenContract string `envconfig:"TOKEN_CONTRACT_ADDRESS" default:"0x874069Fa1Eb16D44d622F2e0Ca25eeA172369bC1"`
	ArtifactPath  string `envconfig:"ARTIFACT_PATH" default:"artifacts/contracts/CeloKudos.sol/CeloKudos.json"`

	// --- Wallet ---
	// Connectors tried in order by auto-connect
	WalletConnectors []string `envconfig:"WALLET_CONNECTORS" default:"env,keystore"`
	WalletPrivateKey string   `envconfig:"WALLET_PRIVATE_KEY"`
	WalletKeystore   string   `envconfig:"WALLET_KEYSTORE"`
	WalletPassphrase string   `envconfig:"WALLET_PASSPHRASE"`

	// --- Chain client ---
	ReceiptPollInterval time.Duration `envconfig:"RECEIPT_POLL_INTERVAL" default:"2s"`
	ConfirmTimeout      time.Duration `envconfig:"CONFIRM_TIMEOUT" default:"5m"`
	RetryEnabled        bool          `envconfig:"RETRY_ENABLED" default:"true"`
	RetryMaxAttempts    int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryInitialDelay   time.Duration `envconfig:"RETRY_INITIAL_DELAY" default:"500ms"`
	RetryMaxDelay       time.Duration `envconfig:"RETRY_MAX_DELAY" default:"5s"`

	// --- Queries ---
	DefaultPageSize uint64 `envconfig:"DEFAULT_PAGE_SIZE" default:"10"`

	// --- Storage (optional) ---
	DatabaseURL   string        `envconfig:"DATABASE_URL"`
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"24h"`

	// --- Service ---
	APIPort          int    `envconfig:"API_PORT" default:"2112"`
	SnapshotSchedule string `envconfig:"SNAPSHOT_SCHEDULE" default:"@every 15m"`
	LogLevel         string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads an optional .env file and then the environment
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks if the configuration is valid for reading and sending
func (c *Config) Validate() error {
	if err := c.ValidateNetwork(); err != nil {
		return err
	}

	if c.KudosContract == "" {
		return fmt.Errorf("%s_KUDOS_CONTRACT_ADDRESS is required", Prefix)
	}
	if err := validAddress("KUDOS_CONTRACT_ADDRESS", c.KudosContract); err != nil {
		return err
	}
	if err := validAddress("TOKEN_CONTRACT_ADDRESS", c.TokenContract); err != nil {
		return err
	}

	if c.DefaultPageSize == 0 {
		return fmt.Errorf("%s_DEFAULT_PAGE_SIZE must be > 0", Prefix)
	}
	if c.ReceiptPollInterval <= 0 {
		return fmt.Errorf("%s_RECEIPT_POLL_INTERVAL must be > 0", Prefix)
	}
	if c.ConfirmTimeout <= 0 {
		return fmt.Errorf("%s_CONFIRM_TIMEOUT must be > 0", Prefix)
	}
	if c.RetryEnabled {
		if c.RetryMaxAttempts < 0 {
			return fmt.Errorf("%s_RETRY_MAX_ATTEMPTS must be >= 0", Prefix)
		}
		if c.RetryInitialDelay <= 0 || c.RetryMaxDelay < c.RetryInitialDelay {
			return fmt.Errorf("invalid %s_RETRY_INITIAL_DELAY/%s_RETRY_MAX_DELAY", Prefix, Prefix)
		}
	}
	if c.APIPort < 0 || c.APIPort > 65535 {
		return fmt.Errorf("%s_API_PORT out of range", Prefix)
	}

	return nil
}

// ValidateNetwork checks only what deployment needs
func (c *Config) ValidateNetwork() error {
	if c.RPCURL == "" {
		return fmt.Errorf("%s_RPC_URL is required", Prefix)
	}
	if c.ChainID <= 0 {
		return fmt.Errorf("%s_CHAIN_ID must be > 0", Prefix)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// KudosAddress returns the kudos contract address
func (c *Config) KudosAddress() common.Address {
	return common.HexToAddress(c.KudosContract)
}

// TokenAddress returns the payment token address
func (c *Config) TokenAddress() common.Address {
	return common.HexToAddress(c.TokenContract)
}

// ChainIDBig returns the chain id as a big integer
func (c *Config) ChainIDBig() *big.Int {
	return big.NewInt(c.ChainID)
}

// Retry returns the read retry settings
func (c *Config) Retry() retry.Config {
	return retry.Config{
		Enabled:      c.RetryEnabled,
		MaxRetries:   c.RetryMaxAttempts,
		InitialDelay: c.RetryInitialDelay,
		MaxDelay:     c.RetryMaxDelay,
	}
}

// ErrUnknownLogLevel is returned for an unsupported log level
var ErrUnknownLogLevel = errors.New("unknown log level")

// ParseLogLevel normalises a log level name
func ParseLogLevel(level string) (string, error) {
	switch l := strings.ToLower(strings.TrimSpace(level)); l {
	case "debug", "info", "warn", "error":
		return l, nil
	case "":
		return "info", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLogLevel, level)
	}
}

// SlogLevel maps a log level name to its slog level; unknown names map to info
func SlogLevel(level string) slog.Level {
	l, _ := ParseLogLevel(level)
	switch l {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func validAddress(name, value string) error {
	if !common.IsHexAddress(value) {
		return fmt.Errorf("%s_%s is not a valid address: %q", Prefix, name, value)
	}
	if common.HexToAddress(value) == (common.Address{}) {
		return fmt.Errorf("%s_%s must not be the zero address", Prefix, name)
	}
	return nil
}
