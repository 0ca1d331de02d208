package retry

import (
	"context"
	"log/slog"
	"time"
)

// Strategy defines the interface for retry strategies
type Strategy interface {
	// Execute runs the operation with the configured retry logic
	Execute(ctx context.Context, operation Operation) error

	// Name returns the name of the strategy for logging
	Name() string
}

// Operation is a read call that can be retried
type Operation func() error

// Config holds retry configuration for contract reads
type Config struct {
	Enabled      bool          // Enable/disable retry mechanism
	MaxRetries   int           // Maximum number of retry attempts
	InitialDelay time.Duration // Initial delay before first retry
	MaxDelay     time.Duration // Maximum delay between retries
}

// NewStrategy creates a retry strategy based on configuration
func NewStrategy(config Config) Strategy {
	if !config.Enabled || config.MaxRetries <= 0 {
		slog.Info("Read retry disabled, using NoRetryStrategy")
		return NewNoRetryStrategy()
	}

	slog.Info("Read retry enabled, using ExponentialBackoffStrategy",
		"max_retries", config.MaxRetries,
		"initial_delay", config.InitialDelay,
		"max_delay", config.MaxDelay,
	)

	return NewExponentialBackoffStrategy(
		config.MaxRetries,
		config.InitialDelay,
		config.MaxDelay,
	)
}
