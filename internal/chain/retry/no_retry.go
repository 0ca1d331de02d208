package retry

import (
	"context"
)

// NoRetryStrategy executes operations without any retry logic
type NoRetryStrategy struct{}

// NewNoRetryStrategy creates a new NoRetryStrategy
func NewNoRetryStrategy() *NoRetryStrategy {
	return &NoRetryStrategy{}
}

// Execute runs the operation once
func (s *NoRetryStrategy) Execute(ctx context.Context, operation Operation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return operation()
}

// Name returns the strategy name
func (s *NoRetryStrategy) Name() string {
	return "NoRetry"
}
