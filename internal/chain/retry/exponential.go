package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"celokudos/internal/metrics"

	"github.com/ethereum/go-ethereum/rpc"
)

// ExponentialBackoffStrategy retries transient read failures, doubling the
// delay after each attempt up to maxDelay
type ExponentialBackoffStrategy struct {
	maxRetries   int
	initialDelay time.Duration
	maxDelay     time.Duration
}

// NewExponentialBackoffStrategy creates a new ExponentialBackoffStrategy
func NewExponentialBackoffStrategy(maxRetries int, initialDelay, maxDelay time.Duration) *ExponentialBackoffStrategy {
	return &ExponentialBackoffStrategy{
		maxRetries:   maxRetries,
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
	}
}

// Execute runs the operation until it succeeds, fails with a permanent
// error, or maxRetries retries are spent
func (s *ExponentialBackoffStrategy) Execute(ctx context.Context, operation Operation) error {
	delay := s.initialDelay
	attempts := s.maxRetries + 1

	for attempt := 1; ; attempt++ {
		err := operation()
		if err == nil {
			if attempt > 1 {
				slog.Info("Read succeeded after retry", "attempt", attempt, "max_attempts", attempts)
			}
			return nil
		}

		if !isRecoverableError(err) {
			return err
		}
		if attempt >= attempts {
			return fmt.Errorf("read failed after %d attempts: %w", attempts, err)
		}

		metrics.ReadRetries.Inc()
		slog.Warn("Read failed, retrying with exponential backoff",
			"attempt", attempt,
			"max_attempts", attempts,
			"retry_in", delay,
			"error", err)

		if err := sleep(ctx, delay); err != nil {
			return fmt.Errorf("context cancelled during retry: %w", err)
		}
		delay = min(delay*2, s.maxDelay)
	}
}

// Name returns the strategy name
func (s *ExponentialBackoffStrategy) Name() string {
	return "ExponentialBackoff"
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// recoverablePatterns match transport failures that surface only as text
var recoverablePatterns = []string{
	"connection reset by peer",
	"connection refused",
	"timeout",
	"temporary failure",
	"network is unreachable",
	"broken pipe",
	"eof",
	"no such host",
	"dial tcp",
	"too many requests",
	"bad gateway",
	"service unavailable",
	"header not found",
}

// isRecoverableError determines if an error is worth retrying.
// Reverts and decoding failures are deterministic and never recoverable.
func isRecoverableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= http.StatusInternalServerError
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "execution reverted") {
		return false
	}
	for _, pattern := range recoverablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
