package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/user/slidegate/internal/logging"
)

// Policy controls how WithExponentialBackoff spaces its attempts.
type Policy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultPolicy starts at one second and doubles, capped at ten seconds.
func DefaultPolicy(maxRetries int) Policy {
	return Policy{MaxRetries: maxRetries, InitialDelay: time.Second, MaxDelay: 10 * time.Second}
}

// WithExponentialBackoff executes an operation and retries it on failure with exponential backoff.
// It gives up early when ctx is done. The last operation error is wrapped in the result.
func WithExponentialBackoff(ctx context.Context, operationName string, policy Policy, operation func(context.Context) error) error {
	var err error
	delay := policy.InitialDelay
	if policy.MaxRetries < 1 {
		policy.MaxRetries = 1
	}

	for i := 0; i < policy.MaxRetries; i++ {
		err = operation(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s aborted: %w", operationName, err)
		}

		if i < policy.MaxRetries-1 {
			logging.Logger.Warnf("%s failed: %v. Retrying in %v (Attempt %d/%d)...", operationName, err, delay, i+1, policy.MaxRetries)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%s aborted: %w", operationName, ctx.Err())
			case <-timer.C:
			}
			delay *= 2
			if policy.MaxDelay > 0 && delay > policy.MaxDelay {
				delay = policy.MaxDelay
			}
		}
	}

	return fmt.Errorf("%s failed after %d retries: %w", operationName, policy.MaxRetries, err)
}
