// Package retry re-issues operations that failed with a retryable AppError.
package retry

import (
	"context"
	"log/slog"
	"time"

	"chirp/internal/config"
	"chirp/internal/models"
	"chirp/internal/observability"

	"github.com/cenkalti/backoff/v5"
)

// Policy bounds a retry loop.
type Policy struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy matches the configuration defaults.
var DefaultPolicy = Policy{
	MaxAttempts:     5,
	InitialInterval: 100 * time.Millisecond,
	MaxInterval:     2 * time.Second,
}

// PolicyFromConfig builds a Policy from RETRY_* settings, falling back to
// DefaultPolicy for unset values.
func PolicyFromConfig(cfg *config.Config) Policy {
	p := DefaultPolicy
	if cfg == nil {
		return p
	}
	if cfg.RetryMaxAttempts > 0 {
		p.MaxAttempts = uint(cfg.RetryMaxAttempts)
	}
	if cfg.RetryInitialIntervalMS > 0 {
		p.InitialInterval = time.Duration(cfg.RetryInitialIntervalMS) * time.Millisecond
	}
	if cfg.RetryMaxIntervalMS > 0 {
		p.MaxInterval = time.Duration(cfg.RetryMaxIntervalMS) * time.Millisecond
	}
	return p
}

// Do runs op until it succeeds, fails with a non-retryable error, the
// attempts are exhausted or ctx is done. Only CASCADE_FAILURE and
// UPSTREAM_UNAVAILABLE are retried.
func Do(ctx context.Context, policy Policy, name string, op func(context.Context) error) error {
	_, err := Value(ctx, policy, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Value is Do for operations that return a result.
func Value[T any](ctx context.Context, policy Policy, name string, op func(context.Context) (T, error)) (T, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = policy.InitialInterval
	exp.MaxInterval = policy.MaxInterval

	operation := func() (T, error) {
		v, err := op(ctx)
		if err != nil && !models.IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	notify := func(err error, wait time.Duration) {
		observability.Logger.WarnContext(ctx, "retrying operation",
			slog.String("operation", name),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)
	}

	attempts := policy.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(exp),
		backoff.WithMaxTries(attempts),
		backoff.WithNotify(notify),
	)
}
