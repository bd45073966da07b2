package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	pkgerrors "github.com/marianocruz/pos-inventory-backend/pkg/errors"
)

// Policy is the single retry policy applied at the deduction executor
// boundary: bounded attempts, exponential backoff, and a retryable-error
// predicate. Business-rule failures are never retried.
type Policy struct {
	maxAttempts uint64
	baseDelay   time.Duration
	retryable   func(error) bool
}

// Option customizes a Policy.
type Option func(*Policy)

// WithRetryable replaces the default retryable predicate.
func WithRetryable(fn func(error) bool) Option {
	return func(p *Policy) {
		if fn != nil {
			p.retryable = fn
		}
	}
}

// NewPolicy builds a Policy with the given attempt bound and base backoff.
func NewPolicy(maxAttempts int, baseDelay time.Duration, opts ...Option) (*Policy, error) {
	if maxAttempts < 1 {
		return nil, fmt.Errorf("max attempts must be at least 1, got %d", maxAttempts)
	}
	if baseDelay <= 0 {
		baseDelay = 25 * time.Millisecond
	}
	p := &Policy{
		maxAttempts: uint64(maxAttempts),
		baseDelay:   baseDelay,
		retryable:   pkgerrors.IsRetryable,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Do runs fn, retrying with backoff while the returned error satisfies the
// retryable predicate, up to the attempt bound. The last error is returned
// unwrapped so callers keep the taxonomy code.
func (p *Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(p.maxAttempts-1, retry.NewExponential(p.baseDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			if p.retryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
}
