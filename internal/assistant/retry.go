package assistant

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy bounds every call the assistant makes to the model and the run store.
type Policy struct {
	LLMTimeout      time.Duration
	StoreTimeout    time.Duration
	MaxTries        uint
	InitialInterval time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		LLMTimeout:      60 * time.Second,
		StoreTimeout:    10 * time.Second,
		MaxTries:        2,
		InitialInterval: 500 * time.Millisecond,
	}
}

// withPolicy runs op with a per-attempt timeout, retrying once with backoff.
// Cancellation of the parent context is never retried.
func withPolicy[T any](ctx context.Context, p Policy, timeout time.Duration, op func(context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval

	tries := p.MaxTries
	if tries == 0 {
		tries = 1
	}

	return backoff.Retry(ctx, func() (T, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		v, err := op(attemptCtx)
		if err != nil && ctx.Err() != nil {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(tries))
}
