package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"mercator-hq/switchboard/pkg/config"
)

// RetryPolicy decides when a failed provider call is attempted again.
//
// A call is retried at most retries times, with exponential backoff between
// attempts, and only while the operation reports the failure as retryable.
// No retry starts if its backoff would run past the context deadline.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64

	// RandomizationFactor jitters each interval; zero keeps them exact.
	RandomizationFactor float64
}

// RetryPolicyFromConfig builds the policy from the dispatch section.
func RetryPolicyFromConfig(cfg config.DispatchConfig) RetryPolicy {
	return RetryPolicy{
		InitialInterval:     cfg.RetryInitialInterval,
		MaxInterval:         cfg.RetryMaxInterval,
		Multiplier:          backoff.DefaultMultiplier,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
	}
}

// permanent marks err as not retryable.
func permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

func (p RetryPolicy) schedule(retries int) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	if p.Multiplier > 0 {
		b.Multiplier = p.Multiplier
	}
	b.RandomizationFactor = p.RandomizationFactor
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(max(retries, 0)))
}

// Do runs op until it succeeds, returns a permanent error, the retries are
// used up, or the next wait would cross ctx's deadline. It returns the
// number of attempts made and the last error, unwrapped. onRetry, when not
// nil, is called before each wait.
func (p RetryPolicy) Do(ctx context.Context, retries int, op func(attempt int) error, onRetry func(attempt int, wait time.Duration, err error)) (int, error) {
	b := p.schedule(retries)

	for attempt := 1; ; attempt++ {
		err := op(attempt)
		if err == nil {
			return attempt, nil
		}

		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return attempt, perm.Unwrap()
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return attempt, err
		}
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= wait {
			return attempt, err
		}
		if ctx.Err() != nil {
			return attempt, err
		}

		if onRetry != nil {
			onRetry(attempt, wait, err)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, err
		case <-timer.C:
		}
	}
}
