// Package retry runs a step a bounded number of times with a fixed or growing delay.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Policy describes how a step is retried. A nil Retryable retries every error.
type Policy struct {
	Name      string
	Attempts  int
	Delay     time.Duration
	MaxDelay  time.Duration
	Backoff   bool
	Retryable func(error) bool
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return e.Err.Error()
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

func (p Policy) newBackOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff
	if p.Backoff {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = p.Delay
		if p.MaxDelay > 0 {
			eb.MaxInterval = p.MaxDelay
		}
		eb.MaxElapsedTime = 0
		b = eb
	} else {
		b = backoff.NewConstantBackOff(p.Delay)
	}
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Do calls op until it succeeds, returns a non-retryable error, the context ends or the
// attempts run out. op receives the 1-based attempt number. Exhaustion is reported as
// *ExhaustedError wrapping the last error; non-retryable errors are returned unchanged.
func Do(ctx context.Context, p Policy, op func(attempt int) error) error {
	attempt := 0
	var last error
	err := backoff.RetryNotify(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attempt++
		err := op(attempt)
		if err == nil {
			return nil
		}
		last = err
		if p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, p.newBackOff(ctx), func(err error, wait time.Duration) {
		logrus.WithFields(logrus.Fields{
			"step":    p.Name,
			"attempt": attempt,
			"wait":    wait.String(),
		}).Warnf("retrying after error: %v", err)
	})
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return err
	}
	if last != nil && (p.Retryable == nil || p.Retryable(last)) {
		return &ExhaustedError{Attempts: attempt, Err: last}
	}
	return err
}
