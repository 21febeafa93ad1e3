package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrAttemptsExhausted is returned when MaxAttempts calls all failed.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Policy bounds a retry loop.
type Policy struct {
	// Backoff configures the delay between attempts.
	Backoff BackoffConfig `yaml:"backoff"`

	// MaxAttempts caps the number of calls (0 = unlimited; ctx must end
	// the loop).
	MaxAttempts int `yaml:"max_attempts"`
}

// DefaultPolicy returns a policy with default backoff and no attempt cap.
func DefaultPolicy() Policy {
	return Policy{Backoff: DefaultBackoffConfig()}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error
// immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do calls fn until it returns nil, returns a Permanent error, the policy's
// attempts are exhausted or ctx is done. The attempt number passed to fn
// starts at 1.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context, attempt int) error) error {
	backoff := NewBackoffWithConfig(policy.Backoff)

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return err
		}

		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		var p *permanentError
		if errors.As(err, &p) {
			return p.err
		}
		lastErr = err

		if policy.MaxAttempts > 0 && attempt >= policy.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempt, lastErr)
		}

		timer := time.NewTimer(backoff.Next())
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
		case <-timer.C:
		}
	}
}

// Poll calls check until it reports done, returns an error, or ctx ends.
// Errors from check are returned unchanged and end polling.
func Poll(ctx context.Context, policy Policy, check func(ctx context.Context) (bool, error)) error {
	errNotYet := errors.New("condition not met")
	err := Do(ctx, policy, func(ctx context.Context, _ int) error {
		done, err := check(ctx)
		if err != nil {
			return Permanent(err)
		}
		if !done {
			return errNotYet
		}
		return nil
	})
	return err
}
