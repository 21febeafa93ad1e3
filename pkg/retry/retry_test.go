package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(maxAttempts int) Policy {
	return Policy{
		Backoff:     BackoffConfig{Initial: time.Millisecond, Max: 5 * time.Millisecond},
		MaxAttempts: maxAttempts,
	}
}

func TestDoSucceedsAfterFailures(t *testing.T) {
	var attempts []int
	err := Do(context.Background(), fastPolicy(0), func(_ context.Context, attempt int) error {
		attempts = append(attempts, attempt)
		if attempt < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestDoExhaustsAttempts(t *testing.T) {
	errBusy := errors.New("busy")
	calls := 0

	err := Do(context.Background(), fastPolicy(4), func(context.Context, int) error {
		calls++
		return errBusy
	})

	assert.Equal(t, 4, calls)
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.ErrorIs(t, err, errBusy)
}

func TestDoStopsOnPermanent(t *testing.T) {
	errFatal := errors.New("fatal")
	calls := 0

	err := Do(context.Background(), fastPolicy(10), func(context.Context, int) error {
		calls++
		return Permanent(errFatal)
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, errFatal, err)
	assert.False(t, IsPermanent(err), "Do unwraps permanent errors")
}

func TestDoHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := Do(ctx, fastPolicy(0), func(context.Context, int) error {
		return errors.New("never")
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDoCancelledBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := Do(ctx, fastPolicy(0), func(context.Context, int) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestPermanentNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
	assert.True(t, IsPermanent(Permanent(errors.New("x"))))
}

func TestPoll(t *testing.T) {
	t.Run("done", func(t *testing.T) {
		checks := 0
		err := Poll(context.Background(), fastPolicy(0), func(context.Context) (bool, error) {
			checks++
			return checks == 3, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, checks)
	})

	t.Run("check error ends polling", func(t *testing.T) {
		errQuery := errors.New("query failed")
		checks := 0
		err := Poll(context.Background(), fastPolicy(0), func(context.Context) (bool, error) {
			checks++
			return false, errQuery
		})
		assert.Equal(t, errQuery, err)
		assert.Equal(t, 1, checks)
	})

	t.Run("attempts exhausted", func(t *testing.T) {
		err := Poll(context.Background(), fastPolicy(2), func(context.Context) (bool, error) {
			return false, nil
		})
		assert.ErrorIs(t, err, ErrAttemptsExhausted)
	})
}
