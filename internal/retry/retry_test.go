package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsAfterFailures(t *testing.T) {
	calls := 0
	op := func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}

	p := Policy{MaxAttempts: 5, InitialBackoff: time.Millisecond}
	require.NoError(t, Do(context.Background(), p, op))
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	op := func(ctx context.Context) error {
		calls++
		return boom
	}

	var retries []int
	p := Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			retries = append(retries, attempt)
		},
	}
	err := Do(context.Background(), p, op)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
	// The final attempt fails outright without an OnRetry callback.
	assert.Equal(t, []int{1, 2}, retries)
}

func TestDoStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	op := func(ctx context.Context) error {
		cancel()
		return errors.New("transient")
	}

	p := Policy{MaxAttempts: 10, InitialBackoff: time.Hour}
	err := Do(ctx, p, op)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoCapsBackoff(t *testing.T) {
	var observed []time.Duration
	calls := 0
	op := func(ctx context.Context) error {
		calls++
		return errors.New("transient")
	}

	p := Policy{
		MaxAttempts:    5,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			observed = append(observed, backoff)
		},
	}
	_ = Do(context.Background(), p, op)

	require.NotEmpty(t, observed)
	for _, d := range observed {
		assert.LessOrEqual(t, d, 2*time.Millisecond)
	}
}
