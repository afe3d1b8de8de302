package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fakeSleep(calls *int) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*calls++
		return nil
	}
}

func TestUntilStopsWhenDone(t *testing.T) {
	sleeps := 0
	p := Policy{MaxAttempts: 5, Delay: time.Second, Sleep: fakeSleep(&sleeps)}

	attempts := 0
	err := p.Until(context.Background(), func(ctx context.Context) (bool, error) {
		attempts++
		return attempts == 3, nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, attempts)
	require.Equal(t, 2, sleeps)
}

func TestUntilExhaustsBudgetWithoutError(t *testing.T) {
	sleeps := 0
	p := Policy{MaxAttempts: 4, Delay: time.Second, Sleep: fakeSleep(&sleeps)}

	attempts := 0
	err := p.Until(context.Background(), func(ctx context.Context) (bool, error) {
		attempts++
		return false, nil
	})

	require.NoError(t, err)
	require.Equal(t, 4, attempts)
	require.Equal(t, 3, sleeps)
}

func TestUntilPropagatesHardFailure(t *testing.T) {
	sleeps := 0
	p := Policy{MaxAttempts: 4, Delay: time.Second, Sleep: fakeSleep(&sleeps)}

	boom := errors.New("boom")
	attempts := 0
	err := p.Until(context.Background(), func(ctx context.Context) (bool, error) {
		attempts++
		return false, boom
	})

	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, attempts)
	require.Zero(t, sleeps)
}

func TestUntilStopsOnCancelledContext(t *testing.T) {
	p := Policy{MaxAttempts: 3, Delay: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := p.Until(ctx, func(ctx context.Context) (bool, error) {
		attempts++
		cancel()
		return false, nil
	})

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, attempts)
}
