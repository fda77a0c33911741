package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, WithBaseWait(time.Millisecond))
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDoExhaustsBudget(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return boom
	}, WithMaxRetries(2), WithBaseWait(time.Millisecond))
	require.ErrorIs(t, err, boom)
	require.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	boom := errors.New("bad request")
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return MarkPermanent(boom)
	}, WithBaseWait(time.Millisecond))
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, func() error {
		return errors.New("transient")
	}, WithBaseWait(time.Minute))
	require.ErrorIs(t, err, context.Canceled)
}

func TestIsPermanent(t *testing.T) {
	require.False(t, IsPermanent(errors.New("x")))
	require.True(t, IsPermanent(MarkPermanent(errors.New("x"))))
	require.Nil(t, MarkPermanent(nil))
}
