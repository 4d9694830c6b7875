package update

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeClockRetrier(policy RetryPolicy) (*Retrier, *[]time.Duration) {
	r := NewRetrier(policy, zerolog.Nop())
	delays := &[]time.Duration{}
	r.sleep = func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return r, delays
}

func TestRetrierDelaySequence(t *testing.T) {
	r, delays := newFakeClockRetrier(DefaultRetryPolicy())

	attempts := 0
	err := r.Do(context.Background(), "op", func(ctx context.Context) error {
		attempts++
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, *delays)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestRetrierSucceedsMidway(t *testing.T) {
	r, delays := newFakeClockRetrier(DefaultRetryPolicy())

	attempts := 0
	err := r.Do(context.Background(), "op", func(ctx context.Context) error {
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []time.Duration{5 * time.Second}, *delays)
}

func TestRetrierNoSleepAfterFirstSuccess(t *testing.T) {
	r, delays := newFakeClockRetrier(DefaultRetryPolicy())

	err := r.Do(context.Background(), "op", func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	assert.Empty(t, *delays)
}

func TestRetrierStopsOnContextCancel(t *testing.T) {
	r, _ := newFakeClockRetrier(DefaultRetryPolicy())
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := r.Do(ctx, "op", func(ctx context.Context) error {
		attempts++
		cancel()
		return errors.New("boom")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestRetrierWrapsLastError(t *testing.T) {
	r, _ := newFakeClockRetrier(RetryPolicy{MaxAttempts: 2, BaseDelay: time.Second})

	sentinel := errors.New("final failure")
	err := r.Do(context.Background(), "op", func(ctx context.Context) error { return sentinel })
	require.ErrorIs(t, err, sentinel)
}
