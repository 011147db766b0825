package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusError struct {
	status int
}

func (e *statusError) Error() string   { return fmt.Sprintf("status %d", e.status) }
func (e *statusError) StatusCode() int { return e.status }

type temporaryError struct{}

func (temporaryError) Error() string   { return "connection reset" }
func (temporaryError) Temporary() bool { return true }

func TestIsRetriable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&statusError{429}, true},
		{&statusError{500}, true},
		{&statusError{502}, true},
		{&statusError{503}, true},
		{&statusError{504}, true},
		{&statusError{400}, false},
		{&statusError{401}, false},
		{&statusError{501}, false},
		{fmt.Errorf("wrapped: %w", &statusError{503}), true},
		{temporaryError{}, true},
		{errors.New("plain"), false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, IsRetriable(tc.err), tc.err.Error())
	}
}

func TestDoExhaustsRetriable(t *testing.T) {
	opts := Options{MaxAttempts: 4, BaseDelay: 5 * time.Millisecond, MaxDelay: time.Second}
	var delays []time.Duration
	opts.Notify = func(_ error, _ int, d time.Duration) { delays = append(delays, d) }

	want := &statusError{503}
	calls := 0
	start := time.Now()
	_, err := Do(context.Background(), opts, func(context.Context) (string, error) {
		calls++
		return "", want
	})
	elapsed := time.Since(start)

	assert.Same(t, want, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{5 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond}, delays)
	assert.GreaterOrEqual(t, elapsed, 35*time.Millisecond)
}

func TestDoTerminalShortCircuits(t *testing.T) {
	want := &statusError{400}
	calls := 0
	_, err := Do(context.Background(), Options{MaxAttempts: 5, BaseDelay: time.Millisecond}, func(context.Context) (int, error) {
		calls++
		return 0, want
	})
	assert.Same(t, want, err)
	assert.Equal(t, 1, calls)
}

func TestDoSucceedsAfterRetry(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), Options{MaxAttempts: 3, BaseDelay: time.Millisecond}, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", temporaryError{}
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestDoContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, Options{MaxAttempts: 10, BaseDelay: 50 * time.Millisecond}, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, &statusError{503}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestExponentialCapAndJitter(t *testing.T) {
	e := &exponential{
		base:   time.Second,
		max:    30 * time.Second,
		jitter: time.Second,
		rand:   func() float64 { return 0.5 },
	}
	var got []time.Duration
	for i := 0; i < 7; i++ {
		got = append(got, e.NextBackOff())
	}
	assert.Equal(t, []time.Duration{
		1500 * time.Millisecond,
		2500 * time.Millisecond,
		4500 * time.Millisecond,
		8500 * time.Millisecond,
		16500 * time.Millisecond,
		30 * time.Second,
		30 * time.Second,
	}, got)

	e.Reset()
	assert.Equal(t, 1500*time.Millisecond, e.NextBackOff())
}
