// Package retry runs fallible operations with exponential backoff, jitter and a delay cap.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Defaults used by the OEM API caller.
const (
	DefaultMaxAttempts = 6
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 30 * time.Second
	DefaultJitter      = time.Second
)

// Options tunes Do.
type Options struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Jitter bounds the uniform random delay added to every sleep.
	Jitter time.Duration
	// Notify is called before each sleep with the error that caused it.
	Notify func(err error, attempt int, delay time.Duration)
	// Rand returns a value in [0, 1). Defaults to math/rand.
	Rand func() float64
}

// DefaultOptions returns the gateway defaults.
func DefaultOptions() Options {
	return Options{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		Jitter:      DefaultJitter,
	}
}

var retriableStatus = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// RetriableStatus reports whether an HTTP status is worth another attempt.
func RetriableStatus(status int) bool {
	return retriableStatus[status]
}

// IsRetriable classifies err. Errors carrying a StatusCode in {429, 500, 502,
// 503, 504} are retriable, as are errors reporting Temporary() == true.
// Everything else is terminal.
func IsRetriable(err error) bool {
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return RetriableStatus(sc.StatusCode())
	}
	var tmp interface{ Temporary() bool }
	if errors.As(err, &tmp) {
		return tmp.Temporary()
	}
	return false
}

// Do invokes op up to opts.MaxAttempts times. Terminal errors are returned
// immediately; after the last retriable failure its error is returned unwrapped.
func Do[T any](ctx context.Context, opts Options, op func(ctx context.Context) (T, error)) (T, error) {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	policy := &exponential{
		base:   opts.BaseDelay,
		max:    opts.MaxDelay,
		jitter: opts.Jitter,
		rand:   opts.Rand,
	}
	if policy.rand == nil {
		policy.rand = rand.Float64
	}
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(opts.MaxAttempts-1)), ctx)

	attempt := 0
	operation := func() (T, error) {
		attempt++
		res, err := op(ctx)
		if err != nil && !IsRetriable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}
	notify := func(err error, d time.Duration) {
		if opts.Notify != nil {
			opts.Notify(err, attempt, d)
		}
	}
	return backoff.RetryNotifyWithData(operation, b, notify)
}

// exponential yields min(max, base*2^n + U[0, jitter)) for the n-th retry.
type exponential struct {
	base   time.Duration
	max    time.Duration
	jitter time.Duration
	rand   func() float64
	n      int
}

func (e *exponential) NextBackOff() time.Duration {
	d := e.base
	for i := 0; i < e.n && (e.max <= 0 || d < e.max); i++ {
		d *= 2
	}
	e.n++
	if e.jitter > 0 {
		d += time.Duration(e.rand() * float64(e.jitter))
	}
	if e.max > 0 && d > e.max {
		d = e.max
	}
	return d
}

func (e *exponential) Reset() {
	e.n = 0
}
