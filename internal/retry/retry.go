package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Options configures exponential backoff for retries.
type Options struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

// Default backoff settings, also used field by field when opts are zero/invalid.
var Default = Options{
	MaxAttempts:  5,
	InitialDelay: 300 * time.Millisecond,
	MaxDelay:     8 * time.Second,
	Multiplier:   2.0,
	Jitter:       true,
}

type IsRetryableFunc func(error) bool

// Func is one attempt; attempt starts at 1.
type Func func(ctx context.Context, attempt int) error

func (o Options) normalize() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = Default.MaxAttempts
	}
	if o.InitialDelay < 0 {
		o.InitialDelay = Default.InitialDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = Default.MaxDelay
	}
	if o.Multiplier < 1 {
		o.Multiplier = Default.Multiplier
	}
	return o
}

// Do executes fn with retries and exponential backoff until it succeeds,
// the error is not retryable, ctx is done, or attempts are exhausted.
// Returns the last error.
func Do(ctx context.Context, opts Options, isRetryable IsRetryableFunc, fn Func) error {
	opts = opts.normalize()
	backoff := opts.InitialDelay
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for attempt := 1; ; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if isRetryable != nil && !isRetryable(err) {
			return err
		}
		if attempt >= opts.MaxAttempts {
			return err
		}

		timer := time.NewTimer(opts.sleep(backoff, rng))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff = opts.next(backoff)
	}
}

// sleep applies +/-20% jitter and the MaxDelay cap.
func (o Options) sleep(backoff time.Duration, rng *rand.Rand) time.Duration {
	d := backoff
	if o.Jitter {
		delta := float64(backoff) * 0.2
		j := (rng.Float64()*2 - 1) * delta
		d = time.Duration(math.Max(0, float64(backoff)+j))
	}
	if d > o.MaxDelay {
		d = o.MaxDelay
	}
	return d
}

// next grows backoff with an overflow guard and cap.
func (o Options) next(backoff time.Duration) time.Duration {
	n := time.Duration(float64(backoff) * o.Multiplier)
	if n < backoff {
		n = backoff
	}
	if n > o.MaxDelay {
		n = o.MaxDelay
	}
	return n
}
