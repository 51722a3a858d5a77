package llm

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 1.4
)

// CallExhaustedError is returned when every attempt against the generative
// service failed. It wraps the error from the last attempt.
type CallExhaustedError struct {
	Attempts int
	Err      error
}

func (e *CallExhaustedError) Error() string {
	return fmt.Sprintf("call failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *CallExhaustedError) Unwrap() error { return e.Err }

// Caller wraps a Completer with bounded retry and jittered exponential backoff.
// It holds no mutable call state and is safe for concurrent use.
type Caller struct {
	client      Completer
	maxAttempts int
	backoffBase float64

	mu    sync.Mutex
	rng   *rand.Rand
	sleep func(context.Context, time.Duration) error
}

// NewCaller creates a Caller with the default attempt budget (3) and backoff
// base (1.4). Seed fixes the jitter stream for reproducible runs.
func NewCaller(client Completer, seed int64) *Caller {
	return &Caller{
		client:      client,
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
		rng:         rand.New(rand.NewSource(seed)),
		sleep:       sleepCtx,
	}
}

// WithMaxAttempts overrides the default attempt budget. Values below 1 are
// clamped to 1.
func (c *Caller) WithMaxAttempts(n int) *Caller {
	if n < 1 {
		n = 1
	}
	c.maxAttempts = n
	return c
}

// Call invokes the service, retrying on any error. Attempt n sleeps for
// backoffBase^n + uniform(0, 0.25) seconds before the next try. After the
// attempt budget is spent it returns a CallExhaustedError wrapping the last
// error. All-or-nothing: no partial result is ever returned.
func (c *Caller) Call(ctx context.Context, req Request) (string, error) {
	attempts := req.MaxAttempts
	if attempts < 1 {
		attempts = c.maxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := c.client.Complete(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
			return "", &CallExhaustedError{Attempts: attempt, Err: lastErr}
		}
	}

	return "", &CallExhaustedError{Attempts: attempts, Err: lastErr}
}

func (c *Caller) backoff(attempt int) time.Duration {
	c.mu.Lock()
	jitter := c.rng.Float64() * 0.25
	c.mu.Unlock()

	secs := math.Pow(c.backoffBase, float64(attempt)) + jitter
	return time.Duration(secs * float64(time.Second))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
