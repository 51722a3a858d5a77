package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"
)

type mockCompleter struct {
	completeFn func(ctx context.Context, req Request) (string, error)
}

func (m *mockCompleter) Complete(ctx context.Context, req Request) (string, error) {
	return m.completeFn(ctx, req)
}

// newTestCaller returns a Caller whose sleeps are recorded instead of executed.
func newTestCaller(client Completer, slept *[]time.Duration) *Caller {
	c := NewCaller(client, 7)
	c.sleep = func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
	return c
}

func TestCaller_SucceedsAfterTwoFailures(t *testing.T) {
	calls := 0
	client := &mockCompleter{
		completeFn: func(_ context.Context, _ Request) (string, error) {
			calls++
			if calls < 3 {
				return "", fmt.Errorf("transient failure %d", calls)
			}
			return "third time lucky", nil
		},
	}

	var slept []time.Duration
	c := newTestCaller(client, &slept)

	out, err := c.Call(context.Background(), Request{Model: "m", MaxAttempts: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "third time lucky" {
		t.Errorf("out = %q, want third attempt's result", out)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(slept) != 2 {
		t.Errorf("slept %d times, want exactly 2", len(slept))
	}
}

func TestCaller_ExhaustionWrapsLastError(t *testing.T) {
	lastErr := errors.New("boom 3")
	calls := 0
	client := &mockCompleter{
		completeFn: func(_ context.Context, _ Request) (string, error) {
			calls++
			if calls == 3 {
				return "", lastErr
			}
			return "", fmt.Errorf("boom %d", calls)
		},
	}

	var slept []time.Duration
	c := newTestCaller(client, &slept)

	_, err := c.Call(context.Background(), Request{MaxAttempts: 3})
	if err == nil {
		t.Fatal("expected error after exhaustion")
	}

	var exhausted *CallExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error type = %T, want *CallExhaustedError", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", exhausted.Attempts)
	}
	if !errors.Is(err, lastErr) {
		t.Errorf("exhaustion error does not wrap the last underlying error")
	}
}

func TestCaller_BackoffGrowsWithAttempt(t *testing.T) {
	client := &mockCompleter{
		completeFn: func(_ context.Context, _ Request) (string, error) {
			return "", errors.New("always fails")
		},
	}

	var slept []time.Duration
	c := newTestCaller(client, &slept)

	_, err := c.Call(context.Background(), Request{MaxAttempts: 3})
	if err == nil {
		t.Fatal("expected error")
	}

	// Sleep n is base^n plus up to 0.25s of jitter.
	base := defaultBackoffBase
	for i, d := range slept {
		lo := time.Duration(pow(base, i+1) * float64(time.Second))
		hi := lo + 250*time.Millisecond
		if d < lo || d > hi {
			t.Errorf("sleep %d = %v, want in [%v, %v]", i+1, d, lo, hi)
		}
	}
}

func TestCaller_ContextCancelDuringBackoff(t *testing.T) {
	client := &mockCompleter{
		completeFn: func(_ context.Context, _ Request) (string, error) {
			return "", errors.New("always fails")
		},
	}

	c := NewCaller(client, 7)
	c.sleep = func(ctx context.Context, _ time.Duration) error {
		return context.Canceled
	}

	_, err := c.Call(context.Background(), Request{MaxAttempts: 3})
	var exhausted *CallExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error type = %T, want *CallExhaustedError", err)
	}
	if exhausted.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1 (cancelled during first backoff)", exhausted.Attempts)
	}
}

func TestCaller_MaxAttemptsDefaultsAndClamp(t *testing.T) {
	calls := 0
	client := &mockCompleter{
		completeFn: func(_ context.Context, _ Request) (string, error) {
			calls++
			return "", errors.New("nope")
		},
	}

	var slept []time.Duration
	c := newTestCaller(client, &slept).WithMaxAttempts(0)

	if _, err := c.Call(context.Background(), Request{}); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (budget clamped to minimum)", calls)
	}
}

func pow(base float64, exp int) float64 {
	out := 1.0
	for range exp {
		out *= base
	}
	return out
}

// Jitter draws are serialized; this just has to not trip the race detector.
func TestCaller_ConcurrentCalls(t *testing.T) {
	client := &mockCompleter{
		completeFn: func(_ context.Context, _ Request) (string, error) {
			return "", errors.New("fail")
		},
	}
	c := NewCaller(client, rand.Int63())
	c.sleep = func(context.Context, time.Duration) error { return nil }

	done := make(chan struct{})
	for range 8 {
		go func() {
			defer func() { done <- struct{}{} }()
			c.Call(context.Background(), Request{MaxAttempts: 2})
		}()
	}
	for range 8 {
		<-done
	}
	close(done)
}
