// Package persona draws opaque conditioning records from an external persona
// dataset. Persona availability is best-effort: callers must treat a draw as
// optional context, never a required input.
package persona

import (
	"context"
	"encoding/json"
	"sync"
)

// Record is one persona: an opaque attribute map passed into prompts as-is.
type Record map[string]any

// JSON renders the record as compact JSON for prompt embedding.
func (r Record) JSON() string {
	b, err := json.Marshal(r)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Stream yields persona records until exhaustion or error.
type Stream interface {
	Next(ctx context.Context) (Record, error)
}

// Source opens a fresh persona stream.
type Source interface {
	Open(ctx context.Context) (Stream, error)
}

// Feed pulls personas one at a time from a Source. The underlying stream is
// lazily opened on first use. On exhaustion or error the feed reopens the
// source exactly once and retries one pull; if that also fails it reports
// absence rather than an error. Draws are serialized: Feed is the single
// owner of the mutable stream state.
type Feed struct {
	source Source

	mu     sync.Mutex
	stream Stream
}

// NewFeed creates a Feed over the given source.
func NewFeed(source Source) *Feed {
	return &Feed{source: source}
}

// Next returns the next persona, or ok=false when none is available.
// It never returns an error: unavailability is a defined absent state.
func (f *Feed) Next(ctx context.Context) (Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stream == nil {
		s, err := f.source.Open(ctx)
		if err != nil {
			return nil, false
		}
		f.stream = s
	}

	rec, err := f.stream.Next(ctx)
	if err == nil {
		return rec, true
	}

	// One reinitialization, one more pull.
	s, err := f.source.Open(ctx)
	if err != nil {
		f.stream = nil
		return nil, false
	}
	f.stream = s

	rec, err = f.stream.Next(ctx)
	if err != nil {
		return nil, false
	}
	return rec, true
}
