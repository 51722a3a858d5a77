package swarm

import (
	"context"
	"sync"

	"github.com/kalambet/ideaforge/internal/llm"
	"github.com/kalambet/ideaforge/internal/persona"
	"github.com/kalambet/ideaforge/internal/structured"
)

type mockCaller struct {
	mu     sync.Mutex
	callFn func(ctx context.Context, req llm.Request) (string, error)
	reqs   []llm.Request
}

func (m *mockCaller) Call(ctx context.Context, req llm.Request) (string, error) {
	m.mu.Lock()
	m.reqs = append(m.reqs, req)
	m.mu.Unlock()
	return m.callFn(ctx, req)
}

func (m *mockCaller) requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Request(nil), m.reqs...)
}

// passthroughExtractor parses without any repair call, which is enough for
// tests that feed well-formed JSON.
type passthroughExtractor struct{}

func (passthroughExtractor) ExtractOrRepair(_ context.Context, _ string, raw string) (map[string]any, error) {
	return structured.Extract(raw)
}

type stubFeed struct {
	mu      sync.Mutex
	records []persona.Record
}

func (f *stubFeed) Next(context.Context) (persona.Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.records) == 0 {
		return nil, false
	}
	rec := f.records[0]
	f.records = f.records[1:]
	return rec, true
}
