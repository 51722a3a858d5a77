package consult

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/kalambet/ideaforge/internal/llm"
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

type passthroughExtractor struct{}

func (passthroughExtractor) ExtractOrRepair(_ context.Context, _ string, raw string) (map[string]any, error) {
	return structured.Extract(raw)
}

// stageReply routes on distinctive system-prompt fragments.
func stageReply(system string) string {
	switch {
	case strings.Contains(system, "problem framing"):
		return `{"key_question": "how to reach first revenue?", "top_hypotheses": ["h1"]}`
	case strings.Contains(system, "engagement manager"):
		return `{"workstreams": [], "critical_path": ["validate buyer"]}`
	case strings.Contains(system, "market analyst"):
		return `{"icp": "ops managers"}`
	case strings.Contains(system, "unit economics operator"):
		return `{"pricing_model": "retainer"}`
	case strings.Contains(system, "competitive strategist"):
		return `{"differentiation": "niche focus"}`
	case strings.Contains(system, "ops lead"):
		return `{"mvp_scope": "manual service"}`
	case strings.Contains(system, "implementation lead"):
		return `{"metrics": ["first invoice"]}`
	case strings.Contains(system, "the partner"):
		return `{"executive_summary": "do the boring thing", "claims": [], "assumptions": []}`
	case strings.Contains(system, "auditor"):
		return `{"blocking_issues": [], "fixes": [], "severity": "low"}`
	default:
		return `{}`
	}
}

func TestPipeline_RunAllStages(t *testing.T) {
	caller := &mockCaller{callFn: func(_ context.Context, req llm.Request) (string, error) {
		return stageReply(req.System), nil
	}}
	p := NewPipeline(caller, passthroughExtractor{}, "test/model")

	c, err := p.Run(context.Background(), "case_01", Input{Query: "boring B2B ideas"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(c.State.Brief, "USER_QUERY:\nboring B2B ideas") {
		t.Error("brief missing query")
	}
	if c.State.Framing["key_question"] != "how to reach first revenue?" {
		t.Errorf("framing = %v", c.State.Framing)
	}
	if len(c.State.PodOutputs) != 5 {
		t.Errorf("pods = %d, want 5", len(c.State.PodOutputs))
	}
	if c.State.PodOutputs["market"]["icp"] != "ops managers" {
		t.Errorf("market pod = %v", c.State.PodOutputs["market"])
	}
	if len(c.State.QAReports) != 4 {
		t.Errorf("qa reports = %d, want 4", len(c.State.QAReports))
	}
	for _, rep := range c.State.QAReports {
		if rep["check"] == "" || rep["check"] == nil {
			t.Errorf("qa report missing check tag: %v", rep)
		}
	}
	if len(c.State.Deliverables.DeckOutline.Slides) != 10 {
		t.Errorf("slides = %d, want 10", len(c.State.Deliverables.DeckOutline.Slides))
	}
	if !strings.Contains(c.State.Deliverables.MermaidRunFlow, "flowchart TD") {
		t.Error("run flow diagram missing")
	}

	// 1 framing + 1 workplan + 5 pods + 1 synthesis + 4 QA = 12 calls.
	if len(caller.reqs) != 12 {
		t.Errorf("calls = %d, want 12", len(caller.reqs))
	}
}

func TestPipeline_StageOrderIsSequential(t *testing.T) {
	caller := &mockCaller{callFn: func(_ context.Context, req llm.Request) (string, error) {
		return stageReply(req.System), nil
	}}
	p := NewPipeline(caller, passthroughExtractor{}, "m")

	if _, err := p.Run(context.Background(), "case_02", Input{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The workplan call must embed the framing output, proving it ran after.
	workplanReq := caller.reqs[1]
	if !strings.Contains(workplanReq.User, "how to reach first revenue?") {
		t.Error("workplan stage does not consume framing output")
	}

	// Synthesis (call index 7) must embed pod outputs.
	synthesisReq := caller.reqs[7]
	if !strings.Contains(synthesisReq.User, "ops managers") {
		t.Error("synthesis stage does not consume pod outputs")
	}
}

func TestPipeline_StageFailureAborts(t *testing.T) {
	caller := &mockCaller{callFn: func(_ context.Context, req llm.Request) (string, error) {
		if strings.Contains(req.System, "engagement manager") {
			return "", errors.New("workplan model down")
		}
		return stageReply(req.System), nil
	}}
	p := NewPipeline(caller, passthroughExtractor{}, "m")

	_, err := p.Run(context.Background(), "case_03", Input{})
	if err == nil {
		t.Fatal("expected stage failure to abort the case")
	}
	if !strings.Contains(err.Error(), "workplan") {
		t.Errorf("err = %v, want workplan stage named", err)
	}
	if len(caller.reqs) != 2 {
		t.Errorf("calls = %d, want stop after failed stage", len(caller.reqs))
	}
}

func TestPipeline_QATemperatureIsCold(t *testing.T) {
	caller := &mockCaller{callFn: func(_ context.Context, req llm.Request) (string, error) {
		return stageReply(req.System), nil
	}}
	p := NewPipeline(caller, passthroughExtractor{}, "m")

	if _, err := p.Run(context.Background(), "case_04", Input{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, req := range caller.reqs {
		if strings.Contains(req.System, "auditor") && req.Temperature != 0.2 {
			t.Errorf("qa temperature = %g, want 0.2", req.Temperature)
		}
	}
}
