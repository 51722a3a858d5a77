package swarm

import (
	"context"
	"strings"
	"testing"

	"github.com/kalambet/ideaforge/internal/llm"
	"github.com/kalambet/ideaforge/internal/persona"
)

func testIdea() Idea {
	return Idea{
		ID:             "idea_abc123",
		Name:           "Hay Broker",
		TargetCustomer: "Farmers",
		WhatItIs:       "hay brokerage",
		Persona:        persona.Record{"secret": "should not leak"},
		Model:          "provenance/model",
		Raw:            "RAW COMPLETION SHOULD NOT LEAK",
	}
}

func TestCritic_CritiqueMapsAndNormalizes(t *testing.T) {
	caller := &mockCaller{callFn: func(_ context.Context, req llm.Request) (string, error) {
		return `{"score": 15, "verdict": "ADVANCE", "summary": "solid", "fatal_flags": [], "improvements": "tighten pricing", "assumptions_to_validate": ["hay demand"]}`, nil
	}}
	c := NewCritic("Pricing", "You are a pricing critic.", "test/model", caller, passthroughExtractor{})

	crit, err := c.Critique(context.Background(), "brief", testIdea())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if crit.Score != 10.0 {
		t.Errorf("Score = %g, want clamped to 10", crit.Score)
	}
	if crit.Verdict != VerdictAdvance {
		t.Errorf("Verdict = %q, want advance", crit.Verdict)
	}
	if crit.IdeaID != "idea_abc123" {
		t.Errorf("IdeaID = %q", crit.IdeaID)
	}
	if crit.CriticName != "Pricing" {
		t.Errorf("CriticName = %q", crit.CriticName)
	}
	if len(crit.Improvements) != 1 {
		t.Errorf("Improvements = %v, want scalar wrapped", crit.Improvements)
	}
	if !strings.HasPrefix(crit.ID, "crit_") {
		t.Errorf("ID = %q", crit.ID)
	}
}

func TestCritic_PromptExcludesProvenance(t *testing.T) {
	caller := &mockCaller{callFn: func(context.Context, llm.Request) (string, error) {
		return `{"score": 5, "verdict": "revise"}`, nil
	}}
	c := NewCritic("Lens", "system", "m", caller, passthroughExtractor{})

	if _, err := c.Critique(context.Background(), "THE BRIEF", testIdea()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := caller.requests()[0]
	if strings.Contains(req.User, "RAW COMPLETION") {
		t.Error("user message leaks the idea's raw completion")
	}
	if strings.Contains(req.User, "provenance/model") {
		t.Error("user message leaks the idea's model provenance")
	}
	if strings.Contains(req.User, "should not leak") {
		t.Error("user message leaks the idea's persona")
	}
	if !strings.Contains(req.User, "THE BRIEF") {
		t.Error("user message missing the brief")
	}
	if !strings.Contains(req.User, `"idea_id":"idea_abc123"`) {
		t.Error("user message missing the idea payload")
	}
}

func TestCritic_RunsCoolerThanGeneration(t *testing.T) {
	caller := &mockCaller{callFn: func(context.Context, llm.Request) (string, error) {
		return `{"score": 5, "verdict": "revise"}`, nil
	}}
	c := NewCritic("Lens", "system", "m", caller, passthroughExtractor{})

	if _, err := c.Critique(context.Background(), "brief", testIdea()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := caller.requests()[0]
	if req.Temperature != 0.6 {
		t.Errorf("temperature = %g, want 0.6", req.Temperature)
	}
	if req.ReasoningEffort != "" {
		t.Errorf("reasoning effort = %q, want none for critique", req.ReasoningEffort)
	}
}

func TestCritic_UnparseableVerdictAndScoreDefault(t *testing.T) {
	caller := &mockCaller{callFn: func(context.Context, llm.Request) (string, error) {
		return `{"score": "seven", "verdict": "strong maybe"}`, nil
	}}
	c := NewCritic("Lens", "system", "m", caller, passthroughExtractor{})

	crit, err := c.Critique(context.Background(), "brief", testIdea())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if crit.Score != 0.0 {
		t.Errorf("Score = %g, want 0.0 on parse failure", crit.Score)
	}
	if crit.Verdict != VerdictRevise {
		t.Errorf("Verdict = %q, want revise default", crit.Verdict)
	}
}
