package swarm

import (
	"context"
	"fmt"

	"github.com/kalambet/ideaforge/internal/llm"
	"github.com/kalambet/ideaforge/internal/persona"
	"github.com/kalambet/ideaforge/internal/structured"
)

// Caller abstracts the resilient call wrapper.
type Caller interface {
	Call(ctx context.Context, req llm.Request) (string, error)
}

// Extractor abstracts JSON extraction with repair.
type Extractor interface {
	ExtractOrRepair(ctx context.Context, model, raw string) (map[string]any, error)
}

const workerSystemPrompt = `You are a pragmatic, highly analytical entrepreneur.

Generate ONE highly specialised, innovative but realistic business idea for the user.

Process deeply (but output only JSON):
- Why this would realistically work
- Whether demand is strong and identifiable
- Operational feasibility
- Competitive landscape
- Basic economic viability
- What problem it solves, and for whom

Focus on:
- Boring but profitable businesses (import/export, niche manufacturing, supply chain arbitrage, B2B services, regulatory gaps, product adaptation).
- Cross-industry transfer of an existing solution to solve a specific problem.
- Underserved niches.
- Buildable within 12-36 months.
- Extremely specific ideas.

Avoid:
- Generic SaaS dashboards
- Vague AI platforms
- Overly speculative moonshots

Output STRICT JSON ONLY (no markdown, no extra keys):

{
  "name": "string",
  "target_customer": "string",
  "what_it_is": "string",
  "how_it_makes_money": "string",
  "operating_steps": ["string", "string", "string"],
  "why_it_works": "string",
  "demand_signal": "string",
  "competitive_landscape": "string",
  "feasibility_notes": "string",
  "unit_econ_sketch": "string",
  "risks": ["string", "string"],
  "tags": ["string", "string"]
}`

// Worker produces exactly one structured idea candidate per invocation,
// conditioned on the shared brief and an optional persona fixed at
// construction time.
type Worker struct {
	ID      string
	Persona persona.Record
	Model   string

	caller    Caller
	extractor Extractor
}

// NewWorker creates a Worker with a fixed identity, persona, and model.
// A nil persona means persona conditioning was unavailable for this worker.
func NewWorker(id string, p persona.Record, model string, caller Caller, extractor Extractor) *Worker {
	return &Worker{ID: id, Persona: p, Model: model, caller: caller, extractor: extractor}
}

// GenerateOne invokes the model once and maps the output into an Idea with
// defensive coercion: missing name falls back to a placeholder derived from
// the idea's own id, and every list field coerces scalars/null safely.
// Failures (exhausted calls, unparseable output) propagate; the supervisor
// contains them per-worker.
func (w *Worker) GenerateOne(ctx context.Context, brief string) (Idea, error) {
	personaText := "(persona unavailable)"
	if w.Persona != nil {
		personaText = w.Persona.JSON()
	}

	user := fmt.Sprintf(
		"USER_PROFILE_AND_BRIEF:\n%s\n\nPERSONA (sampled from the persona dataset):\n%s\n\nGenerate ONE idea. Output STRICT JSON only.",
		brief, personaText,
	)

	raw, err := w.caller.Call(ctx, llm.Request{
		Model:           w.Model,
		System:          workerSystemPrompt,
		User:            user,
		Temperature:     1.0,
		ReasoningEffort: "high",
	})
	if err != nil {
		return Idea{}, fmt.Errorf("worker %s: %w", w.ID, err)
	}

	data, err := w.extractor.ExtractOrRepair(ctx, w.Model, raw)
	if err != nil {
		return Idea{}, fmt.Errorf("worker %s: %w", w.ID, err)
	}

	id := newID("idea")
	name := structured.Str(data, "name")
	if name == "" {
		name = "Idea " + id
	}

	return Idea{
		ID:                   id,
		Name:                 name,
		TargetCustomer:       structured.Str(data, "target_customer"),
		WhatItIs:             structured.Str(data, "what_it_is"),
		HowItMakesMoney:      structured.Str(data, "how_it_makes_money"),
		OperatingSteps:       structured.StringList(data, "operating_steps"),
		WhyItWorks:           structured.Str(data, "why_it_works"),
		DemandSignal:         structured.Str(data, "demand_signal"),
		CompetitiveLandscape: structured.Str(data, "competitive_landscape"),
		FeasibilityNotes:     structured.Str(data, "feasibility_notes"),
		UnitEconSketch:       structured.Str(data, "unit_econ_sketch"),
		Risks:                structured.StringList(data, "risks"),
		Tags:                 structured.StringList(data, "tags"),
		Persona:              w.Persona,
		WorkerID:             w.ID,
		Model:                w.Model,
		Raw:                  raw,
	}, nil
}
