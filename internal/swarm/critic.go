package swarm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kalambet/ideaforge/internal/llm"
	"github.com/kalambet/ideaforge/internal/structured"
)

const critiqueSchema = `Return STRICT JSON ONLY (no markdown, no extra keys):

{
  "score": 0-10,
  "verdict": "advance" | "revise" | "archive",
  "summary": "string",
  "fatal_flags": ["string"],
  "improvements": ["string", "string", "string"],
  "assumptions_to_validate": ["string", "string", "string"]
}

Rules:
- fatal_flags are issues that must be fixed, otherwise archive.
- Be conservative and grounded.`

// Critic produces exactly one structured critique of one idea through a fixed
// lens-specific system instruction.
type Critic struct {
	Name         string
	SystemPrompt string
	Model        string

	caller    Caller
	extractor Extractor
}

// NewCritic creates a Critic with a fixed lens and model.
func NewCritic(name, systemPrompt, model string, caller Caller, extractor Extractor) *Critic {
	return &Critic{Name: name, SystemPrompt: systemPrompt, Model: model, caller: caller, extractor: extractor}
}

// ideaPromptView is the idea as critics see it: public fields only, no raw
// completion, model, or persona provenance.
type ideaPromptView struct {
	IdeaID               string   `json:"idea_id"`
	Name                 string   `json:"name"`
	TargetCustomer       string   `json:"target_customer"`
	WhatItIs             string   `json:"what_it_is"`
	HowItMakesMoney      string   `json:"how_it_makes_money"`
	OperatingSteps       []string `json:"operating_steps"`
	WhyItWorks           string   `json:"why_it_works"`
	DemandSignal         string   `json:"demand_signal"`
	CompetitiveLandscape string   `json:"competitive_landscape"`
	FeasibilityNotes     string   `json:"feasibility_notes"`
	UnitEconSketch       string   `json:"unit_econ_sketch"`
	Risks                []string `json:"risks"`
	Tags                 []string `json:"tags"`
}

func promptView(idea Idea) ideaPromptView {
	return ideaPromptView{
		IdeaID:               idea.ID,
		Name:                 idea.Name,
		TargetCustomer:       idea.TargetCustomer,
		WhatItIs:             idea.WhatItIs,
		HowItMakesMoney:      idea.HowItMakesMoney,
		OperatingSteps:       idea.OperatingSteps,
		WhyItWorks:           idea.WhyItWorks,
		DemandSignal:         idea.DemandSignal,
		CompetitiveLandscape: idea.CompetitiveLandscape,
		FeasibilityNotes:     idea.FeasibilityNotes,
		UnitEconSketch:       idea.UnitEconSketch,
		Risks:                idea.Risks,
		Tags:                 idea.Tags,
	}
}

// Critique assesses one idea against the brief. Critique runs at a lower
// temperature than generation; scores clamp into [0,10] and verdicts
// normalize to the closed enumeration.
func (c *Critic) Critique(ctx context.Context, brief string, idea Idea) (Critique, error) {
	ideaJSON, err := json.Marshal(promptView(idea))
	if err != nil {
		return Critique{}, fmt.Errorf("critic %s: serializing idea: %w", c.Name, err)
	}

	user := fmt.Sprintf(
		"USER_PROFILE_AND_BRIEF:\n%s\n\nIDEA (JSON):\n%s\n\n%s",
		brief, ideaJSON, critiqueSchema,
	)

	raw, err := c.caller.Call(ctx, llm.Request{
		Model:       c.Model,
		System:      c.SystemPrompt,
		User:        user,
		Temperature: 0.6,
	})
	if err != nil {
		return Critique{}, fmt.Errorf("critic %s: %w", c.Name, err)
	}

	data, err := c.extractor.ExtractOrRepair(ctx, c.Model, raw)
	if err != nil {
		return Critique{}, fmt.Errorf("critic %s: %w", c.Name, err)
	}

	return Critique{
		ID:                    newID("crit"),
		IdeaID:                idea.ID,
		CriticName:            c.Name,
		Score:                 clampScore(data, "score"),
		Verdict:               normalizeVerdict(structured.Str(data, "verdict")),
		Summary:               structured.Str(data, "summary"),
		FatalFlags:            structured.StringList(data, "fatal_flags"),
		Improvements:          structured.StringList(data, "improvements"),
		AssumptionsToValidate: structured.StringList(data, "assumptions_to_validate"),
		Model:                 c.Model,
		Raw:                   raw,
	}, nil
}
