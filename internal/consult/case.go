// Package consult implements the linear consulting-style pipeline: intake,
// framing, workplan, analysis pods, synthesis, QA audits, and deliverables.
// Every stage is one resilient model call plus structured extraction; the
// pipeline is strictly sequential.
package consult

import (
	"encoding/json"
	"strings"
)

// Input is the raw case material.
type Input struct {
	Profile    map[string]any `json:"profile"`
	Query      string         `json:"query"`
	SkillsText string         `json:"skills_text"`
	Extra      string         `json:"extra"`
}

// Slide is one deck-outline slide.
type Slide struct {
	Title   string   `json:"title"`
	Bullets []string `json:"bullets"`
}

// DeckOutline is the slide-by-slide deliverable skeleton.
type DeckOutline struct {
	Title  string  `json:"title"`
	Slides []Slide `json:"slides"`
}

// Deliverables bundles the case's final outputs.
type Deliverables struct {
	DeckOutline    DeckOutline `json:"deck_outline"`
	MermaidRunFlow string      `json:"mermaid_run_flow"`
}

// State accumulates stage outputs as the case progresses.
type State struct {
	Brief        string                    `json:"brief"`
	Framing      map[string]any            `json:"framing"`
	Workplan     map[string]any            `json:"workplan"`
	PodOutputs   map[string]map[string]any `json:"pod_outputs"`
	QAReports    []map[string]any          `json:"qa_reports"`
	Synthesis    map[string]any            `json:"synthesis"`
	Deliverables Deliverables              `json:"deliverables"`
}

// Case is one consulting engagement.
type Case struct {
	ID    string `json:"case_id"`
	Input Input  `json:"input"`
	State State  `json:"state"`
}

const intakeRules = `BRIEFING_RULES:
- Prefer feasible, cash-flow-positive ideas with identifiable buyers.
- Avoid heavy liability and regulated advice unless explicitly requested.
- Be concrete: buyer, pricing, operations, time-to-revenue.
- If uncertain, narrow the niche and cut scope.`

// buildBrief turns query + skills doc + profile into the single brief string
// every downstream stage reads. Deterministic assembly, no external call.
func buildBrief(in Input) string {
	var parts []string

	if q := strings.TrimSpace(in.Query); q != "" {
		parts = append(parts, "USER_QUERY:\n"+q)
	}
	if s := strings.TrimSpace(in.SkillsText); s != "" {
		parts = append(parts, "SKILLS_DOC:\n"+s)
	}

	profile := in.Profile
	if profile == nil {
		profile = map[string]any{}
	}
	profileJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		profileJSON = []byte("{}")
	}
	parts = append(parts, "PROFILE_JSON:\n"+string(profileJSON))

	if e := strings.TrimSpace(in.Extra); e != "" {
		parts = append(parts, "EXTRA_CONTEXT:\n"+e)
	}

	parts = append(parts, intakeRules)

	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}
