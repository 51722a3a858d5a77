package swarm

import (
	"encoding/json"
	"strings"
)

// BriefInput is the raw material for a run's brief.
type BriefInput struct {
	Profile    map[string]any `json:"profile"`
	Query      string         `json:"query"`
	SkillsText string         `json:"skills_text"`
	Extra      string         `json:"extra"`
}

const briefingRules = `BRIEFING_RULES:
- Prefer feasible, cash-flow-positive ideas with identifiable buyers.
- Respect constraints (time/budget/risk/compliance).
- If uncertain, narrow the niche and simplify ops.`

// BuildBrief assembles the immutable run brief: deterministic string
// assembly, no external calls. The brief is shared read-only by every
// generation and critique call in the run.
func BuildBrief(in BriefInput) string {
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

	parts = append(parts, briefingRules)

	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}
