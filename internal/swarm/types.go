// Package swarm implements the fan-out/fan-in brainstorming engine: persona-
// conditioned idea workers, a critic panel crossed over every surviving idea,
// lexical near-duplicate suppression, critique aggregation, and a supervisor
// that drives the whole run to a final shortlist.
package swarm

import (
	"strings"

	"github.com/google/uuid"
	"github.com/kalambet/ideaforge/internal/persona"
	"github.com/kalambet/ideaforge/internal/structured"
)

// Verdict values form a closed enumeration; anything else normalizes to revise.
const (
	VerdictAdvance = "advance"
	VerdictRevise  = "revise"
	VerdictArchive = "archive"
)

// Idea is one generated business-concept candidate. Created exactly once by a
// single worker invocation and never mutated afterwards; dedup filters idea
// sequences, it does not edit members.
type Idea struct {
	ID                   string         `json:"idea_id"`
	Name                 string         `json:"name"`
	TargetCustomer       string         `json:"target_customer"`
	WhatItIs             string         `json:"what_it_is"`
	HowItMakesMoney      string         `json:"how_it_makes_money"`
	OperatingSteps       []string       `json:"operating_steps"`
	WhyItWorks           string         `json:"why_it_works"`
	DemandSignal         string         `json:"demand_signal"`
	CompetitiveLandscape string         `json:"competitive_landscape"`
	FeasibilityNotes     string         `json:"feasibility_notes"`
	UnitEconSketch       string         `json:"unit_econ_sketch"`
	Risks                []string       `json:"risks"`
	Tags                 []string       `json:"tags"`
	Persona              persona.Record `json:"persona,omitempty"`
	WorkerID             string         `json:"worker_id"`
	Model                string         `json:"model"`
	Raw                  string         `json:"raw,omitempty"` // unparsed completion, kept for audit
}

// Critique is one critic's assessment of one idea. IdeaID is a weak
// back-reference; an Idea is unaware of its critiques.
type Critique struct {
	ID                    string   `json:"critique_id"`
	IdeaID                string   `json:"idea_id"`
	CriticName            string   `json:"critic_name"`
	Score                 float64  `json:"score"`
	Verdict               string   `json:"verdict"`
	Summary               string   `json:"summary"`
	FatalFlags            []string `json:"fatal_flags"`
	Improvements          []string `json:"improvements"`
	AssumptionsToValidate []string `json:"assumptions_to_validate"`
	Model                 string   `json:"model"`
	Raw                   string   `json:"raw,omitempty"`
}

// AggregateRow is the derived per-idea ranking record: a computed view,
// regenerated on every aggregation, never a source of truth.
type AggregateRow struct {
	Idea         Idea     `json:"idea"`
	AvgScore     float64  `json:"avg_score"`
	CriticCount  int      `json:"critic_count"`
	FatalFlags   []string `json:"fatal_flags"`
	ArchiveVotes int      `json:"archive_votes"`
}

// ShortlistEntry is one final decision from the supervisor's selection call.
type ShortlistEntry struct {
	IdeaID       string   `json:"idea_id"`
	Decision     string   `json:"decision"`
	OverallScore float64  `json:"overall_score"`
	Rationale    string   `json:"rationale"`
	NextActions  []string `json:"next_actions"`
}

// Shortlist is the final bounded selection with per-idea decisions.
type Shortlist struct {
	Entries []ShortlistEntry `json:"shortlist"`
	Notes   string           `json:"notes"`
}

func newID(prefix string) string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return prefix + "_" + hex[:10]
}

// clampScore coerces a raw score field into [0, 10]. Non-numeric values
// (including numeric words and null) coerce to 0.
func clampScore(obj map[string]any, key string) float64 {
	v, ok := structured.Float(obj, key)
	if !ok {
		return 0.0
	}
	if v < 0 {
		return 0.0
	}
	if v > 10 {
		return 10.0
	}
	return v
}

// normalizeVerdict lower-cases and validates a verdict against the closed
// enumeration, defaulting to revise for anything unrecognized.
func normalizeVerdict(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case VerdictAdvance:
		return VerdictAdvance
	case VerdictArchive:
		return VerdictArchive
	default:
		return VerdictRevise
	}
}
