package swarm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/ideaforge/internal/llm"
	"github.com/kalambet/ideaforge/internal/persona"
	"github.com/kalambet/ideaforge/internal/structured"
)

// ErrNoIdeas is returned when zero ideas survive generation; the supervisor
// never issues a shortlist call over an empty candidate set.
var ErrNoIdeas = errors.New("no ideas survived generation")

const shortlistCandidateCap = 30

const supervisorSystemPrompt = `You are the Supervisor Agent coordinating a multi-agent idea generation system.

Filter ideas to fit the user's profile, skills, constraints, and query. Use critic feedback to rank and decide.
Prefer feasible, cash-flow-positive ideas with identifiable buyers.

Return STRICT JSON ONLY:

{
  "shortlist": [
    {
      "idea_id": "string",
      "decision": "advance" | "revise" | "archive",
      "overall_score": 0-10,
      "rationale": "string",
      "next_actions": ["string", "string", "string"]
    }
  ],
  "notes": "string"
}

No markdown. No extra keys.`

// PersonaFeed abstracts the persona draw for worker construction.
type PersonaFeed interface {
	Next(ctx context.Context) (persona.Record, bool)
}

// Config tunes a supervised run.
type Config struct {
	Model             string
	WorkerCount       int
	CriticCount       int
	TopK              int
	WorkerParallelism int // concurrent generators; <= 0 defaults to 4
	CriticParallelism int // concurrent (idea, critic) pairs; <= 0 defaults to 4
}

func (c Config) withDefaults() Config {
	if c.WorkerCount <= 0 {
		c.WorkerCount = 8
	}
	if c.CriticCount <= 0 {
		c.CriticCount = 5
	}
	if c.TopK <= 0 {
		c.TopK = 10
	}
	if c.WorkerParallelism <= 0 {
		c.WorkerParallelism = 4
	}
	if c.CriticParallelism <= 0 {
		c.CriticParallelism = 4
	}
	return c
}

// Result is the terminal output of a supervised run.
type Result struct {
	Brief     string         `json:"brief"`
	Ideas     []Idea         `json:"ideas"`
	Critiques []Critique     `json:"critiques"`
	Aggregate []AggregateRow `json:"aggregate"`
	Shortlist Shortlist      `json:"shortlist"`

	// Degraded flags a run whose shortlist rests on partial signal, such as
	// zero collected critiques.
	Degraded       bool   `json:"degraded,omitempty"`
	DegradedReason string `json:"degraded_reason,omitempty"`
}

// Supervisor composes the pipeline: brief -> worker fan-out -> dedup ->
// idea x critic fan-out -> aggregation -> one final shortlist call. Stages
// are strictly sequential; no stage is revisited.
type Supervisor struct {
	cfg       Config
	caller    Caller
	extractor Extractor
	personas  PersonaFeed
	logger    *slog.Logger
}

// NewSupervisor creates a Supervisor. personas may be nil, in which case
// every worker runs without persona conditioning.
func NewSupervisor(cfg Config, caller Caller, extractor Extractor, personas PersonaFeed) *Supervisor {
	return &Supervisor{
		cfg:       cfg.withDefaults(),
		caller:    caller,
		extractor: extractor,
		personas:  personas,
		logger:    slog.Default(),
	}
}

// Run executes the full pipeline. Worker and (idea, critic) failures are
// contained: a failed unit contributes nothing and the run proceeds with
// whatever survived. The one exception is the final shortlist call, whose
// failure is surfaced — there is no degraded substitute for the final
// decision.
func (s *Supervisor) Run(ctx context.Context, in BriefInput) (*Result, error) {
	brief := BuildBrief(in)

	raw := s.generate(ctx, brief)
	s.logger.Info("generation complete", "workers", s.cfg.WorkerCount, "ideas", len(raw))
	if len(raw) == 0 {
		return nil, ErrNoIdeas
	}

	ideas := Dedupe(raw)
	s.logger.Info("dedup complete", "before", len(raw), "after", len(ideas))

	critiques := s.critiquePanel(ctx, brief, ideas)
	s.logger.Info("critique complete", "pairs", len(ideas)*s.cfg.CriticCount, "critiques", len(critiques))

	rows := Aggregate(ideas, critiques)

	shortlist, err := s.shortlist(ctx, brief, rows)
	if err != nil {
		return nil, fmt.Errorf("final shortlist: %w", err)
	}

	res := &Result{
		Brief:     brief,
		Ideas:     ideas,
		Critiques: critiques,
		Aggregate: rows,
		Shortlist: shortlist,
	}
	if len(critiques) == 0 {
		res.Degraded = true
		res.DegradedReason = "no critiques were collected; ranking reflects generation order only"
	}
	return res, nil
}

// generate runs the worker fan-out. Results land in a slice indexed by worker
// ordinal, so the dedup input ordering is worker spawn order regardless of
// completion order or parallelism degree.
func (s *Supervisor) generate(ctx context.Context, brief string) []Idea {
	workers := make([]*Worker, s.cfg.WorkerCount)
	for i := range workers {
		var p persona.Record
		if s.personas != nil {
			p, _ = s.personas.Next(ctx)
		}
		workers[i] = NewWorker(fmt.Sprintf("worker_%03d", i+1), p, s.cfg.Model, s.caller, s.extractor)
	}

	results := make([]*Idea, len(workers))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.WorkerParallelism)

	for i, w := range workers {
		g.Go(func() error {
			idea, err := w.GenerateOne(gCtx, brief)
			if err != nil {
				s.logger.Warn("worker failed, omitting its output", "worker", w.ID, "error", err)
				return nil
			}
			results[i] = &idea
			return nil
		})
	}
	g.Wait()

	ideas := make([]Idea, 0, len(results))
	for _, r := range results {
		if r != nil {
			ideas = append(ideas, *r)
		}
	}
	return ideas
}

// critiquePanel runs the ideas x critics cross product with per-pair failure
// containment. Partial coverage per idea is expected and handled by
// aggregation, not treated as a run failure.
func (s *Supervisor) critiquePanel(ctx context.Context, brief string, ideas []Idea) []Critique {
	lenses := Lenses(s.cfg.CriticCount)
	critics := make([]*Critic, len(lenses))
	for i, l := range lenses {
		critics[i] = NewCritic(l.Name, l.SystemPrompt, s.cfg.Model, s.caller, s.extractor)
	}

	results := make([]*Critique, len(ideas)*len(critics))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.CriticParallelism)

	for i, idea := range ideas {
		for j, critic := range critics {
			slot := i*len(critics) + j
			g.Go(func() error {
				crit, err := critic.Critique(gCtx, brief, idea)
				if err != nil {
					s.logger.Warn("critique failed, omitting",
						"critic", critic.Name, "idea", idea.ID, "error", err)
					return nil
				}
				results[slot] = &crit
				return nil
			})
		}
	}
	g.Wait()

	critiques := make([]Critique, 0, len(results))
	for _, r := range results {
		if r != nil {
			critiques = append(critiques, *r)
		}
	}
	return critiques
}

// shortlist issues the single final selection call over the top candidates by
// aggregate order (capped to bound prompt size).
func (s *Supervisor) shortlist(ctx context.Context, brief string, rows []AggregateRow) (Shortlist, error) {
	candidates := rows
	if len(candidates) > shortlistCandidateCap {
		candidates = candidates[:shortlistCandidateCap]
	}

	candidatesJSON, err := json.Marshal(candidates)
	if err != nil {
		return Shortlist{}, fmt.Errorf("serializing candidates: %w", err)
	}

	user := fmt.Sprintf(
		"USER_PROFILE_AND_BRIEF:\n%s\n\nCANDIDATES (top aggregated):\n%s\n\nPick up to %d ideas.\nReturn STRICT JSON only (schema in system prompt).",
		brief, candidatesJSON, s.cfg.TopK,
	)

	raw, err := s.caller.Call(ctx, llm.Request{
		Model:           s.cfg.Model,
		System:          supervisorSystemPrompt,
		User:            user,
		Temperature:     0.5,
		ReasoningEffort: "high",
	})
	if err != nil {
		return Shortlist{}, err
	}

	data, err := s.extractor.ExtractOrRepair(ctx, s.cfg.Model, raw)
	if err != nil {
		return Shortlist{}, err
	}

	return shortlistFromFields(data), nil
}

// shortlistFromFields maps the selection output defensively: extra keys are
// ignored, missing keys default, decisions and scores normalize like critique
// verdicts and scores.
func shortlistFromFields(data map[string]any) Shortlist {
	out := Shortlist{
		Entries: []ShortlistEntry{},
		Notes:   structured.Str(data, "notes"),
	}

	items, ok := data["shortlist"].([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out.Entries = append(out.Entries, ShortlistEntry{
			IdeaID:       structured.Str(obj, "idea_id"),
			Decision:     normalizeVerdict(structured.Str(obj, "decision")),
			OverallScore: clampScore(obj, "overall_score"),
			Rationale:    structured.Str(obj, "rationale"),
			NextActions:  structured.StringList(obj, "next_actions"),
		})
	}
	return out
}
