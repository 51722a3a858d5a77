package consult

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/kalambet/ideaforge/internal/llm"
)

// Caller abstracts the resilient call wrapper.
type Caller interface {
	Call(ctx context.Context, req llm.Request) (string, error)
}

// Extractor abstracts JSON extraction with repair.
type Extractor interface {
	ExtractOrRepair(ctx context.Context, model, raw string) (map[string]any, error)
}

// Pipeline runs the full consulting lifecycle:
// intake -> framing -> workplan -> pods -> synthesis -> QA -> deliverables.
type Pipeline struct {
	caller    Caller
	extractor Extractor
	model     string
	logger    *slog.Logger
}

// NewPipeline creates a Pipeline using the given call wrapper and model.
func NewPipeline(caller Caller, extractor Extractor, model string) *Pipeline {
	return &Pipeline{
		caller:    caller,
		extractor: extractor,
		model:     model,
		logger:    slog.Default(),
	}
}

// Run executes every stage in order. Unlike the swarm's contained fan-out,
// each stage here feeds the next, so any stage failure aborts the case.
func (p *Pipeline) Run(ctx context.Context, caseID string, in Input) (*Case, error) {
	c := &Case{ID: caseID, Input: in}

	c.State.Brief = buildBrief(in)
	p.logger.Info("intake complete", "case", caseID)

	framing, err := p.stage(ctx, framingSystemPrompt,
		fmt.Sprintf("BRIEF:\n%s\n\nFrame the case.", c.State.Brief), 0.4)
	if err != nil {
		return nil, fmt.Errorf("framing: %w", err)
	}
	c.State.Framing = framing

	workplan, err := p.stage(ctx, workplanSystemPrompt,
		fmt.Sprintf("BRIEF:\n%s\n\nFRAMING_JSON:\n%s\n\nGenerate a workplan.",
			c.State.Brief, compactJSON(c.State.Framing)), 0.4)
	if err != nil {
		return nil, fmt.Errorf("workplan: %w", err)
	}
	c.State.Workplan = workplan

	c.State.PodOutputs = make(map[string]map[string]any, len(pods))
	for _, pod := range pods {
		out, err := p.stage(ctx, pod.system, p.podUser(c, pod.name), pod.temperature)
		if err != nil {
			return nil, fmt.Errorf("pod %s: %w", pod.name, err)
		}
		c.State.PodOutputs[pod.name] = out
		p.logger.Info("pod complete", "case", caseID, "pod", pod.name)
	}

	synthesis, err := p.stage(ctx, synthesisSystemPrompt,
		fmt.Sprintf("BRIEF:\n%s\n\nFRAMING:\n%s\n\nPOD_OUTPUTS:\n%s\n\nProduce synthesis.",
			c.State.Brief, compactJSON(c.State.Framing), compactJSON(c.State.PodOutputs)), 0.35)
	if err != nil {
		return nil, fmt.Errorf("synthesis: %w", err)
	}
	c.State.Synthesis = synthesis

	c.State.QAReports = make([]map[string]any, 0, len(qaChecks))
	for _, check := range qaChecks {
		report, err := p.stage(ctx, check.system, p.qaUser(c, check.name), 0.2)
		if err != nil {
			return nil, fmt.Errorf("qa %s: %w", check.name, err)
		}
		report["check"] = check.name
		c.State.QAReports = append(c.State.QAReports, report)
	}

	c.State.Deliverables = buildDeliverables(c)
	p.logger.Info("case complete", "case", caseID)

	return c, nil
}

func (p *Pipeline) stage(ctx context.Context, system, user string, temperature float64) (map[string]any, error) {
	raw, err := p.caller.Call(ctx, llm.Request{
		Model:       p.model,
		System:      system,
		User:        user,
		Temperature: temperature,
	})
	if err != nil {
		return nil, err
	}
	return p.extractor.ExtractOrRepair(ctx, p.model, raw)
}

// podUser composes each pod's user message from the state it depends on.
func (p *Pipeline) podUser(c *Case, pod string) string {
	switch pod {
	case "market", "competition":
		return fmt.Sprintf("BRIEF:\n%s\n\nFRAMING:\n%s", c.State.Brief, compactJSON(c.State.Framing))
	case "economics", "ops":
		return fmt.Sprintf("BRIEF:\n%s\n\nWORKPLAN:\n%s", c.State.Brief, compactJSON(c.State.Workplan))
	default: // implementation builds on the earlier pods
		return fmt.Sprintf("BRIEF:\n%s\n\nPODS:\n%s", c.State.Brief, compactJSON(c.State.PodOutputs))
	}
}

func (p *Pipeline) qaUser(c *Case, check string) string {
	switch check {
	case "logic":
		return fmt.Sprintf("FRAMING:\n%s\n\nSYNTHESIS_DRAFT:\n%s",
			compactJSON(c.State.Framing), compactJSON(c.State.Synthesis))
	case "numbers":
		return fmt.Sprintf("ECONOMICS:\n%s\n\nSYNTHESIS:\n%s",
			compactJSON(c.State.PodOutputs["economics"]), compactJSON(c.State.Synthesis))
	case "evidence":
		return fmt.Sprintf("CLAIMS:\n%s\n\nASSUMPTIONS:\n%s",
			compactJSON(c.State.Synthesis["claims"]), compactJSON(c.State.Synthesis["assumptions"]))
	default: // risk
		return fmt.Sprintf("BRIEF:\n%s\n\nPODS:\n%s\n\nSYNTHESIS:\n%s",
			c.State.Brief, compactJSON(c.State.PodOutputs), compactJSON(c.State.Synthesis))
	}
}

func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
