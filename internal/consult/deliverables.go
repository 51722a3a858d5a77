package consult

import "github.com/kalambet/ideaforge/internal/structured"

// buildDeliverables assembles the deck outline and run-flow diagram from the
// accumulated case state. Pure assembly, no model call.
func buildDeliverables(c *Case) Deliverables {
	return Deliverables{
		DeckOutline:    buildDeckOutline(c),
		MermaidRunFlow: runFlowMermaid,
	}
}

func buildDeckOutline(c *Case) DeckOutline {
	syn := c.State.Synthesis
	if syn == nil {
		syn = map[string]any{}
	}
	summary := structured.Str(syn, "executive_summary")

	return DeckOutline{
		Title: "ideaforge — Consulting Pack",
		Slides: []Slide{
			{Title: "Executive Summary", Bullets: []string{summary}},
			{Title: "Problem Framing", Bullets: []string{summary, "Key question + issue tree"}},
			{Title: "Market & Customer", Bullets: []string{compactJSON(c.State.PodOutputs["market"])}},
			{Title: "Economics", Bullets: []string{compactJSON(c.State.PodOutputs["economics"])}},
			{Title: "Competition", Bullets: []string{compactJSON(c.State.PodOutputs["competition"])}},
			{Title: "Operating Model", Bullets: []string{compactJSON(c.State.PodOutputs["ops"])}},
			{Title: "Implementation Plan", Bullets: []string{compactJSON(c.State.PodOutputs["implementation"])}},
			{Title: "Recommendations", Bullets: []string{compactJSON(syn["recommendations"])}},
			{Title: "Risks & Mitigations", Bullets: []string{compactJSON(c.State.QAReports)}},
			{Title: "Appendix: Claims & Assumptions", Bullets: []string{compactJSON(map[string]any{
				"claims":      syn["claims"],
				"assumptions": syn["assumptions"],
			})}},
		},
	}
}

const runFlowMermaid = `flowchart TD
    A[Inputs: Query + Skills + Profile] --> B[Intake: Brief]
    B --> C[Framing: Issue Tree + Hypotheses]
    C --> D[Workplan]
    D --> E[Pods: Market/Econ/Comp/Ops/Impl]
    E --> F[Synthesis: Partner Output]
    F --> G[QA: Logic/Numbers/Evidence/Risk]
    G --> H[Deliverables: Deck Outline + Diagrams]`
