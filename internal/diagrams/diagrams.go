// Package diagrams renders Mermaid and Graphviz views of a run so that
// the pipeline stays inspectable without any extra tooling.
package diagrams

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func mmdHeader(title string) string {
	return fmt.Sprintf(`%%%%{init: {
  "theme": "neutral",
  "flowchart": {
    "curve": "basis",
    "nodeSpacing": 40,
    "rankSpacing": 55
  },
  "themeVariables": {
    "fontFamily": "Inter, ui-sans-serif, system-ui, -apple-system, Segoe UI, Roboto, Helvetica, Arial",
    "fontSize": "14px",
    "primaryTextColor": "#111827",
    "lineColor": "#6B7280"
  }
}}%%%%
%%%% %s
`, title)
}

// PipelineMermaid returns the static architecture diagram of the idea
// pipeline: brief compiler, generator fan-out, critique panel, outputs.
func PipelineMermaid() string {
	return mmdHeader("Idea Generator Pipeline") + `
flowchart LR

%% ---------- Inputs ----------
subgraph S0["Inputs"]
direction TB
Q["Query (optional)"]:::input
U["Skill docs upload (optional)"]:::input
end

%% ---------- Layer 0 ----------
subgraph S1["Layer 0 — Brief compiler"]
direction TB
B["Brief\n(query + skills + constraints)"]:::process
end

%% ---------- Layer 1 ----------
subgraph S2["Layer 1 — Idea generation"]
direction TB
G["Worker x N\n(persona-conditioned)"]:::process
I["Ideas (structured)"]:::artifact
end

%% ---------- Layer 2 ----------
subgraph S3["Layer 2 — Critique panel"]
direction TB
R["Lens router"]:::process
C["Critic x M\n(market, unit econ, feasibility, legal, competition)"]:::process
X["Critiques (structured)"]:::artifact
end

%% ---------- Outputs ----------
subgraph S4["Outputs"]
direction TB
A["Run artifacts\nbrief.txt, ideas.json, critiques.json"]:::artifact
D["Diagrams\npipeline.mmd, run_flow.mmd, pipeline.dot"]:::artifact
end

%% ---------- Edges ----------
Q --> B
U --> B

B --> G --> I --> R --> C --> X --> A --> D

%% ---------- Styles ----------
classDef input fill:#EEF2FF,stroke:#6366F1,stroke-width:1px,color:#111827;
classDef process fill:#ECFDF5,stroke:#10B981,stroke-width:1px,color:#111827;
classDef artifact fill:#F9FAFB,stroke:#6B7280,stroke-width:1px,color:#111827;

linkStyle default stroke-width:1.2px;
`
}

// RunFlowMermaid renders a per-run diagram showing critic fan-out by name.
func RunFlowMermaid(runID string, criticNames []string) string {
	var nodes, edges []string
	for _, name := range criticNames {
		safe := slug(name)
		nodes = append(nodes, fmt.Sprintf(`  C_%s["%s critic"]:::process`, safe, name))
		edges = append(edges, fmt.Sprintf("  IDEAS --> C_%s --> CRITS", safe))
	}
	block := strings.Join(append(nodes, edges...), "\n")

	return mmdHeader("Run Flow — "+runID) + fmt.Sprintf(`
flowchart LR

subgraph RUN["Run: %s"]
direction LR

BRIEF["brief.txt"]:::artifact
GEN["ideas.json"]:::artifact
IDEAS["ideas_deduped.json"]:::artifact
CRITS["critiques.json"]:::artifact

BRIEF --> GEN --> IDEAS

subgraph PANEL["Critique panel (fan-out)"]
direction TB
%s
end

CRITS --> DIAGS["pipeline.mmd\npipeline.dot"]:::artifact
end

classDef process fill:#ECFDF5,stroke:#10B981,stroke-width:1px,color:#111827;
classDef artifact fill:#F9FAFB,stroke:#6B7280,stroke-width:1px,color:#111827;

linkStyle default stroke-width:1.2px;
`, runID, block)
}

// PipelineDot is the Graphviz rendition of PipelineMermaid.
func PipelineDot() string {
	return `
digraph Pipeline {
  rankdir=LR;
  splines=true;
  nodesep=0.35;
  ranksep=0.55;
  fontname="Inter";
  fontsize=12;

  node [shape=box, style="rounded", fontname="Inter", fontsize=11];
  edge [color="#6B7280", penwidth=1.2];

  subgraph cluster_inputs {
    label="Inputs";
    color="#6366F1";
    style="rounded";
    Q [label="Query (optional)"];
    U [label="Skill docs upload (optional)"];
  }

  subgraph cluster_brief {
    label="Layer 0 — Brief compiler";
    color="#10B981";
    style="rounded";
    B [label="Brief"];
  }

  subgraph cluster_gen {
    label="Layer 1 — Idea generation";
    color="#10B981";
    style="rounded";
    G [label="Worker x N"];
    I [label="Ideas", shape=note];
  }

  subgraph cluster_crit {
    label="Layer 2 — Critique panel";
    color="#10B981";
    style="rounded";
    R [label="Lens router"];
    C [label="Critic x M"];
    X [label="Critiques", shape=note];
  }

  subgraph cluster_out {
    label="Outputs";
    color="#6B7280";
    style="rounded";
    A [label="Run artifacts", shape=note];
    D [label="Diagrams", shape=note];
  }

  Q -> B;
  U -> B;
  B -> G -> I -> R -> C -> X -> A -> D;
}
`
}

// Write drops all three diagram files into runDir, creating it if needed.
func Write(runDir, runID string, criticNames []string) error {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("creating diagram dir: %w", err)
	}
	files := map[string]string{
		"pipeline.mmd": PipelineMermaid(),
		"run_flow.mmd": RunFlowMermaid(runID, criticNames),
		"pipeline.dot": PipelineDot(),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(runDir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
