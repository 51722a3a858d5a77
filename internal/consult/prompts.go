package consult

const issueTreeSchema = `Return STRICT JSON ONLY (no markdown, no extra keys):

{
  "key_question": "string",
  "success_metrics": ["string","string"],
  "constraints": ["string","string"],
  "issue_tree": {
    "node": "string",
    "children": [
      {"node":"string","children":[{"node":"string","children":[]}]}
    ]
  },
  "top_hypotheses": ["string","string","string"],
  "data_needed": ["string","string","string"]
}`

const workplanSchema = `Return STRICT JSON ONLY (no markdown, no extra keys):

{
  "workstreams": [
    {
      "name": "string",
      "owner": "string",
      "tasks": [
        {"task":"string","output":"string","priority":"high|med|low","depends_on":["string"]}
      ]
    }
  ],
  "critical_path": ["string","string"],
  "risks": ["string","string"]
}`

const synthesisSchema = `Return STRICT JSON ONLY (no markdown, no extra keys):

{
  "executive_summary": "string",
  "recommendations": [
    {"title":"string","why":"string","how":"string","risks":["string"],"next_steps":["string","string"]}
  ],
  "assumptions": [
    {"name":"string","value":"string","rationale":"string","sensitivity":"low|med|high","validation":"unverified|partial|verified"}
  ],
  "claims": [
    {"claim":"string","confidence":"low|med|high","evidence":["string"],"assumptions":["string"]}
  ]
}`

const framingSystemPrompt = `You are an ex-top-tier management consultant.
Your job is problem framing: define key question, MECE issue tree, hypotheses, and data needed.
Be crisp, structured, conservative.

` + issueTreeSchema

const workplanSystemPrompt = `You are an engagement manager.
Turn the issue tree + hypotheses into an executable workplan with workstreams and tasks.
Be realistic for a small team.

` + workplanSchema

const synthesisSystemPrompt = `You are the partner. Your job is synthesis: the so-what, the recommendation, and a board-ready summary.
Must be grounded, risk-aware, and tie claims to evidence/assumptions.

` + synthesisSchema

const qaReportSchema = `Output JSON ONLY:
{"blocking_issues":["..."],"fixes":["..."],"severity":"low|med|high"}`

var qaChecks = []struct {
	name   string
	system string
}{
	{
		name: "logic",
		system: `You are a logic auditor. Find contradictions, non-MECE structure, missing steps, and unclear causal links.
Return a short list of blocking issues and fixes.
` + qaReportSchema,
	},
	{
		name: "numbers",
		system: `You are a numbers auditor. Check units, sanity, order-of-magnitude, missing cost drivers.
` + qaReportSchema,
	},
	{
		name: "evidence",
		system: `You are an evidence auditor. Flag uncited claims and assumptions presented as facts.
` + qaReportSchema,
	},
	{
		name: "risk",
		system: `You are a risk auditor. Identify legal/compliance, operational, reputational and delivery risks.
` + qaReportSchema,
	},
}

// pod stages: five analysis lenses, each one call over the accumulated state.
var pods = []struct {
	name        string
	system      string
	temperature float64
}{
	{
		name: "market",
		system: `You are a market analyst. Produce a crisp market view.
Output JSON ONLY:
{
  "icp":"string",
  "buyer":"string",
  "demand_signals":["string","string"],
  "tamtoms":"string",
  "channels":["string","string"],
  "risks":["string","string"]
}`,
		temperature: 0.5,
	},
	{
		name: "economics",
		system: `You are a unit economics operator. Propose a realistic pricing + cost stack.
Output JSON ONLY:
{
  "pricing_model":"string",
  "price_points":["string","string"],
  "unit":"string",
  "revenue_unit_calc":"string",
  "cost_drivers":["string","string","string"],
  "margin_notes":"string",
  "cashflow_risks":["string","string"]
}`,
		temperature: 0.4,
	},
	{
		name: "competition",
		system: `You are a competitive strategist. Map competitors and differentiation.
Output JSON ONLY:
{
  "direct_competitors":["string","string"],
  "alternatives":["string","string"],
  "differentiation":"string",
  "moat_wedge":"string",
  "risks":["string","string"]
}`,
		temperature: 0.5,
	},
	{
		name: "ops",
		system: `You are an ops lead. Define an MVP operating model.
Output JSON ONLY:
{
  "mvp_scope":"string",
  "process_steps":["string","string","string"],
  "tools_stack":["string","string"],
  "headcount_plan":"string",
  "failure_modes":["string","string"]
}`,
		temperature: 0.5,
	},
	{
		name: "implementation",
		system: `You are an implementation lead. Produce a 30/60/90 day plan.
Output JSON ONLY:
{
  "milestones":{
    "day_30":["string","string"],
    "day_60":["string","string"],
    "day_90":["string","string"]
  },
  "metrics":["string","string"],
  "risks":["string","string"]
}`,
		temperature: 0.4,
	},
}
