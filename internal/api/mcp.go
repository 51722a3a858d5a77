package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/ideaforge/internal/storage"
	"github.com/kalambet/ideaforge/internal/swarm"
)

// MCPDeps holds dependencies for the MCP server. Store may be nil, in which
// case generated runs are not cataloged and the run tools return errors.
type MCPDeps struct {
	Store *storage.Store
	Swarm SwarmRunner
	Model string
}

// NewMCPServer creates an MCP server exposing the brainstorming engine as tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"ideaforge",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("ideaforge — persona-conditioned business idea generation with a critic panel and ranked shortlist."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("generate_ideas",
			mcp.WithDescription("Run a full brainstorm: persona-conditioned idea generation, critique panel, and final shortlist."),
			mcp.WithString("query", mcp.Description("What kind of business ideas to generate"), mcp.Required()),
			mcp.WithString("profile", mcp.Description("Optional JSON object describing the person the ideas are for")),
			mcp.WithString("extra", mcp.Description("Optional extra context or constraints")),
		),
		mcpGenerateIdeas(deps),
	)

	s.AddTool(
		mcp.NewTool("list_runs",
			mcp.WithDescription("List recent brainstorm runs from the catalog."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of runs (default 10)")),
		),
		mcpListRuns(deps),
	)

	s.AddTool(
		mcp.NewTool("get_run",
			mcp.WithDescription("Fetch one run's full result by id."),
			mcp.WithString("run_id", mcp.Description("Run id, e.g. run_ab12cd34ef"), mcp.Required()),
		),
		mcpGetRun(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"runs://recent",
			"Recent Runs",
			mcp.WithResourceDescription("Last 10 brainstorm runs (summaries only)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecentRuns(deps),
	)

	return s
}

func mcpGenerateIdeas(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		var profile map[string]any
		if raw := req.GetString("profile", ""); raw != "" {
			if err := json.Unmarshal([]byte(raw), &profile); err != nil {
				return mcpError(fmt.Sprintf("invalid profile JSON: %v", err)), nil
			}
		}

		result, err := deps.Swarm.Run(ctx, swarm.BriefInput{
			Profile: profile,
			Query:   query,
			Extra:   req.GetString("extra", ""),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("run failed: %v", err)), nil
		}

		runID := NewRunID()
		if deps.Store != nil {
			if err := CatalogSwarmRun(deps.Store, runID, deps.Model, query, result); err != nil {
				return mcpError(fmt.Sprintf("run finished but could not be saved: %v", err)), nil
			}
		}

		b, err := json.Marshal(BrainstormResponse{RunID: runID, Result: result})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListRuns(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Store == nil {
			return mcpError("run catalog not available"), nil
		}

		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}
		if limit > 100 {
			limit = 100
		}

		runs, err := deps.Store.ListRuns(limit)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list runs: %v", err)), nil
		}

		summaries := runSummaries(runs)
		b, err := json.Marshal(summaries)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal runs: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGetRun(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Store == nil {
			return mcpError("run catalog not available"), nil
		}

		runID, err := req.RequireString("run_id")
		if err != nil {
			return mcpError("run_id is required"), nil
		}

		run, err := deps.Store.GetRun(runID)
		if err == storage.ErrNotFound {
			return mcpError(fmt.Sprintf("run %s not found", runID)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to get run: %v", err)), nil
		}

		if run.ResultJSON != "" {
			return mcpText(run.ResultJSON), nil
		}
		b, err := json.Marshal(run)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal run: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

type runSummary struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Mode      string `json:"mode"`
	Query     string `json:"query"`
	IdeaCount int    `json:"idea_count"`
}

func runSummaries(runs []storage.RunRecord) []runSummary {
	out := make([]runSummary, len(runs))
	for i, run := range runs {
		query := run.Query
		if utf8.RuneCountInString(query) > 200 {
			runes := []rune(query)
			query = string(runes[:200]) + "..."
		}
		out[i] = runSummary{
			ID:        run.ID,
			CreatedAt: run.CreatedAt.Format(time.RFC3339),
			Mode:      run.Mode,
			Query:     query,
			IdeaCount: run.IdeaCount,
		}
	}
	return out
}

func mcpResourceRecentRuns(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		if deps.Store == nil {
			return nil, fmt.Errorf("run catalog not available")
		}

		runs, err := deps.Store.ListRuns(10)
		if err != nil {
			return nil, fmt.Errorf("failed to list runs: %w", err)
		}

		b, err := json.Marshal(runSummaries(runs))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal runs: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
