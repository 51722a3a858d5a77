// Package api exposes the brainstorming engine over HTTP (chi) and MCP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kalambet/ideaforge/internal/consult"
	"github.com/kalambet/ideaforge/internal/storage"
	"github.com/kalambet/ideaforge/internal/swarm"
)

const maxRequestBodySize = 1 << 20 // 1MB

// SwarmRunner abstracts the brainstorm supervisor for the API layer.
type SwarmRunner interface {
	Run(ctx context.Context, in swarm.BriefInput) (*swarm.Result, error)
}

// ConsultRunner abstracts the consulting pipeline for the API layer.
type ConsultRunner interface {
	Run(ctx context.Context, caseID string, in consult.Input) (*consult.Case, error)
}

// Deps holds dependencies for the HTTP handlers. Store may be nil, in which
// case runs are not cataloged.
type Deps struct {
	Store   *storage.Store
	Swarm   SwarmRunner
	Consult ConsultRunner
	Model   string
	Token   string
}

// NewHandler returns the HTTP API. /healthz is public; everything under
// /api requires the bearer token.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Post("/api/brainstorm", handleBrainstorm(deps))
		r.Post("/api/consult", handleConsult(deps))
		r.Get("/api/runs", handleListRuns(deps))
		r.Get("/api/runs/{id}", handleGetRun(deps))
		r.Delete("/api/runs/{id}", handleDeleteRun(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// BrainstormRequest is the POST /api/brainstorm body.
type BrainstormRequest struct {
	Query      string         `json:"query"`
	Profile    map[string]any `json:"profile"`
	SkillsText string         `json:"skills_text"`
	Extra      string         `json:"extra"`
}

// BrainstormResponse wraps a finished run with its catalog id.
type BrainstormResponse struct {
	RunID  string        `json:"run_id"`
	Result *swarm.Result `json:"result"`
}

func handleBrainstorm(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req BrainstormRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Query) == "" && strings.TrimSpace(req.SkillsText) == "" && len(req.Profile) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "at least one of query, profile, or skills_text is required")
			return
		}

		result, err := deps.Swarm.Run(r.Context(), swarm.BriefInput{
			Profile:    req.Profile,
			Query:      req.Query,
			SkillsText: req.SkillsText,
			Extra:      req.Extra,
		})
		if errors.Is(err, swarm.ErrNoIdeas) {
			httpError(w, http.StatusBadGateway, "api_error", "run produced no ideas: %v", err)
			return
		}
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "run failed: %v", err)
			return
		}

		runID := NewRunID()
		if deps.Store != nil {
			if err := CatalogSwarmRun(deps.Store, runID, deps.Model, req.Query, result); err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "run finished but could not be saved: %v", err)
				return
			}
		}

		writeJSON(w, http.StatusOK, BrainstormResponse{RunID: runID, Result: result})
	}
}

// ConsultResponse wraps a finished consulting case with its catalog id.
type ConsultResponse struct {
	RunID string        `json:"run_id"`
	Case  *consult.Case `json:"case"`
}

func handleConsult(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req BrainstormRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Query) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
			return
		}

		runID := NewRunID()
		c, err := deps.Consult.Run(r.Context(), runID, consult.Input{
			Profile:    req.Profile,
			Query:      req.Query,
			SkillsText: req.SkillsText,
			Extra:      req.Extra,
		})
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "case failed: %v", err)
			return
		}

		if deps.Store != nil {
			if err := CatalogConsultRun(deps.Store, runID, deps.Model, req.Query, c); err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "case finished but could not be saved: %v", err)
				return
			}
		}

		writeJSON(w, http.StatusOK, ConsultResponse{RunID: runID, Case: c})
	}
}

func handleListRuns(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "run catalog not available")
			return
		}

		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "limit must be a positive integer")
				return
			}
			if n > 100 {
				n = 100
			}
			limit = n
		}

		runs, err := deps.Store.ListRuns(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list runs: %v", err)
			return
		}

		type runSummary struct {
			ID        string `json:"id"`
			CreatedAt string `json:"created_at"`
			Mode      string `json:"mode"`
			Model     string `json:"model"`
			Query     string `json:"query"`
			IdeaCount int    `json:"idea_count"`
			Degraded  bool   `json:"degraded,omitempty"`
		}
		out := make([]runSummary, len(runs))
		for i, run := range runs {
			out[i] = runSummary{
				ID:        run.ID,
				CreatedAt: run.CreatedAt.Format(time.RFC3339),
				Mode:      run.Mode,
				Model:     run.Model,
				Query:     run.Query,
				IdeaCount: run.IdeaCount,
				Degraded:  run.Degraded,
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"runs": out})
	}
}

func handleGetRun(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "run catalog not available")
			return
		}

		id := chi.URLParam(r, "id")
		run, err := deps.Store.GetRun(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "run %s not found", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get run: %v", err)
			return
		}

		var result json.RawMessage
		if run.ResultJSON != "" {
			result = json.RawMessage(run.ResultJSON)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":              run.ID,
			"created_at":      run.CreatedAt.Format(time.RFC3339),
			"mode":            run.Mode,
			"model":           run.Model,
			"query":           run.Query,
			"idea_count":      run.IdeaCount,
			"critique_count":  run.CritiqueCount,
			"degraded":        run.Degraded,
			"degraded_reason": run.DegradedReason,
			"result":          result,
		})
	}
}

func handleDeleteRun(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "run catalog not available")
			return
		}

		id := chi.URLParam(r, "id")
		err := deps.Store.DeleteRun(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found_error", "run %s not found", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete run: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
	}
}

// CatalogSwarmRun projects a finished run into the catalog: a run row plus
// one row per surviving idea carrying its aggregate signal. Shared with the
// MCP layer and the CLI so every entry point catalogs runs the same way.
func CatalogSwarmRun(store *storage.Store, runID, model, query string, res *swarm.Result) error {
	resultJSON, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	rec := storage.RunRecord{
		ID:             runID,
		CreatedAt:      time.Now().UTC(),
		Mode:           "swarm",
		Model:          model,
		Query:          query,
		Brief:          res.Brief,
		IdeaCount:      len(res.Ideas),
		CritiqueCount:  len(res.Critiques),
		Degraded:       res.Degraded,
		DegradedReason: res.DegradedReason,
		ResultJSON:     string(resultJSON),
	}

	ideas := make([]storage.IdeaRow, len(res.Aggregate))
	for i, row := range res.Aggregate {
		ideas[i] = storage.IdeaRow{
			ID:             row.Idea.ID,
			RunID:          runID,
			Name:           row.Idea.Name,
			TargetCustomer: row.Idea.TargetCustomer,
			WhatItIs:       row.Idea.WhatItIs,
			MeanScore:      row.AvgScore,
			FatalFlagCount: len(row.FatalFlags),
			ArchiveVotes:   row.ArchiveVotes,
		}
	}
	return store.SaveRun(rec, ideas)
}

func CatalogConsultRun(store *storage.Store, runID, model, query string, c *consult.Case) error {
	resultJSON, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling case: %w", err)
	}
	rec := storage.RunRecord{
		ID:         runID,
		CreatedAt:  time.Now().UTC(),
		Mode:       "consult",
		Model:      model,
		Query:      query,
		Brief:      c.State.Brief,
		ResultJSON: string(resultJSON),
	}
	return store.SaveRun(rec, nil)
}

// NewRunID mints a catalog id like run_ab12cd34ef.
func NewRunID() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "run_" + hex[:10]
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
