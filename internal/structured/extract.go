// Package structured parses JSON objects out of free-form model output.
//
// The generative service is treated as an untrusted text producer: output may
// be wrapped in markdown fences, prefixed with prose, or be outright invalid.
// Extraction is a narrow two-stage contract — brace-match and parse, else one
// bounded repair call — never a general parser.
package structured

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kalambet/ideaforge/internal/llm"
)

// MalformedOutputError is returned when extraction and the single repair
// attempt both failed to produce a parseable JSON object.
type MalformedOutputError struct {
	Raw string
	Err error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed model output: %v", e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

// Extract scans raw for the first substring that looks like a balanced JSON
// object (greedy: first '{' to last '}') and parses it. Markdown code fences
// are stripped first; small models frequently wrap JSON in them.
func Extract(raw string) (map[string]any, error) {
	s := strings.TrimSpace(raw)

	if idx := strings.Index(s, "```"); idx != -1 {
		s = s[idx+3:]
		if strings.HasPrefix(s, "json") {
			s = s[4:]
		}
		if end := strings.Index(s, "```"); end != -1 {
			s = s[:end]
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object in output")
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(s[start:end+1]), &obj); err != nil {
		return nil, fmt.Errorf("unmarshaling extracted object: %w", err)
	}
	return obj, nil
}

// Caller abstracts the resilient call wrapper for the repair pass.
type Caller interface {
	Call(ctx context.Context, req llm.Request) (string, error)
}

const repairSystemPrompt = "You fix JSON. Return valid JSON ONLY. No markdown. No commentary."

// Repairer extracts JSON with a single model-assisted repair fallback.
type Repairer struct {
	caller Caller
}

// NewRepairer creates a Repairer using the given call wrapper.
func NewRepairer(caller Caller) *Repairer {
	return &Repairer{caller: caller}
}

// ExtractOrRepair parses a JSON object out of raw. If direct extraction fails
// it issues exactly one repair call (temperature 0) asking the model to emit
// valid JSON reproducing the same content, then parses that. There is no
// second repair round: if the repaired text still does not parse, it returns
// a MalformedOutputError.
func (r *Repairer) ExtractOrRepair(ctx context.Context, model, raw string) (map[string]any, error) {
	obj, err := Extract(raw)
	if err == nil {
		return obj, nil
	}

	fixed, callErr := r.caller.Call(ctx, llm.Request{
		Model:       model,
		System:      repairSystemPrompt,
		User:        "Fix the following so it is valid JSON and matches the requested schema:\n\n" + raw,
		Temperature: 0.0,
		MaxAttempts: 2,
	})
	if callErr != nil {
		return nil, &MalformedOutputError{Raw: raw, Err: fmt.Errorf("repair call: %w", callErr)}
	}

	obj, err = Extract(fixed)
	if err != nil {
		return nil, &MalformedOutputError{Raw: raw, Err: err}
	}
	return obj, nil
}
