package swarm

import (
	"strings"
	"testing"
)

func TestClampScore(t *testing.T) {
	tests := []struct {
		name string
		obj  map[string]any
		want float64
	}{
		{"below range", map[string]any{"score": -5.0}, 0.0},
		{"above range", map[string]any{"score": 15.0}, 10.0},
		{"numeric word", map[string]any{"score": "seven"}, 0.0},
		{"not a number", map[string]any{"score": "NaN"}, 0.0},
		{"infinite", map[string]any{"score": "+Inf"}, 0.0},
		{"null", map[string]any{"score": nil}, 0.0},
		{"missing", map[string]any{}, 0.0},
		{"in range", map[string]any{"score": 7.5}, 7.5},
		{"numeric string", map[string]any{"score": "8"}, 8.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampScore(tt.obj, "score"); got != tt.want {
				t.Errorf("clampScore = %g, want %g", got, tt.want)
			}
		})
	}
}

func TestNormalizeVerdict(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"advance", "advance"},
		{"ADVANCE", "advance"},
		{"  Archive  ", "archive"},
		{"revise", "revise"},
		{"maybe", "revise"},
		{"", "revise"},
		{"advance!", "revise"},
	}

	for _, tt := range tests {
		if got := normalizeVerdict(tt.in); got != tt.want {
			t.Errorf("normalizeVerdict(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewID(t *testing.T) {
	seen := make(map[string]struct{})
	for range 200 {
		id := newID("idea")
		if !strings.HasPrefix(id, "idea_") {
			t.Fatalf("id = %q, want idea_ prefix", id)
		}
		if len(id) != len("idea_")+10 {
			t.Fatalf("id = %q, want 10 hex chars after prefix", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}
