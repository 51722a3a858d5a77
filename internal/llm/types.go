package llm

import "context"

// Request describes a single completion request to the generative service.
// MaxAttempts of 0 means "use the caller's default".
type Request struct {
	Model           string
	System          string
	User            string
	Temperature     float64
	ReasoningEffort string // "", "low", "medium", "high"
	MaxAttempts     int
}

// Completer performs one completion attempt against the generative service.
// Implementations must not retry internally; retry policy lives in Caller.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}
