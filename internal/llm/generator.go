package llm

import "context"

// Request is one text-generation call.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Response carries the generated text and token accounting.
type Response struct {
	Content    string
	TokensUsed int
}

// Generator produces text completions. Interface so the orchestrator and
// tests never depend on a live API.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}
