// Package llm defines the chat model used to drive workflow executions and
// the narrow interface the execution engine expects from a language model
// provider. Providers live in subpackages and are interchangeable.
package llm

import (
	"context"
)

// LLM is implemented by chat completion providers. Generate submits the
// conversation so far, plus any declared tools, and returns the model's
// next message. Implementations must honor context cancellation.
type LLM interface {
	// Name identifies the provider and model, e.g. "openai/gpt-4o".
	Name() string

	// Generate a response from the LLM by passing messages.
	Generate(ctx context.Context, messages []*Message, opts ...Option) (*Response, error)
}

// Usage contains token usage information for an LLM response.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates the other usage into this one.
func (u *Usage) Add(other *Usage) {
	if other == nil {
		return
	}
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}
