package llm

import (
	"context"

	"github.com/sandevgo/ivorybot/internal/core"
)

// Provider is a chat completion backend. Chat sends the system prompt plus
// the conversation and returns the model's raw text, directives included.
// Transport failures are returned as errors and are fatal to the caller's
// turn; retries for transient upstream errors happen inside the provider.
type Provider interface {
	Name() string
	Model() string
	Chat(ctx context.Context, system string, msgs []core.Message) (string, error)
}
