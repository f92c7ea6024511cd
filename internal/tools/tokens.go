package tools

import (
	"context"

	"github.com/sandevgo/ivorybot/internal/core"
)

// TokenStatus is a snapshot of the conversation budget.
type TokenStatus struct {
	Used      int     `json:"used"`
	Max       int     `json:"max"`
	Ratio     float64 `json:"ratio"`
	Messages  int     `json:"messages"`
	Summaries int     `json:"summaries"`
}

// TokenAccountant is implemented by the agent that owns the conversation
// buffer. The tool layer only ever sees this narrow view.
type TokenAccountant interface {
	TokenStatus() TokenStatus
	ResetConversation()
	ForceSummarize(ctx context.Context) (replaced int, err error)
}

// TokenManager lets the model inspect and manage its own context budget.
type TokenManager struct {
	acct TokenAccountant
}

func NewTokenManager(acct TokenAccountant) *TokenManager {
	return &TokenManager{acct: acct}
}

func (t *TokenManager) Definition() core.ToolDefinition {
	return core.ToolDefinition{
		Name:        "token_manager",
		Description: "Inspects and manages the conversation token budget: report usage, force summarization of old messages, or reset the conversation.",
		Parameters: core.Schema{
			Type: "object",
			Properties: map[string]core.Property{
				"operation": {
					Type: "string",
					Enum: []string{"status", "summarize", "reset"},
				},
			},
			Required: []string{"operation"},
		},
	}
}

func (t *TokenManager) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	switch op := StringParam(params, "operation"); op {
	case "status":
		st := t.acct.TokenStatus()
		return map[string]any{
			"used_tokens": st.Used,
			"max_tokens":  st.Max,
			"usage_ratio": st.Ratio,
			"messages":    st.Messages,
			"summaries":   st.Summaries,
		}, nil

	case "summarize":
		replaced, err := t.acct.ForceSummarize(ctx)
		if err != nil {
			return nil, core.NewToolError(core.FailExecution, "summarization failed: %s", err.Error())
		}
		return map[string]any{
			"replaced_messages": replaced,
			"message":           "Older messages condensed into a summary.",
		}, nil

	case "reset":
		t.acct.ResetConversation()
		return map[string]any{"message": "Conversation history cleared."}, nil

	default:
		return nil, core.NewToolError(core.FailInvalidParameters, "unknown token operation: %s", op)
	}
}
