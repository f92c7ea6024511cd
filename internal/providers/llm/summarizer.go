package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/ivorybot/internal/core"
)

const summarizePrompt = `Summarize the following conversation excerpt in a few sentences.
Preserve concrete facts, decisions, names, and numbers. Drop pleasantries.
Reply with the summary only.`

// Summarizer condenses message runs through the chat provider itself, so
// summaries come from the same model the conversation runs on.
type Summarizer struct {
	provider Provider
}

func NewSummarizer(provider Provider) *Summarizer {
	return &Summarizer{provider: provider}
}

func (s *Summarizer) Summarize(ctx context.Context, msgs []core.Message) (string, error) {
	var sb strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
	}

	out, err := s.provider.Chat(ctx, summarizePrompt, []core.Message{
		{Role: core.RoleUser, Content: sb.String()},
	})
	if err != nil {
		return "", fmt.Errorf("summary request failed: %w", err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("summary request returned empty text")
	}
	return out, nil
}
