package command

import (
	"context"
	"fmt"

	"github.com/sandevgo/ivorybot/internal/tools"
)

type TokensCommand struct {
	acct      tools.TokenAccountant
	formatter *ResponseFormatter
}

func NewTokensCommand(acct tools.TokenAccountant) *TokensCommand {
	return &TokensCommand{acct: acct, formatter: NewResponseFormatter()}
}

func (c *TokensCommand) Name() string {
	return "tokens"
}

func (c *TokensCommand) Description() string {
	return "Show token usage, or force summarization with /tokens summarize"
}

func (c *TokensCommand) Execute(ctx context.Context, _ string, args []string) (string, error) {
	if len(args) > 0 && args[0] == "summarize" {
		replaced, err := c.acct.ForceSummarize(ctx)
		if err != nil {
			return "", fmt.Errorf("summarization failed: %w", err)
		}
		if replaced == 0 {
			return "Nothing to summarize yet.", nil
		}
		return c.formatter.Success(fmt.Sprintf("Condensed %d messages into a summary", replaced)), nil
	}

	st := c.acct.TokenStatus()
	return c.formatter.Combine(
		c.formatter.Info("Token Budget"),
		c.formatter.Label("Used", fmt.Sprintf("%d / %d (%.1f%%)", st.Used, st.Max, st.Ratio*100)),
		c.formatter.Label("Messages", fmt.Sprintf("%d (%d summaries)", st.Messages, st.Summaries)),
	), nil
}
