package command

import (
	"context"

	"github.com/sandevgo/ivorybot/internal/tools"
)

type ResetCommand struct {
	acct      tools.TokenAccountant
	formatter *ResponseFormatter
}

func NewResetCommand(acct tools.TokenAccountant) *ResetCommand {
	return &ResetCommand{acct: acct, formatter: NewResponseFormatter()}
}

func (c *ResetCommand) Name() string {
	return "reset"
}

func (c *ResetCommand) Description() string {
	return "Clear the conversation history"
}

func (c *ResetCommand) Execute(_ context.Context, _ string, _ []string) (string, error) {
	c.acct.ResetConversation()
	return c.formatter.Success("Conversation cleared"), nil
}
