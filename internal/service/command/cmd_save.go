package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/ivorybot/internal/config"
	"github.com/sandevgo/ivorybot/internal/core"
	"github.com/sandevgo/ivorybot/internal/storage/convdoc"
)

// ConversationSource exposes the live buffer to the save command.
type ConversationSource interface {
	Messages() []core.Message
}

type SaveCommand struct {
	cfg       *config.AppConfig
	conv      ConversationSource
	docs      *convdoc.Store
	formatter *ResponseFormatter
}

func NewSaveCommand(cfg *config.AppConfig, conv ConversationSource, docs *convdoc.Store) *SaveCommand {
	return &SaveCommand{cfg: cfg, conv: conv, docs: docs, formatter: NewResponseFormatter()}
}

func (c *SaveCommand) Name() string {
	return "save"
}

func (c *SaveCommand) Description() string {
	return "Export the conversation to a file, optionally named: /save <name>"
}

func (c *SaveCommand) Execute(_ context.Context, _ string, args []string) (string, error) {
	msgs := c.conv.Messages()
	if len(msgs) == 0 {
		return "Nothing to save yet.", nil
	}

	name := c.cfg.DisplayName
	if len(args) > 0 {
		name = strings.Join(args, " ")
	}

	filename, err := c.docs.Save(convdoc.Document{
		DisplayName: name,
		AgentType:   c.cfg.AgentType,
		Timestamp:   time.Now(),
		Messages:    msgs,
	})
	if err != nil {
		return "", fmt.Errorf("failed to save conversation: %w", err)
	}

	return c.formatter.Success(fmt.Sprintf("Saved %d messages to %s", len(msgs), filename)), nil
}
