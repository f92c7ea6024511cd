package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/ivorybot/internal/memory"
)

type MemoryCommand struct {
	store     *memory.Store
	formatter *ResponseFormatter
}

func NewMemoryCommand(store *memory.Store) *MemoryCommand {
	return &MemoryCommand{store: store, formatter: NewResponseFormatter()}
}

func (c *MemoryCommand) Name() string {
	return "memory"
}

func (c *MemoryCommand) Description() string {
	return "List stored memories, or delete one with /memory delete <key>"
}

func (c *MemoryCommand) Execute(_ context.Context, _ string, args []string) (string, error) {
	if len(args) >= 2 && args[0] == "delete" {
		key := args[1]
		deleted, err := c.store.Delete(key)
		if err != nil {
			return "", err
		}
		if !deleted {
			return fmt.Sprintf("No memory with key `%s`.", key), nil
		}
		return c.formatter.Success(fmt.Sprintf("Deleted memory `%s`", key)), nil
	}

	tag := ""
	if len(args) > 0 {
		tag = args[0]
	}

	entries := c.store.List(tag)
	if len(entries) == 0 {
		return "No memories stored.", nil
	}

	items := make([]string, 0, len(entries))
	for _, e := range entries {
		line := fmt.Sprintf("`%s` - %s", e.Key, e.Preview)
		if len(e.Tags) > 0 {
			line += fmt.Sprintf(" [%s]", strings.Join(e.Tags, ", "))
		}
		items = append(items, line)
	}

	return c.formatter.Combine(
		c.formatter.Info(fmt.Sprintf("Memories (%d)", len(entries))),
		c.formatter.List(items),
	), nil
}
