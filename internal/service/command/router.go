package command

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sandevgo/ivorybot/internal/core"
)

// Router dispatches slash commands before input ever reaches the agent.
type Router struct {
	commands map[string]core.Command
}

func New(commands []core.Command) *Router {
	r := &Router{
		commands: make(map[string]core.Command),
	}
	for _, cmd := range commands {
		r.commands[cmd.Name()] = cmd
	}
	return r
}

// Execute handles input when it is a slash command. The bool reports
// whether the input was consumed; false means it is a normal message.
func (r *Router) Execute(ctx context.Context, sessionID, input string) (string, bool) {
	if !strings.HasPrefix(input, "/") {
		return "", false
	}

	parts := strings.Fields(input)
	name := strings.TrimPrefix(parts[0], "/")
	args := parts[1:]

	cmd, ok := r.commands[name]
	if !ok {
		return fmt.Sprintf("Unknown command: /%s (try /help)", name), true
	}

	result, err := cmd.Execute(ctx, sessionID, args)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), true
	}
	return result, true
}

func (r *Router) ListCommands() []core.Command {
	res := make([]core.Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		res = append(res, cmd)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name() < res[j].Name() })
	return res
}
