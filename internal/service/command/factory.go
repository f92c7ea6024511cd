package command

import (
	"github.com/sandevgo/ivorybot/internal/config"
	"github.com/sandevgo/ivorybot/internal/core"
	"github.com/sandevgo/ivorybot/internal/memory"
	"github.com/sandevgo/ivorybot/internal/storage/convdoc"
	"github.com/sandevgo/ivorybot/internal/tools"
)

// NewDefaultRouter wires the standard command set. Help is registered last
// because it needs the router itself.
func NewDefaultRouter(
	cfg *config.AppConfig,
	acct tools.TokenAccountant,
	store *memory.Store,
	conv ConversationSource,
	docs *convdoc.Store,
) *Router {
	router := New([]core.Command{
		NewTokensCommand(acct),
		NewMemoryCommand(store),
		NewResetCommand(acct),
		NewSaveCommand(cfg, conv, docs),
	})

	help := NewHelpCommand(router)
	router.commands[help.Name()] = help
	return router
}
