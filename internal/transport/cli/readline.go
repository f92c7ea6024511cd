package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/sandevgo/ivorybot/internal/config"
	"github.com/sandevgo/ivorybot/internal/core"
	"github.com/sandevgo/ivorybot/internal/service/agent"
	"github.com/sandevgo/ivorybot/internal/service/ui"
	"github.com/sandevgo/ivorybot/pkg/log"
)

const defaultSessionID = "cli-local"

// ReadLine is the interactive terminal transport. Slash commands are
// routed before input reaches the agent.
type ReadLine struct {
	cfg    *config.AppConfig
	agent  *agent.Agent
	router core.CmdRouter
	rl     *readline.Instance
}

func NewReadLine(agent *agent.Agent, router core.CmdRouter, cfg *config.AppConfig) (*ReadLine, error) {
	// Ensure runtime directory exists
	if err := os.MkdirAll(cfg.RuntimePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     filepath.Join(cfg.RuntimePath, "input_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}

	return &ReadLine{
		cfg:    cfg,
		agent:  agent,
		router: router,
		rl:     rl,
	}, nil
}

func (r *ReadLine) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Msg("interactive chat started, type 'exit' to quit")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := r.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if len(line) == 0 {
					return nil
				}
				continue
			} else if err == io.EOF {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "exit" {
			return nil
		}
		if line == "" {
			continue
		}

		if out, handled := r.router.Execute(ctx, defaultSessionID, line); handled {
			fmt.Fprintln(r.rl.Stdout(), out)
			continue
		}

		reply, err := r.agent.Run(ctx, defaultSessionID, line, r.showProgress)
		if err != nil {
			logger.Error().Err(err).Msg("agent run failed")
			fmt.Fprintln(r.rl.Stdout(), ui.ErrStyle.Render(fmt.Sprintf("Error: %v", err)))
			continue
		}

		fmt.Fprintln(r.rl.Stdout(), reply)
	}
}

// showProgress surfaces intermediate turn phases so tool rounds do not look
// like a hang.
func (r *ReadLine) showProgress(phase agent.Phase, text string) {
	switch phase {
	case agent.PhaseToolPending:
		calls := strings.Count(text, "<mcp:tool>")
		fmt.Fprintln(r.rl.Stdout(), ui.PhaseStyle.Render(fmt.Sprintf("[running %d tool call(s)...]", calls)))
	case agent.PhaseAwaitingModel:
		// Quiet: the prompt already signals waiting.
	}
}

func (r *ReadLine) Shutdown(_ context.Context) error {
	if r.rl != nil {
		return r.rl.Close()
	}
	return nil
}
