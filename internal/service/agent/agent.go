package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/ivorybot/internal/config"
	"github.com/sandevgo/ivorybot/internal/core"
	"github.com/sandevgo/ivorybot/internal/knowledge"
	"github.com/sandevgo/ivorybot/internal/memory"
	"github.com/sandevgo/ivorybot/internal/protocol"
	"github.com/sandevgo/ivorybot/internal/providers/llm"
	"github.com/sandevgo/ivorybot/internal/tools"
	"github.com/sandevgo/ivorybot/pkg/log"
)

// Phase names the stage a turn is in. A turn starts awaiting the model,
// moves to tool-pending when the reply carries directives, and finalizes
// once a reply comes back clean.
type Phase string

const (
	PhaseAwaitingModel Phase = "awaiting_model"
	PhaseToolPending   Phase = "tool_pending"
	PhaseFinalizing    Phase = "finalizing"
)

// maxToolRounds bounds how many directive/result cycles one user turn may
// take before the agent gives up and finalizes with what it has.
const maxToolRounds = 5

// warnRatio is the usage fraction above which the system prompt starts
// nudging the model toward summarization.
const warnRatio = 0.8

// Auditor records everything that happens during a turn. Audit failures
// are logged, never fatal.
type Auditor interface {
	AddMessage(ctx context.Context, sessionID string, msg core.Message) error
	AddToolEvent(ctx context.Context, sessionID string, call core.ToolCall, res core.ToolResult) error
}

// Agent drives the turn loop: user input in, model calls, directive
// extraction, tool execution, result splicing, and the final clean reply
// out.
type Agent struct {
	appCfg   *config.AppConfig
	provider llm.Provider
	registry *tools.Registry
	conv     *Conversation
	store    *memory.Store
	audit    Auditor
}

func NewAgent(
	appCfg *config.AppConfig,
	provider llm.Provider,
	registry *tools.Registry,
	conv *Conversation,
	store *memory.Store,
	audit Auditor,
) *Agent {
	return &Agent{
		appCfg:   appCfg,
		provider: provider,
		registry: registry,
		conv:     conv,
		store:    store,
		audit:    audit,
	}
}

// Run executes one full user turn and returns the final user-facing text.
// A provider failure is fatal to the turn: the error propagates and no
// assistant message is appended.
func (a *Agent) Run(ctx context.Context, sessionID, input string, onUpdate func(Phase, string)) (string, error) {
	logger := log.FromCtx(ctx)

	userMsg := a.conv.Append(core.Message{Role: core.RoleUser, Content: input})
	a.auditMessage(ctx, sessionID, userMsg)

	a.compactBestEffort(ctx)
	system := a.buildSystemPrompt()

	for round := 0; ; round++ {
		// Spliced tool results grow the buffer mid-turn, so the budget is
		// re-checked before every model call, not just at turn start.
		if round > 0 {
			a.compactBestEffort(ctx)
		}

		a.notify(onUpdate, PhaseAwaitingModel, "")

		reply, err := a.provider.Chat(ctx, system, a.conv.Messages())
		if err != nil {
			return "", fmt.Errorf("model call failed: %w", err)
		}

		calls, failures := protocol.Extract(reply)
		for _, f := range failures {
			logger.Warn().Str("reason", f.Reason).Msg("dropped malformed tool directive")
		}

		if len(calls) == 0 || round >= maxToolRounds {
			if len(calls) > 0 {
				logger.Warn().Int("rounds", round).Msg("tool round budget exhausted, finalizing")
			}
			final := protocol.StripBlocks(reply)
			msg := a.conv.Append(core.Message{Role: core.RoleAssistant, Content: final})
			a.auditMessage(ctx, sessionID, msg)
			a.notify(onUpdate, PhaseFinalizing, final)
			return final, nil
		}

		a.notify(onUpdate, PhaseToolPending, reply)

		results := make([]core.ToolResult, 0, len(calls))
		for _, call := range calls {
			logger.Info().Str("tool", call.Name).Msg("executing tool")
			res := a.registry.Execute(ctx, call)
			if !res.Success {
				logger.Warn().Str("tool", call.Name).Str("kind", string(res.Kind)).Str("error", res.Err).Msg("tool call failed")
			}
			a.auditToolEvent(ctx, sessionID, call, res)
			results = append(results, res)
		}

		spliced := protocol.SpliceResults(reply, calls, results)
		msg := a.conv.Append(core.Message{Role: core.RoleAssistant, Content: spliced})
		a.auditMessage(ctx, sessionID, msg)
	}
}

// compactBestEffort condenses history when the buffer is over threshold.
// Summarization failure is never fatal: the turn continues on full history.
func (a *Agent) compactBestEffort(ctx context.Context) {
	logger := log.FromCtx(ctx)
	if replaced, err := a.conv.CompactIfNeeded(ctx); err != nil {
		logger.Warn().Err(err).Msg("summarization failed, continuing with full history")
	} else if replaced > 0 {
		logger.Info().Int("replaced", replaced).Msg("history condensed before model call")
	}
}

// buildSystemPrompt assembles the directive syntax section, the knowledge
// base, and the current memory snapshot.
func (a *Agent) buildSystemPrompt() string {
	parts := []string{protocol.SystemPrompt(a.registry.Definitions())}

	if docs, err := knowledge.Load(a.appCfg.GetKnowledgeDir()); err == nil {
		if section := knowledge.PromptSection(docs); section != "" {
			parts = append(parts, section)
		}
	}

	if a.store != nil {
		parts = append(parts, a.store.ContextSnippet(3))
	}

	_, summaries := a.conv.Stats()
	if summaries > 0 {
		parts = append(parts, "NOTE: Some earlier conversation has been summarized to save space.")
	}

	st := a.TokenStatus()
	if st.Max > 0 && st.Ratio >= warnRatio {
		parts = append(parts, fmt.Sprintf("WARNING: Conversation is approaching the token limit (%.1f%% used). Consider summarizing, saving important information to memory, or starting a new conversation soon.", st.Ratio*100))
	}

	return strings.Join(parts, "\n\n")
}

func (a *Agent) notify(onUpdate func(Phase, string), phase Phase, text string) {
	if onUpdate != nil {
		onUpdate(phase, text)
	}
}

func (a *Agent) auditMessage(ctx context.Context, sessionID string, msg core.Message) {
	if a.audit == nil {
		return
	}
	if err := a.audit.AddMessage(ctx, sessionID, msg); err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("failed to audit message")
	}
}

func (a *Agent) auditToolEvent(ctx context.Context, sessionID string, call core.ToolCall, res core.ToolResult) {
	if a.audit == nil {
		return
	}
	if err := a.audit.AddToolEvent(ctx, sessionID, call, res); err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("failed to audit tool event")
	}
}

// TokenStatus implements tools.TokenAccountant.
func (a *Agent) TokenStatus() tools.TokenStatus {
	used := a.conv.Tokens()
	max := a.conv.MaxTokens()
	messages, summaries := a.conv.Stats()

	ratio := 0.0
	if max > 0 {
		ratio = float64(used) / float64(max)
	}
	return tools.TokenStatus{
		Used:      used,
		Max:       max,
		Ratio:     ratio,
		Messages:  messages,
		Summaries: summaries,
	}
}

// ResetConversation implements tools.TokenAccountant.
func (a *Agent) ResetConversation() {
	a.conv.Reset()
}

// ForceSummarize implements tools.TokenAccountant.
func (a *Agent) ForceSummarize(ctx context.Context) (int, error) {
	return a.conv.ForceCompact(ctx)
}
