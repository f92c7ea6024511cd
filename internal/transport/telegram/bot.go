package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/sandevgo/ivorybot/internal/config"
	"github.com/sandevgo/ivorybot/internal/core"
	"github.com/sandevgo/ivorybot/internal/service/agent"
	"github.com/sandevgo/ivorybot/pkg/conv"
	"github.com/sandevgo/ivorybot/pkg/log"
)

const baseContextKey = "base_context"

// Bot is the Telegram transport. It is single-tenant: only the configured
// owner can talk to it, everyone else is silently ignored.
type Bot struct {
	bot     *tele.Bot
	cfg     *config.TelegramConfig
	agent   *agent.Agent
	router  core.CmdRouter
	ownerID int64
}

func NewBot(
	ctx context.Context,
	cfg *config.TelegramConfig,
	agent *agent.Agent,
	router core.CmdRouter,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot := &Bot{
		bot:     b,
		cfg:     cfg,
		agent:   agent,
		router:  router,
		ownerID: cfg.OwnerID,
	}

	// Propagate the process context (with its logger) into handlers.
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(baseContextKey, ctx)
			return next(c)
		}
	})

	// Only the owner gets through.
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if c.Sender().ID != bot.ownerID {
				return nil
			}
			return next(c)
		}
	})

	b.Handle(tele.OnText, bot.handleMessage)

	return bot, nil
}

func (b *Bot) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("starting telegram bot")
	b.bot.Start()
	return nil
}

func (b *Bot) Shutdown(_ context.Context) error {
	b.bot.Stop()
	return nil
}

func (b *Bot) handleMessage(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)
	logger := log.FromCtx(ctx)
	sessionID := fmt.Sprintf("telegram-%d", c.Chat().ID)

	if out, handled := b.router.Execute(ctx, sessionID, c.Text()); handled {
		return b.send(c, out)
	}

	_ = c.Notify(tele.Typing)

	reply, err := b.agent.Run(ctx, sessionID, c.Text(), func(phase agent.Phase, text string) {
		if phase == agent.PhaseToolPending {
			calls := strings.Count(text, "<mcp:tool>")
			_ = c.Send(fmt.Sprintf("🛠 Running %d tool call(s)...", calls))
			_ = c.Notify(tele.Typing)
		}
	})
	if err != nil {
		logger.Error().Err(err).Msg("agent run failed")
		return c.Send(fmt.Sprintf("error: %v", err))
	}

	return b.send(c, reply)
}

func (b *Bot) send(c tele.Context, text string) error {
	html := strings.TrimSpace(conv.ToTelegramHTML(text))
	if html == "" {
		return nil
	}
	if err := c.Send(html, tele.ModeHTML); err != nil {
		// Fall back to plain text when the rendered HTML upsets Telegram.
		return c.Send(text)
	}
	return nil
}
