package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/sandevgo/ivorybot/internal/budget"
	"github.com/sandevgo/ivorybot/internal/config"
	"github.com/sandevgo/ivorybot/internal/memory"
	"github.com/sandevgo/ivorybot/internal/providers/llm"
	"github.com/sandevgo/ivorybot/internal/service/agent"
	"github.com/sandevgo/ivorybot/internal/service/command"
	"github.com/sandevgo/ivorybot/internal/storage/convdoc"
	"github.com/sandevgo/ivorybot/internal/storage/sqlite"
	"github.com/sandevgo/ivorybot/internal/tools"
	"github.com/sandevgo/ivorybot/internal/transport/cli"
	"github.com/sandevgo/ivorybot/internal/transport/telegram"
	"github.com/sandevgo/ivorybot/pkg/log"
	"github.com/sandevgo/ivorybot/pkg/srv"
)

// NewServices wires the whole application: config, storage, provider,
// tools, agent, commands, and the enabled transports.
func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)

	// 2. Storage
	db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	services = append(services, srv.NewCleanup(db.Close))
	audit := sqlite.NewTranscriptsRepo(db)

	store, err := memory.Open(appCfg.GetMemoryDir())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open memory store")
	}

	docs, err := convdoc.NewStore(appCfg.GetConversationsDir())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open conversations store")
	}

	// 3. LLM provider
	provider, err := llm.New(ctx, appCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize LLM provider")
	}
	logger.Info().Str("provider", provider.Name()).Str("model", provider.Model()).Msg("llm provider ready")

	// 4. Token budget
	counter, err := budget.NewCounter()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize token counter")
	}
	mgr := budget.NewManager(
		counter,
		appCfg.MaxContextTokens,
		appCfg.SummarizeThreshold,
		appCfg.SummarizeBatch,
		llm.NewSummarizer(provider),
	)
	conv := agent.NewConversation(mgr)

	// 5. Tools and agent. The token tool needs the agent, so the registry
	// is filled in two passes.
	registry := tools.NewRegistry()
	mustRegister(ctx, registry, tools.NewCalculator())
	mustRegister(ctx, registry, tools.NewMemory(store))
	mustRegister(ctx, registry, tools.NewFilesystem(appCfg.GetKnowledgeDir()))

	ag := agent.NewAgent(appCfg, provider, registry, conv, store, audit)
	mustRegister(ctx, registry, tools.NewTokenManager(ag))

	// 6. Slash commands
	router := command.NewDefaultRouter(appCfg, ag, store, conv, docs)

	// 7. Transports
	if appCfg.IsTelegramSelected() {
		tgCfg := config.NewTelegramConfig(ctx)
		bot, err := telegram.NewBot(ctx, tgCfg, ag, router)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize telegram bot")
		}
		services = append(services, bot)
	}

	if appCfg.EnableCLI {
		rl, err := cli.NewReadLine(ag, router, appCfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize terminal transport")
		}
		services = append(services, rl)
	}

	if len(services) == 0 {
		logger.Fatal().Msg("no transports enabled, check ENABLE_CLI / ENABLE_TELEGRAM")
	}

	return services
}

func mustRegister(ctx context.Context, registry *tools.Registry, tool tools.Tool) {
	if err := registry.Register(tool); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to register tool")
	}
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
