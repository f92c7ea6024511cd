package config

import (
	"context"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/ivorybot/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"IVORY_RUNTIME_PATH" envDefault:".ivorybot"`
	LLMProvider string `env:"LLM_PROVIDER" envDefault:"openrouter"`

	// Transport Flags
	EnableTelegram bool `env:"ENABLE_TELEGRAM" envDefault:"false"`
	EnableCLI      bool `env:"ENABLE_CLI" envDefault:"true"`

	// Conversation identity, embedded in exported conversation documents.
	AgentType   string `env:"IVORY_AGENT_TYPE" envDefault:"assistant"`
	DisplayName string `env:"IVORY_DISPLAY_NAME" envDefault:"Ivory Session"`

	// Token budget
	MaxContextTokens   int     `env:"MAX_CONTEXT_TOKENS" envDefault:"100000"`
	SummarizeThreshold float64 `env:"SUMMARIZE_THRESHOLD" envDefault:"0.8"`
	SummarizeBatch     int     `env:"SUMMARIZE_BATCH" envDefault:"8"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	// Relative runtime paths resolve against the home directory, matching
	// GetRuntimePath.
	if !filepath.IsAbs(c.RuntimePath) {
		c.RuntimePath = GetRuntimePath()
	}
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "ivorybot.db")
}

func (c AppConfig) GetMemoryDir() string {
	return filepath.Join(c.RuntimePath, "memories")
}

func (c AppConfig) GetConversationsDir() string {
	return filepath.Join(c.RuntimePath, "conversations")
}

func (c AppConfig) GetKnowledgeDir() string {
	return filepath.Join(c.RuntimePath, "knowledge")
}

func (c AppConfig) IsTelegramSelected() bool {
	return c.EnableTelegram
}
