package installer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// inputStep is a reusable single-field text prompt writing its value into
// one env var.
type inputStep struct {
	prompt     string
	envKey     string
	input      textinput.Model
	validate   func(value string) error
	skip       func(state *InstallState) bool
	allowEmpty bool
	errText    string
}

func newInputStep(prompt, envKey, placeholder string, secret bool) *inputStep {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Focus()
	ti.CharLimit = 200
	if secret {
		ti.EchoMode = textinput.EchoPassword
	}
	return &inputStep{prompt: prompt, envKey: envKey, input: ti}
}

func (s *inputStep) Init() tea.Cmd {
	return textinput.Blink
}

func (s *inputStep) Update(msg tea.Msg, state *InstallState) (Step, tea.Cmd) {
	if s.skip != nil && s.skip(state) {
		return nil, nil
	}

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		value := strings.TrimSpace(s.input.Value())
		if value == "" && !s.allowEmpty {
			s.errText = "a value is required"
			return s, nil
		}
		if s.validate != nil && value != "" {
			if err := s.validate(value); err != nil {
				s.errText = err.Error()
				return s, nil
			}
		}
		if value != "" {
			state.EnvVars[s.envKey] = value
		}
		return nil, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *inputStep) View(_ *InstallState) string {
	var b strings.Builder
	b.WriteString(s.prompt + "\n\n")
	b.WriteString(s.input.View() + "\n")
	if s.errText != "" {
		b.WriteString(errorStyle.Render(s.errText) + "\n")
	}
	b.WriteString("\n(enter to confirm, ctrl+c to quit)\n")
	return b.String()
}

func NewAPIKeyStep() Step {
	s := newInputStep("Paste your API key:", "", "sk-...", true)
	s.skip = func(state *InstallState) bool {
		return state.Provider() == "ollama"
	}
	return &providerKeyStep{inputStep: s}
}

// providerKeyStep routes the API key to the provider-specific env var,
// which is only known after the provider step has run.
type providerKeyStep struct {
	*inputStep
}

func (s *providerKeyStep) Update(msg tea.Msg, state *InstallState) (Step, tea.Cmd) {
	switch state.Provider() {
	case "openrouter":
		s.envKey = "OPENROUTER_API_KEY"
	case "openai":
		s.envKey = "OPENAI_API_KEY"
	case "custom":
		s.envKey = "CUSTOM_OPENAI_API_KEY"
	}

	next, cmd := s.inputStep.Update(msg, state)
	if next == nil {
		return nil, cmd
	}
	return s, cmd
}

func NewModelStep() Step {
	return &providerModelStep{
		inputStep: newInputStep("Model to use (empty for the provider default):", "", "google/gemma-3-27b-it:free", false),
	}
}

type providerModelStep struct {
	*inputStep
}

func (s *providerModelStep) Update(msg tea.Msg, state *InstallState) (Step, tea.Cmd) {
	switch state.Provider() {
	case "openrouter":
		s.envKey = "OPENROUTER_MODEL"
	case "openai":
		s.envKey = "OPENAI_MODEL"
	case "ollama":
		s.envKey = "OLLAMA_MODEL"
	case "custom":
		s.envKey = "CUSTOM_OPENAI_MODEL"
	}
	s.allowEmpty = state.Provider() != "custom"

	next, cmd := s.inputStep.Update(msg, state)
	if next == nil {
		return nil, cmd
	}
	return s, cmd
}

func NewBudgetStep() Step {
	s := newInputStep("Max context tokens (empty for 100000):", "MAX_CONTEXT_TOKENS", "100000", false)
	s.allowEmpty = true
	s.validate = func(value string) error {
		n, err := strconv.Atoi(value)
		if err != nil || n < 1000 {
			return fmt.Errorf("enter a number of at least 1000")
		}
		return nil
	}
	return s
}

func NewTelegramTokenStep() Step {
	s := newInputStep("Telegram bot token (from @BotFather):", "TELEGRAM_TOKEN", "123456:ABC...", true)
	s.skip = func(state *InstallState) bool {
		return state.EnvVars["IVORY_CHANNEL"] == "cli"
	}
	return s
}

func NewTelegramOwnerStep() Step {
	s := newInputStep("Your numeric Telegram user ID:", "TELEGRAM_OWNER_ID", "123456789", false)
	s.skip = func(state *InstallState) bool {
		return state.EnvVars["IVORY_CHANNEL"] == "cli"
	}
	s.validate = func(value string) error {
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return fmt.Errorf("enter a numeric ID")
		}
		return nil
	}
	return s
}
