package installer

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type choice struct {
	id    string
	label string
}

// selectStep is a reusable cursor-driven picker writing its choice into one
// env var.
type selectStep struct {
	prompt  string
	envKey  string
	choices []choice
	cursor  int
	skip    func(state *InstallState) bool
}

func (s *selectStep) Init() tea.Cmd {
	return nil
}

func (s *selectStep) Update(msg tea.Msg, state *InstallState) (Step, tea.Cmd) {
	if s.skip != nil && s.skip(state) {
		return nil, nil
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "up", "k":
			if s.cursor > 0 {
				s.cursor--
			}
		case "down", "j":
			if s.cursor < len(s.choices)-1 {
				s.cursor++
			}
		case "enter":
			state.EnvVars[s.envKey] = s.choices[s.cursor].id
			return nil, nil
		}
	}
	return s, nil
}

func (s *selectStep) View(_ *InstallState) string {
	var b strings.Builder
	b.WriteString(s.prompt + "\n\n")
	for i, c := range s.choices {
		if s.cursor == i {
			b.WriteString(selStyle.Render(fmt.Sprintf("❯ %s", c.label)) + "\n")
		} else {
			b.WriteString(itemStyle.Render(fmt.Sprintf("  %s", c.label)) + "\n")
		}
	}
	b.WriteString("\n(press ctrl+c to quit)\n")
	return b.String()
}

func NewProviderStep() Step {
	return &selectStep{
		prompt: "Select your LLM provider:",
		envKey: "LLM_PROVIDER",
		choices: []choice{
			{id: "openrouter", label: "OpenRouter"},
			{id: "openai", label: "OpenAI"},
			{id: "ollama", label: "Ollama (local)"},
			{id: "custom", label: "Custom OpenAI-compatible endpoint"},
		},
	}
}

func NewChannelStep() Step {
	return &selectStep{
		prompt: "Where do you want to chat?",
		envKey: "IVORY_CHANNEL",
		choices: []choice{
			{id: "cli", label: "Terminal only"},
			{id: "telegram", label: "Telegram only"},
			{id: "both", label: "Terminal and Telegram"},
		},
	}
}
