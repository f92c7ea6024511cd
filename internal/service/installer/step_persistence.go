package installer

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/sandevgo/ivorybot/internal/config"
)

// SaveEnvStep writes the collected configuration to the runtime .env and
// lays out the runtime directories.
type SaveEnvStep struct {
	err   error
	saved bool
}

func NewSaveEnvStep() Step {
	return &SaveEnvStep{}
}

type advanceMsg struct{}

func (s *SaveEnvStep) Init() tea.Cmd {
	// Kick Update immediately: this step has no user interaction.
	return func() tea.Msg { return advanceMsg{} }
}

func (s *SaveEnvStep) Update(_ tea.Msg, state *InstallState) (Step, tea.Cmd) {
	if s.saved {
		return nil, nil
	}

	path := config.GetRuntimePath()
	if err := os.MkdirAll(path, 0755); err != nil {
		s.err = fmt.Errorf("failed to create runtime directory: %w", err)
		return s, nil
	}

	envPath := filepath.Join(path, ".env")
	if _, err := os.Stat(envPath); err == nil {
		s.err = fmt.Errorf(".env already exists at %s, remove it to re-run setup", envPath)
		return s, nil
	}

	// The wizard's channel choice maps onto the two transport flags.
	switch state.EnvVars["IVORY_CHANNEL"] {
	case "telegram":
		state.EnvVars["ENABLE_CLI"] = "false"
		state.EnvVars["ENABLE_TELEGRAM"] = "true"
	case "both":
		state.EnvVars["ENABLE_CLI"] = "true"
		state.EnvVars["ENABLE_TELEGRAM"] = "true"
	default:
		state.EnvVars["ENABLE_CLI"] = "true"
	}
	delete(state.EnvVars, "IVORY_CHANNEL")

	if err := godotenv.Write(state.EnvVars, envPath); err != nil {
		s.err = fmt.Errorf("failed to write .env: %w", err)
		return s, nil
	}

	for _, dir := range []string{"memories", "conversations", "knowledge"} {
		if err := os.MkdirAll(filepath.Join(path, dir), 0755); err != nil {
			s.err = fmt.Errorf("failed to create %s directory: %w", dir, err)
			return s, nil
		}
	}

	s.saved = true
	return nil, nil
}

func (s *SaveEnvStep) View(_ *InstallState) string {
	if s.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", s.err)) + "\n\n(press ctrl+c to quit)\n"
	}
	return "Saving configuration...\n"
}
