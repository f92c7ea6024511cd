package installer

// InstallState accumulates the env values collected by the wizard steps.
type InstallState struct {
	EnvVars map[string]string
}

func NewInstallState() *InstallState {
	return &InstallState{
		EnvVars: make(map[string]string),
	}
}

func (s *InstallState) Provider() string {
	return s.EnvVars["LLM_PROVIDER"]
}
