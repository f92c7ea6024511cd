package main

import (
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sandevgo/ivorybot/internal/config"
	"github.com/sandevgo/ivorybot/internal/service/installer"
	"github.com/sandevgo/ivorybot/pkg/log"
)

var setupCmd = &cobra.Command{
	Use:           "setup",
	Short:         "Run the interactive configuration wizard",
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)

		if _, err := installer.RunWizard(); err != nil {
			return err
		}

		// Load the freshly written .env so a follow-up in the same process
		// sees the values.
		runtimePath := config.GetRuntimePath()
		envPath := filepath.Join(runtimePath, ".env")
		if err := godotenv.Load(envPath); err != nil {
			logger.Warn().Err(err).Str("path", envPath).Msg("failed to load .env file")
		}

		logger.Info().Msgf("initialized runtime directory at: %s", runtimePath)
		logger.Info().Msg("Setup complete! You can now run 'ivory start'.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
