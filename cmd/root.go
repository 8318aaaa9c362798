// Package cmd implements the CLI commands for chatexport using Cobra.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gaurav-prasanna/chatexport/core/profile"
)

// Environment variables consulted when the matching flag is not set.
const (
	envRemote    = "CHATEXPORT_REMOTE"
	envOutputDir = "CHATEXPORT_OUTPUT_DIR"
	envProfile   = "CHATEXPORT_PROFILE"
)

var (
	flagVerbose  bool
	flagProfiles string

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "chatexport",
	Short: "chatexport — save AI chat conversations as standalone documents",
	Long: `chatexport reads a conversation from an AI chat web app open in Chrome
(or from a saved HTML page), scrolls through it to collect every turn, and
writes an HTML, JSON or PDF document.

Usage:
  chatexport export [flags]
  chatexport profiles`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine.
		_ = godotenv.Load()

		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if flagVerbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		l, err := config.Build()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log collection details")
	rootCmd.PersistentFlags().StringVar(&flagProfiles, "profiles", "", "YAML file with additional or overriding site profiles")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, errorStyle.Render("✗ "+err.Error()))
		}
		os.Exit(1)
	}
}

// loadRegistry returns the built-in profiles merged with --profiles.
func loadRegistry() (*profile.Registry, error) {
	reg, err := profile.Builtin()
	if err != nil {
		return nil, err
	}
	if flagProfiles != "" {
		if err := reg.LoadFile(flagProfiles); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// envDefault returns value, or the environment variable key when value is
// empty.
func envDefault(value, key string) string {
	if value != "" {
		return value
	}
	return os.Getenv(key)
}
