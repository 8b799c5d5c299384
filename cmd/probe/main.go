package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Alwanly/detect-probe/internal/config"
	"github.com/Alwanly/detect-probe/internal/models"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "probe",
		Short:         "Detect probe: polls for security tests and reports their results",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadEnvFile(envFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "optional KEY=VALUE file loaded into the environment")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the polling loop until interrupted",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runProbe(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "register",
			Short: "Enroll this endpoint and print its probe token",
			RunE: func(cmd *cobra.Command, args []string) error {
				return registerProbe(cmd.Context(), cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the probe version and platform tag",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "probe %s (%s)\n", version, models.Platform(runtime.GOOS, runtime.GOARCH))
			},
		},
	)
	return root
}
