package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"reelcut/internal/logx"
)

var (
	projectDir string
	outputJSON bool
	verbose    bool
	noProgress bool
)

// Execute runs the root cobra command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "reelcut",
		Short:         "Headless timeline editor for slideshows and short videos",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			logx.Init(verbose)
		},
	}

	cmd.PersistentFlags().StringVar(&projectDir, "project", "", "Path to project directory")
	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output")
	cmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "Disable interactive progress output")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newMediaCmd())
	cmd.AddCommand(newFrameCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newPlayCmd())
	cmd.AddCommand(newShellCmd())
	cmd.AddCommand(newReplayCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newProjectsCmd())

	return cmd
}
