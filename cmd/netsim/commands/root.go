package commands

import (
	"os"

	"github.com/spf13/cobra"
)

const configEnv = "NETSIM_CONFIG"

// Version is set at build time with -ldflags.
var Version = "dev"

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "netsim",
		Short:         "Dynamic topology simulator with a reliable transfer over the shortest path",
		Version:       Version,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newRunCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return cmd
}

// Execute executes root CLI command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
