// Package cli implements manifestctl, the command line companion of the
// service for inspecting and checking manifests offline.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "manifestctl",
		Short:        "Inspect and validate the Indian Airlines IVR manifest",
		SilenceUsage: true,
	}

	cmd.AddCommand(
		showCmd(),
		validateCmd(),
		packagesCmd(),
		driftCmd(),
		tokenCmd(),
	)
	return cmd
}
