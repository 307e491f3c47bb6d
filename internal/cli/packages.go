package cli

import (
	"fmt"
	"os"

	"indian-airlines-ivr/internal/manifest"

	"github.com/spf13/cobra"
)

func packagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "packages [ROOT]",
		Short: "List the packages discovery finds below ROOT (default: current directory)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			info, err := os.Stat(root)
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", root)
			}

			pkgs, err := manifest.Discover(os.DirFS(root), ".")
			if err != nil {
				return err
			}
			for _, p := range pkgs {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}
