package cli

import (
	"debug/buildinfo"
	"errors"
	"fmt"
	"runtime/debug"

	"indian-airlines-ivr/internal/manifest"

	"github.com/spf13/cobra"
)

var errDrift = errors.New("declared pins differ from the linked modules")

func driftCmd() *cobra.Command {
	var file string
	var binary string

	c := &cobra.Command{
		Use:   "drift",
		Short: "Compare the declared pins with the modules linked into a binary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := loadManifest(file)
			if err != nil {
				return err
			}

			var linked []*debug.Module
			if binary != "" {
				info, err := buildinfo.ReadFile(binary)
				if err != nil {
					return fmt.Errorf("failed to read build info from %s: %w", binary, err)
				}
				linked = info.Deps
			} else {
				linked = manifest.LinkedModules()
			}

			out := cmd.OutOrStdout()
			drift := manifest.Drift(m, linked)
			if len(drift) == 0 {
				fmt.Fprintf(out, "OK %d pin(s) match\n", len(m.Requires))
				return nil
			}
			for _, d := range drift {
				linkedVersion := d.Linked
				if linkedVersion == "" {
					linkedVersion = "-"
				}
				fmt.Fprintf(out, "%-8s %-45s declared %-12s linked %s\n", d.Status, d.Module, d.Declared, linkedVersion)
			}
			return fmt.Errorf("%w: %d module(s)", errDrift, len(drift))
		},
	}

	c.Flags().StringVarP(&file, "file", "f", "", "Manifest or go.mod to read (optional; defaults to the embedded manifest)")
	c.Flags().StringVarP(&binary, "binary", "b", "", "Go binary to inspect (optional; defaults to manifestctl itself)")
	return c
}
