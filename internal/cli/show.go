package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"indian-airlines-ivr/internal/manifest"

	"github.com/spf13/cobra"
)

func showCmd() *cobra.Command {
	var file string
	var format string

	c := &cobra.Command{
		Use:   "show",
		Short: "Print the manifest (the embedded one unless --file is given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := loadManifest(file)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "yaml", "yml":
				return m.Encode(out)
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(m)
			default:
				return fmt.Errorf("unknown format %q (want yaml or json)", format)
			}
		},
	}

	c.Flags().StringVarP(&file, "file", "f", "", "Manifest or go.mod to read (optional; defaults to the embedded manifest)")
	c.Flags().StringVarP(&format, "format", "o", "yaml", "Output format: yaml or json")
	return c
}

// loadManifest reads path as a go.mod or a manifest document, or returns the
// embedded manifest when path is empty.
func loadManifest(path string) (manifest.Manifest, error) {
	if path == "" {
		return manifest.Default()
	}
	if filepath.Base(path) == "go.mod" {
		data, err := os.ReadFile(path)
		if err != nil {
			return manifest.Manifest{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return manifest.FromGoMod(path, data)
	}
	return manifest.LoadFile(path)
}
