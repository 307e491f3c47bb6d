package cli

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"indian-airlines-ivr/internal/manifest"

	"github.com/spf13/cobra"
)

var errInvalidManifest = errors.New("manifest is invalid")

func validateCmd() *cobra.Command {
	var releases []string

	c := &cobra.Command{
		Use:   "validate [FILE]",
		Short: "Check a manifest or go.mod against every manifest rule",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var file string
			if len(args) == 1 {
				file = args[0]
			}
			m, err := loadManifest(file)
			if err != nil {
				return err
			}

			if len(releases) == 0 {
				releases = manifest.MaintainedReleases(runtime.Version())
			}

			out := cmd.OutOrStdout()
			err = manifest.Validate(m, releases)
			issues := manifest.Issues(err)
			if err != nil && issues == nil {
				return err
			}
			if len(issues) > 0 {
				for _, issue := range issues {
					fmt.Fprintf(out, "%-12s %-22s %s\n", issue.Field, issue.Code, issue.Message)
				}
				return fmt.Errorf("%w: %d issue(s)", errInvalidManifest, len(issues))
			}

			fmt.Fprintf(out, "OK %s %s (runtime %s; releases %s)\n", m.Name, m.Version, m.Runtime, strings.Join(releases, ", "))
			return nil
		},
	}

	c.Flags().StringSliceVar(&releases, "releases", nil, "Maintained runtime releases to check against (default: derived from this binary's toolchain)")
	return c
}
