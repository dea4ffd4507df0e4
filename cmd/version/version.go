// Package version provides the version command
package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Copani/matRad/internal/buildinfo"
	"github.com/Copani/matRad/internal/conf"
)

// Command creates a new cobra.Command to print build metadata.
func Command(build buildinfo.BuildInfo, config func() *conf.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the matRad version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "matRad %s\n", build.GetVersion())
			fmt.Fprintf(out, "Build date: %s\n", build.GetBuildDate())
			fmt.Fprintf(out, "System ID:  %s\n", build.GetSystemID())
			if c := config(); c != nil {
				fmt.Fprintf(out, "Runtime:    %s\n", c.Environment())
			}
			return nil
		},
	}

	return cmd
}
