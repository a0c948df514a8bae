package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Capstone-NovoCert/novo/display"
	"github.com/Capstone-NovoCert/novo/version"
)

// VersionCmd represents the version command
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show novo version information",
	Long:  `Display version, build time, commit hash, and platform information for the novo binary.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()
		return display.Output(cmd, info, func() error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, info.String())
			fmt.Fprintf(out, "Platform: %s\n", info.Platform)
			fmt.Fprintf(out, "Go: %s\n", info.GoVersion)
			return nil
		})
	},
}
