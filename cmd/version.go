package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/starforge/starforge/internal/version"
)

var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  "Display the version number of starforge",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "starforge v%s@%s %s %s\n",
			version.App(), version.GetGitCommit(), version.Platform(), version.GetBuildDate())
	},
}
