package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/starforge/starforge/cmd/apply"
	"github.com/starforge/starforge/cmd/dump"
	"github.com/starforge/starforge/cmd/plan"
	"github.com/starforge/starforge/internal/config"
	"github.com/starforge/starforge/internal/logger"
	"github.com/starforge/starforge/internal/ui"
	"github.com/starforge/starforge/internal/version"
)

var Debug bool
var NoColor bool

var RootCmd = &cobra.Command{
	Use:   "starforge",
	Short: "Star-schema migration planner for SQL warehouses",
	Long: fmt.Sprintf(`starforge plans and applies schema migrations for star-schema warehouses.

Version: %s@%s %s %s

Commands:
  plan       Compute the migration plan for a warehouse document
  apply      Apply a migration plan to a warehouse
  validate   Check a warehouse document against the modeling rules
  dump       Dump a live warehouse as a warehouse document
  import     Convert existing DDL into a warehouse document
  draft      Draft a warehouse document from a prose description
  seed       Fill star tables with synthetic rows
  dashboard  Browse a warehouse document interactively

Use "starforge [command] --help" for more information about a command.`,
		version.App(), version.GetGitCommit(), version.Platform(), version.GetBuildDate()),
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetGlobal(logger.New(Debug), Debug)
		if NoColor {
			ui.Disable()
		}
		if cfg, err := config.Load(); err == nil && cfg.NoColor {
			ui.Disable()
		}
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "Enable debug logging")
	RootCmd.PersistentFlags().BoolVar(&NoColor, "no-color", false, "Disable colored output")
	RootCmd.AddCommand(plan.PlanCmd)
	RootCmd.AddCommand(apply.ApplyCmd)
	RootCmd.AddCommand(dump.DumpCmd)
	RootCmd.AddCommand(ValidateCmd)
	RootCmd.AddCommand(ImportCmd)
	RootCmd.AddCommand(DraftCmd)
	RootCmd.AddCommand(SeedCmd)
	RootCmd.AddCommand(DashboardCmd)
	RootCmd.AddCommand(VersionCmd)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
