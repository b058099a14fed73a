package cmd

import (
	"github.com/spf13/cobra"

	"github.com/starforge/starforge/internal/config"
	"github.com/starforge/starforge/internal/schema"
	"github.com/starforge/starforge/internal/tui"
)

var dashboardFile string

var DashboardCmd = &cobra.Command{
	Use:          "dashboard",
	Short:        "Browse a warehouse document in an interactive terminal UI",
	Long:         "Open a full-screen browser over the document: table list, per-table column detail, and a validation overlay. Press q to quit, enter to inspect a table, v to toggle defects.",
	RunE:         runDashboard,
	SilenceUsage: true,
}

func init() {
	DashboardCmd.Flags().StringVarP(&dashboardFile, "file", "f", "", "Path to the warehouse document (default: spec_path from starforge.yaml)")
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	file := dashboardFile
	if file == "" {
		file = cfg.SpecPath
	}

	spec, err := schema.Load(file)
	if err != nil {
		return err
	}
	return tui.Run(spec)
}
