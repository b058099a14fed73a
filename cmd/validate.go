package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/starforge/starforge/internal/config"
	"github.com/starforge/starforge/internal/schema"
	"github.com/starforge/starforge/internal/ui"
)

var validateFile string

var ValidateCmd = &cobra.Command{
	Use:          "validate",
	Short:        "Check a warehouse document against the modeling rules",
	Long:         "Load a warehouse document, resolve its includes and report every modeling defect. Exits non-zero when defects are found.",
	RunE:         runValidate,
	SilenceUsage: true,
}

func init() {
	ValidateCmd.Flags().StringVarP(&validateFile, "file", "f", "", "Path to the warehouse document (default: spec_path from starforge.yaml)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	file := validateFile
	if file == "" {
		file = cfg.SpecPath
	}

	spec, err := schema.Load(file)
	if err != nil {
		return err
	}

	defects := schema.Validate(spec)
	if len(defects) > 0 {
		ui.Defects(defects)
		return fmt.Errorf("%s has %d defects", file, len(defects))
	}

	ui.Success("%s is valid: %d dimensions, %d facts", file, len(spec.Dimensions), len(spec.Facts))
	return nil
}
