package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/starforge/starforge/internal/ddl"
	"github.com/starforge/starforge/internal/schema"
	"github.com/starforge/starforge/internal/ui"
	"github.com/starforge/starforge/internal/version"
)

var (
	importFile      string
	importOutput    string
	importWarehouse string
)

var ImportCmd = &cobra.Command{
	Use:          "import",
	Short:        "Convert existing warehouse DDL into a warehouse document",
	Long:         "Parse a SQL file of CREATE TABLE, CREATE INDEX and ALTER TABLE statements and emit the equivalent warehouse document. Tables without a dim_ or fact_ prefix are skipped.",
	RunE:         runImport,
	SilenceUsage: true,
}

func init() {
	ImportCmd.Flags().StringVarP(&importFile, "file", "f", "", "Path to the SQL file to import (required)")
	ImportCmd.Flags().StringVarP(&importOutput, "output", "o", "", "Write the document to this path instead of stdout")
	ImportCmd.Flags().StringVar(&importWarehouse, "warehouse", "", "Warehouse name to record in the document")
	ImportCmd.MarkFlagRequired("file")
}

func runImport(cmd *cobra.Command, args []string) error {
	sqlText, err := os.ReadFile(importFile)
	if err != nil {
		return fmt.Errorf("reading %s: %w", importFile, err)
	}

	spec, err := ddl.Import(string(sqlText))
	if err != nil {
		return err
	}
	if importWarehouse != "" {
		spec.Warehouse = importWarehouse
	}
	if spec.TableCount() == 0 {
		return fmt.Errorf("%s contains no dim_ or fact_ tables", importFile)
	}

	if defects := schema.Validate(spec); len(defects) > 0 {
		ui.Warn("Imported document has %d defects. Fix them before planning:", len(defects))
		ui.Defects(defects)
	}

	if importOutput == "" {
		body, err := schema.Marshal(spec)
		if err != nil {
			return err
		}
		fmt.Print(string(body))
		return nil
	}

	header := fmt.Sprintf("Imported from %s by starforge v%s", importFile, version.App())
	if err := schema.WriteFile(importOutput, spec, header); err != nil {
		return err
	}
	ui.Success("Imported %d dimensions and %d facts into %s", len(spec.Dimensions), len(spec.Facts), importOutput)
	return nil
}
