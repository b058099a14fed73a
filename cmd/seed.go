package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/starforge/starforge/internal/config"
	"github.com/starforge/starforge/internal/schema"
	"github.com/starforge/starforge/internal/seed"
	"github.com/starforge/starforge/internal/ui"
	"github.com/starforge/starforge/internal/warehouse"
)

var (
	seedFile string
	seedDB   string
	seedRows int
)

var SeedCmd = &cobra.Command{
	Use:          "seed",
	Short:        "Fill warehouse tables with deterministic synthetic rows",
	Long:         "Load a warehouse document and insert synthetic rows into every table it declares. Dimensions are filled first so fact foreign keys always resolve. Existing rows in those tables are replaced.",
	RunE:         runSeed,
	SilenceUsage: true,
}

func init() {
	SeedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "Path to the warehouse document (default: spec_path from starforge.yaml)")
	SeedCmd.Flags().StringVar(&seedDB, "db", "", "Warehouse connection URL (default: $DATABASE_URL)")
	SeedCmd.Flags().IntVar(&seedRows, "rows", 0, "Rows per dimension (default: seed_rows from starforge.yaml)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	file := seedFile
	if file == "" {
		file = cfg.SpecPath
	}
	dbURL := seedDB
	if dbURL == "" {
		dbURL = cfg.DatabaseURL
	}
	if dbURL == "" {
		return fmt.Errorf("no warehouse to seed: pass --db or set DATABASE_URL")
	}
	rows := seedRows
	if rows == 0 {
		rows = cfg.SeedRows
	}

	spec, err := schema.Load(file)
	if err != nil {
		return err
	}
	if defects := schema.Validate(spec); len(defects) > 0 {
		ui.Defects(defects)
		return fmt.Errorf("%s has %d defects, refusing to seed", file, len(defects))
	}

	ctx := cmd.Context()
	conn, err := warehouse.Connect(ctx, dbURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	counts, err := seed.New(conn, rows).Seed(ctx, spec)
	if err != nil {
		return err
	}

	tableRows := make([][]string, 0, len(counts))
	total := 0
	for _, c := range counts {
		tableRows = append(tableRows, []string{c.Table, strconv.Itoa(c.Rows)})
		total += c.Rows
	}
	ui.Table([]string{"Table", "Rows"}, tableRows)
	ui.Success("Seeded %d rows across %d tables", total, len(counts))
	return nil
}
