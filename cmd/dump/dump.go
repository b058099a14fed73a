package dump

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/starforge/starforge/internal/config"
	"github.com/starforge/starforge/internal/dump"
	"github.com/starforge/starforge/internal/ignore"
	"github.com/starforge/starforge/internal/logger"
	"github.com/starforge/starforge/internal/ui"
	"github.com/starforge/starforge/internal/warehouse"
)

var (
	dumpDB    string
	dumpFile  string
	multiFile bool
)

var DumpCmd = &cobra.Command{
	Use:          "dump",
	Short:        "Dump a live warehouse as a warehouse document",
	Long:         "Inspect a warehouse's catalog and write the equivalent document: the bridge from an existing warehouse into the declarative workflow. Tables matched by .starforgeignore are left out.",
	RunE:         runDump,
	SilenceUsage: true,
}

func init() {
	DumpCmd.Flags().StringVar(&dumpDB, "db", "", "Warehouse connection URL (env: DATABASE_URL)")
	DumpCmd.Flags().StringVarP(&dumpFile, "file", "f", "", "Output file path (default: stdout)")
	DumpCmd.Flags().BoolVar(&multiFile, "multi-file", false, "Output one file per table, stitched together by an include list")
}

func runDump(cmd *cobra.Command, args []string) error {
	if multiFile && dumpFile == "" {
		fmt.Fprintf(os.Stderr, "Warning: --multi-file requires --file to be specified. Fallback to single-file mode.\n")
		multiFile = false
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	dbURL := dumpDB
	if dbURL == "" {
		dbURL = cfg.DatabaseURL
	}
	if dbURL == "" {
		return fmt.Errorf("no warehouse to dump: pass --db or set DATABASE_URL")
	}

	ignoreConfig, err := ignore.LoadIgnoreFile()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	conn, err := warehouse.Connect(ctx, dbURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	spec, err := warehouse.NewInspector(conn, ignoreConfig).Snapshot(ctx)
	if err != nil {
		return err
	}

	engineVersion, err := conn.ServerVersion(ctx)
	if err != nil {
		// The header line is provenance only; a dump without it is still valid.
		logger.Get().Debug("Server version unavailable", "error", err)
		engineVersion = ""
	}

	formatter := dump.NewDumpFormatter(engineVersion, conn.Database)

	if multiFile {
		if err := formatter.FormatMultiFile(spec, dumpFile); err != nil {
			return err
		}
		ui.Success("Dumped %d tables to %s", spec.TableCount(), dumpFile)
		return nil
	}

	output, err := formatter.FormatSingleFile(spec)
	if err != nil {
		return err
	}
	if dumpFile == "" {
		fmt.Print(output)
		return nil
	}
	if err := os.WriteFile(dumpFile, []byte(output), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dumpFile, err)
	}
	ui.Success("Dumped %d tables to %s", spec.TableCount(), dumpFile)
	return nil
}

// ResetFlags resets all global flag variables to their default values for testing
func ResetFlags() {
	dumpDB = ""
	dumpFile = ""
	multiFile = false
}
