package plan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/starforge/starforge/internal/config"
	"github.com/starforge/starforge/internal/ignore"
	"github.com/starforge/starforge/internal/plan"
	"github.com/starforge/starforge/internal/schema"
	"github.com/starforge/starforge/internal/ui"
	"github.com/starforge/starforge/internal/warehouse"
	"github.com/starforge/starforge/internal/watch"
)

var (
	planFile    string
	planDB      string
	planCurrent string
	outputHuman string
	outputJSON  string
	outputSQL   string
	planWatch   bool
)

var PlanCmd = &cobra.Command{
	Use:          "plan",
	Short:        "Generate a migration plan for a warehouse",
	Long:         "Generate a migration plan that would bring a warehouse to the state described by the target document. The current state comes from a snapshot document (--current), a live warehouse (--db or DATABASE_URL), or an empty baseline when neither is given.",
	RunE:         runPlan,
	SilenceUsage: true,
}

func init() {
	PlanCmd.Flags().StringVarP(&planFile, "file", "f", "", "Path to the target warehouse document (default: spec_path from starforge.yaml)")
	PlanCmd.Flags().StringVar(&planDB, "db", "", "Warehouse connection URL for the current state (env: DATABASE_URL)")
	PlanCmd.Flags().StringVar(&planCurrent, "current", "", "Path to a document describing the current state instead of a live warehouse")

	PlanCmd.Flags().StringVar(&outputHuman, "output-human", "", "Output human-readable format to stdout or file path")
	PlanCmd.Flags().StringVar(&outputJSON, "output-json", "", "Output JSON format to stdout or file path")
	PlanCmd.Flags().StringVar(&outputSQL, "output-sql", "", "Output SQL format to stdout or file path")

	PlanCmd.Flags().BoolVar(&planWatch, "watch", false, "Re-plan whenever the target document changes")
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := NewConfig()
	if err != nil {
		return err
	}

	outputs, err := determineOutputs()
	if err != nil {
		return err
	}

	if planWatch {
		return runWatch(cmd.Context(), cfg, outputs)
	}

	migrationPlan, err := Generate(cmd.Context(), cfg, nil)
	if err != nil {
		var de *DefectsError
		if errors.As(err, &de) {
			ui.Defects(de.Defects)
		}
		return err
	}

	for _, output := range outputs {
		if err := processOutput(migrationPlan, output); err != nil {
			return err
		}
	}

	return nil
}

// Config holds everything Generate needs to build a plan.
type Config struct {
	// SpecFile is the target warehouse document.
	SpecFile string
	// DatabaseURL, when set, is inspected for the current state.
	DatabaseURL string
	// SnapshotFile, when set, is loaded as the current state instead of
	// a live warehouse. It takes precedence over DatabaseURL.
	SnapshotFile string
}

// NewConfig merges the plan flags with the project configuration.
func NewConfig() (*Config, error) {
	projectCfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if planCurrent != "" && planDB != "" {
		return nil, fmt.Errorf("pass either --current or --db, not both")
	}

	cfg := &Config{
		SpecFile:     planFile,
		DatabaseURL:  planDB,
		SnapshotFile: planCurrent,
	}
	if cfg.SpecFile == "" {
		cfg.SpecFile = projectCfg.SpecPath
	}
	if cfg.DatabaseURL == "" && cfg.SnapshotFile == "" {
		cfg.DatabaseURL = projectCfg.DatabaseURL
	}
	return cfg, nil
}

// DefectsError reports a document that failed validation. The defect list
// is carried so callers can render it in full.
type DefectsError struct {
	File    string
	Defects []string
}

func (e *DefectsError) Error() string {
	return fmt.Sprintf("%s has %d defects", e.File, len(e.Defects))
}

// Generate builds a migration plan from the configured target document and
// current state. When conn is nil and a database URL is configured, a
// connection is opened for the duration of the call; callers that already
// hold a connection pass it in and keep ownership of it.
func Generate(ctx context.Context, cfg *Config, conn *warehouse.Conn) (*plan.Plan, error) {
	ignoreConfig, err := ignore.LoadIgnoreFile()
	if err != nil {
		return nil, err
	}

	target, err := schema.Load(cfg.SpecFile)
	if err != nil {
		return nil, err
	}
	if defects := schema.Validate(target); len(defects) > 0 {
		return nil, &DefectsError{File: cfg.SpecFile, Defects: defects}
	}
	if ignoreConfig != nil {
		target = ignoreConfig.Apply(target)
	}

	current, err := currentState(ctx, cfg, conn, ignoreConfig)
	if err != nil {
		return nil, err
	}

	return plan.New(current, target)
}

// currentState resolves the plan baseline: snapshot file, live warehouse,
// or an empty spec when neither is configured (every table is new).
func currentState(ctx context.Context, cfg *Config, conn *warehouse.Conn, ignoreConfig *ignore.IgnoreConfig) (*schema.SchemaSpec, error) {
	if cfg.SnapshotFile != "" {
		current, err := schema.Load(cfg.SnapshotFile)
		if err != nil {
			return nil, fmt.Errorf("loading current state: %w", err)
		}
		if ignoreConfig != nil {
			current = ignoreConfig.Apply(current)
		}
		return current, nil
	}

	if cfg.DatabaseURL == "" {
		return &schema.SchemaSpec{}, nil
	}

	if conn == nil {
		opened, err := warehouse.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		defer opened.Close()
		conn = opened
	}
	return warehouse.NewInspector(conn, ignoreConfig).Snapshot(ctx)
}

// runWatch re-plans on every settled change to the target document until
// the process is interrupted. Plan failures are reported but do not end
// the watch, since the document is being edited.
func runWatch(ctx context.Context, cfg *Config, outputs []outputSpec) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	replan := func() error {
		migrationPlan, err := Generate(ctx, cfg, nil)
		if err != nil {
			var de *DefectsError
			if errors.As(err, &de) {
				ui.Defects(de.Defects)
			}
			ui.Error("Plan failed: %v", err)
			return nil
		}
		for _, output := range outputs {
			if err := processOutput(migrationPlan, output); err != nil {
				ui.Error("%v", err)
				return nil
			}
		}
		return nil
	}

	watcher, err := watch.NewWatcher([]string{cfg.SpecFile}, replan)
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		watcher.Stop()
		return err
	}
	defer watcher.Stop()

	ui.Info("Watching %s for changes. Press Ctrl+C to stop.", cfg.SpecFile)
	<-ctx.Done()
	return nil
}

// outputSpec represents a single output specification
type outputSpec struct {
	format string // "human", "json", or "sql"
	target string // "stdout" or file path
}

// determineOutputs parses the output flags and returns the list of outputs to generate
func determineOutputs() ([]outputSpec, error) {
	var outputs []outputSpec
	stdoutCount := 0

	if outputHuman != "" {
		if outputHuman == "stdout" {
			stdoutCount++
		}
		outputs = append(outputs, outputSpec{format: "human", target: outputHuman})
	}

	if outputJSON != "" {
		if outputJSON == "stdout" {
			stdoutCount++
		}
		outputs = append(outputs, outputSpec{format: "json", target: outputJSON})
	}

	if outputSQL != "" {
		if outputSQL == "stdout" {
			stdoutCount++
		}
		outputs = append(outputs, outputSpec{format: "sql", target: outputSQL})
	}

	if stdoutCount > 1 {
		return nil, fmt.Errorf("only one output format can use stdout")
	}

	// Default behavior: if no outputs specified, output human to stdout
	if len(outputs) == 0 {
		outputs = append(outputs, outputSpec{format: "human", target: "stdout"})
	}

	return outputs, nil
}

// processOutput writes the plan in the specified format to the target destination
func processOutput(migrationPlan *plan.Plan, output outputSpec) error {
	var content string
	var err error

	switch output.format {
	case "human":
		// Colored output only for a terminal, never for files.
		useColor := output.target == "stdout" && ui.Enabled()
		content = migrationPlan.HumanColored(useColor)
	case "json":
		content, err = migrationPlan.ToJSON()
		if err != nil {
			return fmt.Errorf("failed to generate JSON output: %w", err)
		}
		content += "\n"
	case "sql":
		content = migrationPlan.ToSQL()
	default:
		return fmt.Errorf("unknown output format: %s", output.format)
	}

	if output.target == "stdout" {
		fmt.Print(content)
	} else {
		if err := os.WriteFile(output.target, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s output to %s: %w", output.format, output.target, err)
		}
	}

	return nil
}

// ResetFlags resets all global flag variables to their default values for testing
func ResetFlags() {
	planFile = ""
	planDB = ""
	planCurrent = ""
	outputHuman = ""
	outputJSON = ""
	outputSQL = ""
	planWatch = false
}
