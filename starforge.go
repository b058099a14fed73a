// Package starforge provides a programmatic API for star-schema warehouse
// migrations: declarative dump/plan/apply workflows driven by warehouse
// documents instead of hand-written DDL.
package starforge

import (
	"context"
	"fmt"
	"os"

	planCmd "github.com/starforge/starforge/cmd/plan"
	"github.com/starforge/starforge/internal/dump"
	"github.com/starforge/starforge/internal/fingerprint"
	"github.com/starforge/starforge/internal/ignore"
	"github.com/starforge/starforge/internal/impact"
	"github.com/starforge/starforge/internal/warehouse"
)

// DumpOptions configures schema dumping.
type DumpOptions struct {
	// File is the output path. Empty means the dump is only returned.
	File string
	// MultiFile writes one file per table plus a root document with an
	// include list. Requires File.
	MultiFile bool
}

// PlanOptions configures migration planning.
type PlanOptions struct {
	// SpecFile is the target warehouse document.
	SpecFile string
	// SnapshotFile, when set, is the current state instead of the live
	// warehouse.
	SnapshotFile string
}

// ApplyOptions configures migration application.
type ApplyOptions struct {
	// SpecFile is the target warehouse document. Ignored when Plan is set.
	SpecFile string
	// Plan is a pre-generated plan to apply instead of planning SpecFile.
	Plan *Plan
	// MaxRisk is the highest risk tier to allow. Empty allows everything.
	MaxRisk Risk
}

// Client runs warehouse operations against one connection URL. An ignore
// file in the working directory applies to every operation, as it does in
// the CLI.
type Client struct {
	databaseURL string
}

// NewClient creates a client for the warehouse at the given URL.
func NewClient(databaseURL string) *Client {
	return &Client{databaseURL: databaseURL}
}

// Inspect snapshots the warehouse catalog as a SchemaSpec.
func (c *Client) Inspect(ctx context.Context) (*SchemaSpec, error) {
	conn, err := warehouse.Connect(ctx, c.databaseURL)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	ignoreConfig, err := ignore.LoadIgnoreFile()
	if err != nil {
		return nil, err
	}
	return warehouse.NewInspector(conn, ignoreConfig).Snapshot(ctx)
}

// Dump renders the warehouse as a document and returns it. With
// opts.MultiFile the document set is written to disk and the returned
// string is empty.
func (c *Client) Dump(ctx context.Context, opts DumpOptions) (string, error) {
	if opts.MultiFile && opts.File == "" {
		return "", fmt.Errorf("multi-file dump requires an output path")
	}

	conn, err := warehouse.Connect(ctx, c.databaseURL)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	ignoreConfig, err := ignore.LoadIgnoreFile()
	if err != nil {
		return "", err
	}
	spec, err := warehouse.NewInspector(conn, ignoreConfig).Snapshot(ctx)
	if err != nil {
		return "", err
	}

	engineVersion, err := conn.ServerVersion(ctx)
	if err != nil {
		engineVersion = ""
	}
	formatter := dump.NewDumpFormatter(engineVersion, conn.Database)

	if opts.MultiFile {
		return "", formatter.FormatMultiFile(spec, opts.File)
	}

	output, err := formatter.FormatSingleFile(spec)
	if err != nil {
		return "", err
	}
	if opts.File != "" {
		if err := os.WriteFile(opts.File, []byte(output), 0644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", opts.File, err)
		}
	}
	return output, nil
}

// Plan computes the migration from the current state to the target
// document. Validation defects surface as a *DefectsError.
func (c *Client) Plan(ctx context.Context, opts PlanOptions) (*Plan, error) {
	cfg := &planCmd.Config{
		SpecFile:     opts.SpecFile,
		SnapshotFile: opts.SnapshotFile,
	}
	if opts.SnapshotFile == "" {
		cfg.DatabaseURL = c.databaseURL
	}
	return planCmd.Generate(ctx, cfg, nil)
}

// Apply plans against the live warehouse and executes the statements,
// recording the run in the migration ledger. A plan whose risk exceeds
// opts.MaxRisk is refused before anything executes, as is a pre-computed
// plan whose baseline no longer matches the warehouse.
func (c *Client) Apply(ctx context.Context, opts ApplyOptions) (*ApplyResult, error) {
	conn, err := warehouse.Connect(ctx, c.databaseURL)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	migrationPlan := opts.Plan
	if migrationPlan == nil {
		cfg := &planCmd.Config{SpecFile: opts.SpecFile, DatabaseURL: c.databaseURL}
		migrationPlan, err = planCmd.Generate(ctx, cfg, conn)
		if err != nil {
			return nil, err
		}
	} else if err := checkDrift(ctx, conn, migrationPlan); err != nil {
		return nil, err
	}

	if !migrationPlan.HasChanges() {
		return &ApplyResult{}, nil
	}

	if opts.MaxRisk != "" {
		maxRisk, err := impact.ParseRisk(string(opts.MaxRisk))
		if err != nil {
			return nil, err
		}
		if highest := migrationPlan.HighestRisk(); !maxRisk.AtLeast(highest) {
			return nil, fmt.Errorf("plan contains %s risk operations, above the configured max risk %s", highest, maxRisk)
		}
	}

	return warehouse.NewExecutor(conn).Apply(ctx,
		migrationPlan.Statements, migrationPlan.TargetFingerprint.Hash, migrationPlan.TargetVersion)
}

// checkDrift verifies that a pre-computed plan's baseline still matches
// the live warehouse. Plans computed from an empty baseline claim nothing
// about the current state and stay applicable anywhere, so they skip the
// check.
func checkDrift(ctx context.Context, conn *warehouse.Conn, migrationPlan *Plan) error {
	if migrationPlan.CurrentFingerprint == nil {
		return nil
	}
	emptyFP, err := fingerprint.ComputeFingerprint(&SchemaSpec{})
	if err != nil {
		return err
	}
	if migrationPlan.CurrentFingerprint.Hash == emptyFP.Hash {
		return nil
	}

	ignoreConfig, err := ignore.LoadIgnoreFile()
	if err != nil {
		return err
	}
	live, err := warehouse.NewInspector(conn, ignoreConfig).Snapshot(ctx)
	if err != nil {
		return err
	}
	liveFP, err := fingerprint.ComputeFingerprint(live)
	if err != nil {
		return err
	}
	if err := fingerprint.Compare(migrationPlan.CurrentFingerprint, liveFP); err != nil {
		return fmt.Errorf("warehouse changed since the plan was computed: %w", err)
	}
	return nil
}
