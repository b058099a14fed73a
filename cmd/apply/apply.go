package apply

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	planCmd "github.com/starforge/starforge/cmd/plan"
	"github.com/starforge/starforge/internal/config"
	"github.com/starforge/starforge/internal/impact"
	"github.com/starforge/starforge/internal/plan"
	"github.com/starforge/starforge/internal/ui"
	"github.com/starforge/starforge/internal/warehouse"
)

var (
	applyFile        string
	applyDB          string
	applyAutoApprove bool
	applyDryRun      bool
	applyMaxRisk     string
)

var ApplyCmd = &cobra.Command{
	Use:          "apply",
	Short:        "Apply a migration plan to a warehouse",
	Long:         "Plan the migration from the warehouse's current state to the target document, show it, and execute it statement by statement. Operations above --max-risk are refused; staged alternatives are printed instead.",
	RunE:         runApply,
	SilenceUsage: true,
}

func init() {
	ApplyCmd.Flags().StringVarP(&applyFile, "file", "f", "", "Path to the target warehouse document (default: spec_path from starforge.yaml)")
	ApplyCmd.Flags().StringVar(&applyDB, "db", "", "Warehouse connection URL (env: DATABASE_URL)")

	ApplyCmd.Flags().BoolVar(&applyAutoApprove, "auto-approve", false, "Apply changes without prompting for approval")
	ApplyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Show plan without applying changes")
	ApplyCmd.Flags().StringVar(&applyMaxRisk, "max-risk", "", "Highest risk tier to allow: low, medium or high (default: max_risk from starforge.yaml, or high)")
}

func runApply(cmd *cobra.Command, args []string) error {
	projectCfg, err := config.Load()
	if err != nil {
		return err
	}

	file := applyFile
	if file == "" {
		file = projectCfg.SpecPath
	}
	dbURL := applyDB
	if dbURL == "" {
		dbURL = projectCfg.DatabaseURL
	}
	if dbURL == "" {
		return fmt.Errorf("no warehouse to apply to: pass --db or set DATABASE_URL")
	}

	maxRiskName := applyMaxRisk
	if maxRiskName == "" {
		maxRiskName = projectCfg.MaxRisk
	}
	if maxRiskName == "" {
		maxRiskName = string(impact.RiskHigh)
	}
	maxRisk, err := impact.ParseRisk(maxRiskName)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	conn, err := warehouse.Connect(ctx, dbURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	// The same connection serves plan inspection and execution.
	planConfig := &planCmd.Config{SpecFile: file, DatabaseURL: dbURL}
	migrationPlan, err := planCmd.Generate(ctx, planConfig, conn)
	if err != nil {
		var de *planCmd.DefectsError
		if errors.As(err, &de) {
			ui.Defects(de.Defects)
		}
		return err
	}

	if !migrationPlan.HasChanges() {
		fmt.Println("No changes to apply. Warehouse is already up to date.")
		return nil
	}

	fmt.Print(migrationPlan.HumanColored(ui.Enabled()))

	if applyDryRun {
		return nil
	}

	if highest := migrationPlan.HighestRisk(); !maxRisk.AtLeast(highest) {
		fmt.Println()
		showMitigations(migrationPlan, maxRisk)
		return fmt.Errorf("plan contains %s risk operations, above the configured --max-risk=%s", highest, maxRisk)
	}

	if !applyAutoApprove {
		fmt.Print("\nDo you want to apply these changes? (yes/no): ")
		reader := bufio.NewReader(os.Stdin)
		response, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read user input: %w", err)
		}

		response = strings.TrimSpace(strings.ToLower(response))
		if response != "yes" && response != "y" {
			fmt.Println("Apply cancelled.")
			return nil
		}
	}

	fmt.Println("\nApplying changes...")

	executor := warehouse.NewExecutor(conn)
	result, err := executor.Apply(ctx, migrationPlan.Statements, migrationPlan.TargetFingerprint.Hash, migrationPlan.TargetVersion)
	if err != nil {
		return err
	}
	if result.Skipped {
		ui.Info("Fingerprint %s was already applied at %s. Nothing to do.",
			shortHash(result.Entry.Fingerprint), result.Entry.AppliedAt.Format("2006-01-02 15:04:05"))
		return nil
	}

	ui.Success("Changes applied successfully! (%d statements)", result.Executed)
	return nil
}

// showMitigations prints the staged alternatives for every operation the
// risk gate refused.
func showMitigations(migrationPlan *plan.Plan, maxRisk impact.Risk) {
	for _, m := range migrationPlan.Mitigations() {
		if maxRisk.AtLeast(m.Risk) {
			continue
		}
		ui.Warn("%s is %s risk: %s", m.Address, m.Risk, strings.Join(m.Reasons, "; "))
		ui.Info("  Staged alternative:")
		for _, step := range m.Steps {
			if step.Directive != nil {
				ui.Info("    [%s] %s", step.Directive.Type, step.Directive.Message)
			}
			if step.SQL != "" {
				ui.Info("    %s", strings.ReplaceAll(step.SQL, "\n", "\n    "))
			}
		}
	}
}

func shortHash(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}

// ResetFlags resets all global flag variables to their default values for testing
func ResetFlags() {
	applyFile = ""
	applyDB = ""
	applyAutoApprove = false
	applyDryRun = false
	applyMaxRisk = ""
}
