package plan

import (
	"strings"
	"testing"

	"github.com/starforge/starforge/internal/diff"
	"github.com/starforge/starforge/internal/impact"
	"github.com/starforge/starforge/internal/schema"
)

func planFromOps(ops []diff.Operation) *Plan {
	return &Plan{Operations: ops, Risks: impact.Analyze(ops)}
}

func TestMitigationsFromPlan(t *testing.T) {
	p, err := New(currentSpec(), targetSpec())
	if err != nil {
		t.Fatalf("Failed to build plan: %v", err)
	}

	mitigations := p.Mitigations()

	// Only date_key (NOT NULL add) and obsolete_flag (drop) are risky
	// enough to need staging; the low risk adds and the widening do not.
	if len(mitigations) != 2 {
		t.Fatalf("Expected 2 mitigations, got %d: %+v", len(mitigations), mitigations)
	}

	addMit := mitigations[0]
	if addMit.Address != "fact_loan_payments.date_key" {
		t.Errorf("First mitigation should target the NOT NULL add, got %s", addMit.Address)
	}
	if addMit.Risk != impact.RiskMedium {
		t.Errorf("NOT NULL add mitigation risk = %s, want medium", addMit.Risk)
	}
	wantSteps := []string{
		"ALTER TABLE fact_loan_payments ADD date_key INT NULL;",
		"UPDATE fact_loan_payments SET date_key = @backfill_value WHERE date_key IS NULL;",
		"ALTER TABLE fact_loan_payments ALTER COLUMN date_key INT NOT NULL;",
	}
	if len(addMit.Steps) != len(wantSteps) {
		t.Fatalf("Expected %d steps, got %d", len(wantSteps), len(addMit.Steps))
	}
	for i, want := range wantSteps {
		if addMit.Steps[i].SQL != want {
			t.Errorf("Step %d SQL = %q, want %q", i+1, addMit.Steps[i].SQL, want)
		}
	}
	if addMit.Steps[1].Directive == nil || addMit.Steps[1].Directive.Type != "backfill" {
		t.Error("Backfill step should carry a backfill directive")
	}

	dropMit := mitigations[1]
	if dropMit.Address != "dim_company.obsolete_flag" {
		t.Errorf("Second mitigation should target the drop, got %s", dropMit.Address)
	}
	if len(dropMit.Steps) != 2 {
		t.Fatalf("Expected 2 drop steps, got %d", len(dropMit.Steps))
	}
	if want := "SELECT obsolete_flag INTO dim_company_obsolete_flag_dropped FROM dim_company;"; dropMit.Steps[0].SQL != want {
		t.Errorf("Snapshot step = %q, want %q", dropMit.Steps[0].SQL, want)
	}
	if dropMit.Steps[0].Directive == nil || dropMit.Steps[0].Directive.Type != "snapshot" {
		t.Error("Snapshot step should carry a snapshot directive")
	}
	if want := "ALTER TABLE dim_company DROP COLUMN obsolete_flag;"; dropMit.Steps[1].SQL != want {
		t.Errorf("Drop step = %q, want %q", dropMit.Steps[1].SQL, want)
	}
}

func TestMitigationLengthNarrowing(t *testing.T) {
	p := planFromOps([]diff.Operation{
		&diff.AlterColumn{
			Table:    "dim_company",
			Column:   &schema.Column{Name: "region", Type: "VARCHAR(20)", Nullable: true},
			Previous: &schema.Column{Name: "region", Type: "VARCHAR(40)", Nullable: true},
		},
	})

	mitigations := p.Mitigations()
	if len(mitigations) != 1 {
		t.Fatalf("Expected 1 mitigation, got %d", len(mitigations))
	}

	steps := mitigations[0].Steps
	if len(steps) != 2 {
		t.Fatalf("Expected probe plus alter, got %d steps", len(steps))
	}
	if want := "SELECT COUNT(*) AS overflow_rows FROM dim_company WHERE LEN(region) > 20;"; steps[0].SQL != want {
		t.Errorf("Probe = %q, want %q", steps[0].SQL, want)
	}
	if steps[0].Directive == nil || steps[0].Directive.Type != "verify" {
		t.Error("Probe should carry a verify directive")
	}
	if want := "ALTER TABLE dim_company ALTER COLUMN region VARCHAR(20) NULL;"; steps[1].SQL != want {
		t.Errorf("Alter = %q, want %q", steps[1].SQL, want)
	}
}

func TestMitigationNullableTightening(t *testing.T) {
	p := planFromOps([]diff.Operation{
		&diff.AlterColumn{
			Table:    "dim_company",
			Column:   &schema.Column{Name: "region", Type: "VARCHAR(40)", Nullable: false},
			Previous: &schema.Column{Name: "region", Type: "VARCHAR(40)", Nullable: true},
		},
	})

	mitigations := p.Mitigations()
	if len(mitigations) != 1 {
		t.Fatalf("Expected 1 mitigation, got %d", len(mitigations))
	}

	steps := mitigations[0].Steps
	if len(steps) != 2 {
		t.Fatalf("Expected backfill plus alter, got %d steps", len(steps))
	}
	if !strings.Contains(steps[0].SQL, "SET region = @backfill_value") {
		t.Errorf("Backfill step = %q", steps[0].SQL)
	}
	if want := "ALTER TABLE dim_company ALTER COLUMN region VARCHAR(40) NOT NULL;"; steps[1].SQL != want {
		t.Errorf("Alter = %q, want %q", steps[1].SQL, want)
	}
}

func TestMitigationFamilyChange(t *testing.T) {
	p := planFromOps([]diff.Operation{
		&diff.AlterColumn{
			Table:    "dim_company",
			Column:   &schema.Column{Name: "source_system", Type: "VARCHAR(20)", Nullable: true},
			Previous: &schema.Column{Name: "source_system", Type: "INT", Nullable: true},
		},
	})

	mitigations := p.Mitigations()
	if len(mitigations) != 1 {
		t.Fatalf("Expected 1 mitigation, got %d", len(mitigations))
	}

	steps := mitigations[0].Steps
	if len(steps) != 2 {
		t.Fatalf("Expected probe plus alter, got %d steps", len(steps))
	}
	want := "SELECT COUNT(*) AS unconvertible_rows FROM dim_company WHERE TRY_CONVERT(VARCHAR(20), source_system) IS NULL AND source_system IS NOT NULL;"
	if steps[0].SQL != want {
		t.Errorf("Probe = %q, want %q", steps[0].SQL, want)
	}
}

func TestMitigationMissingPrevious(t *testing.T) {
	p := planFromOps([]diff.Operation{
		&diff.AlterColumn{
			Table:  "dim_company",
			Column: &schema.Column{Name: "region", Type: "VARCHAR(40)", Nullable: true},
		},
	})

	mitigations := p.Mitigations()
	if len(mitigations) != 1 {
		t.Fatalf("Expected 1 mitigation, got %d", len(mitigations))
	}

	steps := mitigations[0].Steps
	if len(steps) != 2 {
		t.Fatalf("Expected manual check plus alter, got %d steps", len(steps))
	}
	if steps[0].SQL != "" {
		t.Errorf("Manual check step should have no SQL, got %q", steps[0].SQL)
	}
	if steps[0].Directive == nil || steps[0].Directive.Type != "verify" {
		t.Error("Manual check should carry a verify directive")
	}
}

func TestMitigationLowRiskSkipped(t *testing.T) {
	p := planFromOps([]diff.Operation{
		&diff.AddColumn{
			Table:  "dim_company",
			Column: &schema.Column{Name: "notes", Type: "NVARCHAR(200)", Nullable: true},
		},
		&diff.AlterColumn{
			Table:    "dim_company",
			Column:   &schema.Column{Name: "region", Type: "VARCHAR(80)", Nullable: true},
			Previous: &schema.Column{Name: "region", Type: "VARCHAR(40)", Nullable: true},
		},
	})

	if mitigations := p.Mitigations(); len(mitigations) != 0 {
		t.Errorf("Low risk operations need no mitigation, got %+v", mitigations)
	}
}

func TestMitigationInHumanOutput(t *testing.T) {
	p, err := New(currentSpec(), targetSpec())
	if err != nil {
		t.Fatalf("Failed to build plan: %v", err)
	}

	human := p.HumanColored(false)

	for _, want := range []string{
		"Mitigation guidance:",
		"fact_loan_payments.date_key (medium):",
		"1. ALTER TABLE fact_loan_payments ADD date_key INT NULL;",
		"-- Set @backfill_value for fact_loan_payments.date_key before running",
		"dim_company.obsolete_flag (high):",
	} {
		if !strings.Contains(human, want) {
			t.Errorf("Human output should contain %q", want)
		}
	}
}
