package impact

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starforge/starforge/internal/diff"
	"github.com/starforge/starforge/internal/schema"
)

func alterOp(prev, next *schema.Column) *diff.AlterColumn {
	return &diff.AlterColumn{Table: "dim_company", Column: next, Previous: prev}
}

func TestAnalyzeDropColumn(t *testing.T) {
	ops := []diff.Operation{
		&diff.DropColumn{Table: "fact_loan_payments", Column: &schema.Column{Name: "payment_date", Type: "DATE"}},
	}

	records := Analyze(ops)
	want := []RiskRecord{{
		Op:      diff.OpDropColumn,
		Table:   "fact_loan_payments",
		Column:  "payment_date",
		Risk:    RiskHigh,
		Reasons: []string{"column removed"},
	}}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyzeAddColumn(t *testing.T) {
	ops := []diff.Operation{
		&diff.AddColumn{Table: "dim_company", Column: &schema.Column{Name: "segment", Type: "VARCHAR(20)", Nullable: true}},
		&diff.AddColumn{Table: "dim_company", Column: &schema.Column{Name: "code", Type: "CHAR(4)", Nullable: false}},
	}

	records := Analyze(ops)
	if len(records) != 2 {
		t.Fatalf("got %d records", len(records))
	}
	if records[0].Risk != RiskLow || records[0].Reasons[0] != "new nullable column" {
		t.Errorf("nullable add = %+v", records[0])
	}
	if records[1].Risk != RiskMedium || records[1].Reasons[0] != "new NOT NULL column (requires backfill)" {
		t.Errorf("not-null add = %+v", records[1])
	}
}

func TestAnalyzeAlterRules(t *testing.T) {
	tests := []struct {
		name        string
		prev, next  *schema.Column
		wantRisk    Risk
		wantReasons []string
	}{
		{
			name:        "length widening stays below high",
			prev:        &schema.Column{Name: "region", Type: "VARCHAR(40)", Nullable: true},
			next:        &schema.Column{Name: "region", Type: "VARCHAR(60)", Nullable: true},
			wantRisk:    RiskLow,
			wantReasons: []string{"length widening"},
		},
		{
			name:        "length narrowing is high",
			prev:        &schema.Column{Name: "region", Type: "VARCHAR(60)", Nullable: true},
			next:        &schema.Column{Name: "region", Type: "VARCHAR(40)", Nullable: true},
			wantRisk:    RiskHigh,
			wantReasons: []string{"length narrowing"},
		},
		{
			name:        "nullable to not null",
			prev:        &schema.Column{Name: "region", Type: "VARCHAR(40)", Nullable: true},
			next:        &schema.Column{Name: "region", Type: "VARCHAR(40)", Nullable: false},
			wantRisk:    RiskMedium,
			wantReasons: []string{"NULLABLE -> NOT NULL"},
		},
		{
			name:        "not null to nullable fires no rule",
			prev:        &schema.Column{Name: "region", Type: "VARCHAR(40)", Nullable: false},
			next:        &schema.Column{Name: "region", Type: "VARCHAR(40)", Nullable: true},
			wantRisk:    RiskLow,
			wantReasons: []string{},
		},
		{
			name:        "precision reduction is high",
			prev:        &schema.Column{Name: "amount", Type: "DECIMAL(18,2)", Nullable: false},
			next:        &schema.Column{Name: "amount", Type: "DECIMAL(12,2)", Nullable: false},
			wantRisk:    RiskHigh,
			wantReasons: []string{"precision/scale reduction"},
		},
		{
			name:        "scale reduction is high",
			prev:        &schema.Column{Name: "amount", Type: "DECIMAL(18,4)", Nullable: false},
			next:        &schema.Column{Name: "amount", Type: "DECIMAL(18,2)", Nullable: false},
			wantRisk:    RiskHigh,
			wantReasons: []string{"precision/scale reduction"},
		},
		{
			name:        "precision increase noted without escalation",
			prev:        &schema.Column{Name: "amount", Type: "DECIMAL(12,2)", Nullable: false},
			next:        &schema.Column{Name: "amount", Type: "DECIMAL(18,2)", Nullable: false},
			wantRisk:    RiskLow,
			wantReasons: []string{"precision/scale increase"},
		},
		{
			name:        "family crossing",
			prev:        &schema.Column{Name: "code", Type: "INT", Nullable: true},
			next:        &schema.Column{Name: "code", Type: "VARCHAR(10)", Nullable: true},
			wantRisk:    RiskMedium,
			wantReasons: []string{"type family change numeric->string"},
		},
		{
			name:        "date to string crossing",
			prev:        &schema.Column{Name: "opened", Type: "DATE", Nullable: true},
			next:        &schema.Column{Name: "opened", Type: "VARCHAR(10)", Nullable: true},
			wantRisk:    RiskMedium,
			wantReasons: []string{"type family change date->string"},
		},
		{
			name:        "same family numeric change fires no rule",
			prev:        &schema.Column{Name: "loan_id", Type: "INT", Nullable: false},
			next:        &schema.Column{Name: "loan_id", Type: "BIGINT", Nullable: false},
			wantRisk:    RiskLow,
			wantReasons: []string{},
		},
		{
			name:        "nvarchar narrowing is high",
			prev:        &schema.Column{Name: "name", Type: "NVARCHAR(200)", Nullable: true},
			next:        &schema.Column{Name: "name", Type: "NVARCHAR(100)", Nullable: true},
			wantRisk:    RiskHigh,
			wantReasons: []string{"length narrowing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := Analyze([]diff.Operation{alterOp(tt.prev, tt.next)})
			if len(records) != 1 {
				t.Fatalf("got %d records", len(records))
			}
			if records[0].Risk != tt.wantRisk {
				t.Errorf("risk = %v, want %v (reasons %v)", records[0].Risk, tt.wantRisk, records[0].Reasons)
			}
			if diff := cmp.Diff(tt.wantReasons, records[0].Reasons); diff != "" {
				t.Errorf("reasons mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAnalyzeAlterMissingPrevious(t *testing.T) {
	op := &diff.AlterColumn{
		Table:  "dim_company",
		Column: &schema.Column{Name: "region", Type: "VARCHAR(40)", Nullable: false},
	}
	records := Analyze([]diff.Operation{op})
	want := []RiskRecord{{
		Op:      diff.OpAlterColumn,
		Table:   "dim_company",
		Column:  "region",
		Risk:    RiskMedium,
		Reasons: []string{"missing previous column metadata"},
	}}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyzeAggregatesReasons(t *testing.T) {
	// Narrowing plus NOT NULL tightening in one alter: both reasons, max tier.
	op := alterOp(
		&schema.Column{Name: "region", Type: "VARCHAR(60)", Nullable: true},
		&schema.Column{Name: "region", Type: "VARCHAR(40)", Nullable: false},
	)
	records := Analyze([]diff.Operation{op})
	want := []string{"NULLABLE -> NOT NULL", "length narrowing"}
	if diff := cmp.Diff(want, records[0].Reasons); diff != "" {
		t.Errorf("reasons mismatch (-want +got):\n%s", diff)
	}
	if records[0].Risk != RiskHigh {
		t.Errorf("risk = %v, want high", records[0].Risk)
	}
}

func TestAnalyzeRiskNeverDowngrades(t *testing.T) {
	// Family crossing (medium) after narrowing already raised high.
	op := alterOp(
		&schema.Column{Name: "code", Type: "VARCHAR(40)", Nullable: true},
		&schema.Column{Name: "code", Type: "CHAR(10)", Nullable: true},
	)
	records := Analyze([]diff.Operation{op})
	// Different base types, same family, no length comparison applies.
	if records[0].Risk != RiskLow {
		t.Errorf("risk = %v, want low (no rule fires across bases)", records[0].Risk)
	}

	op = alterOp(
		&schema.Column{Name: "amount", Type: "DECIMAL(18,2)", Nullable: true},
		&schema.Column{Name: "amount", Type: "VARCHAR(20)", Nullable: false},
	)
	records = Analyze([]diff.Operation{op})
	if records[0].Risk != RiskMedium {
		t.Errorf("risk = %v, want medium", records[0].Risk)
	}
	want := []string{"NULLABLE -> NOT NULL", "type family change numeric->string"}
	if diff := cmp.Diff(want, records[0].Reasons); diff != "" {
		t.Errorf("reasons mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyzeSkipsStructuralOps(t *testing.T) {
	ops := []diff.Operation{
		&diff.CreateTable{Table: &schema.Dimension{Name: "dim_date", SurrogateKey: "date_key"}},
		&diff.CreateIndex{Table: "dim_date", Index: &schema.Index{Name: "ix_x", Columns: []string{"date_key"}}},
		&diff.AddForeignKey{Table: "fact_x", ForeignKey: &schema.ForeignKey{Column: "date_key", References: "dim_date(date_key)"}, RefTable: "dim_date", RefColumn: "date_key"},
	}
	if records := Analyze(ops); len(records) != 0 {
		t.Errorf("structural ops scored: %+v", records)
	}
}

func TestAnalyzeRecordsFollowPlanOrder(t *testing.T) {
	ops := []diff.Operation{
		&diff.AddColumn{Table: "dim_company", Column: &schema.Column{Name: "a", Type: "INT", Nullable: true}},
		&diff.AlterColumn{Table: "dim_company", Column: &schema.Column{Name: "b", Type: "INT", Nullable: true}},
		&diff.DropColumn{Table: "dim_company", Column: &schema.Column{Name: "c", Type: "INT"}},
	}
	records := Analyze(ops)
	got := []string{string(records[0].Op), string(records[1].Op), string(records[2].Op)}
	want := []string{"ADD_COLUMN", "ALTER_COLUMN", "DROP_COLUMN"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestMaxRiskAndAtLeast(t *testing.T) {
	if MaxRisk(RiskLow, RiskHigh) != RiskHigh || MaxRisk(RiskMedium, RiskLow) != RiskMedium {
		t.Error("MaxRisk ordering broken")
	}
	if !RiskHigh.AtLeast(RiskMedium) || RiskLow.AtLeast(RiskMedium) {
		t.Error("AtLeast ordering broken")
	}
}

func TestParseRisk(t *testing.T) {
	for input, want := range map[string]Risk{
		"low":    RiskLow,
		"medium": RiskMedium,
		"high":   RiskHigh,
		"HIGH":   RiskHigh,
		"Medium": RiskMedium,
	} {
		got, err := ParseRisk(input)
		if err != nil {
			t.Errorf("ParseRisk(%q) error: %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("ParseRisk(%q) = %v, want %v", input, got, want)
		}
	}

	if _, err := ParseRisk("extreme"); err == nil {
		t.Error("ParseRisk(\"extreme\") should fail")
	} else if !strings.Contains(err.Error(), "unknown risk tier") {
		t.Errorf("error %q does not name the unknown tier", err)
	}
}

func TestHighestRisk(t *testing.T) {
	records := []RiskRecord{
		{Risk: RiskLow},
		{Risk: RiskHigh},
		{Risk: RiskMedium},
	}
	if got := HighestRisk(records); got != RiskHigh {
		t.Errorf("HighestRisk = %v", got)
	}
	if got := HighestRisk(nil); got != RiskLow {
		t.Errorf("HighestRisk(nil) = %v", got)
	}
}
