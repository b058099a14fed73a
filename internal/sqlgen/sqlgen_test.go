package sqlgen

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starforge/starforge/internal/diff"
	"github.com/starforge/starforge/internal/schema"
)

func TestCreateTableDimension(t *testing.T) {
	op := &diff.CreateTable{Table: &schema.Dimension{
		Name:         "dim_company",
		SurrogateKey: "company_key",
		Columns: []*schema.Column{
			{Name: "company_key", Type: "INT", Nullable: false},
			{Name: "company_id", Type: "INT", Nullable: false},
			{Name: "region", Type: "VARCHAR(40)", Nullable: true},
		},
	}}

	want := `IF NOT EXISTS (SELECT * FROM sys.tables WHERE name = 'dim_company')
BEGIN
CREATE TABLE dim_company (
    company_key INT NOT NULL,
    company_id INT NOT NULL,
    region VARCHAR(40) NULL,
    CONSTRAINT pk_dim_company PRIMARY KEY (company_key)
);
END`
	got := Statements([]diff.Operation{op})[0]
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CREATE TABLE mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateTableSynthesizesSurrogate(t *testing.T) {
	op := &diff.CreateTable{Table: &schema.Dimension{
		Name:         "dim_date",
		SurrogateKey: "date_key",
		Columns: []*schema.Column{
			{Name: "calendar_date", Type: "DATE", Nullable: false},
		},
	}}

	got := Statements([]diff.Operation{op})[0]
	if !strings.Contains(got, "date_key INT NOT NULL") {
		t.Errorf("missing synthesized surrogate column:\n%s", got)
	}
	if !strings.Contains(got, "CONSTRAINT pk_dim_date PRIMARY KEY (date_key)") {
		t.Errorf("missing primary key constraint:\n%s", got)
	}
	// Synthesized surrogate leads the column list.
	if strings.Index(got, "date_key INT NOT NULL") > strings.Index(got, "calendar_date DATE NOT NULL") {
		t.Errorf("surrogate not first:\n%s", got)
	}
}

func TestCreateTableFact(t *testing.T) {
	op := &diff.CreateTable{Table: &schema.Fact{
		Name: "fact_loan_payments",
		Columns: []*schema.Column{
			{Name: "loan_id", Type: "INT", Nullable: false},
			{Name: "payment_date", Type: "DATE", Nullable: false},
		},
		Measures: []*schema.Column{
			{Name: "amount", Type: "DECIMAL(18,2)", Nullable: false},
		},
	}}

	want := `IF NOT EXISTS (SELECT * FROM sys.tables WHERE name = 'fact_loan_payments')
BEGIN
CREATE TABLE fact_loan_payments (
    loan_id INT NOT NULL,
    payment_date DATE NOT NULL,
    amount DECIMAL(18,2) NOT NULL
);
END`
	got := Statements([]diff.Operation{op})[0]
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("fact CREATE TABLE mismatch (-want +got):\n%s", diff)
	}
}

func TestColumnStatements(t *testing.T) {
	tests := []struct {
		name string
		op   diff.Operation
		want string
	}{
		{
			name: "add nullable",
			op:   &diff.AddColumn{Table: "dim_company", Column: &schema.Column{Name: "segment", Type: "VARCHAR(20)", Nullable: true}},
			want: "ALTER TABLE dim_company ADD segment VARCHAR(20) NULL;",
		},
		{
			name: "add not null",
			op:   &diff.AddColumn{Table: "fact_orders", Column: &schema.Column{Name: "qty", Type: "INT", Nullable: false}},
			want: "ALTER TABLE fact_orders ADD qty INT NOT NULL;",
		},
		{
			name: "alter",
			op: &diff.AlterColumn{
				Table:    "dim_company",
				Column:   &schema.Column{Name: "region", Type: "VARCHAR(60)", Nullable: true},
				Previous: &schema.Column{Name: "region", Type: "VARCHAR(40)", Nullable: true},
			},
			want: "ALTER TABLE dim_company ALTER COLUMN region VARCHAR(60) NULL;",
		},
		{
			name: "drop",
			op:   &diff.DropColumn{Table: "fact_loan_payments", Column: &schema.Column{Name: "payment_date", Type: "DATE"}},
			want: "ALTER TABLE fact_loan_payments DROP COLUMN payment_date;",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Statements([]diff.Operation{tt.op})[0]
			if got != tt.want {
				t.Errorf("got  %q\nwant %q", got, tt.want)
			}
		})
	}
}

func TestColumnStatementsAreUnguarded(t *testing.T) {
	op := &diff.AddColumn{Table: "dim_company", Column: &schema.Column{Name: "segment", Type: "VARCHAR(20)", Nullable: true}}
	if got := Statements([]diff.Operation{op})[0]; strings.Contains(got, "IF NOT EXISTS") {
		t.Errorf("column DDL should not carry a guard:\n%s", got)
	}
}

func TestCreateIndex(t *testing.T) {
	op := &diff.CreateIndex{
		Table: "dim_company",
		Index: &schema.Index{Name: "ix_dim_company_region", Columns: []string{"region", "segment"}},
	}

	want := `IF NOT EXISTS (SELECT * FROM sys.indexes WHERE name = 'ix_dim_company_region' AND object_id = OBJECT_ID('dim_company'))
BEGIN
CREATE INDEX ix_dim_company_region ON dim_company (region, segment);
END`
	got := Statements([]diff.Operation{op})[0]
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CREATE INDEX mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateUniqueIndex(t *testing.T) {
	op := &diff.CreateIndex{
		Table: "dim_company",
		Index: &schema.Index{Name: "ux_dim_company_id", Columns: []string{"company_id"}, Unique: true},
	}
	got := Statements([]diff.Operation{op})[0]
	if !strings.Contains(got, "CREATE UNIQUE INDEX ux_dim_company_id ON dim_company (company_id);") {
		t.Errorf("unique index body missing:\n%s", got)
	}
}

func TestAddForeignKey(t *testing.T) {
	op := &diff.AddForeignKey{
		Table:      "fact_loan_payments",
		ForeignKey: &schema.ForeignKey{Column: "company_key", References: "dim_company(company_key)"},
		RefTable:   "dim_company",
		RefColumn:  "company_key",
	}

	want := `IF NOT EXISTS (SELECT * FROM sys.foreign_keys WHERE name = 'fk_fact_loan_payments_company_key')
BEGIN
ALTER TABLE fact_loan_payments ADD CONSTRAINT fk_fact_loan_payments_company_key FOREIGN KEY (company_key) REFERENCES dim_company(company_key);
END`
	got := Statements([]diff.Operation{op})[0]
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ADD FOREIGN KEY mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderSeparatesStatementsWithBlankLines(t *testing.T) {
	ops := []diff.Operation{
		&diff.AddColumn{Table: "dim_company", Column: &schema.Column{Name: "segment", Type: "VARCHAR(20)", Nullable: true}},
		&diff.DropColumn{Table: "fact_loan_payments", Column: &schema.Column{Name: "payment_date", Type: "DATE"}},
	}

	want := "ALTER TABLE dim_company ADD segment VARCHAR(20) NULL;\n\nALTER TABLE fact_loan_payments DROP COLUMN payment_date;\n"
	if got := Render(ops); got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestRenderWithComments(t *testing.T) {
	ops := []diff.Operation{
		&diff.DropColumn{Table: "fact_loan_payments", Column: &schema.Column{Name: "payment_date", Type: "DATE"}},
	}
	got := NewGeneratorWithComments(true).Render(ops)
	if !strings.Contains(got, "-- Table: fact_loan_payments; Operation: DROP_COLUMN") {
		t.Errorf("missing comment header:\n%s", got)
	}
	if !strings.Contains(got, "DROP COLUMN payment_date") {
		t.Errorf("missing statement body:\n%s", got)
	}
}

func TestRenderNormalizesRawTypes(t *testing.T) {
	op := &diff.AddColumn{Table: "dim_company", Column: &schema.Column{Name: "region", Type: "varchar(40)", Nullable: true}}
	got := Statements([]diff.Operation{op})[0]
	if !strings.Contains(got, "VARCHAR(40)") {
		t.Errorf("type not canonicalized:\n%s", got)
	}
}

func TestStatementPanicsOnMissingPayload(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("ADD_COLUMN with nil column did not panic")
		}
	}()
	Statements([]diff.Operation{&diff.AddColumn{Table: "dim_company"}})
}

func TestStatementPanicsOnMissingTable(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("CREATE_TABLE with nil table did not panic")
		}
	}()
	Statements([]diff.Operation{&diff.CreateTable{}})
}
