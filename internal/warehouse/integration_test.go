package warehouse

import (
	"context"
	"strings"
	"testing"

	"github.com/starforge/starforge/testutil"
)

// TestWarehouseIntegration drives the whole package against a disposable
// PostgreSQL container: connect by URL, snapshot a small star schema,
// run migration statements and keep the ledger. Skipped in -short mode.
func TestWarehouseIntegration(t *testing.T) {
	ctx := context.Background()
	ci := testutil.SetupPostgresContainer(ctx, t)
	defer ci.Terminate(ctx, t)

	conn, err := Connect(ctx, ci.URL)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	defer conn.Close()

	if conn.Engine != EnginePostgres {
		t.Errorf("Engine = %s, want %s", conn.Engine, EnginePostgres)
	}
	if conn.Database != "testdw" {
		t.Errorf("Database = %q, want testdw", conn.Database)
	}
	if ver, err := conn.ServerVersion(ctx); err != nil || !strings.Contains(ver, "PostgreSQL") {
		t.Errorf("ServerVersion = %q, %v", ver, err)
	}

	setup := []string{
		`CREATE TABLE dim_company (
			company_key INT PRIMARY KEY,
			company_code VARCHAR(12) NOT NULL,
			region VARCHAR(40)
		)`,
		`CREATE UNIQUE INDEX ux_dim_company_code ON dim_company (company_code)`,
		`CREATE INDEX ix_dim_company_region ON dim_company (region)`,
		`CREATE TABLE fact_loan_payments (
			company_key INT NOT NULL REFERENCES dim_company (company_key),
			payment_date DATE NOT NULL,
			amount NUMERIC(18,2) NOT NULL
		)`,
		`CREATE TABLE staging_raw_loans (payload TEXT)`,
	}
	for _, stmt := range setup {
		if _, err := ci.Conn.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("setup statement failed: %v\n%s", err, stmt)
		}
	}

	t.Run("Snapshot", func(t *testing.T) {
		spec, err := NewInspector(conn, nil).Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot() error: %v", err)
		}

		if len(spec.Dimensions) != 1 {
			t.Fatalf("Dimensions = %d, want 1", len(spec.Dimensions))
		}
		d := spec.Dimensions[0]
		if d.Name != "dim_company" {
			t.Errorf("dimension name = %q, want dim_company", d.Name)
		}
		if d.SurrogateKey != "company_key" {
			t.Errorf("SurrogateKey = %q, want company_key", d.SurrogateKey)
		}
		if d.NaturalKey != "company_code" {
			t.Errorf("NaturalKey = %q, want company_code", d.NaturalKey)
		}
		if len(d.Indexes) != 2 {
			t.Errorf("dimension indexes = %d, want 2", len(d.Indexes))
		}
		for _, c := range d.Columns {
			if c.Name == "region" {
				if c.Type != "VARCHAR(40)" {
					t.Errorf("region type = %q, want VARCHAR(40)", c.Type)
				}
				if !c.Nullable {
					t.Error("region should be nullable")
				}
			}
		}

		if len(spec.Facts) != 1 {
			t.Fatalf("Facts = %d, want 1", len(spec.Facts))
		}
		f := spec.Facts[0]
		if len(f.ForeignKeys) != 1 || f.ForeignKeys[0].References != "dim_company(company_key)" {
			t.Errorf("ForeignKeys = %+v, want one reference to dim_company(company_key)", f.ForeignKeys)
		}
		if len(f.Measures) != 1 || f.Measures[0].Name != "amount" || f.Measures[0].Type != "DECIMAL(18,2)" {
			t.Errorf("Measures = %+v, want amount DECIMAL(18,2)", f.Measures)
		}

		// The staging table has no star prefix and must not appear.
		if _, found := spec.Find("staging_raw_loans"); found {
			t.Error("staging_raw_loans leaked into the snapshot")
		}
	})

	t.Run("Ledger", func(t *testing.T) {
		ledger := NewLedger(conn)
		if err := ledger.Ensure(ctx); err != nil {
			t.Fatalf("Ensure() error: %v", err)
		}
		// Ensure is idempotent.
		if err := ledger.Ensure(ctx); err != nil {
			t.Fatalf("second Ensure() error: %v", err)
		}

		latest, err := ledger.Latest(ctx)
		if err != nil {
			t.Fatalf("Latest() error: %v", err)
		}
		if latest != nil {
			t.Fatalf("Latest() = %+v, want nil on empty ledger", latest)
		}

		entry := &LedgerEntry{Fingerprint: "aaaa1111", SpecVersion: 3, StatementCount: 4}
		if err := ledger.Record(ctx, entry); err != nil {
			t.Fatalf("Record() error: %v", err)
		}
		if entry.ID == "" {
			t.Error("Record() left ID empty, want generated uuid")
		}

		latest, err = ledger.Latest(ctx)
		if err != nil {
			t.Fatalf("Latest() error: %v", err)
		}
		if latest == nil || latest.Fingerprint != "aaaa1111" || latest.SpecVersion != 3 {
			t.Errorf("Latest() = %+v, want recorded entry", latest)
		}
	})

	t.Run("ExecutorApply", func(t *testing.T) {
		ex := NewExecutor(conn)

		statements := []string{
			`ALTER TABLE dim_company ADD COLUMN IF NOT EXISTS industry VARCHAR(30)`,
		}
		result, err := ex.Apply(ctx, statements, "bbbb2222", 4)
		if err != nil {
			t.Fatalf("Apply() error: %v", err)
		}
		if result.Skipped || result.Executed != 1 {
			t.Errorf("Apply() = %+v, want 1 executed, not skipped", result)
		}

		// Re-applying the same fingerprint must be a no-op.
		result, err = ex.Apply(ctx, statements, "bbbb2222", 4)
		if err != nil {
			t.Fatalf("second Apply() error: %v", err)
		}
		if !result.Skipped {
			t.Errorf("second Apply() = %+v, want skipped", result)
		}

		// A failing statement reports its position.
		_, err = ex.Apply(ctx, []string{"SELECT 1", "THIS IS NOT SQL"}, "cccc3333", 5)
		if err == nil {
			t.Fatal("Apply() with broken statement = nil error")
		}
	})
}
