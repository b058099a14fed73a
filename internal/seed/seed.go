// Package seed fills star tables with deterministic synthetic rows so a
// freshly migrated warehouse has data to query during development.
package seed

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/starforge/starforge/internal/logger"
	"github.com/starforge/starforge/internal/schema"
	"github.com/starforge/starforge/internal/warehouse"
)

// factFanout is how many fact rows are written per dimension row.
const factFanout = 4

// baseDate anchors generated date values; row N lands N-1 days later.
var baseDate = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// TableCount reports how many rows were written to one table.
type TableCount struct {
	Table string
	Rows  int
}

// Seeder writes synthetic rows for every table in a spec. Dimensions are
// filled before facts so fact rows always reference existing surrogate
// keys, and every run produces the same values for the same spec.
type Seeder struct {
	conn *warehouse.Conn
	rows int
}

func New(conn *warehouse.Conn, rows int) *Seeder {
	if rows < 1 {
		rows = 1
	}
	return &Seeder{conn: conn, rows: rows}
}

// Seed replaces the contents of every star table with generated rows. The
// whole run happens in one transaction; facts are cleared before
// dimensions so foreign keys never dangle.
func (s *Seeder) Seed(ctx context.Context, spec *schema.SchemaSpec) ([]TableCount, error) {
	log := logger.Get()

	tx, err := s.conn.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer tx.Rollback()

	for _, f := range spec.Facts {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+f.Name); err != nil {
			return nil, fmt.Errorf("clearing %s: %w", f.Name, err)
		}
	}
	for _, d := range spec.Dimensions {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+d.Name); err != nil {
			return nil, fmt.Errorf("clearing %s: %w", d.Name, err)
		}
	}

	var counts []TableCount
	for _, d := range spec.Dimensions {
		n, err := s.fillTable(ctx, tx, d.Name, dimensionColumns(d), nil, s.rows)
		if err != nil {
			return nil, err
		}
		log.Debug("Seeded dimension", "table", d.Name, "rows", n)
		counts = append(counts, TableCount{Table: d.Name, Rows: n})
	}
	for _, f := range spec.Facts {
		n, err := s.fillTable(ctx, tx, f.Name, schema.ColumnsOf(f), referenceColumns(f), s.rows*factFanout)
		if err != nil {
			return nil, err
		}
		log.Debug("Seeded fact", "table", f.Name, "rows", n)
		counts = append(counts, TableCount{Table: f.Name, Rows: n})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing seed transaction: %w", err)
	}
	return counts, nil
}

func (s *Seeder) fillTable(ctx context.Context, tx *sql.Tx, table string, cols []*schema.Column, refs map[string]bool, rows int) (int, error) {
	if len(cols) == 0 {
		return 0, nil
	}
	stmt := insertStatement(s.conn.Engine, table, cols)

	for row := 1; row <= rows; row++ {
		args := make([]interface{}, len(cols))
		for i, col := range cols {
			if refs[col.Name] {
				// Cycle through the seeded surrogate key range.
				args[i] = (row-1)%s.rows + 1
				continue
			}
			args[i] = columnValue(col, row)
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return 0, fmt.Errorf("seeding %s row %d: %w", table, row, err)
		}
	}
	return rows, nil
}

func insertStatement(engine warehouse.Engine, table string, cols []*schema.Column) string {
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Name
		marks[i] = warehouse.Placeholder(engine, i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(names, ", "), strings.Join(marks, ", "))
}

// dimensionColumns returns the columns to insert, including the surrogate
// key column when the spec leaves it undeclared.
func dimensionColumns(d *schema.Dimension) []*schema.Column {
	if d.SurrogateKey == "" {
		return d.Columns
	}
	for _, c := range d.Columns {
		if c.Name == d.SurrogateKey {
			return d.Columns
		}
	}
	out := make([]*schema.Column, 0, len(d.Columns)+1)
	out = append(out, &schema.Column{Name: d.SurrogateKey, Type: "INT"})
	return append(out, d.Columns...)
}

func referenceColumns(f *schema.Fact) map[string]bool {
	refs := make(map[string]bool, len(f.ForeignKeys))
	for _, fk := range f.ForeignKeys {
		refs[fk.Column] = true
	}
	return refs
}

// columnValue generates the value for one column of one row. Integer
// columns count up from 1, so a surrogate key column doubles as the row
// number other tables can reference.
func columnValue(col *schema.Column, row int) interface{} {
	base, params := schema.ParseType(col.Type)
	switch base {
	case "INT", "BIGINT", "SMALLINT":
		return row
	case "FLOAT":
		return float64(row) + 0.5
	case "MONEY", "DECIMAL":
		return float64(row) + 0.25
	case "DATE", "DATETIME", "DATETIME2":
		return baseDate.AddDate(0, 0, row-1)
	case "BIT":
		return row%2 == 1
	case "VARCHAR", "NVARCHAR", "CHAR":
		limit := 0
		if len(params) > 0 {
			limit = params[0]
		}
		return stringValue(col.Name, limit, row)
	default:
		return row
	}
}

// stringValue builds a per-row string. When the column is too narrow the
// prefix is dropped rather than the row digits, keeping values distinct
// for unique natural keys.
func stringValue(name string, limit, row int) string {
	v := fmt.Sprintf("%s_%04d", name, row)
	if limit > 0 && len(v) > limit {
		v = v[len(v)-limit:]
	}
	return v
}
