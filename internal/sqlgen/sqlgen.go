// Package sqlgen renders migration operations as T-SQL DDL. Creating
// statements carry IF NOT EXISTS guards probing the system catalogs so a
// rendered plan can be replayed without erroring; column-level ALTERs are
// deliberately unguarded and rely on the migration ledger to prevent
// re-application.
package sqlgen

import (
	"fmt"
	"strings"

	"github.com/starforge/starforge/internal/diff"
	"github.com/starforge/starforge/internal/schema"
)

// Generator renders operations to DDL text.
type Generator struct {
	includeComments bool
}

func NewGenerator() *Generator {
	return &Generator{}
}

func NewGeneratorWithComments(includeComments bool) *Generator {
	return &Generator{includeComments: includeComments}
}

// Statements renders each operation to one executable statement, in input
// order. It panics when an operation's payload does not match its kind:
// that is a planner bug, not a user error.
func (g *Generator) Statements(ops []diff.Operation) []string {
	stmts := make([]string, len(ops))
	for i, op := range ops {
		stmts[i] = statement(op)
	}
	return stmts
}

// Render joins the rendered statements with blank lines.
func (g *Generator) Render(ops []diff.Operation) string {
	w := NewSQLWriterWithComments(g.includeComments)
	for i, op := range ops {
		if i > 0 {
			w.WriteDDLSeparator()
		}
		w.WriteStatementWithComment(string(op.Kind()), op.TableName(), statement(op))
	}
	return w.String()
}

// Render renders operations without comment headers.
func Render(ops []diff.Operation) string {
	return NewGenerator().Render(ops)
}

// Statements renders operations to individual statements.
func Statements(ops []diff.Operation) []string {
	return NewGenerator().Statements(ops)
}

func statement(op diff.Operation) string {
	switch o := op.(type) {
	case *diff.CreateTable:
		if o.Table == nil {
			panic("sqlgen: CREATE_TABLE operation without table payload")
		}
		return createTableSQL(o.Table)
	case *diff.AddColumn:
		if o.Column == nil {
			panic("sqlgen: ADD_COLUMN operation without column payload")
		}
		return fmt.Sprintf("ALTER TABLE %s ADD %s;", o.Table, columnClause(o.Column))
	case *diff.AlterColumn:
		if o.Column == nil {
			panic("sqlgen: ALTER_COLUMN operation without column payload")
		}
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s;", o.Table, columnClause(o.Column))
	case *diff.DropColumn:
		if o.Column == nil {
			panic("sqlgen: DROP_COLUMN operation without column payload")
		}
		return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", o.Table, o.Column.Name)
	case *diff.CreateIndex:
		if o.Index == nil {
			panic("sqlgen: CREATE_INDEX operation without index payload")
		}
		return createIndexSQL(o.Table, o.Index)
	case *diff.AddForeignKey:
		if o.ForeignKey == nil {
			panic("sqlgen: ADD_FOREIGN_KEY operation without constraint payload")
		}
		return addForeignKeySQL(o)
	default:
		panic(fmt.Sprintf("sqlgen: unhandled operation %T", op))
	}
}

// guard wraps a statement in a T-SQL existence check so replays are no-ops.
func guard(probe, body string) string {
	return fmt.Sprintf("IF NOT EXISTS (%s)\nBEGIN\n%s\nEND", probe, body)
}

func createTableSQL(t schema.Table) string {
	var defs []string

	switch v := t.(type) {
	case *schema.Dimension:
		declared := false
		for _, c := range v.Columns {
			if c.Name == v.SurrogateKey {
				declared = true
			}
			defs = append(defs, columnClause(c))
		}
		if v.SurrogateKey != "" && !declared {
			surrogate := fmt.Sprintf("%s INT NOT NULL", v.SurrogateKey)
			defs = append([]string{surrogate}, defs...)
		}
		if v.SurrogateKey != "" {
			defs = append(defs, fmt.Sprintf("CONSTRAINT pk_%s PRIMARY KEY (%s)", v.Name, v.SurrogateKey))
		}
	case *schema.Fact:
		for _, c := range v.Columns {
			defs = append(defs, columnClause(c))
		}
		for _, m := range v.Measures {
			defs = append(defs, columnClause(m))
		}
	default:
		panic(fmt.Sprintf("sqlgen: unknown table kind %T", t))
	}

	name := t.TableName()
	body := fmt.Sprintf("CREATE TABLE %s (\n    %s\n);", name, strings.Join(defs, ",\n    "))
	probe := fmt.Sprintf("SELECT * FROM sys.tables WHERE name = '%s'", name)
	return guard(probe, body)
}

func createIndexSQL(table string, ix *schema.Index) string {
	unique := ""
	if ix.Unique {
		unique = "UNIQUE "
	}
	body := fmt.Sprintf("CREATE %sINDEX %s ON %s (%s);", unique, ix.Name, table, strings.Join(ix.Columns, ", "))
	probe := fmt.Sprintf("SELECT * FROM sys.indexes WHERE name = '%s' AND object_id = OBJECT_ID('%s')", ix.Name, table)
	return guard(probe, body)
}

func addForeignKeySQL(o *diff.AddForeignKey) string {
	name := ConstraintName(o.Table, o.ForeignKey.Column)
	body := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s(%s);",
		o.Table, name, o.ForeignKey.Column, o.RefTable, o.RefColumn)
	probe := fmt.Sprintf("SELECT * FROM sys.foreign_keys WHERE name = '%s'", name)
	return guard(probe, body)
}

// ConstraintName builds the deterministic foreign key constraint name.
func ConstraintName(table, column string) string {
	return fmt.Sprintf("fk_%s_%s", table, column)
}

// columnClause renders "name TYPE NULL|NOT NULL". Types that normalize
// cleanly render canonical; anything else passes through verbatim so a
// reviewable plan still comes out of a defective spec.
func columnClause(c *schema.Column) string {
	typ := c.Type
	if canonical, err := schema.NormalizeType(typ); err == nil {
		typ = canonical
	}
	null := "NOT NULL"
	if c.Nullable {
		null = "NULL"
	}
	return fmt.Sprintf("%s %s %s", c.Name, typ, null)
}
