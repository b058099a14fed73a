package diff

import (
	"strings"

	"github.com/starforge/starforge/internal/schema"
)

// Diff compares two specs and returns the operations that migrate current
// to target, grouped by phase in PhaseOrder. A nil current plans the whole
// target from scratch. Diffing never fails: malformed pieces degrade and
// are left for validation to report.
//
// Tables and columns are matched by name in declaration order. Indexes are
// matched by name only and foreign keys by local column only, so a changed
// definition under an unchanged name is not detected. Nothing is ever
// emitted for tables or indexes that exist only in current: dropping
// whole tables is out of scope for generated migrations.
func Diff(current, target *schema.SchemaSpec) []Operation {
	currentTables := current.Tables()
	targetTables := target.Tables()

	var (
		creates    []Operation
		addCols    []Operation
		alterCols  []Operation
		dropCols   []Operation
		createIdxs []Operation
		addFKs     []Operation
	)

	seen := make(map[string]bool)
	for _, name := range target.TableNames() {
		if seen[name] {
			continue
		}
		seen[name] = true
		tgt := targetTables[name]
		cur, exists := currentTables[name]

		if !exists {
			creates = append(creates, &CreateTable{Table: tgt})
			cur = nil
		} else {
			added, altered, dropped := diffColumns(name, cur, tgt)
			addCols = append(addCols, added...)
			alterCols = append(alterCols, altered...)
			dropCols = append(dropCols, dropped...)
		}

		// Index and foreign key passes cover new tables too: their DDL is
		// emitted after the CREATE TABLE phase.
		createIdxs = append(createIdxs, diffIndexes(name, cur, tgt)...)
		if fact, ok := tgt.(*schema.Fact); ok {
			addFKs = append(addFKs, diffForeignKeys(cur, fact)...)
		}
	}

	ops := make([]Operation, 0, len(creates)+len(addCols)+len(alterCols)+len(dropCols)+len(createIdxs)+len(addFKs))
	ops = append(ops, creates...)
	ops = append(ops, addCols...)
	ops = append(ops, alterCols...)
	ops = append(ops, dropCols...)
	ops = append(ops, createIdxs...)
	ops = append(ops, addFKs...)
	return ops
}

// diffColumns matches the full column sets of two same-named tables by
// column name. Added and altered columns follow target declaration order,
// dropped columns follow current declaration order.
func diffColumns(table string, cur, tgt schema.Table) (added, altered, dropped []Operation) {
	curCols := columnMap(schema.ColumnsOf(cur))
	tgtCols := columnMap(schema.ColumnsOf(tgt))

	seen := make(map[string]bool)
	for _, col := range schema.ColumnsOf(tgt) {
		if seen[col.Name] {
			continue
		}
		seen[col.Name] = true
		prev, exists := curCols[col.Name]
		if !exists {
			added = append(added, &AddColumn{Table: table, Column: col})
			continue
		}
		if canonicalType(col.Type) != canonicalType(prev.Type) || col.Nullable != prev.Nullable {
			altered = append(altered, &AlterColumn{Table: table, Column: col, Previous: prev})
		}
	}

	seen = make(map[string]bool)
	for _, col := range schema.ColumnsOf(cur) {
		if seen[col.Name] {
			continue
		}
		seen[col.Name] = true
		if _, exists := tgtCols[col.Name]; !exists {
			dropped = append(dropped, &DropColumn{Table: table, Column: col})
		}
	}
	return added, altered, dropped
}

// diffIndexes emits CreateIndex for every target index whose name is absent
// from the current table. cur may be nil for a new table.
func diffIndexes(table string, cur, tgt schema.Table) []Operation {
	curNames := make(map[string]bool)
	if cur != nil {
		for _, ix := range cur.TableIndexes() {
			curNames[ix.Name] = true
		}
	}

	var ops []Operation
	for _, ix := range tgt.TableIndexes() {
		if !curNames[ix.Name] {
			ops = append(ops, &CreateIndex{Table: table, Index: ix})
		}
	}
	return ops
}

// diffForeignKeys emits AddForeignKey for every target constraint whose
// local column has no constraint in current. cur may be nil, or a table
// kind without foreign keys.
func diffForeignKeys(cur schema.Table, tgt *schema.Fact) []Operation {
	curCols := make(map[string]bool)
	if curFact, ok := cur.(*schema.Fact); ok {
		for _, fk := range curFact.ForeignKeys {
			curCols[fk.Column] = true
		}
	}

	var ops []Operation
	for _, fk := range tgt.ForeignKeys {
		if curCols[fk.Column] {
			continue
		}
		refTable, refColumn := fk.Target()
		ops = append(ops, &AddForeignKey{
			Table:      tgt.Name,
			ForeignKey: fk,
			RefTable:   refTable,
			RefColumn:  refColumn,
		})
	}
	return ops
}

func columnMap(cols []*schema.Column) map[string]*schema.Column {
	m := make(map[string]*schema.Column, len(cols))
	for _, c := range cols {
		if _, ok := m[c.Name]; !ok {
			m[c.Name] = c
		}
	}
	return m
}

// canonicalType compares types on their normalized form so a hand-built
// spec with "varchar(40)" does not diff against a loaded "VARCHAR(40)".
func canonicalType(t string) string {
	if c, err := schema.NormalizeType(t); err == nil {
		return c
	}
	return strings.ToUpper(strings.TrimSpace(t))
}
