// Package ddl imports existing warehouse DDL into a SchemaSpec. It is the
// migration on-ramp: point it at a schema dump and get a spec document
// that plans cleanly against the live warehouse.
package ddl

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/starforge/starforge/internal/logger"
	"github.com/starforge/starforge/internal/schema"
)

// Import parses CREATE TABLE, CREATE INDEX and ALTER TABLE ADD CONSTRAINT
// statements into a SchemaSpec. Tables are classified by their dim_/fact_
// prefix; statements about anything else are skipped.
func Import(sqlText string) (*schema.SchemaSpec, error) {
	statements, err := pg_query.SplitWithParser(sqlText, true)
	if err != nil {
		return nil, fmt.Errorf("splitting DDL: %w", err)
	}

	im := &importer{
		spec:   &schema.SchemaSpec{Version: 1},
		tables: make(map[string]schema.Table),
	}
	for _, stmt := range statements {
		result, err := pg_query.Parse(stmt)
		if err != nil {
			return nil, fmt.Errorf("parsing DDL statement %q: %w", abbreviate(stmt), err)
		}
		for _, parsed := range result.Stmts {
			if parsed.Stmt == nil {
				continue
			}
			if err := im.process(parsed.Stmt); err != nil {
				return nil, err
			}
		}
	}
	return im.spec, nil
}

type importer struct {
	spec   *schema.SchemaSpec
	tables map[string]schema.Table
}

func (im *importer) process(node *pg_query.Node) error {
	switch n := node.Node.(type) {
	case *pg_query.Node_CreateStmt:
		return im.createTable(n.CreateStmt)
	case *pg_query.Node_IndexStmt:
		return im.createIndex(n.IndexStmt)
	case *pg_query.Node_AlterTableStmt:
		return im.alterTable(n.AlterTableStmt)
	default:
		// Sequences, grants, comments and the rest carry nothing the
		// model tracks.
		return nil
	}
}

func (im *importer) createTable(stmt *pg_query.CreateStmt) error {
	name := stmt.Relation.Relname

	var cols []*schema.Column
	var pk []string
	var uniqueCols []string
	var fks []*schema.ForeignKey

	for _, element := range stmt.TableElts {
		switch elt := element.Node.(type) {
		case *pg_query.Node_ColumnDef:
			col, flags, err := im.columnDef(elt.ColumnDef, name)
			if err != nil {
				return err
			}
			cols = append(cols, col)
			if flags.primary {
				pk = append(pk, col.Name)
			}
			if flags.unique {
				uniqueCols = append(uniqueCols, col.Name)
			}
			if flags.foreignKey != nil {
				fks = append(fks, flags.foreignKey)
			}

		case *pg_query.Node_Constraint:
			cons := elt.Constraint
			switch cons.Contype {
			case pg_query.ConstrType_CONSTR_PRIMARY:
				for _, key := range cons.Keys {
					pk = append(pk, stringValue(key))
				}
			case pg_query.ConstrType_CONSTR_UNIQUE:
				if len(cons.Keys) == 1 {
					uniqueCols = append(uniqueCols, stringValue(cons.Keys[0]))
				}
			case pg_query.ConstrType_CONSTR_FOREIGN:
				if fk := foreignKeyFrom(cons, ""); fk != nil {
					fks = append(fks, fk)
				}
			}
		}
	}

	// Primary key columns are implicitly NOT NULL.
	for _, col := range cols {
		for _, key := range pk {
			if col.Name == key {
				col.Nullable = false
			}
		}
	}

	switch {
	case strings.HasPrefix(name, "dim_"):
		d := &schema.Dimension{Name: name, Columns: cols}
		if len(pk) == 1 {
			d.SurrogateKey = pk[0]
		}
		for _, u := range uniqueCols {
			if u != d.SurrogateKey {
				d.NaturalKey = u
				break
			}
		}
		im.spec.Dimensions = append(im.spec.Dimensions, d)
		im.tables[name] = d

	case strings.HasPrefix(name, "fact_"):
		f := &schema.Fact{Name: name, ForeignKeys: fks}
		fkColumns := make(map[string]bool)
		for _, fk := range fks {
			fkColumns[fk.Column] = true
		}
		for _, col := range cols {
			if schema.IsMeasureType(col.Type) && !fkColumns[col.Name] {
				f.Measures = append(f.Measures, col)
			} else {
				f.Columns = append(f.Columns, col)
			}
		}
		refreshGrain(f)
		im.spec.Facts = append(im.spec.Facts, f)
		im.tables[name] = f

	default:
		logger.Get().Debug("Skipping non-star table in imported DDL", "table", name)
	}
	return nil
}

func (im *importer) createIndex(stmt *pg_query.IndexStmt) error {
	table, ok := im.tables[stmt.Relation.Relname]
	if !ok {
		return nil
	}
	if stmt.Idxname == "" {
		return nil
	}

	var columns []string
	for _, param := range stmt.IndexParams {
		elem := param.GetIndexElem()
		if elem == nil || elem.Name == "" {
			// Expression indexes have no plain column to record.
			logger.Get().Debug("Skipping expression index", "index", stmt.Idxname)
			return nil
		}
		columns = append(columns, elem.Name)
	}
	if len(columns) == 0 {
		return nil
	}

	ix := &schema.Index{Name: stmt.Idxname, Columns: columns, Unique: stmt.Unique}
	switch t := table.(type) {
	case *schema.Dimension:
		t.Indexes = append(t.Indexes, ix)
		if t.NaturalKey == "" && ix.Unique && len(columns) == 1 && columns[0] != t.SurrogateKey {
			t.NaturalKey = columns[0]
		}
	case *schema.Fact:
		t.Indexes = append(t.Indexes, ix)
	}
	return nil
}

func (im *importer) alterTable(stmt *pg_query.AlterTableStmt) error {
	if stmt.Objtype != pg_query.ObjectType_OBJECT_TABLE {
		return nil
	}
	name := stmt.Relation.Relname
	table, ok := im.tables[name]
	if !ok {
		return nil
	}

	for _, cmd := range stmt.Cmds {
		alterCmd := cmd.GetAlterTableCmd()
		if alterCmd == nil {
			continue
		}
		switch alterCmd.Subtype {
		case pg_query.AlterTableType_AT_AddColumn:
			if err := im.addColumn(alterCmd, table, name); err != nil {
				return err
			}
		case pg_query.AlterTableType_AT_AddConstraint:
			im.addConstraint(alterCmd, table)
		}
	}
	return nil
}

func (im *importer) addColumn(cmd *pg_query.AlterTableCmd, table schema.Table, tableName string) error {
	def := cmd.GetDef().GetColumnDef()
	if def == nil {
		return fmt.Errorf("ALTER TABLE %s ADD COLUMN without a column definition", tableName)
	}
	col, flags, err := im.columnDef(def, tableName)
	if err != nil {
		return err
	}

	switch t := table.(type) {
	case *schema.Dimension:
		t.Columns = append(t.Columns, col)
	case *schema.Fact:
		if flags.foreignKey != nil {
			t.ForeignKeys = append(t.ForeignKeys, flags.foreignKey)
			refreshGrain(t)
		}
		if schema.IsMeasureType(col.Type) && flags.foreignKey == nil {
			t.Measures = append(t.Measures, col)
		} else {
			t.Columns = append(t.Columns, col)
		}
	}
	return nil
}

func (im *importer) addConstraint(cmd *pg_query.AlterTableCmd, table schema.Table) {
	cons := cmd.GetDef().GetConstraint()
	if cons == nil {
		return
	}
	switch cons.Contype {
	case pg_query.ConstrType_CONSTR_PRIMARY:
		if d, ok := table.(*schema.Dimension); ok && len(cons.Keys) == 1 {
			d.SurrogateKey = stringValue(cons.Keys[0])
			for _, col := range d.Columns {
				if col.Name == d.SurrogateKey {
					col.Nullable = false
				}
			}
		}
	case pg_query.ConstrType_CONSTR_UNIQUE:
		if d, ok := table.(*schema.Dimension); ok && d.NaturalKey == "" && len(cons.Keys) == 1 {
			if key := stringValue(cons.Keys[0]); key != d.SurrogateKey {
				d.NaturalKey = key
			}
		}
	case pg_query.ConstrType_CONSTR_FOREIGN:
		if f, ok := table.(*schema.Fact); ok {
			if fk := foreignKeyFrom(cons, ""); fk != nil {
				f.ForeignKeys = append(f.ForeignKeys, fk)
				refreshGrain(f)
			}
		}
	}
}

// columnFlags carries the inline constraints attached to a column
// definition.
type columnFlags struct {
	primary    bool
	unique     bool
	foreignKey *schema.ForeignKey
}

func (im *importer) columnDef(def *pg_query.ColumnDef, tableName string) (*schema.Column, columnFlags, error) {
	var flags columnFlags

	typ, err := mapTypeName(def.TypeName)
	if err != nil {
		return nil, flags, fmt.Errorf("table %s column %s: %w", tableName, def.Colname, err)
	}
	col := &schema.Column{Name: def.Colname, Type: typ, Nullable: true}

	for _, c := range def.Constraints {
		cons := c.GetConstraint()
		if cons == nil {
			continue
		}
		switch cons.Contype {
		case pg_query.ConstrType_CONSTR_NOTNULL:
			col.Nullable = false
		case pg_query.ConstrType_CONSTR_NULL:
			col.Nullable = true
		case pg_query.ConstrType_CONSTR_PRIMARY:
			flags.primary = true
			col.Nullable = false
		case pg_query.ConstrType_CONSTR_UNIQUE:
			flags.unique = true
		case pg_query.ConstrType_CONSTR_FOREIGN:
			flags.foreignKey = foreignKeyFrom(cons, def.Colname)
		}
	}
	return col, flags, nil
}

// foreignKeyFrom builds a model foreign key from a parsed constraint. The
// local column comes from FkAttrs for table-level constraints, or from the
// owning column for inline REFERENCES clauses.
func foreignKeyFrom(cons *pg_query.Constraint, inlineColumn string) *schema.ForeignKey {
	if cons.Pktable == nil {
		return nil
	}
	column := inlineColumn
	if column == "" {
		if len(cons.FkAttrs) != 1 {
			return nil
		}
		column = stringValue(cons.FkAttrs[0])
	}
	refColumn := "id"
	if len(cons.PkAttrs) > 0 {
		refColumn = stringValue(cons.PkAttrs[0])
	}
	return &schema.ForeignKey{
		Column:     column,
		References: fmt.Sprintf("%s(%s)", cons.Pktable.Relname, refColumn),
	}
}

// refreshGrain keeps the grain in step with the foreign keys; imported DDL
// has no grain declaration, so the key columns are the best approximation.
func refreshGrain(f *schema.Fact) {
	if len(f.ForeignKeys) == 0 {
		return
	}
	keys := make([]string, 0, len(f.ForeignKeys))
	for _, fk := range f.ForeignKeys {
		keys = append(keys, fk.Column)
	}
	f.Grain = strings.Join(keys, ", ")
}

func stringValue(node *pg_query.Node) string {
	if s := node.GetString_(); s != nil {
		return s.Sval
	}
	return ""
}

func abbreviate(stmt string) string {
	trimmed := strings.Join(strings.Fields(stmt), " ")
	if len(trimmed) > 60 {
		return trimmed[:60] + "..."
	}
	return trimmed
}
