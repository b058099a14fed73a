package schema

import (
	"fmt"
	"strings"
)

// Validate checks a spec against the star-schema modeling rules and returns
// one human-readable defect string per violation, in declaration order. It
// never stops early and never returns an error: defects are data.
func Validate(s *SchemaSpec) []string {
	var defects []string
	if s == nil {
		return defects
	}

	if s.Version < 1 {
		defects = append(defects, fmt.Sprintf("schema version must be >= 1, got %d", s.Version))
	}

	seen := make(map[string]bool)
	note := func(format string, args ...interface{}) {
		defects = append(defects, fmt.Sprintf(format, args...))
	}

	for _, d := range s.Dimensions {
		if seen[d.Name] {
			note("duplicate table name %s", d.Name)
		}
		seen[d.Name] = true

		if !strings.HasPrefix(d.Name, "dim_") {
			note("dimension %s: name must begin with dim_", d.Name)
		}
		known := validateColumns(d.Name, d.Columns, &defects)

		switch {
		case d.SurrogateKey == "":
			note("dimension %s: missing surrogate_key", d.Name)
		case !known[d.SurrogateKey]:
			// Rendering synthesizes an undeclared surrogate column, but the
			// declaration is still flagged so specs stay self-describing.
			note("dimension %s: surrogate_key %q is not a defined column", d.Name, d.SurrogateKey)
		}
		if d.SurrogateKey != "" {
			known[d.SurrogateKey] = true
		}
		if d.NaturalKey != "" && !known[d.NaturalKey] {
			note("dimension %s: natural_key %q is not a defined column", d.Name, d.NaturalKey)
		}
		validateIndexes(d.Name, d.Indexes, known, &defects)
	}

	tables := s.Tables()
	for _, f := range s.Facts {
		if seen[f.Name] {
			note("duplicate table name %s", f.Name)
		}
		seen[f.Name] = true

		if !strings.HasPrefix(f.Name, "fact_") {
			note("fact %s: name must begin with fact_", f.Name)
		}
		known := validateColumns(f.Name, ColumnsOf(f), &defects)

		for _, m := range f.Measures {
			if TypeFamily(m.Type) != FamilyNumeric {
				note("fact %s: measure %s must be a numeric type, got %s", f.Name, m.Name, m.Type)
			}
		}
		for _, g := range f.GrainColumns() {
			if !known[g] {
				note("fact %s: grain column %q is not a defined column", f.Name, g)
			}
		}
		for _, fk := range f.ForeignKeys {
			if !known[fk.Column] {
				note("fact %s: foreign key column %q is not a defined column", f.Name, fk.Column)
			}
			if !fk.WellFormed() {
				note("fact %s: foreign key %s references %q, want table(column) form", f.Name, fk.Column, fk.References)
				continue
			}
			refTable, refColumn := fk.Target()
			target, ok := tables[refTable]
			if !ok {
				note("fact %s: foreign key %s references unknown table %s", f.Name, fk.Column, refTable)
				continue
			}
			if !tableHasColumn(target, refColumn) {
				note("fact %s: foreign key %s references unknown column %s(%s)", f.Name, fk.Column, refTable, refColumn)
			}
		}
		validateIndexes(f.Name, f.Indexes, known, &defects)
	}

	return defects
}

// validateColumns checks names and types and returns the set of declared
// column names for later lookups.
func validateColumns(table string, cols []*Column, defects *[]string) map[string]bool {
	known := make(map[string]bool, len(cols))
	for _, c := range cols {
		if known[c.Name] {
			*defects = append(*defects, fmt.Sprintf("table %s: duplicate column %s", table, c.Name))
		}
		known[c.Name] = true
		if !columnNameRe.MatchString(c.Name) {
			*defects = append(*defects, fmt.Sprintf("table %s: illegal column name %q", table, c.Name))
		}
		if _, err := NormalizeType(c.Type); err != nil {
			*defects = append(*defects, fmt.Sprintf("table %s: column %s: %v", table, c.Name, err))
		}
	}
	return known
}

func validateIndexes(table string, indexes []*Index, known map[string]bool, defects *[]string) {
	names := make(map[string]bool, len(indexes))
	for _, ix := range indexes {
		if names[ix.Name] {
			*defects = append(*defects, fmt.Sprintf("table %s: duplicate index name %s", table, ix.Name))
		}
		names[ix.Name] = true
		for _, col := range ix.Columns {
			if !known[col] {
				*defects = append(*defects, fmt.Sprintf("table %s: index %s references undefined column %q", table, ix.Name, col))
			}
		}
	}
}

// tableHasColumn reports whether a table defines the named column, counting
// a dimension's surrogate key even when it is synthesized.
func tableHasColumn(t Table, name string) bool {
	for _, c := range ColumnsOf(t) {
		if c.Name == name {
			return true
		}
	}
	if d, ok := t.(*Dimension); ok {
		return d.SurrogateKey == name
	}
	return false
}
