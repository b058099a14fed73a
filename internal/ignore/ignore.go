// Package ignore filters warehouse objects out of schema snapshots based
// on a .starforgeignore file. Typical use is keeping staging tables and
// ETL housekeeping columns out of plans and dumps.
package ignore

import (
	"path/filepath"
	"strings"

	"github.com/starforge/starforge/internal/schema"
)

// IgnoreConfig represents the configuration for ignoring warehouse objects
type IgnoreConfig struct {
	Tables  []string `toml:"tables,omitempty"`
	Columns []string `toml:"columns,omitempty"`
}

// ShouldIgnoreTable checks if a table should be ignored based on the patterns
func (c *IgnoreConfig) ShouldIgnoreTable(tableName string) bool {
	if c == nil {
		return false
	}
	return c.shouldIgnore(tableName, c.Tables)
}

// ShouldIgnoreColumn checks if a column should be ignored based on the patterns
func (c *IgnoreConfig) ShouldIgnoreColumn(columnName string) bool {
	if c == nil {
		return false
	}
	return c.shouldIgnore(columnName, c.Columns)
}

// Apply returns a filtered copy of the spec with ignored tables and
// columns removed. Indexes and foreign keys touching an ignored column,
// and foreign keys referencing an ignored table, are removed with it.
// The input spec is not modified.
func (c *IgnoreConfig) Apply(spec *schema.SchemaSpec) *schema.SchemaSpec {
	if c == nil || spec == nil {
		return spec
	}

	out := &schema.SchemaSpec{
		Version:   spec.Version,
		Warehouse: spec.Warehouse,
	}

	for _, d := range spec.Dimensions {
		if c.ShouldIgnoreTable(d.Name) {
			continue
		}
		filtered := &schema.Dimension{
			Name:         d.Name,
			Description:  d.Description,
			SurrogateKey: d.SurrogateKey,
			NaturalKey:   d.NaturalKey,
			Columns:      c.filterColumns(d.Columns),
			Indexes:      c.filterIndexes(d.Indexes),
		}
		out.Dimensions = append(out.Dimensions, filtered)
	}

	for _, f := range spec.Facts {
		if c.ShouldIgnoreTable(f.Name) {
			continue
		}
		filtered := &schema.Fact{
			Name:        f.Name,
			Description: f.Description,
			Grain:       f.Grain,
			ForeignKeys: c.filterForeignKeys(f.ForeignKeys),
			Measures:    c.filterColumns(f.Measures),
			Columns:     c.filterColumns(f.Columns),
			Indexes:     c.filterIndexes(f.Indexes),
		}
		out.Facts = append(out.Facts, filtered)
	}

	return out
}

func (c *IgnoreConfig) filterColumns(cols []*schema.Column) []*schema.Column {
	var out []*schema.Column
	for _, col := range cols {
		if c.ShouldIgnoreColumn(col.Name) {
			continue
		}
		out = append(out, col)
	}
	return out
}

func (c *IgnoreConfig) filterIndexes(indexes []*schema.Index) []*schema.Index {
	var out []*schema.Index
	for _, ix := range indexes {
		touched := false
		for _, col := range ix.Columns {
			if c.ShouldIgnoreColumn(col) {
				touched = true
				break
			}
		}
		if touched {
			continue
		}
		out = append(out, ix)
	}
	return out
}

func (c *IgnoreConfig) filterForeignKeys(fks []*schema.ForeignKey) []*schema.ForeignKey {
	var out []*schema.ForeignKey
	for _, fk := range fks {
		if c.ShouldIgnoreColumn(fk.Column) {
			continue
		}
		refTable, _ := fk.Target()
		if c.ShouldIgnoreTable(refTable) {
			continue
		}
		out = append(out, fk)
	}
	return out
}

// shouldIgnore checks if a name should be ignored based on the patterns
// Patterns support wildcards (*) and negation (!)
// Negation patterns (starting with !) take precedence over inclusion patterns
func (c *IgnoreConfig) shouldIgnore(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}

	matched := false

	for _, pattern := range patterns {
		if strings.HasPrefix(pattern, "!") {
			continue
		}

		if matchPattern(pattern, name) {
			matched = true
			break
		}
	}

	for _, pattern := range patterns {
		if !strings.HasPrefix(pattern, "!") {
			continue
		}

		negPattern := pattern[1:]
		if matchPattern(negPattern, name) {
			return false
		}
	}

	return matched
}

// matchPattern matches a glob-style pattern against a string
// Supports * wildcard matching
func matchPattern(pattern, name string) bool {
	matched, err := filepath.Match(pattern, name)
	if err != nil {
		// Invalid patterns degrade to literal comparison
		return pattern == name
	}
	return matched
}
