// Package schema defines the warehouse schema model: dimension and fact
// tables, their columns, indexes and foreign keys, and the SchemaSpec
// document that declares a complete star schema. The model is the input to
// validation, diffing and DDL generation.
package schema

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Column represents a single table column. Nullable defaults to true when
// omitted in a document.
type Column struct {
	Name        string `json:"name" yaml:"name" validate:"required"`
	Type        string `json:"type" yaml:"type" validate:"required"`
	Nullable    bool   `json:"nullable" yaml:"nullable"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// columnNameRe matches legal column names: lowercase, digits and
// underscores, starting with a letter.
var columnNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// NewColumn builds a column with a normalized type. It fails when the name
// is not a legal identifier or the type is outside the whitelist.
func NewColumn(name, typ string, nullable bool) (*Column, error) {
	if !columnNameRe.MatchString(name) {
		return nil, fmt.Errorf("illegal column name %q: must be lowercase with underscores", name)
	}
	canonical, err := NormalizeType(typ)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", name, err)
	}
	return &Column{Name: name, Type: canonical, Nullable: nullable}, nil
}

// UnmarshalYAML decodes a column, defaulting nullable to true and
// canonicalizing the type when it normalizes cleanly. A type that does not
// normalize is kept verbatim so validation can report it.
func (c *Column) UnmarshalYAML(node *yaml.Node) error {
	type rawColumn struct {
		Name        string `yaml:"name"`
		Type        string `yaml:"type"`
		Nullable    *bool  `yaml:"nullable"`
		Description string `yaml:"description"`
	}
	var raw rawColumn
	if err := node.Decode(&raw); err != nil {
		return err
	}
	c.Name = raw.Name
	c.Type = raw.Type
	if canonical, err := NormalizeType(raw.Type); err == nil {
		c.Type = canonical
	}
	c.Nullable = raw.Nullable == nil || *raw.Nullable
	c.Description = raw.Description
	return nil
}

// MarshalYAML emits the column with nullable omitted when it holds the
// default (true), keeping dumped documents compact.
func (c Column) MarshalYAML() (interface{}, error) {
	type rawColumn struct {
		Name        string `yaml:"name"`
		Type        string `yaml:"type"`
		Nullable    *bool  `yaml:"nullable,omitempty"`
		Description string `yaml:"description,omitempty"`
	}
	raw := rawColumn{Name: c.Name, Type: c.Type, Description: c.Description}
	if !c.Nullable {
		notNull := false
		raw.Nullable = &notNull
	}
	return raw, nil
}

// Index represents a secondary index. Indexes are matched by name when
// diffing; a definition change under an unchanged name is not detected.
type Index struct {
	Name    string   `json:"name" yaml:"name" validate:"required"`
	Columns []string `json:"columns" yaml:"columns" validate:"required,min=1,dive,required"`
	Unique  bool     `json:"unique" yaml:"unique,omitempty"`
}

// ForeignKey links a fact column to a dimension in "table(column)" text
// form, e.g. "dim_company(company_key)".
type ForeignKey struct {
	Column     string `json:"column" yaml:"column" validate:"required"`
	References string `json:"references" yaml:"references" validate:"required"`
}

// referenceRe matches the strict table(column) reference form.
var referenceRe = regexp.MustCompile(`^([a-z][a-z0-9_]*)\(([a-z][a-z0-9_]*)\)$`)

// Target resolves the referenced table and column. Malformed references
// degrade instead of failing: the whole string is taken as the table name
// and the column defaults to "id".
func (fk *ForeignKey) Target() (table, column string) {
	if m := referenceRe.FindStringSubmatch(strings.TrimSpace(fk.References)); m != nil {
		return m[1], m[2]
	}
	raw := strings.TrimSpace(fk.References)
	if i := strings.IndexByte(raw, '('); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw), "id"
}

// WellFormed reports whether the reference is in strict table(column) form.
func (fk *ForeignKey) WellFormed() bool {
	return referenceRe.MatchString(strings.TrimSpace(fk.References))
}

// Dimension is a descriptive table keyed by a surrogate key. The surrogate
// may be declared without appearing in Columns; DDL generation synthesizes
// it in that case.
type Dimension struct {
	Name         string    `json:"name" yaml:"name" validate:"required"`
	Description  string    `json:"description,omitempty" yaml:"description,omitempty"`
	SurrogateKey string    `json:"surrogate_key,omitempty" yaml:"surrogate_key,omitempty"`
	NaturalKey   string    `json:"natural_key,omitempty" yaml:"natural_key,omitempty"`
	Columns      []*Column `json:"columns" yaml:"columns" validate:"dive"`
	Indexes      []*Index  `json:"indexes,omitempty" yaml:"indexes,omitempty" validate:"dive"`
}

func (d *Dimension) TableName() string      { return d.Name }
func (d *Dimension) TableIndexes() []*Index { return d.Indexes }
func (d *Dimension) isTable()               {}

// Fact is an event table at a declared grain. Measures are the additive
// numeric columns; Columns carries degenerate dimensions and other
// non-measure attributes.
type Fact struct {
	Name        string        `json:"name" yaml:"name" validate:"required"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Grain       string        `json:"grain,omitempty" yaml:"grain,omitempty"`
	ForeignKeys []*ForeignKey `json:"foreign_keys,omitempty" yaml:"foreign_keys,omitempty" validate:"dive"`
	Measures    []*Column     `json:"measures,omitempty" yaml:"measures,omitempty" validate:"dive"`
	Columns     []*Column     `json:"columns,omitempty" yaml:"columns,omitempty" validate:"dive"`
	Indexes     []*Index      `json:"indexes,omitempty" yaml:"indexes,omitempty" validate:"dive"`
}

func (f *Fact) TableName() string      { return f.Name }
func (f *Fact) TableIndexes() []*Index { return f.Indexes }
func (f *Fact) isTable()               {}

// GrainColumns splits the comma-separated grain declaration.
func (f *Fact) GrainColumns() []string {
	if strings.TrimSpace(f.Grain) == "" {
		return nil
	}
	parts := strings.Split(f.Grain, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Table is the closed set of warehouse table kinds. Only *Dimension and
// *Fact implement it.
type Table interface {
	TableName() string
	TableIndexes() []*Index
	isTable()
}

// ColumnsOf returns the full column list of a table: a dimension's columns,
// or a fact's columns followed by its measures. This is the single place
// that branches on table kind for column access.
func ColumnsOf(t Table) []*Column {
	switch v := t.(type) {
	case *Dimension:
		return v.Columns
	case *Fact:
		if len(v.Measures) == 0 {
			return v.Columns
		}
		cols := make([]*Column, 0, len(v.Columns)+len(v.Measures))
		cols = append(cols, v.Columns...)
		cols = append(cols, v.Measures...)
		return cols
	default:
		panic(fmt.Sprintf("schema: unknown table kind %T", t))
	}
}

// KindOf names the table kind for display and plan output.
func KindOf(t Table) string {
	switch t.(type) {
	case *Dimension:
		return "dimension"
	case *Fact:
		return "fact"
	default:
		panic(fmt.Sprintf("schema: unknown table kind %T", t))
	}
}

// SchemaSpec is a complete star-schema declaration: a version counter, an
// optional warehouse label and the ordered dimension and fact tables.
type SchemaSpec struct {
	Version    int          `json:"version" yaml:"version"`
	Warehouse  string       `json:"warehouse,omitempty" yaml:"warehouse,omitempty"`
	Dimensions []*Dimension `json:"dimensions,omitempty" yaml:"dimensions,omitempty" validate:"dive"`
	Facts      []*Fact      `json:"facts,omitempty" yaml:"facts,omitempty" validate:"dive"`
}

// Tables maps table name to table. On duplicate names the first declaration
// wins; validation reports the duplicate.
func (s *SchemaSpec) Tables() map[string]Table {
	tables := make(map[string]Table)
	if s == nil {
		return tables
	}
	for _, d := range s.Dimensions {
		if _, ok := tables[d.Name]; !ok {
			tables[d.Name] = d
		}
	}
	for _, f := range s.Facts {
		if _, ok := tables[f.Name]; !ok {
			tables[f.Name] = f
		}
	}
	return tables
}

// TableNames returns table names in declaration order, dimensions first.
// Diffing iterates this instead of map keys so plans are deterministic.
func (s *SchemaSpec) TableNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Dimensions)+len(s.Facts))
	for _, d := range s.Dimensions {
		names = append(names, d.Name)
	}
	for _, f := range s.Facts {
		names = append(names, f.Name)
	}
	return names
}

// Find looks up a table by name.
func (s *SchemaSpec) Find(name string) (Table, bool) {
	t, ok := s.Tables()[name]
	return t, ok
}

// TableCount returns the number of declared tables.
func (s *SchemaSpec) TableCount() int {
	if s == nil {
		return 0
	}
	return len(s.Dimensions) + len(s.Facts)
}
