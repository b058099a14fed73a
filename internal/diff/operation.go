// Package diff computes the ordered migration operations that take a
// current warehouse schema to a target one. The diff is pure and
// deterministic: the same pair of specs always yields the same plan.
package diff

import "github.com/starforge/starforge/internal/schema"

// OpKind names a migration operation phase. Plans list operations grouped
// by kind in exactly this order.
type OpKind string

const (
	OpCreateTable   OpKind = "CREATE_TABLE"
	OpAddColumn     OpKind = "ADD_COLUMN"
	OpAlterColumn   OpKind = "ALTER_COLUMN"
	OpDropColumn    OpKind = "DROP_COLUMN"
	OpCreateIndex   OpKind = "CREATE_INDEX"
	OpAddForeignKey OpKind = "ADD_FOREIGN_KEY"
)

// PhaseOrder is the fixed emission order for operation kinds.
var PhaseOrder = []OpKind{
	OpCreateTable,
	OpAddColumn,
	OpAlterColumn,
	OpDropColumn,
	OpCreateIndex,
	OpAddForeignKey,
}

// Operation is the closed set of migration steps. Each kind carries exactly
// the payload it needs; consumers type-switch and treat an unknown variant
// as a programmer error.
type Operation interface {
	Kind() OpKind
	TableName() string
	isOperation()
}

// CreateTable creates a table with its full definition.
type CreateTable struct {
	Table schema.Table
}

func (o *CreateTable) Kind() OpKind      { return OpCreateTable }
func (o *CreateTable) TableName() string { return o.Table.TableName() }
func (o *CreateTable) isOperation()      {}

// AddColumn adds one column to an existing table.
type AddColumn struct {
	Table  string
	Column *schema.Column
}

func (o *AddColumn) Kind() OpKind      { return OpAddColumn }
func (o *AddColumn) TableName() string { return o.Table }
func (o *AddColumn) isOperation()      {}

// AlterColumn changes a column's type or nullability. Previous holds the
// current definition and may be nil when upstream metadata was lost.
type AlterColumn struct {
	Table    string
	Column   *schema.Column
	Previous *schema.Column
}

func (o *AlterColumn) Kind() OpKind      { return OpAlterColumn }
func (o *AlterColumn) TableName() string { return o.Table }
func (o *AlterColumn) isOperation()      {}

// DropColumn removes a column.
type DropColumn struct {
	Table  string
	Column *schema.Column
}

func (o *DropColumn) Kind() OpKind      { return OpDropColumn }
func (o *DropColumn) TableName() string { return o.Table }
func (o *DropColumn) isOperation()      {}

// CreateIndex creates a secondary index.
type CreateIndex struct {
	Table string
	Index *schema.Index
}

func (o *CreateIndex) Kind() OpKind      { return OpCreateIndex }
func (o *CreateIndex) TableName() string { return o.Table }
func (o *CreateIndex) isOperation()      {}

// AddForeignKey adds a foreign key constraint. RefTable and RefColumn are
// the resolved reference target, already degraded for malformed references.
type AddForeignKey struct {
	Table      string
	ForeignKey *schema.ForeignKey
	RefTable   string
	RefColumn  string
}

func (o *AddForeignKey) Kind() OpKind      { return OpAddForeignKey }
func (o *AddForeignKey) TableName() string { return o.Table }
func (o *AddForeignKey) isOperation()      {}
