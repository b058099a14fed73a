package starforge

import (
	planCmd "github.com/starforge/starforge/cmd/plan"
	"github.com/starforge/starforge/internal/diff"
	"github.com/starforge/starforge/internal/fingerprint"
	"github.com/starforge/starforge/internal/ignore"
	"github.com/starforge/starforge/internal/impact"
	"github.com/starforge/starforge/internal/plan"
	"github.com/starforge/starforge/internal/schema"
	"github.com/starforge/starforge/internal/warehouse"
)

// Re-export important types for external consumption

// Plan represents a migration between two warehouse states.
type Plan = plan.Plan

// Mitigation pairs a risky operation with a staged alternative script.
type Mitigation = plan.Mitigation

// MitigationStep is one statement of a staged alternative.
type MitigationStep = plan.MitigationStep

// Directive annotates a mitigation step that needs operator attention.
type Directive = plan.Directive

// SchemaSpec is a declarative star-schema warehouse document.
type SchemaSpec = schema.SchemaSpec

// Dimension is a dimension table declaration.
type Dimension = schema.Dimension

// Fact is a fact table declaration.
type Fact = schema.Fact

// Column is one column declaration.
type Column = schema.Column

// Index is a secondary index declaration.
type Index = schema.Index

// ForeignKey is a fact-to-dimension reference.
type ForeignKey = schema.ForeignKey

// Operation is one step of a migration plan.
type Operation = diff.Operation

// OpKind names a migration operation phase.
type OpKind = diff.OpKind

// Risk classifies how dangerous an operation is to existing data.
type Risk = impact.Risk

// Risk tiers, lowest to highest.
const (
	RiskLow    = impact.RiskLow
	RiskMedium = impact.RiskMedium
	RiskHigh   = impact.RiskHigh
)

// RiskRecord scores one column-level operation.
type RiskRecord = impact.RiskRecord

// SchemaFingerprint identifies a schema state by content hash.
type SchemaFingerprint = fingerprint.SchemaFingerprint

// Conn is an open warehouse connection.
type Conn = warehouse.Conn

// ApplyResult reports what an apply run did.
type ApplyResult = warehouse.ApplyResult

// LedgerEntry is one recorded migration run.
type LedgerEntry = warehouse.LedgerEntry

// IgnoreConfig filters tables and columns out of inspection and planning.
type IgnoreConfig = ignore.IgnoreConfig

// DefectsError reports a document that failed validation.
type DefectsError = planCmd.DefectsError
