// Package plan assembles the migration artifact for a pair of schema
// states: the ordered operations, the rendered DDL, a per-operation risk
// assessment and the fingerprints of both states. A plan is a value; it
// can be printed for review, serialized to JSON for tooling, or handed to
// the executor for application.
package plan

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/starforge/starforge/internal/color"
	"github.com/starforge/starforge/internal/diff"
	"github.com/starforge/starforge/internal/fingerprint"
	"github.com/starforge/starforge/internal/impact"
	"github.com/starforge/starforge/internal/schema"
	"github.com/starforge/starforge/internal/sqlgen"
	"github.com/starforge/starforge/internal/version"
)

// Plan represents the migration between two schema states.
type Plan struct {
	// Operations in execution order, grouped by phase.
	Operations []diff.Operation

	// Statements holds one rendered DDL statement per operation.
	Statements []string

	// Risks holds one record per column-level operation, in plan order.
	Risks []impact.RiskRecord

	// Fingerprints of the states the plan was computed from.
	CurrentFingerprint *fingerprint.SchemaFingerprint
	TargetFingerprint  *fingerprint.SchemaFingerprint

	// TargetVersion is the target document's declared version, recorded
	// in the migration ledger on apply.
	TargetVersion int

	CreatedAt time.Time
}

// ObjectChange represents a single operation in serialized form.
type ObjectChange struct {
	Address string      `json:"address"`
	Op      diff.OpKind `json:"op"`
	Table   string      `json:"table"`
	Change  Change      `json:"change"`
}

// Change carries the action plus the before and after images of the
// object the operation touches.
type Change struct {
	Actions []string       `json:"actions"`
	Before  map[string]any `json:"before"`
	After   map[string]any `json:"after"`
}

// PlanJSON is the structured JSON output format.
type PlanJSON struct {
	Version            string              `json:"version"`
	StarforgeVersion   string              `json:"starforge_version"`
	CreatedAt          time.Time           `json:"created_at"`
	CurrentFingerprint string              `json:"current_fingerprint"`
	TargetFingerprint  string              `json:"target_fingerprint"`
	Summary            PlanSummary         `json:"summary"`
	Operations         []ObjectChange      `json:"operations"`
	Risks              []impact.RiskRecord `json:"risks"`
	Mitigations        []Mitigation        `json:"mitigations,omitempty"`
	Statements         []string            `json:"statements"`
}

// PlanSummary provides counts of changes by action and by operation kind.
type PlanSummary struct {
	Add     int            `json:"add"`
	Change  int            `json:"change"`
	Destroy int            `json:"destroy"`
	Total   int            `json:"total"`
	ByKind  map[string]int `json:"by_kind"`
}

// New computes the plan that migrates current to target.
func New(current, target *schema.SchemaSpec) (*Plan, error) {
	currentFP, err := fingerprint.ComputeFingerprint(current)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint current schema: %w", err)
	}

	targetFP, err := fingerprint.ComputeFingerprint(target)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint target schema: %w", err)
	}

	ops := diff.Diff(current, target)

	return &Plan{
		Operations:         ops,
		Statements:         sqlgen.Statements(ops),
		Risks:              impact.Analyze(ops),
		CurrentFingerprint: currentFP,
		TargetFingerprint:  targetFP,
		TargetVersion:      target.Version,
		CreatedAt:          time.Now(),
	}, nil
}

// HasChanges reports whether the plan contains any operations.
func (p *Plan) HasChanges() bool {
	return len(p.Operations) > 0
}

// HighestRisk returns the highest tier across the plan's risk records.
// A plan without column-level operations is low risk.
func (p *Plan) HighestRisk() impact.Risk {
	return impact.HighestRisk(p.Risks)
}

// ========== PUBLIC OUTPUT METHODS ==========

// HumanColored returns a human-readable summary of the plan with color
// support.
func (p *Plan) HumanColored(enableColor bool) string {
	c := color.New(enableColor)
	var summary strings.Builder

	planJSON := p.convertToStructuredJSON()

	if planJSON.Summary.Total == 0 {
		summary.WriteString("No changes detected.\n")
		return summary.String()
	}

	// Header with overall counts, colored like Terraform
	summary.WriteString(c.FormatPlanHeader(planJSON.Summary.Add, planJSON.Summary.Change, planJSON.Summary.Destroy) + "\n\n")

	// Counts per object type
	summary.WriteString(c.Bold("Summary by type:") + "\n")
	for _, line := range p.summaryLines(c) {
		summary.WriteString(line + "\n")
	}
	summary.WriteString("\n")

	// Detailed operations grouped by phase, in execution order
	for _, kind := range diff.PhaseOrder {
		p.writePhase(&summary, kind, c)
	}

	// Risk assessment for column-level operations
	if len(p.Risks) > 0 {
		summary.WriteString(c.Bold("Impact assessment:") + "\n")
		for _, rec := range p.Risks {
			summary.WriteString(p.formatRisk(rec, c) + "\n")
		}
		summary.WriteString("\n")
	}

	// Staged alternatives for the risky operations
	if mitigations := p.Mitigations(); len(mitigations) > 0 {
		summary.WriteString(c.Bold("Mitigation guidance:") + "\n")
		for _, m := range mitigations {
			fmt.Fprintf(&summary, "  %s (%s):\n", m.Address, c.Risk(string(m.Risk)))
			for i, step := range m.Steps {
				switch {
				case step.SQL != "" && step.Directive != nil:
					fmt.Fprintf(&summary, "    %d. %s\n       -- %s\n", i+1, step.SQL, step.Directive.Message)
				case step.SQL != "":
					fmt.Fprintf(&summary, "    %d. %s\n", i+1, step.SQL)
				case step.Directive != nil:
					fmt.Fprintf(&summary, "    %d. -- %s\n", i+1, step.Directive.Message)
				}
			}
		}
		summary.WriteString("\n")
	}

	fmt.Fprintf(&summary, "Fingerprint: current %s, target %s\n\n",
		shortHash(planJSON.CurrentFingerprint), shortHash(planJSON.TargetFingerprint))

	// DDL section
	summary.WriteString(c.Bold("DDL to be executed:") + "\n")
	summary.WriteString(strings.Repeat("-", 50) + "\n\n")
	migrationSQL := sqlgen.Render(p.Operations)
	if migrationSQL != "" {
		summary.WriteString(migrationSQL)
		if !strings.HasSuffix(migrationSQL, "\n") {
			summary.WriteString("\n")
		}
	} else {
		summary.WriteString("-- No DDL statements generated\n")
	}

	return summary.String()
}

// ToJSON returns the plan as structured JSON.
func (p *Plan) ToJSON() (string, error) {
	planJSON := p.convertToStructuredJSON()

	data, err := json.MarshalIndent(planJSON, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal plan to JSON: %w", err)
	}
	return string(data), nil
}

// ToSQL returns the DDL script with one comment header per operation.
func (p *Plan) ToSQL() string {
	if !p.HasChanges() {
		return ""
	}
	return sqlgen.NewGeneratorWithComments(true).Render(p.Operations)
}

// ========== PRIVATE METHODS ==========

// objectTypes groups operation kinds into display types for the summary.
var objectTypes = []struct {
	name string
	add  diff.OpKind
	mod  diff.OpKind
	drop diff.OpKind
}{
	{name: "tables", add: diff.OpCreateTable},
	{name: "columns", add: diff.OpAddColumn, mod: diff.OpAlterColumn, drop: diff.OpDropColumn},
	{name: "indexes", add: diff.OpCreateIndex},
	{name: "foreign keys", add: diff.OpAddForeignKey},
}

func (p *Plan) summaryLines(c *color.Color) []string {
	counts := make(map[diff.OpKind]int)
	for _, op := range p.Operations {
		counts[op.Kind()]++
	}

	var lines []string
	for _, ot := range objectTypes {
		added, modified, dropped := counts[ot.add], counts[ot.mod], counts[ot.drop]
		if added == 0 && modified == 0 && dropped == 0 {
			continue
		}
		lines = append(lines, c.FormatSummaryLine(ot.name, added, modified, dropped))
	}
	return lines
}

// writePhase writes the detail lines for one operation kind.
func (p *Plan) writePhase(summary *strings.Builder, kind diff.OpKind, c *color.Color) {
	var lines []string
	for _, op := range p.Operations {
		if op.Kind() != kind {
			continue
		}
		symbol := c.PlanSymbol(actionFor(kind))
		lines = append(lines, fmt.Sprintf("  %s %s", symbol, describeOperation(op)))
	}
	if len(lines) == 0 {
		return
	}

	fmt.Fprintf(summary, "%s:\n", c.Bold(string(kind)))
	for _, line := range lines {
		summary.WriteString(line + "\n")
	}
	summary.WriteString("\n")
}

func (p *Plan) formatRisk(rec impact.RiskRecord, c *color.Color) string {
	symbol := c.PlanSymbol(actionFor(rec.Op))
	address := rec.Table
	if rec.Column != "" {
		address = rec.Table + "." + rec.Column
	}
	line := fmt.Sprintf("  %s %s: %s", symbol, address, c.Risk(string(rec.Risk)))
	if len(rec.Reasons) > 0 {
		line += " (" + strings.Join(rec.Reasons, "; ") + ")"
	}
	return line
}

// convertToStructuredJSON converts the plan to the stable JSON format.
// Operations keep execution order; they are never sorted.
func (p *Plan) convertToStructuredJSON() *PlanJSON {
	planJSON := &PlanJSON{
		Version:            version.PlanFormat(),
		StarforgeVersion:   version.App(),
		CreatedAt:          p.CreatedAt.Truncate(time.Second),
		CurrentFingerprint: p.CurrentFingerprint.Hash,
		TargetFingerprint:  p.TargetFingerprint.Hash,
		Summary: PlanSummary{
			ByKind: make(map[string]int),
		},
		Operations:  []ObjectChange{},
		Risks:       p.Risks,
		Mitigations: p.Mitigations(),
		Statements:  p.Statements,
	}
	if planJSON.Risks == nil {
		planJSON.Risks = []impact.RiskRecord{}
	}
	if planJSON.Statements == nil {
		planJSON.Statements = []string{}
	}

	for _, op := range p.Operations {
		planJSON.Operations = append(planJSON.Operations, p.createObjectChange(op))
	}

	p.calculateSummary(planJSON)

	return planJSON
}

// createObjectChange converts one operation to its serialized form.
func (p *Plan) createObjectChange(op diff.Operation) ObjectChange {
	action := actionFor(op.Kind())
	change := ObjectChange{
		Address: addressFor(op),
		Op:      op.Kind(),
		Table:   op.TableName(),
		Change:  Change{Actions: []string{action}},
	}

	switch o := op.(type) {
	case *diff.CreateTable:
		change.Change.After = tableToMap(o.Table)
	case *diff.AddColumn:
		change.Change.After = columnToMap(o.Column)
	case *diff.AlterColumn:
		if o.Previous != nil {
			change.Change.Before = columnToMap(o.Previous)
		}
		change.Change.After = columnToMap(o.Column)
	case *diff.DropColumn:
		change.Change.Before = columnToMap(o.Column)
	case *diff.CreateIndex:
		change.Change.After = map[string]any{
			"name":    o.Index.Name,
			"columns": o.Index.Columns,
			"unique":  o.Index.Unique,
		}
	case *diff.AddForeignKey:
		change.Change.After = map[string]any{
			"column":     o.ForeignKey.Column,
			"references": o.ForeignKey.References,
			"constraint": sqlgen.ConstraintName(o.Table, o.ForeignKey.Column),
		}
	}

	return change
}

// calculateSummary calculates the summary statistics.
func (p *Plan) calculateSummary(planJSON *PlanJSON) {
	for _, change := range planJSON.Operations {
		planJSON.Summary.ByKind[string(change.Op)]++

		if len(change.Change.Actions) == 0 {
			continue
		}
		switch change.Change.Actions[0] {
		case "create":
			planJSON.Summary.Add++
		case "update":
			planJSON.Summary.Change++
		case "delete":
			planJSON.Summary.Destroy++
		}
	}
	planJSON.Summary.Total = planJSON.Summary.Add + planJSON.Summary.Change + planJSON.Summary.Destroy
}

// actionFor maps an operation kind to its plan action.
func actionFor(kind diff.OpKind) string {
	switch kind {
	case diff.OpAlterColumn:
		return "update"
	case diff.OpDropColumn:
		return "delete"
	default:
		return "create"
	}
}

// addressFor builds a stable dotted address for an operation.
func addressFor(op diff.Operation) string {
	switch o := op.(type) {
	case *diff.CreateTable:
		return o.Table.TableName()
	case *diff.AddColumn:
		return o.Table + "." + o.Column.Name
	case *diff.AlterColumn:
		return o.Table + "." + o.Column.Name
	case *diff.DropColumn:
		return o.Table + "." + o.Column.Name
	case *diff.CreateIndex:
		return o.Table + "." + o.Index.Name
	case *diff.AddForeignKey:
		return o.Table + "." + sqlgen.ConstraintName(o.Table, o.ForeignKey.Column)
	default:
		return op.TableName()
	}
}

// describeOperation renders the one-line human description of an operation.
func describeOperation(op diff.Operation) string {
	switch o := op.(type) {
	case *diff.CreateTable:
		return fmt.Sprintf("%s (%s)", o.Table.TableName(), schema.KindOf(o.Table))
	case *diff.AddColumn:
		return fmt.Sprintf("%s.%s %s", o.Table, o.Column.Name, columnText(o.Column))
	case *diff.AlterColumn:
		if o.Previous != nil {
			return fmt.Sprintf("%s.%s %s -> %s", o.Table, o.Column.Name, columnText(o.Previous), columnText(o.Column))
		}
		return fmt.Sprintf("%s.%s -> %s", o.Table, o.Column.Name, columnText(o.Column))
	case *diff.DropColumn:
		return fmt.Sprintf("%s.%s", o.Table, o.Column.Name)
	case *diff.CreateIndex:
		return fmt.Sprintf("%s.%s (%s)", o.Table, o.Index.Name, strings.Join(o.Index.Columns, ", "))
	case *diff.AddForeignKey:
		refTable, refColumn := o.ForeignKey.Target()
		return fmt.Sprintf("%s.%s -> %s(%s)", o.Table, o.ForeignKey.Column, refTable, refColumn)
	default:
		return op.TableName()
	}
}

func columnText(c *schema.Column) string {
	if c.Nullable {
		return c.Type
	}
	return c.Type + " NOT NULL"
}

func columnToMap(c *schema.Column) map[string]any {
	return map[string]any{
		"name":     c.Name,
		"type":     c.Type,
		"nullable": c.Nullable,
	}
}

func tableToMap(t schema.Table) map[string]any {
	result := map[string]any{
		"name":    t.TableName(),
		"kind":    schema.KindOf(t),
		"columns": schema.ColumnsOf(t),
	}
	switch v := t.(type) {
	case *schema.Dimension:
		if v.SurrogateKey != "" {
			result["surrogate_key"] = v.SurrogateKey
		}
		if v.NaturalKey != "" {
			result["natural_key"] = v.NaturalKey
		}
	case *schema.Fact:
		if v.Grain != "" {
			result["grain"] = v.Grain
		}
	}
	return result
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
