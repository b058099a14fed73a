package plan

import (
	"fmt"
	"strings"

	"github.com/starforge/starforge/internal/diff"
	"github.com/starforge/starforge/internal/impact"
	"github.com/starforge/starforge/internal/schema"
)

// Directive annotates a mitigation step that needs operator attention
// before or while running it.
type Directive struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// MitigationStep is one statement of a staged alternative to a risky
// operation. Steps are advisory; apply never executes them.
type MitigationStep struct {
	SQL       string     `json:"sql,omitempty"`
	Directive *Directive `json:"directive,omitempty"`
}

// Mitigation pairs a risky operation with a safer staged script.
type Mitigation struct {
	Address string           `json:"address"`
	Risk    impact.Risk      `json:"risk"`
	Reasons []string         `json:"reasons"`
	Steps   []MitigationStep `json:"steps"`
}

// Mitigations returns staged guidance for every medium and high risk
// operation in the plan, in plan order. Low risk operations need none.
func (p *Plan) Mitigations() []Mitigation {
	var mitigations []Mitigation

	idx := 0
	for _, op := range p.Operations {
		switch op.Kind() {
		case diff.OpAddColumn, diff.OpAlterColumn, diff.OpDropColumn:
		default:
			continue
		}
		if idx >= len(p.Risks) {
			break
		}
		rec := p.Risks[idx]
		idx++

		if rec.Risk == impact.RiskLow {
			continue
		}
		steps := generateMitigation(op, rec)
		if len(steps) == 0 {
			continue
		}
		mitigations = append(mitigations, Mitigation{
			Address: addressFor(op),
			Risk:    rec.Risk,
			Reasons: rec.Reasons,
			Steps:   steps,
		})
	}

	return mitigations
}

// generateMitigation dispatches to the staged script builder for the
// operation, guided by which risk rules fired.
func generateMitigation(op diff.Operation, rec impact.RiskRecord) []MitigationStep {
	switch o := op.(type) {
	case *diff.AddColumn:
		if hasReason(rec, "new NOT NULL column (requires backfill)") {
			return generateNotNullAddBackfill(o)
		}
	case *diff.AlterColumn:
		return generateAlterMitigation(o, rec)
	case *diff.DropColumn:
		return generateDropSnapshot(o)
	}
	return nil
}

// generateNotNullAddBackfill splits a NOT NULL column addition into add
// nullable, backfill, then tighten.
func generateNotNullAddBackfill(o *diff.AddColumn) []MitigationStep {
	relaxed := *o.Column
	relaxed.Nullable = true
	tightened := *o.Column
	tightened.Nullable = false

	return []MitigationStep{
		{
			SQL: fmt.Sprintf("ALTER TABLE %s ADD %s;", o.Table, columnClauseText(&relaxed)),
		},
		{
			SQL: fmt.Sprintf("UPDATE %s SET %s = @backfill_value WHERE %s IS NULL;",
				o.Table, o.Column.Name, o.Column.Name),
			Directive: &Directive{
				Type:    "backfill",
				Message: fmt.Sprintf("Set @backfill_value for %s.%s before running", o.Table, o.Column.Name),
			},
		},
		{
			SQL: fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s;", o.Table, columnClauseText(&tightened)),
		},
	}
}

// generateAlterMitigation prepends one probe per fired rule, then ends
// with the alter itself.
func generateAlterMitigation(o *diff.AlterColumn, rec impact.RiskRecord) []MitigationStep {
	var steps []MitigationStep

	if hasReason(rec, "missing previous column metadata") {
		steps = append(steps, MitigationStep{
			Directive: &Directive{
				Type:    "verify",
				Message: fmt.Sprintf("Inspect the current definition of %s.%s manually; the previous metadata was lost", o.Table, o.Column.Name),
			},
		})
	}

	if hasReason(rec, "NULLABLE -> NOT NULL") {
		steps = append(steps, MitigationStep{
			SQL: fmt.Sprintf("UPDATE %s SET %s = @backfill_value WHERE %s IS NULL;",
				o.Table, o.Column.Name, o.Column.Name),
			Directive: &Directive{
				Type:    "backfill",
				Message: fmt.Sprintf("NULL rows in %s.%s must be backfilled before tightening", o.Table, o.Column.Name),
			},
		})
	}

	if hasReason(rec, "length narrowing") {
		_, params := schema.ParseType(canonicalText(o.Column.Type))
		if len(params) == 1 {
			steps = append(steps, MitigationStep{
				SQL: fmt.Sprintf("SELECT COUNT(*) AS overflow_rows FROM %s WHERE LEN(%s) > %d;",
					o.Table, o.Column.Name, params[0]),
				Directive: &Directive{
					Type:    "verify",
					Message: fmt.Sprintf("Rows longer than %d characters will fail the narrowing; expect zero", params[0]),
				},
			})
		}
	}

	if hasReason(rec, "precision/scale reduction") {
		_, params := schema.ParseType(canonicalText(o.Column.Type))
		if len(params) == 2 {
			precision, scale := params[0], params[1]
			steps = append(steps, MitigationStep{
				SQL: fmt.Sprintf("SELECT COUNT(*) AS out_of_range_rows FROM %s WHERE %s <> ROUND(%s, %d) OR ABS(%s) >= POWER(10, %d);",
					o.Table, o.Column.Name, o.Column.Name, scale, o.Column.Name, precision-scale),
				Directive: &Directive{
					Type:    "verify",
					Message: fmt.Sprintf("Values that do not fit DECIMAL(%d,%d) will fail the conversion; expect zero", precision, scale),
				},
			})
		}
	}

	if familyReason := familyChangeReason(rec); familyReason != "" {
		steps = append(steps, MitigationStep{
			SQL: fmt.Sprintf("SELECT COUNT(*) AS unconvertible_rows FROM %s WHERE TRY_CONVERT(%s, %s) IS NULL AND %s IS NOT NULL;",
				o.Table, canonicalText(o.Column.Type), o.Column.Name, o.Column.Name),
			Directive: &Directive{
				Type:    "verify",
				Message: fmt.Sprintf("Rows that cannot convert (%s) will fail the type change; expect zero", familyReason),
			},
		})
	}

	if len(steps) == 0 {
		return nil
	}

	steps = append(steps, MitigationStep{
		SQL: fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s;", o.Table, columnClauseText(o.Column)),
	})
	return steps
}

// generateDropSnapshot snapshots the column before dropping it, so the
// drop stays recoverable until the snapshot table is cleaned up.
func generateDropSnapshot(o *diff.DropColumn) []MitigationStep {
	snapshot := fmt.Sprintf("%s_%s_dropped", o.Table, o.Column.Name)
	return []MitigationStep{
		{
			SQL: fmt.Sprintf("SELECT %s INTO %s FROM %s;", o.Column.Name, snapshot, o.Table),
			Directive: &Directive{
				Type:    "snapshot",
				Message: fmt.Sprintf("Keeps %s.%s recoverable; drop %s once the migration is accepted", o.Table, o.Column.Name, snapshot),
			},
		},
		{
			SQL: fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", o.Table, o.Column.Name),
		},
	}
}

func hasReason(rec impact.RiskRecord, reason string) bool {
	for _, r := range rec.Reasons {
		if r == reason {
			return true
		}
	}
	return false
}

func familyChangeReason(rec impact.RiskRecord) string {
	for _, r := range rec.Reasons {
		if strings.HasPrefix(r, "type family change ") {
			return r
		}
	}
	return ""
}

func canonicalText(t string) string {
	if c, err := schema.NormalizeType(t); err == nil {
		return c
	}
	return t
}

func columnClauseText(c *schema.Column) string {
	null := "NOT NULL"
	if c.Nullable {
		null = "NULL"
	}
	return fmt.Sprintf("%s %s %s", c.Name, canonicalText(c.Type), null)
}
