// Package impact classifies migration operations by the risk they pose to
// existing warehouse data. Only column-level operations are scored:
// creating tables, indexes and foreign keys is additive and stays out of
// the report.
package impact

import (
	"fmt"
	"strings"

	"github.com/starforge/starforge/internal/diff"
	"github.com/starforge/starforge/internal/schema"
)

// Risk is the classification tier. Escalation is monotonic: once a record
// reaches a tier it never drops below it.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

var riskRank = map[Risk]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2}

// AtLeast reports whether r is at or above the given tier.
func (r Risk) AtLeast(other Risk) bool {
	return riskRank[r] >= riskRank[other]
}

// MaxRisk returns the higher of two tiers.
func MaxRisk(a, b Risk) Risk {
	if riskRank[b] > riskRank[a] {
		return b
	}
	return a
}

// ParseRisk converts a user-supplied tier name to a Risk.
func ParseRisk(s string) (Risk, error) {
	switch Risk(strings.ToLower(s)) {
	case RiskLow:
		return RiskLow, nil
	case RiskMedium:
		return RiskMedium, nil
	case RiskHigh:
		return RiskHigh, nil
	}
	return "", fmt.Errorf("unknown risk tier %q (expected low, medium or high)", s)
}

// RiskRecord scores one column-level operation. Reasons aggregate every
// rule that fired, in evaluation order.
type RiskRecord struct {
	Op      diff.OpKind `json:"op"`
	Table   string      `json:"table"`
	Column  string      `json:"column,omitempty"`
	Risk    Risk        `json:"risk"`
	Reasons []string    `json:"reasons"`
}

func (r *RiskRecord) escalate(tier Risk, reason string) {
	r.Risk = MaxRisk(r.Risk, tier)
	r.Reasons = append(r.Reasons, reason)
}

// Analyze produces one RiskRecord per ADD_COLUMN, ALTER_COLUMN and
// DROP_COLUMN operation, in plan order. It never fails: incomplete
// metadata degrades to a conservative medium.
func Analyze(ops []diff.Operation) []RiskRecord {
	var records []RiskRecord
	for _, op := range ops {
		switch o := op.(type) {
		case *diff.DropColumn:
			rec := newRecord(o.Kind(), o.Table, o.Column.Name)
			rec.escalate(RiskHigh, "column removed")
			records = append(records, rec)
		case *diff.AddColumn:
			rec := newRecord(o.Kind(), o.Table, o.Column.Name)
			if o.Column.Nullable {
				rec.escalate(RiskLow, "new nullable column")
			} else {
				rec.escalate(RiskMedium, "new NOT NULL column (requires backfill)")
			}
			records = append(records, rec)
		case *diff.AlterColumn:
			records = append(records, analyzeAlter(o))
		}
	}
	return records
}

func newRecord(op diff.OpKind, table, column string) RiskRecord {
	return RiskRecord{Op: op, Table: table, Column: column, Risk: RiskLow, Reasons: []string{}}
}

func analyzeAlter(o *diff.AlterColumn) RiskRecord {
	rec := newRecord(o.Kind(), o.Table, o.Column.Name)
	if o.Previous == nil {
		rec.escalate(RiskMedium, "missing previous column metadata")
		return rec
	}

	prev, next := o.Previous, o.Column
	if prev.Nullable && !next.Nullable {
		rec.escalate(RiskMedium, "NULLABLE -> NOT NULL")
	}

	prevBase, prevParams := schema.ParseType(canonical(prev.Type))
	nextBase, nextParams := schema.ParseType(canonical(next.Type))

	if prevBase == nextBase && isLengthType(prevBase) && len(prevParams) == 1 && len(nextParams) == 1 {
		switch {
		case nextParams[0] < prevParams[0]:
			rec.escalate(RiskHigh, "length narrowing")
		case nextParams[0] > prevParams[0]:
			rec.Reasons = append(rec.Reasons, "length widening")
		}
	}

	if prevBase == "DECIMAL" && nextBase == "DECIMAL" && len(prevParams) == 2 && len(nextParams) == 2 {
		switch {
		case nextParams[0] < prevParams[0] || nextParams[1] < prevParams[1]:
			rec.escalate(RiskHigh, "precision/scale reduction")
		case nextParams[0] > prevParams[0] || nextParams[1] > prevParams[1]:
			rec.Reasons = append(rec.Reasons, "precision/scale increase")
		}
	}

	prevFam := schema.TypeFamily(prev.Type)
	nextFam := schema.TypeFamily(next.Type)
	if prevFam != nextFam {
		rec.escalate(RiskMedium, fmt.Sprintf("type family change %s->%s", prevFam, nextFam))
	}

	return rec
}

func isLengthType(base string) bool {
	return base == "VARCHAR" || base == "NVARCHAR" || base == "CHAR"
}

func canonical(t string) string {
	if c, err := schema.NormalizeType(t); err == nil {
		return c
	}
	return t
}

// HighestRisk returns the maximum tier across records, low when empty.
func HighestRisk(records []RiskRecord) Risk {
	highest := RiskLow
	for _, r := range records {
		highest = MaxRisk(highest, r.Risk)
	}
	return highest
}
