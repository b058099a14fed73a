package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Family groups whitelisted types for impact analysis. BIT is neither
// string, numeric nor date, so it lands in FamilyOther.
type Family string

const (
	FamilyString  Family = "string"
	FamilyNumeric Family = "numeric"
	FamilyDate    Family = "date"
	FamilyOther   Family = "other"
)

// canonicalTypes is the frozen type whitelist, mapping each base type to
// the number of parameters it takes. Anything outside this set fails
// normalization.
var canonicalTypes = map[string]int{
	"INT":       0,
	"BIGINT":    0,
	"SMALLINT":  0,
	"FLOAT":     0,
	"MONEY":     0,
	"DATE":      0,
	"DATETIME":  0,
	"DATETIME2": 0,
	"BIT":       0,
	"VARCHAR":   1,
	"NVARCHAR":  1,
	"CHAR":      1,
	"DECIMAL":   2,
}

// typeFamilies classifies each base type.
var typeFamilies = map[string]Family{
	"INT":       FamilyNumeric,
	"BIGINT":    FamilyNumeric,
	"SMALLINT":  FamilyNumeric,
	"FLOAT":     FamilyNumeric,
	"MONEY":     FamilyNumeric,
	"DECIMAL":   FamilyNumeric,
	"DATE":      FamilyDate,
	"DATETIME":  FamilyDate,
	"DATETIME2": FamilyDate,
	"BIT":       FamilyOther,
	"VARCHAR":   FamilyString,
	"NVARCHAR":  FamilyString,
	"CHAR":      FamilyString,
}

// NormalizeType resolves case and spacing variants of a whitelisted type to
// its canonical form: "decimal(18, 2)" becomes "DECIMAL(18,2)". It is a
// pure function and the only path onto the whitelist.
func NormalizeType(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("empty type")
	}
	upper := strings.ToUpper(trimmed)

	base := upper
	var params []int
	if open := strings.IndexByte(upper, '('); open >= 0 {
		if !strings.HasSuffix(upper, ")") {
			return "", fmt.Errorf("malformed type %q", raw)
		}
		base = strings.TrimSpace(upper[:open])
		inner := upper[open+1 : len(upper)-1]
		for _, part := range strings.Split(inner, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || n <= 0 {
				return "", fmt.Errorf("malformed type parameter in %q", raw)
			}
			params = append(params, n)
		}
	}

	arity, ok := canonicalTypes[base]
	if !ok {
		return "", fmt.Errorf("unknown type %q", raw)
	}
	if len(params) != arity {
		return "", fmt.Errorf("type %s takes %d parameter(s), got %d", base, arity, len(params))
	}
	if arity == 0 {
		return base, nil
	}

	rendered := make([]string, len(params))
	for i, p := range params {
		rendered[i] = strconv.Itoa(p)
	}
	return base + "(" + strings.Join(rendered, ",") + ")", nil
}

// ParseType splits a canonical type into its base name and parameters.
// Non-canonical input yields the raw string with no parameters.
func ParseType(canonical string) (base string, params []int) {
	open := strings.IndexByte(canonical, '(')
	if open < 0 {
		return canonical, nil
	}
	base = canonical[:open]
	inner := strings.TrimSuffix(canonical[open+1:], ")")
	for _, part := range strings.Split(inner, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			params = append(params, n)
		}
	}
	return base, params
}

// TypeFamily classifies a canonical type string. Unknown types are
// FamilyOther so analysis of half-valid specs stays total.
func TypeFamily(canonical string) Family {
	base, _ := ParseType(strings.ToUpper(strings.TrimSpace(canonical)))
	if fam, ok := typeFamilies[base]; ok {
		return fam
	}
	return FamilyOther
}

// IsMeasureType reports whether a canonical type is an additive numeric
// suitable for a fact measure.
func IsMeasureType(canonical string) bool {
	base, _ := ParseType(canonical)
	switch base {
	case "DECIMAL", "FLOAT", "MONEY":
		return true
	}
	return false
}
