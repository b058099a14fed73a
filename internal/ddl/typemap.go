package ddl

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/starforge/starforge/internal/schema"
)

// mapTypeName converts a parsed type name into a canonical model type. The
// parser accepts any identifier as a type, so warehouse-flavored names such
// as NVARCHAR or DATETIME2 arrive here alongside the native Postgres ones.
func mapTypeName(typeName *pg_query.TypeName) (string, error) {
	if typeName == nil || len(typeName.Names) == 0 {
		return "", fmt.Errorf("column has no type")
	}
	// The qualified form is pg_catalog.<name>; only the last part matters.
	name := strings.ToLower(stringValue(typeName.Names[len(typeName.Names)-1]))
	mods := typeModifiers(typeName)

	var raw string
	switch name {
	case "int", "int4", "integer", "serial":
		raw = "INT"
	case "int8", "bigint", "bigserial":
		raw = "BIGINT"
	case "int2", "smallint", "smallserial", "tinyint":
		raw = "SMALLINT"
	case "float", "float4", "float8", "real", "double":
		raw = "FLOAT"
	case "money", "smallmoney":
		raw = "MONEY"
	case "date":
		raw = "DATE"
	case "datetime", "smalldatetime":
		raw = "DATETIME"
	case "datetime2", "timestamp", "timestamptz":
		raw = "DATETIME2"
	case "bit", "bool", "boolean":
		raw = "BIT"
	case "numeric", "decimal":
		raw = decimalFromMods(mods)
	case "varchar":
		raw = fmt.Sprintf("VARCHAR(%d)", modOrDefault(mods, 8000))
	case "nvarchar":
		raw = fmt.Sprintf("NVARCHAR(%d)", modOrDefault(mods, 4000))
	case "char", "bpchar", "character":
		raw = fmt.Sprintf("CHAR(%d)", modOrDefault(mods, 1))
	case "nchar":
		raw = fmt.Sprintf("NVARCHAR(%d)", modOrDefault(mods, 1))
	case "text":
		raw = "VARCHAR(8000)"
	default:
		return "", fmt.Errorf("unsupported type %q", name)
	}
	return schema.NormalizeType(raw)
}

// typeModifiers extracts the literal integer modifiers, e.g. the 18 and 2
// of NUMERIC(18,2).
func typeModifiers(typeName *pg_query.TypeName) []int {
	var mods []int
	for _, mod := range typeName.Typmods {
		if c := mod.GetAConst(); c != nil {
			if ival := c.GetIval(); ival != nil {
				mods = append(mods, int(ival.Ival))
			}
		}
	}
	return mods
}

// decimalFromMods resolves NUMERIC modifiers. A missing or zero scale means
// the column is integral; the model's DECIMAL always carries a fractional
// digit, so those become BIGINT.
func decimalFromMods(mods []int) string {
	if len(mods) == 0 {
		return "DECIMAL(18,4)"
	}
	if len(mods) < 2 || mods[1] <= 0 {
		return "BIGINT"
	}
	return fmt.Sprintf("DECIMAL(%d,%d)", mods[0], mods[1])
}

func modOrDefault(mods []int, def int) int {
	if len(mods) > 0 && mods[0] > 0 {
		return mods[0]
	}
	return def
}
