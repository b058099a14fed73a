package warehouse

import (
	"fmt"
	"strings"

	"github.com/starforge/starforge/internal/schema"
)

// mapType converts an engine catalog type onto the model's type whitelist.
// Unbounded string types are capped at the engine page limits (VARCHAR 8000,
// NVARCHAR 4000). A type with no reasonable mapping is an error; the table
// can be excluded with a .starforgeignore pattern instead.
func mapType(engine Engine, dataType string, length, precision, scale int) (string, error) {
	dt := strings.ToLower(strings.TrimSpace(dataType))

	var raw string
	var err error
	switch engine {
	case EnginePostgres:
		raw, err = mapPostgresType(dt, length, precision, scale)
	case EngineMySQL:
		raw, err = mapMySQLType(dt, length, precision, scale)
	default:
		raw, err = mapSQLServerType(dt, length, precision, scale)
	}
	if err != nil {
		return "", err
	}
	return schema.NormalizeType(raw)
}

func mapSQLServerType(dt string, length, precision, scale int) (string, error) {
	switch dt {
	case "int":
		return "INT", nil
	case "bigint":
		return "BIGINT", nil
	case "smallint", "tinyint":
		return "SMALLINT", nil
	case "float", "real":
		return "FLOAT", nil
	case "money", "smallmoney":
		return "MONEY", nil
	case "date":
		return "DATE", nil
	case "datetime", "smalldatetime":
		return "DATETIME", nil
	case "datetime2":
		return "DATETIME2", nil
	case "bit":
		return "BIT", nil
	case "decimal", "numeric":
		return decimalType(precision, scale), nil
	case "varchar":
		return boundedString("VARCHAR", length, 8000), nil
	case "nvarchar":
		return boundedString("NVARCHAR", length, 4000), nil
	case "char":
		return fmt.Sprintf("CHAR(%d)", length), nil
	case "nchar":
		return fmt.Sprintf("NVARCHAR(%d)", length), nil
	case "text":
		return "VARCHAR(8000)", nil
	case "ntext":
		return "NVARCHAR(4000)", nil
	}
	return "", fmt.Errorf("unsupported sqlserver type %q", dt)
}

func mapPostgresType(dt string, length, precision, scale int) (string, error) {
	switch dt {
	case "integer":
		return "INT", nil
	case "bigint":
		return "BIGINT", nil
	case "smallint":
		return "SMALLINT", nil
	case "double precision", "real":
		return "FLOAT", nil
	case "money":
		return "MONEY", nil
	case "date":
		return "DATE", nil
	case "timestamp without time zone", "timestamp with time zone":
		return "DATETIME2", nil
	case "boolean":
		return "BIT", nil
	case "numeric":
		if precision == 0 {
			// Unconstrained numeric.
			return "DECIMAL(18,4)", nil
		}
		return decimalType(precision, scale), nil
	case "character varying":
		return boundedString("VARCHAR", length, 8000), nil
	case "character":
		return fmt.Sprintf("CHAR(%d)", length), nil
	case "text":
		return "VARCHAR(8000)", nil
	}
	return "", fmt.Errorf("unsupported postgres type %q", dt)
}

func mapMySQLType(dt string, length, precision, scale int) (string, error) {
	switch dt {
	case "int", "mediumint":
		return "INT", nil
	case "bigint":
		return "BIGINT", nil
	case "smallint", "tinyint":
		return "SMALLINT", nil
	case "double", "float":
		return "FLOAT", nil
	case "date":
		return "DATE", nil
	case "datetime":
		return "DATETIME", nil
	case "timestamp":
		return "DATETIME2", nil
	case "bit":
		return "BIT", nil
	case "decimal":
		return decimalType(precision, scale), nil
	case "varchar":
		return boundedString("VARCHAR", length, 8000), nil
	case "char":
		return fmt.Sprintf("CHAR(%d)", length), nil
	case "text", "tinytext", "mediumtext", "longtext":
		return "VARCHAR(8000)", nil
	}
	return "", fmt.Errorf("unsupported mysql type %q", dt)
}

// decimalType maps a catalog decimal. Scale zero means the column is
// integral; the model's DECIMAL always carries a fractional digit, so those
// become BIGINT.
func decimalType(precision, scale int) string {
	if scale == 0 {
		return "BIGINT"
	}
	return fmt.Sprintf("DECIMAL(%d,%d)", precision, scale)
}

// boundedString caps unbounded (length <= 0) string types at the given
// limit.
func boundedString(base string, length, limit int) string {
	if length <= 0 || length > limit {
		length = limit
	}
	return fmt.Sprintf("%s(%d)", base, length)
}
