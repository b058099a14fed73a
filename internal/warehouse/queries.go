package warehouse

// Catalog queries per engine. Each set returns the same row shapes so the
// inspector can scan them uniformly: tables (name), columns (table, column,
// type, length, precision, scale, nullable, ordinal), primary keys (table,
// column), foreign keys (name, table, column, ref table, ref column).
// Index queries differ: Postgres returns the column list as an array in a
// single row, the others return one row per key column.

type catalogQueries struct {
	tables      string
	columns     string
	indexes     string
	primaryKeys string
	foreignKeys string
}

const (
	sqlserverTablesQuery = `
SELECT t.name
FROM sys.tables t
WHERE t.is_ms_shipped = 0
ORDER BY t.name`

	// nvarchar/nchar max_length is in bytes; halve it to characters.
	sqlserverColumnsQuery = `
SELECT t.name, c.name, ty.name,
       CASE WHEN ty.name IN ('nvarchar', 'nchar') AND c.max_length > 0
            THEN c.max_length / 2 ELSE c.max_length END,
       c.precision, c.scale, c.is_nullable, c.column_id
FROM sys.columns c
JOIN sys.tables t ON t.object_id = c.object_id
JOIN sys.types ty ON ty.user_type_id = c.user_type_id
WHERE t.is_ms_shipped = 0
ORDER BY t.name, c.column_id`

	sqlserverIndexesQuery = `
SELECT t.name, i.name, i.is_unique, col.name, ic.key_ordinal
FROM sys.indexes i
JOIN sys.tables t ON t.object_id = i.object_id
JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
JOIN sys.columns col ON col.object_id = ic.object_id AND col.column_id = ic.column_id
WHERE i.type > 0 AND i.is_primary_key = 0 AND i.is_unique_constraint = 0
  AND ic.is_included_column = 0 AND t.is_ms_shipped = 0
ORDER BY t.name, i.name, ic.key_ordinal`

	sqlserverPrimaryKeysQuery = `
SELECT t.name, col.name
FROM sys.indexes i
JOIN sys.tables t ON t.object_id = i.object_id
JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
JOIN sys.columns col ON col.object_id = ic.object_id AND col.column_id = ic.column_id
WHERE i.is_primary_key = 1 AND t.is_ms_shipped = 0
ORDER BY t.name, ic.key_ordinal`

	sqlserverForeignKeysQuery = `
SELECT fk.name, tp.name, cp.name, tr.name, cr.name
FROM sys.foreign_keys fk
JOIN sys.tables tp ON tp.object_id = fk.parent_object_id
JOIN sys.tables tr ON tr.object_id = fk.referenced_object_id
JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
JOIN sys.columns cp ON cp.object_id = fkc.parent_object_id AND cp.column_id = fkc.parent_column_id
JOIN sys.columns cr ON cr.object_id = fkc.referenced_object_id AND cr.column_id = fkc.referenced_column_id
ORDER BY tp.name, fk.name`

	postgresTablesQuery = `
SELECT c.relname
FROM pg_class c
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = 'public' AND c.relkind = 'r'
ORDER BY c.relname`

	postgresColumnsQuery = `
SELECT table_name, column_name, data_type,
       COALESCE(character_maximum_length, 0),
       COALESCE(numeric_precision, 0),
       COALESCE(numeric_scale, 0),
       is_nullable = 'YES',
       ordinal_position
FROM information_schema.columns
WHERE table_schema = 'public'
ORDER BY table_name, ordinal_position`

	postgresIndexesQuery = `
SELECT t.relname, i.relname, ix.indisunique,
       ARRAY(
         SELECT a.attname
         FROM unnest(ix.indkey::int2[]) WITH ORDINALITY AS k(attnum, ord)
         JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
         ORDER BY k.ord
       )::text[]
FROM pg_index ix
JOIN pg_class i ON i.oid = ix.indexrelid
JOIN pg_class t ON t.oid = ix.indrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
WHERE n.nspname = 'public' AND t.relkind = 'r' AND NOT ix.indisprimary
ORDER BY t.relname, i.relname`

	postgresPrimaryKeysQuery = `
SELECT t.relname, a.attname
FROM pg_index ix
JOIN pg_class t ON t.oid = ix.indrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
CROSS JOIN unnest(ix.indkey::int2[]) WITH ORDINALITY AS k(attnum, ord)
JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
WHERE n.nspname = 'public' AND ix.indisprimary
ORDER BY t.relname, k.ord`

	postgresForeignKeysQuery = `
SELECT tc.constraint_name, tc.table_name, kcu.column_name, ccu.table_name, ccu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
JOIN information_schema.constraint_column_usage ccu
  ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = 'public'
ORDER BY tc.table_name, tc.constraint_name`

	mysqlTablesQuery = `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
ORDER BY table_name`

	mysqlColumnsQuery = `
SELECT table_name, column_name, data_type,
       COALESCE(character_maximum_length, 0),
       COALESCE(numeric_precision, 0),
       COALESCE(numeric_scale, 0),
       is_nullable = 'YES',
       ordinal_position
FROM information_schema.columns
WHERE table_schema = DATABASE()
ORDER BY table_name, ordinal_position`

	mysqlIndexesQuery = `
SELECT table_name, index_name, non_unique = 0, column_name, seq_in_index
FROM information_schema.statistics
WHERE table_schema = DATABASE() AND index_name <> 'PRIMARY'
ORDER BY table_name, index_name, seq_in_index`

	mysqlPrimaryKeysQuery = `
SELECT table_name, column_name
FROM information_schema.statistics
WHERE table_schema = DATABASE() AND index_name = 'PRIMARY'
ORDER BY table_name, seq_in_index`

	mysqlForeignKeysQuery = `
SELECT constraint_name, table_name, column_name, referenced_table_name, referenced_column_name
FROM information_schema.key_column_usage
WHERE table_schema = DATABASE() AND referenced_table_name IS NOT NULL
ORDER BY table_name, constraint_name`
)

func queriesFor(engine Engine) catalogQueries {
	switch engine {
	case EnginePostgres:
		return catalogQueries{
			tables:      postgresTablesQuery,
			columns:     postgresColumnsQuery,
			indexes:     postgresIndexesQuery,
			primaryKeys: postgresPrimaryKeysQuery,
			foreignKeys: postgresForeignKeysQuery,
		}
	case EngineMySQL:
		return catalogQueries{
			tables:      mysqlTablesQuery,
			columns:     mysqlColumnsQuery,
			indexes:     mysqlIndexesQuery,
			primaryKeys: mysqlPrimaryKeysQuery,
			foreignKeys: mysqlForeignKeysQuery,
		}
	default:
		return catalogQueries{
			tables:      sqlserverTablesQuery,
			columns:     sqlserverColumnsQuery,
			indexes:     sqlserverIndexesQuery,
			primaryKeys: sqlserverPrimaryKeysQuery,
			foreignKeys: sqlserverForeignKeysQuery,
		}
	}
}
