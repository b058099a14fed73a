package warehouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/starforge/starforge/internal/ignore"
	"github.com/starforge/starforge/internal/logger"
	"github.com/starforge/starforge/internal/schema"
)

// Inspector reads a live warehouse catalog into a SchemaSpec. Tables are
// classified by prefix: dim_ tables become dimensions, fact_ tables become
// facts, everything else (including the migration ledger) is skipped.
type Inspector struct {
	conn   *Conn
	ignore *ignore.IgnoreConfig
}

// NewInspector creates an inspector with an optional ignore configuration.
func NewInspector(conn *Conn, ignoreConfig *ignore.IgnoreConfig) *Inspector {
	return &Inspector{conn: conn, ignore: ignoreConfig}
}

type columnRow struct {
	table    string
	name     string
	dataType string
	length   int
	prec     int
	scale    int
	nullable bool
	ordinal  int
}

type indexRow struct {
	table   string
	name    string
	unique  bool
	columns []string
}

type pkRow struct {
	table  string
	column string
}

type fkRow struct {
	name      string
	table     string
	column    string
	refTable  string
	refColumn string
}

// catalogData holds the raw catalog scan; assembly is a pure function of it.
type catalogData struct {
	tables      []string
	columns     []columnRow
	indexes     []indexRow
	primaryKeys []pkRow
	foreignKeys []fkRow
}

// Snapshot reads the catalog and assembles a SchemaSpec. The table list is
// fetched first, then the four detail scans run concurrently.
func (i *Inspector) Snapshot(ctx context.Context) (*schema.SchemaSpec, error) {
	log := logger.Get()
	q := queriesFor(i.conn.Engine)

	tables, err := i.listTables(ctx, q.tables)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	log.Debug("Catalog tables listed", "count", len(tables))

	data := catalogData{tables: tables}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data.columns, err = i.listColumns(gctx, q.columns)
		return err
	})
	g.Go(func() error {
		var err error
		data.indexes, err = i.listIndexes(gctx, q.indexes)
		return err
	})
	g.Go(func() error {
		var err error
		data.primaryKeys, err = i.listPrimaryKeys(gctx, q.primaryKeys)
		return err
	})
	g.Go(func() error {
		var err error
		data.foreignKeys, err = i.listForeignKeys(gctx, q.foreignKeys)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return assemble(i.conn.Engine, i.conn.Database, data, i.ignore)
}

func (i *Inspector) listTables(ctx context.Context, query string) ([]string, error) {
	rows, err := i.conn.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table row: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (i *Inspector) listColumns(ctx context.Context, query string) ([]columnRow, error) {
	rows, err := i.conn.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying columns: %w", err)
	}
	defer rows.Close()

	var out []columnRow
	for rows.Next() {
		var r columnRow
		if err := rows.Scan(&r.table, &r.name, &r.dataType, &r.length, &r.prec, &r.scale, &r.nullable, &r.ordinal); err != nil {
			return nil, fmt.Errorf("scanning column row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// listIndexes scans the secondary indexes. Postgres returns one row per
// index with the key columns as an array; the other engines return one row
// per key column, grouped here by (table, index) adjacency.
func (i *Inspector) listIndexes(ctx context.Context, query string) ([]indexRow, error) {
	rows, err := i.conn.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying indexes: %w", err)
	}
	defer rows.Close()

	var out []indexRow
	if i.conn.Engine == EnginePostgres {
		for rows.Next() {
			var r indexRow
			if err := rows.Scan(&r.table, &r.name, &r.unique, pq.Array(&r.columns)); err != nil {
				return nil, fmt.Errorf("scanning index row: %w", err)
			}
			out = append(out, r)
		}
		return out, rows.Err()
	}

	for rows.Next() {
		var table, name, column string
		var unique bool
		var ord int
		if err := rows.Scan(&table, &name, &unique, &column, &ord); err != nil {
			return nil, fmt.Errorf("scanning index row: %w", err)
		}
		if n := len(out); n > 0 && out[n-1].table == table && out[n-1].name == name {
			out[n-1].columns = append(out[n-1].columns, column)
			continue
		}
		out = append(out, indexRow{table: table, name: name, unique: unique, columns: []string{column}})
	}
	return out, rows.Err()
}

func (i *Inspector) listPrimaryKeys(ctx context.Context, query string) ([]pkRow, error) {
	rows, err := i.conn.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying primary keys: %w", err)
	}
	defer rows.Close()

	var out []pkRow
	for rows.Next() {
		var r pkRow
		if err := rows.Scan(&r.table, &r.column); err != nil {
			return nil, fmt.Errorf("scanning primary key row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (i *Inspector) listForeignKeys(ctx context.Context, query string) ([]fkRow, error) {
	rows, err := i.conn.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying foreign keys: %w", err)
	}
	defer rows.Close()

	var out []fkRow
	for rows.Next() {
		var r fkRow
		if err := rows.Scan(&r.name, &r.table, &r.column, &r.refTable, &r.refColumn); err != nil {
			return nil, fmt.Errorf("scanning foreign key row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// assemble turns a catalog scan into a SchemaSpec. Tables keep catalog
// order; dimensions come before facts because classification appends into
// separate lists.
func assemble(engine Engine, warehouseName string, data catalogData, ig *ignore.IgnoreConfig) (*schema.SchemaSpec, error) {
	log := logger.Get()

	colsByTable := make(map[string][]columnRow)
	for _, c := range data.columns {
		colsByTable[c.table] = append(colsByTable[c.table], c)
	}
	idxsByTable := make(map[string][]indexRow)
	for _, ix := range data.indexes {
		idxsByTable[ix.table] = append(idxsByTable[ix.table], ix)
	}
	pksByTable := make(map[string][]pkRow)
	for _, pk := range data.primaryKeys {
		pksByTable[pk.table] = append(pksByTable[pk.table], pk)
	}
	fksByTable := make(map[string][]fkRow)
	for _, fk := range data.foreignKeys {
		fksByTable[fk.table] = append(fksByTable[fk.table], fk)
	}

	spec := &schema.SchemaSpec{Version: 1, Warehouse: warehouseName}
	for _, name := range data.tables {
		if ig.ShouldIgnoreTable(name) {
			log.Debug("Skipping ignored table", "table", name)
			continue
		}
		switch {
		case strings.HasPrefix(name, "dim_"):
			d, err := buildDimension(engine, name, colsByTable[name], idxsByTable[name], pksByTable[name], ig)
			if err != nil {
				return nil, err
			}
			spec.Dimensions = append(spec.Dimensions, d)
		case strings.HasPrefix(name, "fact_"):
			f, err := buildFact(engine, name, colsByTable[name], idxsByTable[name], fksByTable[name], ig)
			if err != nil {
				return nil, err
			}
			spec.Facts = append(spec.Facts, f)
		default:
			log.Debug("Skipping non-star table", "table", name)
		}
	}
	return spec, nil
}

func buildDimension(engine Engine, name string, cols []columnRow, idxs []indexRow, pk []pkRow, ig *ignore.IgnoreConfig) (*schema.Dimension, error) {
	d := &schema.Dimension{Name: name}

	for _, c := range cols {
		if ig.ShouldIgnoreColumn(c.name) {
			continue
		}
		typ, err := mapType(engine, c.dataType, c.length, c.prec, c.scale)
		if err != nil {
			return nil, fmt.Errorf("table %s column %s: %w", name, c.name, err)
		}
		d.Columns = append(d.Columns, &schema.Column{Name: c.name, Type: typ, Nullable: c.nullable})
	}

	// A single-column primary key is the surrogate.
	if len(pk) == 1 {
		d.SurrogateKey = pk[0].column
	}

	for _, ix := range idxs {
		if indexTouchesIgnored(ix, ig) {
			continue
		}
		d.Indexes = append(d.Indexes, &schema.Index{Name: ix.name, Columns: ix.columns, Unique: ix.unique})
		// The first single-column unique index besides the surrogate is
		// taken as the natural key.
		if d.NaturalKey == "" && ix.unique && len(ix.columns) == 1 && ix.columns[0] != d.SurrogateKey {
			d.NaturalKey = ix.columns[0]
		}
	}
	return d, nil
}

func buildFact(engine Engine, name string, cols []columnRow, idxs []indexRow, fks []fkRow, ig *ignore.IgnoreConfig) (*schema.Fact, error) {
	log := logger.Get()
	f := &schema.Fact{Name: name}

	fkColumns := make(map[string]bool)
	for _, fk := range fks {
		if ig.ShouldIgnoreColumn(fk.column) || ig.ShouldIgnoreTable(fk.refTable) {
			log.Debug("Skipping ignored foreign key", "constraint", fk.name, "table", name)
			continue
		}
		f.ForeignKeys = append(f.ForeignKeys, &schema.ForeignKey{
			Column:     fk.column,
			References: fmt.Sprintf("%s(%s)", fk.refTable, fk.refColumn),
		})
		fkColumns[fk.column] = true
	}

	for _, c := range cols {
		if ig.ShouldIgnoreColumn(c.name) {
			continue
		}
		typ, err := mapType(engine, c.dataType, c.length, c.prec, c.scale)
		if err != nil {
			return nil, fmt.Errorf("table %s column %s: %w", name, c.name, err)
		}
		col := &schema.Column{Name: c.name, Type: typ, Nullable: c.nullable}
		if schema.IsMeasureType(typ) && !fkColumns[c.name] {
			f.Measures = append(f.Measures, col)
		} else {
			f.Columns = append(f.Columns, col)
		}
	}

	// The catalog has no grain metadata; the foreign key columns are the
	// best available approximation.
	if len(f.ForeignKeys) > 0 {
		keys := make([]string, 0, len(f.ForeignKeys))
		for _, fk := range f.ForeignKeys {
			keys = append(keys, fk.Column)
		}
		f.Grain = strings.Join(keys, ", ")
	}

	for _, ix := range idxs {
		if indexTouchesIgnored(ix, ig) {
			continue
		}
		f.Indexes = append(f.Indexes, &schema.Index{Name: ix.name, Columns: ix.columns, Unique: ix.unique})
	}
	return f, nil
}

func indexTouchesIgnored(ix indexRow, ig *ignore.IgnoreConfig) bool {
	for _, col := range ix.columns {
		if ig.ShouldIgnoreColumn(col) {
			return true
		}
	}
	return false
}
