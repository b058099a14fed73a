// Package warehouse talks to a live warehouse over database/sql: opening
// connections by URL scheme, inspecting the catalog into a SchemaSpec,
// executing migration statements and recording them in the
// starforge_migrations ledger.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/starforge/starforge/internal/logger"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
)

// Engine identifies the warehouse engine behind a connection.
type Engine string

const (
	EngineSQLServer Engine = "sqlserver"
	EnginePostgres  Engine = "postgres"
	EngineMySQL     Engine = "mysql"
)

// Conn is an open warehouse connection plus the dialect facts the rest of
// the package needs.
type Conn struct {
	DB       *sql.DB
	Engine   Engine
	Database string
}

// Connect opens a warehouse connection from a URL. The scheme selects the
// driver: sqlserver://, postgres:// (or postgresql://), mysql://. The
// connection is pinged before it is returned.
func Connect(ctx context.Context, rawURL string) (*Conn, error) {
	log := logger.Get()

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing warehouse URL: %w", err)
	}

	var engine Engine
	var driver, dsn string
	switch u.Scheme {
	case "sqlserver", "mssql":
		engine = EngineSQLServer
		driver = "sqlserver"
		dsn = rawURL
	case "postgres", "postgresql":
		engine = EnginePostgres
		driver = "pgx"
		dsn = rawURL
	case "mysql":
		engine = EngineMySQL
		driver = "mysql"
		dsn = mysqlDSN(u)
	case "":
		return nil, fmt.Errorf("warehouse URL %q has no scheme", rawURL)
	default:
		return nil, fmt.Errorf("unsupported warehouse scheme %q", u.Scheme)
	}

	database := databaseName(engine, u)

	log.Debug("Connecting to warehouse",
		"engine", string(engine),
		"host", u.Host,
		"database", database,
	)

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s connection: %w", engine, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging %s warehouse: %w", engine, err)
	}

	log.Debug("Warehouse connection established", "engine", string(engine))
	return &Conn{DB: db, Engine: engine, Database: database}, nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

// mysqlDSN converts a mysql:// URL to the go-sql-driver key-value form:
// user:pass@tcp(host:port)/dbname?parseTime=true.
func mysqlDSN(u *url.URL) string {
	var b strings.Builder
	if u.User != nil {
		b.WriteString(u.User.Username())
		if pw, ok := u.User.Password(); ok {
			b.WriteString(":")
			b.WriteString(pw)
		}
		b.WriteString("@")
	}
	host := u.Host
	if host == "" {
		host = "127.0.0.1:3306"
	} else if u.Port() == "" {
		host += ":3306"
	}
	fmt.Fprintf(&b, "tcp(%s)", host)
	b.WriteString("/")
	b.WriteString(strings.TrimPrefix(u.Path, "/"))

	params := u.Query()
	params.Set("parseTime", "true")
	b.WriteString("?")
	b.WriteString(params.Encode())
	return b.String()
}

// databaseName extracts the database from the URL: the "database" query
// parameter for SQL Server, the path for the others.
func databaseName(engine Engine, u *url.URL) string {
	if engine == EngineSQLServer {
		return u.Query().Get("database")
	}
	return strings.TrimPrefix(u.Path, "/")
}

// Placeholder returns the parameter marker for a 1-based position in the
// engine's prepared-statement syntax.
func Placeholder(engine Engine, position int) string {
	switch engine {
	case EngineSQLServer:
		return fmt.Sprintf("@p%d", position)
	case EnginePostgres:
		return fmt.Sprintf("$%d", position)
	default:
		return "?"
	}
}

// ServerVersion reports the warehouse server's version string, reduced to
// its first line.
func (c *Conn) ServerVersion(ctx context.Context) (string, error) {
	query := "SELECT VERSION()"
	if c.Engine == EngineSQLServer {
		query = "SELECT @@VERSION"
	}

	var raw string
	if err := c.DB.QueryRowContext(ctx, query).Scan(&raw); err != nil {
		return "", fmt.Errorf("querying server version: %w", err)
	}
	if i := strings.IndexByte(raw, '\n'); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw), nil
}
