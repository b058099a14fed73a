package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LedgerTable is the migration history table created in the warehouse.
const LedgerTable = "starforge_migrations"

// LedgerEntry is one recorded migration run.
type LedgerEntry struct {
	ID             string
	Fingerprint    string
	SpecVersion    int
	StatementCount int
	AppliedAt      time.Time
}

// Ledger reads and writes the migration history table.
type Ledger struct {
	conn *Conn
}

// NewLedger creates a ledger bound to the connection.
func NewLedger(conn *Conn) *Ledger {
	return &Ledger{conn: conn}
}

// Ensure creates the ledger table when it does not exist yet.
func (l *Ledger) Ensure(ctx context.Context) error {
	var ddl string
	switch l.conn.Engine {
	case EnginePostgres:
		ddl = `CREATE TABLE IF NOT EXISTS starforge_migrations (
    id VARCHAR(36) PRIMARY KEY,
    fingerprint VARCHAR(64) NOT NULL,
    spec_version INT NOT NULL,
    statement_count INT NOT NULL,
    applied_at TIMESTAMP NOT NULL
)`
	case EngineMySQL:
		ddl = `CREATE TABLE IF NOT EXISTS starforge_migrations (
    id VARCHAR(36) PRIMARY KEY,
    fingerprint VARCHAR(64) NOT NULL,
    spec_version INT NOT NULL,
    statement_count INT NOT NULL,
    applied_at DATETIME NOT NULL
)`
	default:
		ddl = `IF OBJECT_ID(N'starforge_migrations', N'U') IS NULL
CREATE TABLE starforge_migrations (
    id VARCHAR(36) NOT NULL PRIMARY KEY,
    fingerprint VARCHAR(64) NOT NULL,
    spec_version INT NOT NULL,
    statement_count INT NOT NULL,
    applied_at DATETIME2 NOT NULL
)`
	}
	if _, err := l.conn.DB.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating migration ledger: %w", err)
	}
	return nil
}

// Latest returns the most recently applied entry, or nil when the ledger
// is empty.
func (l *Ledger) Latest(ctx context.Context) (*LedgerEntry, error) {
	query := "SELECT id, fingerprint, spec_version, statement_count, applied_at FROM starforge_migrations ORDER BY applied_at DESC LIMIT 1"
	if l.conn.Engine == EngineSQLServer {
		query = "SELECT TOP 1 id, fingerprint, spec_version, statement_count, applied_at FROM starforge_migrations ORDER BY applied_at DESC"
	}

	var e LedgerEntry
	err := l.conn.DB.QueryRowContext(ctx, query).Scan(&e.ID, &e.Fingerprint, &e.SpecVersion, &e.StatementCount, &e.AppliedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading migration ledger: %w", err)
	}
	return &e, nil
}

// Record inserts a ledger entry, assigning an id and timestamp when the
// caller left them empty.
func (l *Ledger) Record(ctx context.Context, entry *LedgerEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.AppliedAt.IsZero() {
		entry.AppliedAt = time.Now().UTC()
	}

	markers := make([]string, 5)
	for i := range markers {
		markers[i] = Placeholder(l.conn.Engine, i+1)
	}
	query := fmt.Sprintf(
		"INSERT INTO starforge_migrations (id, fingerprint, spec_version, statement_count, applied_at) VALUES (%s)",
		strings.Join(markers, ", "),
	)

	_, err := l.conn.DB.ExecContext(ctx, query,
		entry.ID, entry.Fingerprint, entry.SpecVersion, entry.StatementCount, entry.AppliedAt)
	if err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}
	return nil
}
