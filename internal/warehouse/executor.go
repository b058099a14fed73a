package warehouse

import (
	"context"
	"fmt"

	"github.com/starforge/starforge/internal/logger"
)

// Executor applies rendered migration statements one at a time. Statements
// carry their own existence guards, so a partially applied run can be
// re-run from the top without harm.
type Executor struct {
	conn *Conn
}

// NewExecutor creates an executor for the connection.
func NewExecutor(conn *Conn) *Executor {
	return &Executor{conn: conn}
}

// ApplyResult reports what an Apply call did.
type ApplyResult struct {
	Executed int
	Skipped  bool
	Entry    *LedgerEntry
}

// Execute runs the statements in order and returns how many completed.
func (e *Executor) Execute(ctx context.Context, statements []string) (int, error) {
	log := logger.Get()
	for idx, stmt := range statements {
		if logger.IsDebug() {
			log.Debug("Executing statement", "position", idx+1, "total", len(statements), "sql", stmt)
		}
		if _, err := e.conn.DB.ExecContext(ctx, stmt); err != nil {
			return idx, fmt.Errorf("statement %d of %d failed: %w", idx+1, len(statements), err)
		}
	}
	return len(statements), nil
}

// Apply runs the full migration flow: ensure the ledger exists, skip when
// the target fingerprint is already the latest applied entry, execute the
// statements, record the run.
func (e *Executor) Apply(ctx context.Context, statements []string, fingerprint string, specVersion int) (*ApplyResult, error) {
	ledger := NewLedger(e.conn)
	if err := ledger.Ensure(ctx); err != nil {
		return nil, err
	}

	latest, err := ledger.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if latest != nil && latest.Fingerprint == fingerprint {
		logger.Get().Debug("Fingerprint already applied, skipping", "fingerprint", fingerprint)
		return &ApplyResult{Skipped: true, Entry: latest}, nil
	}

	executed, err := e.Execute(ctx, statements)
	if err != nil {
		return &ApplyResult{Executed: executed}, err
	}

	entry := &LedgerEntry{
		Fingerprint:    fingerprint,
		SpecVersion:    specVersion,
		StatementCount: len(statements),
	}
	if err := ledger.Record(ctx, entry); err != nil {
		return &ApplyResult{Executed: executed}, err
	}
	return &ApplyResult{Executed: executed, Entry: entry}, nil
}
