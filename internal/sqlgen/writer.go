package sqlgen

import (
	"fmt"
	"strings"
)

// SQLWriter accumulates DDL statements with consistent separation and
// optional per-statement comment headers.
type SQLWriter struct {
	output          strings.Builder
	includeComments bool
}

func NewSQLWriter() *SQLWriter {
	return &SQLWriter{}
}

func NewSQLWriterWithComments(includeComments bool) *SQLWriter {
	return &SQLWriter{includeComments: includeComments}
}

// WriteString appends raw text.
func (w *SQLWriter) WriteString(s string) {
	w.output.WriteString(s)
}

// WriteDDLSeparator writes the blank line between statements.
func (w *SQLWriter) WriteDDLSeparator() {
	w.output.WriteString("\n")
}

// WriteStatementWithComment writes one statement, preceded by a comment
// header naming the operation and table when comments are enabled.
func (w *SQLWriter) WriteStatementWithComment(operation, table, stmt string) {
	if w.includeComments {
		w.output.WriteString("--\n")
		w.output.WriteString(fmt.Sprintf("-- Table: %s; Operation: %s\n", table, operation))
		w.output.WriteString("--\n")
	}
	w.output.WriteString(stmt)
	w.output.WriteString("\n")
}

// String returns the accumulated SQL.
func (w *SQLWriter) String() string {
	return w.output.String()
}
