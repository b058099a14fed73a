package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/starforge/starforge/internal/schema"
)

const draftSystemPrompt = `You design star schemas for SQL data warehouses.
Reply with a single YAML document inside a fenced code block and nothing else.

The document has this shape:

    version: 1
    warehouse: <name>
    dimensions:
      - name: dim_<entity>
        surrogate_key: <entity>_key
        natural_key: <business identifier column>
        columns:
          - {name: ..., type: ..., nullable: true|false}
        indexes:
          - {name: ix_..., columns: [...], unique: true|false}
    facts:
      - name: fact_<process>
        grain: <comma-separated dimension key columns>
        foreign_keys:
          - {column: <entity>_key, references: dim_<entity>(<entity>_key)}
        columns:
          - {name: ..., type: ..., nullable: true|false}
        measures:
          - {name: ..., type: ..., nullable: true|false}
        indexes: []

Rules:
- Table names start with dim_ or fact_; all identifiers are lowercase snake_case.
- Column types come only from this list: INT, BIGINT, SMALLINT, FLOAT, MONEY,
  DATE, DATETIME, DATETIME2, BIT, VARCHAR(n), NVARCHAR(n), CHAR(n), DECIMAL(p,s).
- Every dimension has an INT surrogate_key column and a unique natural_key column.
- Fact measures are additive numerics (DECIMAL, FLOAT, MONEY); descriptive
  attributes belong on dimensions.
- Every fact foreign key points at a dimension surrogate key and appears in
  the grain.`

// DraftResult is a generated warehouse document. Defects lists the
// validation findings against the draft; a flawed draft is still returned
// as a starting point for hand editing.
type DraftResult struct {
	Spec    *schema.SchemaSpec
	YAML    string
	Defects []string
}

// Draft asks the generator to produce a warehouse document for the given
// prose description, then parses and validates the reply.
func Draft(ctx context.Context, gen Generator, description string) (*DraftResult, error) {
	reply, err := gen.Generate(ctx, draftSystemPrompt, description)
	if err != nil {
		return nil, fmt.Errorf("drafting warehouse document: %w", err)
	}

	yamlText := extractYAML(reply)
	if yamlText == "" {
		return nil, fmt.Errorf("model reply contains no document")
	}

	spec, err := schema.Parse([]byte(yamlText))
	if err != nil {
		return nil, fmt.Errorf("model reply is not a valid warehouse document: %w", err)
	}

	return &DraftResult{
		Spec:    spec,
		YAML:    yamlText + "\n",
		Defects: schema.Validate(spec),
	}, nil
}

// extractYAML pulls the document out of a fenced code block, falling back
// to the whole reply when the model skipped the fence.
func extractYAML(reply string) string {
	for _, fence := range []string{"```yaml", "```yml", "```"} {
		start := strings.Index(reply, fence)
		if start < 0 {
			continue
		}
		rest := reply[start+len(fence):]
		end := strings.Index(rest, "```")
		if end < 0 {
			break
		}
		return strings.TrimSpace(rest[:end])
	}
	return strings.TrimSpace(reply)
}
