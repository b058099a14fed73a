package schema

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Marshal renders a spec as a YAML document with two-space indentation,
// matching the layout hand-written spec files use.
func Marshal(s *SchemaSpec) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize schema document: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes a spec document to path, prepending an optional header
// comment block (lines are prefixed with "# ").
func WriteFile(path string, s *SchemaSpec, header string) error {
	body, err := Marshal(s)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if header != "" {
		for _, line := range bytes.Split([]byte(header), []byte("\n")) {
			if len(line) == 0 {
				buf.WriteString("#\n")
				continue
			}
			buf.WriteString("# ")
			buf.Write(line)
			buf.WriteByte('\n')
		}
		buf.WriteByte('\n')
	}
	buf.Write(body)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write schema file: %w", err)
	}
	return nil
}
