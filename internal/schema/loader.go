package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// shapeValidator checks structural requirements (required keys, non-empty
// index column lists) right after decoding, before semantic validation.
var shapeValidator = validator.New()

// document is the on-disk form of a spec file: a SchemaSpec plus an
// optional list of include files merged into it.
type document struct {
	Include    []string `yaml:"include"`
	SchemaSpec `yaml:",inline"`
}

// Loader reads spec documents, resolving include files relative to the
// including document and rejecting include cycles.
type Loader struct {
	visited map[string]bool
}

func NewLoader() *Loader {
	return &Loader{visited: make(map[string]bool)}
}

// Load reads the document at path and returns the merged spec. Each
// include contributes its dimensions and facts after the including file's
// own declarations, in listed order; version and warehouse come from the
// top-level document.
func (l *Loader) Load(path string) (*SchemaSpec, error) {
	l.visited = make(map[string]bool)
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}
	return l.loadRecursive(abs)
}

func (l *Loader) loadRecursive(path string) (*SchemaSpec, error) {
	if l.visited[path] {
		return nil, fmt.Errorf("include cycle detected at %s", path)
	}
	l.visited[path] = true
	defer delete(l.visited, path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema file %s: %w", path, err)
	}
	if err := shapeValidator.Struct(doc.SchemaSpec); err != nil {
		return nil, fmt.Errorf("invalid schema document %s: %w", path, err)
	}

	spec := doc.SchemaSpec
	baseDir := filepath.Dir(path)
	for _, inc := range doc.Include {
		incPath := inc
		if !filepath.IsAbs(incPath) {
			incPath = filepath.Join(baseDir, incPath)
		}
		included, err := l.loadRecursive(incPath)
		if err != nil {
			return nil, fmt.Errorf("failed to include %s: %w", inc, err)
		}
		spec.Dimensions = append(spec.Dimensions, included.Dimensions...)
		spec.Facts = append(spec.Facts, included.Facts...)
	}
	return &spec, nil
}

// Load reads a spec document with include resolution using a fresh loader.
func Load(path string) (*SchemaSpec, error) {
	return NewLoader().Load(path)
}

// Parse decodes a spec from raw YAML without include resolution. It is the
// entry point for in-memory documents such as generated drafts.
func Parse(data []byte) (*SchemaSpec, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema document: %w", err)
	}
	if len(doc.Include) > 0 {
		return nil, fmt.Errorf("include is not supported in inline documents")
	}
	if err := shapeValidator.Struct(doc.SchemaSpec); err != nil {
		return nil, fmt.Errorf("invalid schema document: %w", err)
	}
	spec := doc.SchemaSpec
	return &spec, nil
}
