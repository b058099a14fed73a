// Package dump renders schema snapshots as spec documents. A dump is the
// bridge from a live warehouse into declarative workflow: inspect, dump to
// YAML, edit, plan.
package dump

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starforge/starforge/internal/fingerprint"
	"github.com/starforge/starforge/internal/schema"
	"github.com/starforge/starforge/internal/version"
)

// DumpFormatter handles formatting spec output for warehouse dumps
type DumpFormatter struct {
	engineVersion string
	warehouse     string
}

// NewDumpFormatter creates a new DumpFormatter
func NewDumpFormatter(engineVersion, warehouse string) *DumpFormatter {
	return &DumpFormatter{
		engineVersion: engineVersion,
		warehouse:     warehouse,
	}
}

// FormatSingleFile renders the spec as one YAML document with a dump
// header carrying provenance and the content fingerprint.
func (f *DumpFormatter) FormatSingleFile(spec *schema.SchemaSpec) (string, error) {
	body, err := schema.Marshal(spec)
	if err != nil {
		return "", err
	}

	var output strings.Builder
	output.WriteString(f.generateDumpHeader(spec))
	output.Write(body)
	return output.String(), nil
}

// FormatMultiFile writes one file per table under dimensions/ and facts/,
// plus a root document whose include list stitches them back together.
// Loading the root document yields the original spec.
func (f *DumpFormatter) FormatMultiFile(spec *schema.SchemaSpec, outputPath string) error {
	baseDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var includes []string

	if len(spec.Dimensions) > 0 {
		dirPath := filepath.Join(baseDir, "dimensions")
		if err := os.MkdirAll(dirPath, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dirPath, err)
		}
		for _, d := range spec.Dimensions {
			fileName := f.sanitizeFileName(d.Name) + ".yaml"
			part := &schema.SchemaSpec{Version: spec.Version, Dimensions: []*schema.Dimension{d}}
			header := fmt.Sprintf("Dimension: %s", d.Name)
			if err := schema.WriteFile(filepath.Join(dirPath, fileName), part, header); err != nil {
				return fmt.Errorf("failed to write dimension %s: %w", d.Name, err)
			}
			includes = append(includes, filepath.Join("dimensions", fileName))
		}
	}

	if len(spec.Facts) > 0 {
		dirPath := filepath.Join(baseDir, "facts")
		if err := os.MkdirAll(dirPath, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dirPath, err)
		}
		for _, fa := range spec.Facts {
			fileName := f.sanitizeFileName(fa.Name) + ".yaml"
			part := &schema.SchemaSpec{Version: spec.Version, Facts: []*schema.Fact{fa}}
			header := fmt.Sprintf("Fact: %s", fa.Name)
			if fa.Grain != "" {
				header += fmt.Sprintf("\nGrain: %s", fa.Grain)
			}
			if err := schema.WriteFile(filepath.Join(dirPath, fileName), part, header); err != nil {
				return fmt.Errorf("failed to write fact %s: %w", fa.Name, err)
			}
			includes = append(includes, filepath.Join("facts", fileName))
		}
	}

	root := struct {
		Version   int      `yaml:"version"`
		Warehouse string   `yaml:"warehouse,omitempty"`
		Include   []string `yaml:"include"`
	}{
		Version:   spec.Version,
		Warehouse: spec.Warehouse,
		Include:   includes,
	}

	var buf bytes.Buffer
	buf.WriteString(f.generateDumpHeader(spec))
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("failed to marshal root document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize root document: %w", err)
	}

	if err := os.WriteFile(outputPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write root document: %w", err)
	}
	return nil
}

// generateDumpHeader generates the header comment block with metadata
func (f *DumpFormatter) generateDumpHeader(spec *schema.SchemaSpec) string {
	var header strings.Builder

	header.WriteString("#\n")
	header.WriteString("# starforge schema dump\n")
	header.WriteString("#\n")
	header.WriteString("\n")

	if f.warehouse != "" {
		header.WriteString(fmt.Sprintf("# Warehouse: %s\n", f.warehouse))
	}
	if f.engineVersion != "" {
		header.WriteString(fmt.Sprintf("# Dumped from %s\n", f.engineVersion))
	}
	header.WriteString(fmt.Sprintf("# Dumped by starforge %s\n", version.App()))
	if fp, err := fingerprint.ComputeFingerprint(spec); err == nil {
		header.WriteString(fmt.Sprintf("# Schema fingerprint: %s\n", fp.Hash[:16]))
	}
	header.WriteString("\n")
	return header.String()
}

// sanitizeFileName converts a table name to a valid filename
func (f *DumpFormatter) sanitizeFileName(name string) string {
	reg := regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	sanitized := reg.ReplaceAllString(name, "_")
	sanitized = strings.Trim(sanitized, "_")
	return strings.ToLower(sanitized)
}
