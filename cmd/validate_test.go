package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validDoc = `version: 1
warehouse: finance_dw
dimensions:
  - name: dim_company
    surrogate_key: company_key
    natural_key: company_code
    columns:
      - {name: company_key, type: INT, nullable: false}
      - {name: company_code, type: VARCHAR(12), nullable: false}
facts:
  - name: fact_loan_payments
    grain: company_key
    foreign_keys:
      - {column: company_key, references: dim_company(company_key)}
    columns:
      - {name: company_key, type: INT, nullable: false}
    measures:
      - {name: amount, type: DECIMAL(18,2), nullable: false}
`

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warehouse.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestValidateCleanDocument(t *testing.T) {
	validateFile = writeDoc(t, validDoc)
	defer func() { validateFile = "" }()

	if err := runValidate(ValidateCmd, nil); err != nil {
		t.Errorf("runValidate: %v", err)
	}
}

func TestValidateDefectiveDocument(t *testing.T) {
	broken := strings.ReplaceAll(validDoc, "surrogate_key: company_key\n    ", "")
	validateFile = writeDoc(t, broken)
	defer func() { validateFile = "" }()

	err := runValidate(ValidateCmd, nil)
	if err == nil {
		t.Fatal("expected an error for a document missing its surrogate key")
	}
	if !strings.Contains(err.Error(), "defects") {
		t.Errorf("error %q does not mention defects", err)
	}
}

func TestValidateMissingFile(t *testing.T) {
	validateFile = filepath.Join(t.TempDir(), "absent.yaml")
	defer func() { validateFile = "" }()

	if err := runValidate(ValidateCmd, nil); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
