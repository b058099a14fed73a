package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const cleanDraftDoc = `version: 1
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
      - {name: amount, type: DECIMAL(18,2), nullable: false}`

type stubGenerator struct {
	reply  string
	err    error
	system string
	prompt string
}

func (s *stubGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	s.system = system
	s.prompt = prompt
	return s.reply, s.err
}

func TestDraftParsesFencedReply(t *testing.T) {
	gen := &stubGenerator{reply: "Here is the document:\n```yaml\n" + cleanDraftDoc + "\n```\nAdjust as needed."}

	result, err := Draft(context.Background(), gen, "a loan payments warehouse")
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if gen.prompt != "a loan payments warehouse" {
		t.Errorf("description not passed through, got %q", gen.prompt)
	}
	if len(result.Spec.Dimensions) != 1 || len(result.Spec.Facts) != 1 {
		t.Errorf("got %d dimensions, %d facts, want 1 and 1", len(result.Spec.Dimensions), len(result.Spec.Facts))
	}
	if len(result.Defects) != 0 {
		t.Errorf("unexpected defects: %v", result.Defects)
	}
	if !strings.HasSuffix(result.YAML, "\n") {
		t.Error("YAML does not end with a newline")
	}
	if strings.Contains(result.YAML, "```") {
		t.Error("YAML still contains fence markers")
	}
}

func TestDraftUnfencedReply(t *testing.T) {
	gen := &stubGenerator{reply: cleanDraftDoc}

	result, err := Draft(context.Background(), gen, "loans")
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if result.Spec.Warehouse != "finance_dw" {
		t.Errorf("warehouse = %q, want finance_dw", result.Spec.Warehouse)
	}
}

func TestDraftReportsDefects(t *testing.T) {
	doc := strings.ReplaceAll(cleanDraftDoc, "dim_company(company_key)", "dim_missing(company_key)")
	gen := &stubGenerator{reply: "```yaml\n" + doc + "\n```"}

	result, err := Draft(context.Background(), gen, "loans")
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if len(result.Defects) == 0 {
		t.Fatal("expected defects for a dangling foreign key")
	}
	if result.Spec == nil {
		t.Error("flawed draft should still be returned")
	}
}

func TestDraftRejectsProseReply(t *testing.T) {
	gen := &stubGenerator{reply: "Sorry, I cannot help with that."}

	_, err := Draft(context.Background(), gen, "loans")
	if err == nil || !strings.Contains(err.Error(), "not a valid warehouse document") {
		t.Errorf("want parse failure, got %v", err)
	}
}

func TestDraftPropagatesGeneratorError(t *testing.T) {
	gen := &stubGenerator{err: errors.New("rate limited")}

	_, err := Draft(context.Background(), gen, "loans")
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("want wrapped generator error, got %v", err)
	}
}

func TestExtractYAML(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		want  string
	}{
		{"yaml fence", "```yaml\nversion: 1\n```", "version: 1"},
		{"yml fence", "prose\n```yml\nversion: 1\n```\nmore prose", "version: 1"},
		{"bare fence", "```\nversion: 1\n```", "version: 1"},
		{"no fence", "  version: 1\n", "version: 1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractYAML(tc.reply); got != tc.want {
				t.Errorf("extractYAML = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	if _, err := NewOpenAI("gpt-4o-mini"); err == nil {
		t.Error("want error when OPENAI_API_KEY is unset")
	}
}
