package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	RootCmd.SetOut(&buf)
	RootCmd.SetErr(&buf)
	RootCmd.SetArgs([]string{"version"})

	if err := RootCmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	output := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(output, "starforge v") {
		t.Errorf("expected output to start with 'starforge v', got: %s", output)
	}

	versionPart := strings.TrimPrefix(output, "starforge v")
	if len(versionPart) == 0 {
		t.Error("expected version information after 'starforge v', got empty string")
	}
}
