package starforge

import (
	"context"
	"testing"

	"github.com/starforge/starforge/internal/fingerprint"
)

// Baselines that assert nothing about the warehouse skip the snapshot
// entirely, so no connection is needed here.
func TestCheckDriftSkipsEmptyBaseline(t *testing.T) {
	ctx := context.Background()

	if err := checkDrift(ctx, nil, &Plan{}); err != nil {
		t.Errorf("checkDrift() with no baseline fingerprint: %v", err)
	}

	emptyFP, err := fingerprint.ComputeFingerprint(&SchemaSpec{})
	if err != nil {
		t.Fatal(err)
	}
	if err := checkDrift(ctx, nil, &Plan{CurrentFingerprint: emptyFP}); err != nil {
		t.Errorf("checkDrift() with empty baseline: %v", err)
	}
}
