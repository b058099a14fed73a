package fingerprint

import (
	"fmt"
)

// Compare returns an error when two fingerprints differ, previewing the
// first 16 hex characters of each. Plan apply uses this to detect drift
// between the planned state and the warehouse at execution time.
func Compare(expected, actual *SchemaFingerprint) error {
	if expected.Hash == actual.Hash {
		return nil
	}

	expectedPreview := expected.Hash
	if len(expectedPreview) > 16 {
		expectedPreview = expectedPreview[:16]
	}

	actualPreview := actual.Hash
	if len(actualPreview) > 16 {
		actualPreview = actualPreview[:16]
	}

	return fmt.Errorf("schema fingerprint mismatch - expected: %s, actual: %s",
		expectedPreview, actualPreview)
}
