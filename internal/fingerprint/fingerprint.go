package fingerprint

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/starforge/starforge/internal/schema"
)

// SchemaFingerprint identifies a schema state by content. Two specs with
// the same declarations always hash identically, regardless of where they
// were loaded from.
type SchemaFingerprint struct {
	Hash string `json:"hash"` // SHA256 of the canonical JSON form
}

// ComputeFingerprint hashes a spec's canonical JSON representation.
func ComputeFingerprint(spec *schema.SchemaSpec) (*SchemaFingerprint, error) {
	hash, err := hashObject(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to compute schema hash: %w", err)
	}
	return &SchemaFingerprint{Hash: hash}, nil
}

// ComputeTextFingerprint hashes rendered plan text. The apply ledger
// records this to detect re-application of an already-run plan.
func ComputeTextFingerprint(text string) *SchemaFingerprint {
	hash := sha256.Sum256([]byte(text))
	return &SchemaFingerprint{Hash: fmt.Sprintf("%x", hash)}
}

// hashObject computes a SHA256 hash over an object's JSON encoding.
func hashObject(obj interface{}) (string, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash), nil
}

// String returns a short human-readable preview.
func (f *SchemaFingerprint) String() string {
	if len(f.Hash) >= 8 {
		return fmt.Sprintf("Schema fingerprint: %s", f.Hash[:8])
	}
	return fmt.Sprintf("Schema fingerprint: %s", f.Hash)
}
