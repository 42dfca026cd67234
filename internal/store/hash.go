package store

import (
	"crypto/sha256"
	"fmt"
)

// ComputeSequenceHash computes a deterministic fingerprint of a merge
// sequence from its decoded labels. Identifier numbering does not affect the
// hash, so two models that merge the same patterns in the same order agree.
func ComputeSequenceHash(decoded []string) string {
	h := sha256.New()
	for i, label := range decoded {
		fmt.Fprintf(h, "step:%d:%s\n", i, label)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
