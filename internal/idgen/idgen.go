// Package idgen generates the identifiers the engine hands out: entity
// ids, transaction ids, and per-device sync identity. Transaction ids use
// google/uuid (the corpus's standard id library) since spec invariant I-2
// requires them to be globally unique across devices; device ids stay a
// short hex string in the teacher's own hand-rolled form and tag this
// installation's outbound sync frames.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// NewTxID returns a globally unique transaction id.
func NewTxID() string {
	return uuid.NewString()
}

// NewEntityID returns a globally unique entity id, used when a caller
// does not supply one explicitly in operation data.
func NewEntityID() string {
	return uuid.NewString()
}

// NewDeviceID returns a short random hex identifier for this local
// installation, used to tag outbound sync frames.
func NewDeviceID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate device id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
