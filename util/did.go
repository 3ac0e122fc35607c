package util

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateDID returns a new decentralized identifier for the given entity
// kind, e.g. "donor", "hospital", "organ_journey". DIDs are the join key
// between the document store and the ledger and must never be reused.
func GenerateDID(kind string) string {
	return fmt.Sprintf("did:hope:%s:%s", kind, uuid.New().String())
}
