package payment

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"renovecare/internal/domain/request"

	"github.com/google/uuid"
)

// IdempotencyKey derives the deterministic key under which at most one
// payment may be stored. Retries and concurrent duplicates of the same
// logical charge compute the same key and converge on the same row through
// the storage unique constraint.
func IdempotencyKey(requestID, payerID uuid.UUID, variant request.Variant, subtype string) string {
	raw := fmt.Sprintf("%s:%s:%s:%s", requestID, payerID, variant, subtype)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
