package rtplan

import (
	"math/big"

	"github.com/google/uuid"
)

// uidRoot is the UUID-derived UID arc (ISO/IEC 9834-8).
const uidRoot = "2.25."

// NewUID returns a fresh DICOM UID derived from a random UUID.
func NewUID() string {
	u := uuid.New()
	return uidRoot + new(big.Int).SetBytes(u[:]).String()
}
