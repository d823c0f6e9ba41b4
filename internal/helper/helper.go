package helper

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash8 gives a short stable digest for logging identifiers (emails) without
// writing the raw value to the log.
func Hash8(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
