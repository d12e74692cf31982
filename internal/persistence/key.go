package persistence

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Key derives a deterministic 32 character document id from its parts.
// Parts are joined with a unit separator so ("a|b", "c") and ("a", "b|c")
// never collide.
func Key(parts ...string) string {
	sum := blake2b.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:16])
}
