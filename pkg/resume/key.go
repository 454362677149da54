package resume

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Normalize canonicalizes an external context string: lower-cased, trimmed,
// inner whitespace runs collapsed to single spaces.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Token derives the deterministic, fixed-length identity token for a context
// string: the hex sha256 of its normalized form.
func Token(s string) string {
	sum := sha256.Sum256([]byte(Normalize(s)))
	return hex.EncodeToString(sum[:])
}

// Key composes the namespaced workflow id for a context string, e.g.
// "store-visit:3f6c...".
func Key(domain, s string) string {
	return domain + ":" + Token(s)
}
