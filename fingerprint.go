package aiguard

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint derives a stable cache key from the semantically relevant
// parts of a request. Parts are trimmed and case-folded before hashing so
// cosmetic differences do not fragment the cache; volatile fields should
// be left out by the caller.
func Fingerprint(parts ...string) string {
	h := xxhash.New()
	for _, p := range parts {
		_, _ = h.WriteString(strings.ToLower(strings.TrimSpace(p)))
		_, _ = h.Write([]byte{0})
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// IdentityFingerprint hashes a best-effort client address into a
// privacy-preserving identity for rate limiting. Returns "" for an empty
// address, which the limiter maps to the shared unknown bucket.
func IdentityFingerprint(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	return "fp-" + strconv.FormatUint(xxhash.Sum64String(addr), 16)
}
