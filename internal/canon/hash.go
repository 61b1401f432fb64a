package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Hash returns the SHA-256 digest, hex-encoded, of a value's canonical
// JSON form. Used for provenance hashes, heuristic content digests, and
// audit entry hashes — anywhere two documents must be compared by content
// rather than by reference.
func Hash(v interface{}) (string, error) {
	buf, err := Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:]), nil
}

// HashBytes is Hash's primitive: callers that already hold canonical
// bytes (e.g. an audit entry's pre-serialized fields) hash them directly
// without a second pass through Marshal.
func HashBytes(canonicalBytes []byte) string {
	sum := sha256.Sum256(canonicalBytes)
	return hex.EncodeToString(sum[:])
}

// idLength is the number of hex characters kept from the full SHA-256
// digest for a stable ID — 16 bytes' worth of hex, ample to avoid
// collisions across a single invocation's resource/finding/node count
// while keeping IDs short enough to appear in reports and logs.
const idLength = 32

// ID derives a stable identifier from content, not insertion order: the
// parts are joined with a separator that cannot appear inside any part
// (a NUL byte), SHA-256'd, and hex-truncated. Equal parts always produce
// equal IDs regardless of when or in what order they were computed.
func ID(parts ...string) string {
	joined := strings.Join(parts, "\x00")
	sum := sha256.Sum256([]byte(joined))
	full := hex.EncodeToString(sum[:])
	if len(full) < idLength {
		return full
	}
	return full[:idLength]
}

// SortedSum sums values after sorting them by a caller-supplied key,
// giving every reduction in the prediction, policy, and baseline engines a
// fixed, content-derived summation order instead of depending on
// whatever order the caller happened to build its slice in. Go's
// floating-point addition is not associative, so an unspecified order
// would make identical inputs sum to slightly different totals across
// runs or platforms.
func SortedSum(values []float64, keys []string) float64 {
	if len(values) != len(keys) {
		panic("canon.SortedSum: values and keys must have equal length")
	}
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return keys[idx[a]] < keys[idx[b]] })

	var total float64
	for _, i := range idx {
		total += values[i]
	}
	return NormalizeFloat(total)
}
