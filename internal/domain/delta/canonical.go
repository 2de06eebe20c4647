// Package delta implements the checksum canonicalization and version-token
// primitives behind the job delta-integrity layer. The canonical form is a
// contract shared with clients: any two parties computing over identical
// logical values must agree byte-for-byte.
package delta

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// NullSentinel is the canonical rendering of null/absent values. It is
// distinct from the empty string so clearing a field and never setting it
// hash differently.
const NullSentinel = "__NULL__"

// Canonicalize renders a job id and field map into the stable string form:
//
//	{job_id}|{field}={value}|{field}={value}|...
//
// with fields in lexicographic order. Value normalization:
//
//   - nil → NullSentinel
//   - strings → outer whitespace trimmed, then Unicode NFC
//   - numerics → fixed two-decimal rendering ("12.50"); -0 folds to 0.00
//   - booleans → "true" / "false"
//   - time.Time → RFC 3339 in UTC
//
// An empty field map degenerates to just the job id; rejecting empty-field
// deltas is the validator's responsibility, not the canonicalizer's.
func Canonicalize(jobID string, fields map[string]any) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(jobID)
	for _, name := range names {
		b.WriteByte('|')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(NormalizeValue(fields[name]))
	}
	return b.String()
}

// Checksum is the SHA-256 hex digest of the canonical form.
func Checksum(jobID string, fields map[string]any) string {
	sum := sha256.Sum256([]byte(Canonicalize(jobID, fields)))
	return hex.EncodeToString(sum[:])
}

// NormalizeValue renders a single value in its canonical textual form.
// Exposed so the validator's literal field comparison and the checksum
// agree on what "equal" means.
func NormalizeValue(v any) string {
	switch val := v.(type) {
	case nil:
		return NullSentinel
	case string:
		return norm.NFC.String(strings.TrimSpace(val))
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return normalizeFloat(val)
	case float32:
		return normalizeFloat(float64(val))
	case int:
		return normalizeFloat(float64(val))
	case int64:
		return normalizeFloat(float64(val))
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return normalizeFloat(f)
		}
		return norm.NFC.String(strings.TrimSpace(val.String()))
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		// Last resort for compound values (slices, maps): deterministic
		// JSON. encoding/json sorts map keys, so this stays stable.
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(raw)
	}
}

// normalizeFloat renders with exactly two decimal places, the canonical
// precision for this currency-centric domain. Negative zero folds to 0.00.
func normalizeFloat(f float64) string {
	if f == 0 {
		f = 0 // folds -0 into +0
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
