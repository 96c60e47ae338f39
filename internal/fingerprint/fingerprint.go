// Package fingerprint computes the deterministic cache key / log
// correlation id for a (source URI, params) pair (spec §3, §4.4).
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/audiogated/audiogated/internal/params"
)

// domainSeparator makes the digest specific to this use, so the same hash
// primitive can't be reused to collide fingerprints with unrelated data.
const domainSeparator = "audiogated/fingerprint/v1\x00"

// NormalizeSourceURI applies spec §4.4 normalization: lowercase
// scheme+host; percent-decoded path for local/object-key forms; remote
// URLs get no normalization beyond the RFC-3986 minimum (lowercasing
// scheme/host only).
func NormalizeSourceURI(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" {
		u.Scheme = strings.ToLower(u.Scheme)
		u.Host = strings.ToLower(u.Host)
		return u.String()
	}

	// local path / object key form: no scheme, percent-decode the path.
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// Fingerprint is a hex-rendered digest used verbatim as cache key and log
// correlation id.
type Fingerprint string

// Compute derives the fingerprint of (sourceURI, p) per spec §3/§4.4.
func Compute(sourceURI string, p params.AudioProcessingParams) Fingerprint {
	normalized := NormalizeSourceURI(sourceURI)
	canonical := params.Canonical(normalized, p)

	h := sha256.New()
	h.Write([]byte(domainSeparator))
	h.Write([]byte(canonical))
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

func (f Fingerprint) String() string { return string(f) }
