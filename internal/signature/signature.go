// Package signature implements the HMAC-SHA1 SignatureGate (spec §4.2).
package signature

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // spec mandates HMAC-SHA1 exactly
	"crypto/subtle"
	"encoding/hex"

	"github.com/audiogated/audiogated/internal/apierr"
)

const UnsafeToken = "unsafe"

// Sign computes lowercase-hex HMAC-SHA1(secret, canonical) (spec §6.1).
func Sign(secret []byte, canonical string) string {
	mac := hmac.New(sha1.New, secret)
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks (signature, canonical) against secret, honoring the
// unsafe bypass when allowUnsafe is set. It returns an apierr.Error of
// kind Unauthorized on any failure; its message says whether the unsafe
// bypass was refused or the signature did not match.
func Verify(signature, canonical string, secret []byte, allowUnsafe bool) error {
	if signature == UnsafeToken {
		if allowUnsafe {
			return nil
		}
		return apierr.New(apierr.KindUnauthorized, "unsafe mode is disabled")
	}

	want := Sign(secret, canonical)
	if subtle.ConstantTimeCompare([]byte(signature), []byte(want)) != 1 {
		return apierr.New(apierr.KindUnauthorized, "signature mismatch")
	}
	return nil
}
