// Package urlgrammar parses the request path grammar
// "/<sig>/<audio-uri>?params" into structured form (spec §4.1).
package urlgrammar

import (
	"net/url"
	"strings"

	"github.com/audiogated/audiogated/internal/apierr"
)

// Mode selects the handling mode implied by a path prefix.
type Mode int

const (
	ModeProcess Mode = iota
	ModePreview
)

// ParsedRequest is the structured output of Parse.
type ParsedRequest struct {
	Mode         Mode
	Signature    string
	SourceURIRaw string
	Query        map[string][]string
}

const unsafeSignature = "unsafe"

// Parse splits rawPath+rawQuery into (mode, signature, source URI,
// query pairs). rawPath must already have any "/params" prefix and
// leading slash stripped by the router; Parse receives the remainder:
// "<sig>/<audio-uri>".
//
// The audio URI may itself contain a '?'; this grammar treats the
// *first* '?' in the full original request-target as the parameter
// boundary, which callers achieve by passing the router's already-split
// (path, rawQuery) pair rather than re-splitting here.
func Parse(preview bool, pathAfterSig string, rawQuery string) (ParsedRequest, error) {
	pathAfterSig = strings.TrimPrefix(pathAfterSig, "/")
	sig, rest, ok := strings.Cut(pathAfterSig, "/")
	if !ok || sig == "" || rest == "" {
		return ParsedRequest{}, apierr.New(apierr.KindBadRequest, "malformed request path: expected /<sig>/<audio-uri>")
	}

	uri, err := url.PathUnescape(rest)
	if err != nil {
		return ParsedRequest{}, apierr.New(apierr.KindBadRequest, "malformed audio uri encoding")
	}

	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return ParsedRequest{}, apierr.New(apierr.KindBadRequest, "malformed query string")
	}

	mode := ModeProcess
	if preview {
		mode = ModePreview
	}

	return ParsedRequest{
		Mode:         mode,
		Signature:    sig,
		SourceURIRaw: uri,
		Query:        query,
	}, nil
}

// IsUnsafe reports whether the signature is the literal unsafe bypass.
func IsUnsafe(sig string) bool {
	return sig == unsafeSignature
}

// CanonicalQueryString reconstructs a stable, sorted query string from a
// query map, independent of original key insertion order. The signer's
// canonical string is built by params.Canonical, not by this function.
func CanonicalQueryString(query map[string][]string) string {
	v := url.Values(query)
	return v.Encode()
}
