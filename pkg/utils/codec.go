// Package utils provides small shared helpers: the Base64 content codec used
// to decode payloads embedded in upstream responses, and the reversible
// credential obfuscation carried over from the original desktop client.
package utils

import (
	"encoding/base64"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DecodeBase64 decodes a Base64-encoded UTF-8 payload. The upstream embeds
// message bodies and homework descriptions this way without flagging which
// fields are encoded, so the decoder is tolerant: any input that fails to
// decode as Base64, or decodes to invalid UTF-8, is returned unchanged.
func DecodeBase64(s string) string {
	if s == "" {
		return ""
	}

	// The upstream occasionally emits the URL-safe alphabet.
	normalized := strings.NewReplacer("-", "+", "_", "/").Replace(s)

	decoded, err := base64.StdEncoding.DecodeString(normalized)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(normalized)
	}
	if err != nil || !utf8.Valid(decoded) {
		return s
	}
	return string(decoded)
}

// EncodeBase64 encodes a UTF-8 string with the standard alphabet.
func EncodeBase64(s string) string {
	if s == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// base64Alphabet matches strings made exclusively of Base64 alphabet characters.
var base64Alphabet = regexp.MustCompile(`^[A-Za-z0-9+/=]+$`)

// looksEncodedMinLen is the length below which a Base64-alphabet string is
// assumed to be plain text (short subject codes like "AGL1" would otherwise
// be misdetected).
const looksEncodedMinLen = 8

// LooksEncoded reports whether a string is probably Base64-encoded content.
// Heuristic: only Base64 alphabet characters and longer than a short
// threshold. The upstream does not reliably flag encoded fields, so some
// normalizers rely on this; it may misdetect and that is accepted.
func LooksEncoded(s string) bool {
	return len(s) > looksEncodedMinLen && base64Alphabet.MatchString(s)
}
