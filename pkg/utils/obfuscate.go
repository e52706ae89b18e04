package utils

import (
	"encoding/base64"
	"net/url"
)

// Obfuscate applies the reversible transform used for locally persisted
// fallback credentials: percent-encode, reverse, Base64.
//
// This is encoding, not encryption. It only keeps credentials out of casual
// plain-text reads of the store; anyone with access to the file can reverse
// it. Callers opting into credential persistence accept that trade-off.
func Obfuscate(s string) string {
	escaped := url.QueryEscape(s)
	return base64.StdEncoding.EncodeToString([]byte(reverse(escaped)))
}

// Deobfuscate reverses Obfuscate. Returns "" on any malformed input.
func Deobfuscate(s string) string {
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return ""
	}
	unescaped, err := url.QueryUnescape(reverse(string(decoded)))
	if err != nil {
		return ""
	}
	return unescaped
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
