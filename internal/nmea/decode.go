package nmea

import (
	"strings"
	"unicode/utf8"
)

// decodeLossy decodes raw sentence bytes as text, substituting the Unicode
// replacement character for invalid UTF-8 sequences. NMEA output is ASCII,
// but line noise on the wire must never abort framing or parsing.
func decodeLossy(b []byte) string {
	s := string(b)
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, string(utf8.RuneError))
}
