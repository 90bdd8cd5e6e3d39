package object

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// DecodeText converts a PDF text string to UTF-8. Strings starting with a
// UTF-16BE byte order mark are decoded as UTF-16; everything else is taken
// as single-byte text.
func DecodeText(raw string) string {
	if strings.HasPrefix(raw, "\xfe\xff") {
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		if s, err := dec.String(raw); err == nil {
			return s
		}
	}
	if strings.HasPrefix(raw, "\xef\xbb\xbf") {
		return raw[3:]
	}
	s, err := charmap.Windows1252.NewDecoder().String(raw)
	if err != nil {
		return raw
	}
	return s
}

// EncodeText converts UTF-8 to a PDF text string, using UTF-16BE with a
// byte order mark when the text is not plain ASCII
func EncodeText(s string) string {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return s
	}
	enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
	out, err := enc.String(s)
	if err != nil {
		return s
	}
	return out
}

// WinAnsi encodes s for a simple font with WinAnsiEncoding, replacing
// characters the encoding cannot represent
func WinAnsi(s string) string {
	enc := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())
	out, err := enc.String(s)
	if err != nil {
		return s
	}
	return out
}

// TextOf returns the decoded text of a string object, or "" for other kinds
func TextOf(obj Object) string {
	if s, ok := obj.(*String); ok {
		return DecodeText(s.Value)
	}
	return ""
}
