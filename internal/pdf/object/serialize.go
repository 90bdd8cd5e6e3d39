package object

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Serialize renders obj in PDF syntax. Streams get a /Length matching Data.
func Serialize(obj Object) []byte {
	var b bytes.Buffer
	writeObject(&b, obj)
	return b.Bytes()
}

func writeObject(b *bytes.Buffer, obj Object) {
	switch v := obj.(type) {
	case nil, *Null:
		b.WriteString("null")
	case *Bool:
		b.WriteString(v.String())
	case *Number:
		if v.IsReal {
			b.WriteString(formatReal(v.RealValue))
		} else {
			b.WriteString(strconv.FormatInt(v.IntValue, 10))
		}
	case *String:
		b.Write(encodeString(v))
	case *Name:
		b.WriteString("/" + escapeName(v.Value))
	case *Array:
		b.WriteByte('[')
		for i, elem := range v.Elements {
			if i > 0 {
				b.WriteByte(' ')
			}
			writeObject(b, elem)
		}
		b.WriteByte(']')
	case *Dictionary:
		writeDictionary(b, v, -1)
	case *Stream:
		writeDictionary(b, v.Dict, len(v.Data))
		b.WriteString("\nstream\n")
		b.Write(v.Data)
		b.WriteString("\nendstream")
	case *IndirectRef:
		fmt.Fprintf(b, "%d %d R", v.ID.Number, v.ID.Generation)
	case *Literal:
		b.WriteString(v.Value)
	default:
		b.WriteString("null")
	}
}

// writeDictionary writes d; length >= 0 overrides any /Length entry
func writeDictionary(b *bytes.Buffer, d *Dictionary, length int) {
	b.WriteString("<<")
	for _, key := range d.keys {
		if length >= 0 && key == "Length" {
			continue
		}
		b.WriteString("/" + escapeName(key) + " ")
		writeObject(b, d.values[key])
	}
	if length >= 0 {
		fmt.Fprintf(b, "/Length %d", length)
	}
	b.WriteString(">>")
}

// formatReal writes the shortest decimal form that reads back as f
func formatReal(f float64) string {
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func encodeString(s *String) []byte {
	if s.IsHex {
		dst := make([]byte, hex.EncodedLen(len(s.Value)))
		hex.Encode(dst, []byte(s.Value))
		return []byte("<" + strings.ToUpper(string(dst)) + ">")
	}
	return EscapeLiteral([]byte(s.Value))
}

// EscapeLiteral renders raw bytes as a parenthesized literal string
func EscapeLiteral(raw []byte) []byte {
	var b bytes.Buffer
	b.WriteByte('(')
	for _, ch := range raw {
		switch ch {
		case '\\', '(', ')':
			b.WriteByte('\\')
			b.WriteByte(ch)
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		case '\b':
			b.WriteString("\\b")
		case '\f':
			b.WriteString("\\f")
		default:
			if ch < 0x20 || ch >= 0x80 {
				fmt.Fprintf(&b, "\\%03o", ch)
			} else {
				b.WriteByte(ch)
			}
		}
	}
	b.WriteByte(')')
	return b.Bytes()
}

func escapeName(value string) string {
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		ch := value[i]
		if ch > ' ' && ch < 0x7f && !strings.ContainsRune("#()<>[]{}/%", rune(ch)) {
			b.WriteByte(ch)
			continue
		}
		fmt.Fprintf(&b, "#%02X", ch)
	}
	return b.String()
}
