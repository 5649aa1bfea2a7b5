// Package spacedjson encodes small JSON objects in a fixed spaced layout:
// ", " and ": " separators, keys in insertion order and non-ASCII
// characters escaped as \uXXXX. Embeddings computed over these strings stay
// comparable with vectors stored by earlier ingestion runs.
package spacedjson

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Field is one key/value pair. Value must be a string, []string, bool,
// int, float64 or nil.
type Field struct {
	Key   string
	Value any
}

// Object keeps fields in insertion order.
type Object []Field

// String encodes the object.
func (o Object) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			b.WriteString(", ")
		}
		writeString(&b, f.Key)
		b.WriteString(": ")
		writeValue(&b, f.Value)
	}
	b.WriteByte('}')
	return b.String()
}

func writeValue(b *strings.Builder, v any) {
	switch v := v.(type) {
	case nil:
		b.WriteString("null")
	case string:
		writeString(b, v)
	case []string:
		b.WriteByte('[')
		for i, s := range v {
			if i > 0 {
				b.WriteString(", ")
			}
			writeString(b, s)
		}
		b.WriteByte(']')
	case bool:
		if v {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case int:
		b.WriteString(strconv.Itoa(v))
	case float64:
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	default:
		panic(fmt.Sprintf("spacedjson: unsupported value type %T", v))
	}
}

const hex = "0123456789abcdef"

func writeString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			switch {
			case r < 0x20 || (r >= 0x7f && r <= 0xffff):
				writeEscape(b, r)
			case r > 0xffff:
				hi, lo := utf16.EncodeRune(r)
				writeEscape(b, hi)
				writeEscape(b, lo)
			default:
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
}

func writeEscape(b *strings.Builder, r rune) {
	b.WriteString(`\u`)
	b.WriteByte(hex[(r>>12)&0xf])
	b.WriteByte(hex[(r>>8)&0xf])
	b.WriteByte(hex[(r>>4)&0xf])
	b.WriteByte(hex[r&0xf])
}
