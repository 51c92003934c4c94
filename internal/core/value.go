package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical text form of date values.
const DateLayout = time.DateOnly

// Kind is the inferred type of a cell value.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "string"
	}
}

// Value is a single cell. Its text is held in the form a CSV export and
// re-import gives back (see canonicalText), so a value always serializes to
// bytes that load as an equal value. Two values are equal when their text is
// equal; the kind is derived information.
type Value struct {
	kind Kind
	text string
}

// String returns a string value.
func String(s string) Value {
	return Value{kind: KindString, text: canonicalText(s)}
}

// Number returns a numeric value.
func Number(d decimal.Decimal) Value {
	return Value{kind: KindNumber, text: d.String()}
}

// Date returns a date value truncated to the day.
func Date(t time.Time) Value {
	return Value{kind: KindDate, text: t.Format(DateLayout)}
}

// ParseValue infers the kind of a raw cell. ISO dates become dates, anything
// decimal.NewFromString accepts becomes a number, the rest stays a string.
// The text is kept as given once canonical.
func ParseValue(text string) Value {
	text = canonicalText(text)
	if text == "" {
		return String(text)
	}
	if _, err := time.Parse(DateLayout, text); err == nil {
		return Value{kind: KindDate, text: text}
	}
	if _, err := decimal.NewFromString(text); err == nil {
		return Value{kind: KindNumber, text: text}
	}
	return String(text)
}

// Kind reports the inferred kind.
func (v Value) Kind() Kind { return v.kind }

// Text returns the exact text of the value.
func (v Value) Text() string { return v.text }

// String implements fmt.Stringer.
func (v Value) String() string { return v.text }

// IsZero reports whether the value is empty.
func (v Value) IsZero() bool { return v.text == "" }

// Equal compares by exact, case-sensitive text.
func (v Value) Equal(o Value) bool { return v.text == o.text }

// Decimal returns the numeric value, if the value is a number.
func (v Value) Decimal() (decimal.Decimal, bool) {
	if v.kind != KindNumber {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(v.text)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Time returns the date value, if the value is a date.
func (v Value) Time() (time.Time, bool) {
	if v.kind != KindDate {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, v.text)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// MarshalText lets values appear as plain strings in JSON.
func (v Value) MarshalText() ([]byte, error) {
	return []byte(v.text), nil
}

// UnmarshalText infers the kind from the text.
func (v *Value) UnmarshalText(b []byte) error {
	*v = ParseValue(string(b))
	return nil
}

// canonicalText returns s as an import of its CSV form reads it back. Each
// invalid UTF-8 byte becomes '?', matching the import sanitizer, and CR LF
// folds to LF until none is left, since "\r\r\n" reads back as "\r\n".
func canonicalText(s string) string {
	if utf8.ValidString(s) && !strings.Contains(s, "\r\n") {
		return s
	}
	if !utf8.ValidString(s) {
		var b strings.Builder
		b.Grow(len(s))
		for i := 0; i < len(s); {
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				b.WriteByte('?')
			} else {
				b.WriteString(s[i : i+size])
			}
			i += size
		}
		s = b.String()
	}
	for strings.Contains(s, "\r\n") {
		s = strings.ReplaceAll(s, "\r\n", "\n")
	}
	return s
}
