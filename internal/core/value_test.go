package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		text string
		want Kind
	}{
		{"", KindString},
		{"Lead", KindString},
		{"2025-09-01", KindDate},
		{"09/01/2025", KindString},
		{"42", KindNumber},
		{"-3.25", KindNumber},
		{"$5M", KindString},
		{"1,000", KindString},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			v := ParseValue(tt.text)
			assert.Equal(t, tt.want, v.Kind())
			assert.Equal(t, tt.text, v.Text(), "text is kept verbatim")
		})
	}
}

func TestValue_CanonicalText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Lead", "Lead"},
		{"LF kept", "a\nb", "a\nb"},
		{"lone CR kept", "a\rb", "a\rb"},
		{"CRLF folds", "a\r\nb", "a\nb"},
		{"CR run before LF folds", "a\r\r\nb", "a\nb"},
		{"each invalid byte", "Caf\xe9 \xff\xfe", "Caf? ??"},
		{"truncated rune", "ok\xe2\x82", "ok??"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, String(tt.in).Text())
			assert.Equal(t, tt.want, ParseValue(tt.in).Text())
		})
	}
}

func TestValue_Accessors(t *testing.T) {
	d, ok := ParseValue("12.50").Decimal()
	require.True(t, ok)
	assert.True(t, d.Equal(decimal.RequireFromString("12.5")))

	_, ok = String("12").Decimal()
	assert.False(t, ok, "a string value has no decimal")

	tm, ok := ParseValue("2025-08-15").Time()
	require.True(t, ok)
	assert.Equal(t, time.August, tm.Month())

	assert.Equal(t, "2025-08-15", Date(time.Date(2025, 8, 15, 13, 4, 5, 0, time.UTC)).Text())
	assert.Equal(t, "1.5", Number(decimal.NewFromFloat(1.5)).Text())
}

func TestValue_EqualIsTextEquality(t *testing.T) {
	assert.True(t, String("42").Equal(ParseValue("42")))
	assert.False(t, ParseValue("1.0").Equal(ParseValue("1")), "numerically equal but different text")
	assert.False(t, String("Lead").Equal(String("lead")))
}

func TestRecord_MarshalJSONKeepsOrder(t *testing.T) {
	rec := RecordFromStrings([]string{"z", "a", "m"}, []string{"1", "two", ""})
	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"z":"1","a":"two","m":""}`, string(b))
}

func TestRecord_Basics(t *testing.T) {
	rec := RecordFromStrings([]string{"name", "status"}, []string{"Ada"})
	assert.Equal(t, 2, rec.Len())
	assert.Equal(t, []string{"name", "status"}, rec.Names())
	assert.Equal(t, "", rec.Text("status"), "missing texts are empty")
	_, ok := rec.Get("email")
	assert.False(t, ok)

	c := rec.Clone()
	c.fields[0].Value = String("Bob")
	assert.Equal(t, "Ada", rec.Text("name"))
	assert.False(t, rec.Equal(c))
	assert.True(t, rec.Equal(rec.Clone()))
}
