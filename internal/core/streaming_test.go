package core

import (
	"bytes"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

func TestBOMSkippingReader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"file with BOM", append(bom[:3:3], "name,status"...), "name,status"},
		{"file without BOM", []byte("name,status"), "name,status"},
		{"empty file", []byte{}, ""},
		{"only BOM", bom, ""},
		{"short file", []byte("a"), "a"},
		{"partial BOM at start", []byte{0xEF, 0xBB, 'a', 'b'}, string([]byte{0xEF, 0xBB, 'a', 'b'})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(NewBOMSkippingReader(bytes.NewReader(tt.input)))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestStreamingUTF8Sanitizer(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"valid ASCII", []byte("name,status"), "name,status"},
		{"valid multibyte", []byte("Zoë,Müller"), "Zoë,Müller"},
		{"invalid byte replaced", []byte{'h', 'e', 0x80, 'l', 'o'}, "he?lo"},
		{"latin-1 e acute", []byte{'c', 'a', 'f', 0xE9}, "caf?"},
		{"empty input", []byte{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(NewStreamingUTF8Sanitizer(bytes.NewReader(tt.input)))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestStreamingUTF8Sanitizer_SplitRune(t *testing.T) {
	// A one-byte reader splits every multibyte rune across reads.
	r := NewStreamingUTF8Sanitizer(iotest.OneByteReader(bytes.NewReader([]byte("héllo €"))))
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "héllo €", string(got))
}

func TestWrapForImport(t *testing.T) {
	input := append(bom[:3:3], []byte{'n', 'a', 'm', 'e', '\n', 'B', 0xFF, 'b'}...)
	got, err := io.ReadAll(WrapForImport(bytes.NewReader(input)))
	require.NoError(t, err)
	assert.Equal(t, "name\nB?b", string(got))
}
