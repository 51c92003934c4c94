package core

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"
)

// ============================================================================
// Conversion Benchmarks
// ============================================================================

// BenchmarkParseNumber covers the inputs the number normalizer sees on save.
func BenchmarkParseNumber(b *testing.B) {
	testCases := []string{
		"123",
		"-456.78",
		"$1,234.56",
		"(123.45)",
		"  999.99  ",
		"€1234.56",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ParseNumber(tc)
		}
	}
}

// BenchmarkParseDate walks the layout list; ISO hits first, text months last.
func BenchmarkParseDate(b *testing.B) {
	testCases := []string{
		"2024-01-15",
		"01/15/2024",
		"Jan 15, 2024",
		"20240115",
		"1/5/24",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ParseDate(tc)
		}
	}
}

func BenchmarkParseValue(b *testing.B) {
	for i := 0; i < b.N; i++ {
		ParseValue("Project Q")
		ParseValue("2025-09-01")
		ParseValue("425000")
	}
}

// ============================================================================
// Serializer Benchmarks
// ============================================================================

func generateTable(rows int) string {
	var sb strings.Builder
	sb.WriteString("Project Name,Stage,Deadline,Amount,Comments\n")
	stages := []string{"Lead", "Review", "LOI", "Diligence", "Closed"}
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&sb, "Project %d,%s,2025-%02d-%02d,%d,\"note, with comma\"\n",
			i, stages[i%len(stages)], i%12+1, i%28+1, i*1000)
	}
	return sb.String()
}

func BenchmarkLoad(b *testing.B) {
	table := generateTable(100)
	b.SetBytes(int64(len(table)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := LoadString(table); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkLoad_Large(b *testing.B) {
	table := generateTable(10000)
	b.SetBytes(int64(len(table)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := LoadString(table); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkWriteCSV_Large(b *testing.B) {
	store, err := LoadString(generateTable(10000))
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := store.WriteCSV(io.Discard); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkWrapForImport measures the BOM + UTF-8 reader chain on a mostly
// ASCII file with a few Latin-1 bytes.
func BenchmarkWrapForImport(b *testing.B) {
	data := []byte("\xEF\xBB\xBF" + strings.Repeat("Caf\xe9,Lead,2025-01-01\n", 5000))
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := io.Copy(io.Discard, WrapForImport(bytes.NewReader(data))); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// Store, Editor and Projector Benchmarks
// ============================================================================

func BenchmarkFindByKey_Last(b *testing.B) {
	store, err := LoadString(generateTable(10000))
	if err != nil {
		b.Fatal(err)
	}
	key := String("Project 9999")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := store.FindByKey("Project Name", key); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEditorCommit(b *testing.B) {
	store, err := LoadString(generateTable(1000))
	if err != nil {
		b.Fatal(err)
	}
	ed, err := NewEditor(store, "Project Name", nil)
	if err != nil {
		b.Fatal(err)
	}
	updates := map[string]string{"Stage": "LOI", "Comments": "bench"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ed.Commit("Project 500", updates); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkProject(b *testing.B) {
	store, err := LoadString(generateTable(10000))
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Project(store, "Stage"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkQuery_SortedPage(b *testing.B) {
	store, err := LoadString(generateTable(10000))
	if err != nil {
		b.Fatal(err)
	}
	q := RecordQuery{Sorts: []SortSpec{{Field: "Amount", Dir: "desc"}}, Page: 3, PageSize: 50}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := runQuery(store, q); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// Validation Benchmarks
// ============================================================================

func BenchmarkValidateCell(b *testing.B) {
	specs := []FieldSpec{
		{Name: "Amount", Type: FieldNumeric},
		{Name: "Deadline", Type: FieldDate},
		{Name: "Stage", Type: FieldEnum, EnumValues: []string{"Lead", "Review", "LOI", "Diligence", "Closed"}},
		{Name: "Comments", Type: FieldText},
	}
	values := []string{"$1,000", "2025-09-01", "Closed", "free text"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for j, spec := range specs {
			_ = ValidateCell(values[j], spec)
		}
	}
}
