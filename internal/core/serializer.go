package core

// serializer.go converts a Store to and from comma-separated text.
//
// Import is all-or-nothing: the whole input is parsed into a fresh Store and
// any malformed line aborts with no Store returned. Export writes the header
// in schema order followed by one line per record, quoting values that hold
// a comma, a quote or a line break.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Load parses a delimited table. The first line is the header and defines the
// field set; every later line must have exactly as many fields.
func Load(r io.Reader) (*Store, error) {
	cr := csv.NewReader(WrapForImport(r))
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: no header row", ErrEmptyInput)
	}
	if err != nil {
		return nil, wrapParseError(err)
	}

	for i, name := range header {
		header[i] = canonicalText(name)
	}
	if len(header) > 0 {
		header[0] = strings.TrimLeft(header[0], "\uFEFF")
	}

	s, err := NewStore(header...)
	if err != nil {
		return nil, err
	}

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, wrapParseError(err)
		}
		values := make([]Value, len(row))
		for i, text := range row {
			values[i] = ParseValue(text)
		}
		s.rows = append(s.rows, values)
	}

	return s, nil
}

// LoadString is Load over an in-memory table.
func LoadString(table string) (*Store, error) {
	return Load(strings.NewReader(table))
}

func wrapParseError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return fmt.Errorf("%w: line %d: %v", ErrFormat, pe.StartLine, pe.Err)
	}
	// Reader failures (size limits, cancelled uploads) keep their identity.
	return fmt.Errorf("read csv: %w", err)
}

// WriteCSV writes the store as a delimited table.
// A store without fields writes nothing.
func (s *Store) WriteCSV(w io.Writer) error {
	if len(s.fields) == 0 {
		return nil
	}

	cw := csv.NewWriter(w)
	if err := writeLine(cw, w, s.fields); err != nil {
		return err
	}
	line := make([]string, len(s.fields))
	for _, row := range s.rows {
		for i, v := range row {
			line[i] = v.Text()
		}
		if err := writeLine(cw, w, line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeLine writes one CSV line. A line made of a single empty field would be
// emitted as a blank line, which readers skip, so it is written quoted.
func writeLine(cw *csv.Writer, w io.Writer, line []string) error {
	if len(line) == 1 && line[0] == "" {
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\"\"\n")
		return err
	}
	return cw.Write(line)
}

// Serialize renders the whole store as a delimited table. WriteCSV only
// fails through its writer, and a strings.Builder does not fail.
func (s *Store) Serialize() string {
	var b strings.Builder
	_ = s.WriteCSV(&b)
	return b.String()
}

// WriteTo implements io.WriterTo.
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	err := s.WriteCSV(cw)
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
