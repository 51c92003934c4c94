package core

import (
	"bytes"
	"encoding/json"
)

// Field is one named cell of a record.
type Field struct {
	Name  string
	Value Value
}

// Record is one row: an ordered mapping from field name to value.
// Records handed out by a Store are copies; mutating them does not touch
// the store.
type Record struct {
	fields []Field
}

// NewRecord builds a record from fields in the given order.
func NewRecord(fields ...Field) Record {
	return Record{fields: append([]Field(nil), fields...)}
}

// RecordFromStrings zips names and raw texts into a record, inferring kinds.
// Missing texts become empty strings.
func RecordFromStrings(names, texts []string) Record {
	fields := make([]Field, len(names))
	for i, name := range names {
		var text string
		if i < len(texts) {
			text = texts[i]
		}
		fields[i] = Field{Name: name, Value: ParseValue(text)}
	}
	return Record{fields: fields}
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.fields) }

// Fields returns a copy of the ordered fields.
func (r Record) Fields() []Field {
	return append([]Field(nil), r.fields...)
}

// Names returns the field names in order.
func (r Record) Names() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// Get returns the value of the named field.
func (r Record) Get(name string) (Value, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Text returns the text of the named field, or "" when absent.
func (r Record) Text(name string) string {
	v, _ := r.Get(name)
	return v.Text()
}

// Strings returns the value texts in field order.
func (r Record) Strings() []string {
	out := make([]string, len(r.fields))
	for i, f := range r.fields {
		out[i] = f.Value.Text()
	}
	return out
}

// Clone returns an independent copy.
func (r Record) Clone() Record {
	return NewRecord(r.fields...)
}

// Equal reports whether both records have the same fields in the same order
// with equal values.
func (r Record) Equal(o Record) bool {
	if len(r.fields) != len(o.fields) {
		return false
	}
	for i := range r.fields {
		if r.fields[i].Name != o.fields[i].Name || !r.fields[i].Value.Equal(o.fields[i].Value) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the record as a JSON object whose keys keep field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value.Text())
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
