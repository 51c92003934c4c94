package core

import "time"

// FieldType represents the expected data type for a dataset field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldDate
	FieldNumeric
)

// FieldSpec defines validation rules for a single column.
type FieldSpec struct {
	Name       string              // Column header name (must match CSV exactly)
	Type       FieldType           // Expected data type
	Required   bool                // Column must exist in the imported header
	EnumValues []string            // Valid values for FieldEnum type
	Normalizer func(string) string // Optional transformation applied before validation
}

// DatasetInfo contains display information about a dataset.
type DatasetInfo struct {
	Key         string   `json:"key"`                   // Unique identifier: "deals"
	Label       string   `json:"label"`                 // Display name: "Deal Pipeline"
	Description string   `json:"description,omitempty"` // One line shown on the dashboard
	KeyField    string   `json:"keyField"`              // Field that identifies one record for editing
	StageField  string   `json:"stageField,omitempty"`  // Categorical field used for the board view
	ChartFields []string `json:"chartFields,omitempty"` // Fields shown as value-count bar charts
	Columns     []string `json:"columns"`               // Default column order for an empty dataset
}

// Definition contains everything needed to host a dataset.
type Definition struct {
	Info       DatasetInfo
	FieldSpecs []FieldSpec
	Sample     [][]string // Example rows in Columns order
}

// Spec returns the field spec for name.
func (d Definition) Spec(name string) (FieldSpec, bool) {
	for _, spec := range d.FieldSpecs {
		if spec.Name == name {
			return spec, true
		}
	}
	return FieldSpec{}, false
}

// EditRequest is what the form layer submits for one record.
type EditRequest struct {
	Key          string            `json:"key"`
	FieldUpdates map[string]string `json:"fieldUpdates"`
}

// EditResponse reports the outcome of an EditRequest.
type EditResponse struct {
	OK            bool    `json:"ok"`
	UpdatedRecord *Record `json:"updatedRecord,omitempty"`
	ErrorKind     string  `json:"errorKind,omitempty"`
	Message       string  `json:"message,omitempty"`
}

// Form holds the current values of one record opened for editing.
type Form struct {
	Index  int    `json:"index"`
	Key    string `json:"key"`
	Record Record `json:"record"`
}

// DatasetSummary is the dashboard view of a hosted dataset.
type DatasetSummary struct {
	Info     DatasetInfo `json:"info"`
	Fields   []string    `json:"fields"`
	Rows     int         `json:"rows"`
	Revision string      `json:"revision,omitempty"`
	LoadedAt time.Time   `json:"loadedAt,omitzero"`
}

// ImportResult describes a completed import.
type ImportResult struct {
	Dataset  string        `json:"dataset"`
	Revision string        `json:"revision"`
	Fields   []string      `json:"fields"`
	Rows     int           `json:"rows"`
	Duration time.Duration `json:"duration"`
}
