package core

// definitions.go loads extra dataset definitions from a YAML file, so a new
// spreadsheet layout can be hosted without a code change:
//
//	datasets:
//	  - key: vendors
//	    label: Vendors
//	    key_field: Vendor
//	    stage_field: Status
//	    chart_fields: [Status]
//	    fields:
//	      - {name: Vendor, required: true}
//	      - {name: Status, type: enum, values: [Active, Paused]}
//	      - {name: Renewal, type: date}

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type definitionsFile struct {
	Datasets []definitionDoc `yaml:"datasets"`
}

type definitionDoc struct {
	Key         string     `yaml:"key"`
	Label       string     `yaml:"label"`
	Description string     `yaml:"description"`
	KeyField    string     `yaml:"key_field"`
	StageField  string     `yaml:"stage_field"`
	ChartFields []string   `yaml:"chart_fields"`
	Fields      []fieldDoc `yaml:"fields"`
	Sample      [][]string `yaml:"sample"`
}

type fieldDoc struct {
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"`
	Required bool     `yaml:"required"`
	Values   []string `yaml:"values"`
}

// ParseFieldType maps "text", "enum", "date" and "numeric" to a FieldType.
// An empty name is text.
func ParseFieldType(name string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "text", "string":
		return FieldText, nil
	case "enum":
		return FieldEnum, nil
	case "date":
		return FieldDate, nil
	case "numeric", "number":
		return FieldNumeric, nil
	default:
		return FieldText, fmt.Errorf("unknown field type %q", name)
	}
}

// ParseDefinitions decodes a YAML definitions document.
func ParseDefinitions(data []byte) ([]Definition, error) {
	var doc definitionsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse definitions: %w", err)
	}

	defs := make([]Definition, 0, len(doc.Datasets))
	for _, d := range doc.Datasets {
		if d.Key == "" {
			return nil, fmt.Errorf("dataset without key")
		}
		def := Definition{
			Info: DatasetInfo{
				Key:         d.Key,
				Label:       d.Label,
				Description: d.Description,
				KeyField:    d.KeyField,
				StageField:  d.StageField,
				ChartFields: d.ChartFields,
			},
			Sample: d.Sample,
		}
		if def.Info.Label == "" {
			def.Info.Label = d.Key
		}
		for _, f := range d.Fields {
			ft, err := ParseFieldType(f.Type)
			if err != nil {
				return nil, fmt.Errorf("dataset %s field %q: %w", d.Key, f.Name, err)
			}
			spec := FieldSpec{Name: f.Name, Type: ft, Required: f.Required, EnumValues: f.Values}
			if ft == FieldDate {
				spec.Normalizer = NormalizeDate
			}
			def.FieldSpecs = append(def.FieldSpecs, spec)
		}
		if def.Info.KeyField != "" {
			if _, ok := def.Spec(def.Info.KeyField); !ok && len(def.FieldSpecs) > 0 {
				return nil, fmt.Errorf("dataset %s: key field %q is not a declared field", d.Key, def.Info.KeyField)
			}
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// LoadDefinitions reads and registers every dataset in a YAML file.
func LoadDefinitions(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definitions: %w", err)
	}
	defs, err := ParseDefinitions(data)
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		if err := register(def); err != nil {
			return nil, err
		}
	}
	return defs, nil
}
