package tables

import (
	"bytes"
	"context"
	"testing"

	"github.com/JonMunkholm/dealdesk/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinDefinitions(t *testing.T) {
	for _, key := range []string{"clients", "deals"} {
		t.Run(key, func(t *testing.T) {
			def, ok := core.Get(key)
			require.True(t, ok, "dataset %s not registered", key)

			_, ok = def.Spec(def.Info.KeyField)
			assert.True(t, ok, "key field %q has no spec", def.Info.KeyField)
			_, ok = def.Spec(def.Info.StageField)
			assert.True(t, ok, "stage field %q has no spec", def.Info.StageField)
			for _, f := range def.Info.ChartFields {
				_, ok := def.Spec(f)
				assert.True(t, ok, "chart field %q has no spec", f)
			}

			require.Len(t, def.Info.Columns, len(def.FieldSpecs))
			for i, row := range def.Sample {
				assert.Len(t, row, len(def.Info.Columns), "sample row %d", i)
				for j, cell := range row {
					spec := def.FieldSpecs[j]
					assert.NoError(t, core.ValidateCell(core.NormalizeCell(cell, spec), spec), "sample row %d", i)
				}
			}
		})
	}
}

func TestDealsSampleImports(t *testing.T) {
	svc := core.NewService(nil, core.ServiceOptions{})

	var sample bytes.Buffer
	require.NoError(t, svc.Sample("deals", &sample))

	res, err := svc.Import(context.Background(), "deals", &sample)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)

	p, err := svc.Project("deals", "Stage")
	require.NoError(t, err)
	var stages []string
	for _, v := range p.Keys() {
		stages = append(stages, v.Text())
	}
	assert.Equal(t, []string{"Lead", "Review", "LOI"}, stages)
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"555-123-4567", "(555) 123-4567"},
		{"+1 555 123 4567", "(555) 123-4567"},
		{"5551234567", "(555) 123-4567"},
		{" 12345 ", "12345"},
		{"+44 20 7946 0958", "+44 20 7946 0958"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.in))
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "dana@example.com", NormalizeEmail("  Dana@Example.COM "))
}

func TestNormalizeChoice(t *testing.T) {
	norm := NormalizeChoice(LoanTypes)
	assert.Equal(t, "HELOC", norm("heloc"))
	assert.Equal(t, "Refinance", norm(" refinance "))
	assert.Equal(t, "Boat", norm("Boat"))
}
