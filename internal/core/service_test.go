package core

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/dealdesk/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDeals = Definition{
	Info: DatasetInfo{
		Key:         "test_deals",
		Label:       "Deals",
		KeyField:    "Project Name",
		StageField:  "Stage",
		ChartFields: []string{"Stage"},
	},
	FieldSpecs: []FieldSpec{
		{Name: "Project Name", Required: true},
		{Name: "Stage", Type: FieldEnum, EnumValues: []string{"Lead", "Review", "LOI"}},
		{Name: "Deadline", Type: FieldDate, Normalizer: NormalizeDate},
		{Name: "Comments"},
	},
	Sample: [][]string{
		{"Project Q", "Lead", "2025-09-01", ""},
	},
}

// failingRepo refuses every save.
type failingRepo struct{ database.Repository }

func (failingRepo) SaveSnapshot(context.Context, database.Snapshot) error {
	return errors.New("connection refused")
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	useDefinition(t, testDeals)
	return NewService(nil, ServiceOptions{})
}

func importPipeline(t *testing.T, svc *Service) {
	t.Helper()
	_, err := svc.Import(context.Background(), "test_deals", strings.NewReader(pipeline))
	require.NoError(t, err)
}

func TestService_ImportExport(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.Import(context.Background(), "test_deals", strings.NewReader(pipeline))
	require.NoError(t, err)
	assert.Equal(t, 4, res.Rows)
	assert.Equal(t, []string{"Project Name", "Stage", "Deadline", "Comments"}, res.Fields)
	assert.NotEmpty(t, res.Revision)

	var out bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), "test_deals", &out))
	assert.Equal(t, pipeline, out.String())
}

func TestService_ImportFailureKeepsPrevious(t *testing.T) {
	svc := newTestService(t)
	importPipeline(t, svc)
	before, err := svc.Dataset("test_deals")
	require.NoError(t, err)

	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "", ErrEmptyInput},
		{"ragged", "Project Name,Stage\nA\n", ErrFormat},
		{"no key column", "Stage\nLead\n", ErrFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Import(context.Background(), "test_deals", strings.NewReader(tt.input))
			assert.ErrorIs(t, err, tt.want)

			after, err := svc.Dataset("test_deals")
			require.NoError(t, err)
			assert.Equal(t, before.Rows, after.Rows)
			assert.Equal(t, before.Revision, after.Revision)
		})
	}
}

func TestService_UnknownDataset(t *testing.T) {
	svc := NewService(nil, ServiceOptions{})

	_, err := svc.Import(context.Background(), "nope", strings.NewReader("a\n1\n"))
	assert.ErrorIs(t, err, ErrUnknownDataset)
	_, err = svc.Records("nope", "", "")
	assert.ErrorIs(t, err, ErrUnknownDataset)
	resp := svc.Edit(context.Background(), "nope", EditRequest{Key: "x"})
	assert.Equal(t, KindUnknownDataset, resp.ErrorKind)
}

func TestService_EmptyDatasetUsesDefinitionColumns(t *testing.T) {
	svc := newTestService(t)

	sum, err := svc.Dataset("test_deals")
	require.NoError(t, err)
	assert.Equal(t, []string{"Project Name", "Stage", "Deadline", "Comments"}, sum.Fields)
	assert.Equal(t, 0, sum.Rows)

	var out bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), "test_deals", &out))
	assert.Equal(t, "Project Name,Stage,Deadline,Comments\n", out.String())
}

func TestService_Edit(t *testing.T) {
	svc := newTestService(t)
	importPipeline(t, svc)

	resp := svc.Edit(context.Background(), "test_deals", EditRequest{
		Key:          "AlphaTech",
		FieldUpdates: map[string]string{"Stage": "LOI", "Deadline": "Aug 30, 2025"},
	})
	require.True(t, resp.OK, resp.Message)
	assert.Equal(t, "2025-08-30", resp.UpdatedRecord.Text("Deadline"))

	form, err := svc.Open("test_deals", "AlphaTech")
	require.NoError(t, err)
	assert.Equal(t, "LOI", form.Record.Text("Stage"))

	rejected := svc.Edit(context.Background(), "test_deals", EditRequest{
		Key:          "AlphaTech",
		FieldUpdates: map[string]string{"Stage": "Review", "Owner": "x"},
	})
	assert.False(t, rejected.OK)
	assert.Equal(t, KindFormatError, rejected.ErrorKind)

	form, _ = svc.Open("test_deals", "AlphaTech")
	assert.Equal(t, "LOI", form.Record.Text("Stage"))
}

func TestService_EditNotSavedIsNotApplied(t *testing.T) {
	useDefinition(t, testDeals)
	svc := NewService(nil, ServiceOptions{})
	importPipeline(t, svc)

	svc.repo = failingRepo{}
	resp := svc.Edit(context.Background(), "test_deals", EditRequest{
		Key:          "AlphaTech",
		FieldUpdates: map[string]string{"Stage": "LOI"},
	})
	assert.False(t, resp.OK)
	assert.Equal(t, KindInternalError, resp.ErrorKind)

	form, err := svc.Open("test_deals", "AlphaTech")
	require.NoError(t, err)
	assert.Equal(t, "Review", form.Record.Text("Stage"))
}

func TestService_AddRecord(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	rec, err := svc.AddRecord(ctx, "test_deals", map[string]string{
		"Project Name": "Beacon",
		"Stage":        "Lead",
		"Deadline":     "12/01/2025",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Project Name", "Stage", "Deadline", "Comments"}, rec.Names())
	assert.Equal(t, []string{"Beacon", "Lead", "2025-12-01", ""}, rec.Strings())

	_, err = svc.AddRecord(ctx, "test_deals", map[string]string{"Stage": "Lead"})
	assert.ErrorIs(t, err, ErrFormat, "key field is required")
	_, err = svc.AddRecord(ctx, "test_deals", map[string]string{"Project Name": "X", "Owner": "y"})
	assert.ErrorIs(t, err, ErrFormat)
	_, err = svc.AddRecord(ctx, "test_deals", map[string]string{"Project Name": "X", "Stage": "Won"})
	assert.ErrorIs(t, err, ErrFormat)

	recs, err := svc.Records("test_deals", "", "")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestService_AddRecordKeepsImportedOrder(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Import(context.Background(), "test_deals",
		strings.NewReader("Stage,Project Name\nLead,Q\n"))
	require.NoError(t, err)

	rec, err := svc.AddRecord(context.Background(), "test_deals", map[string]string{"Project Name": "R"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Stage", "Project Name"}, rec.Names())
}

func TestService_Queries(t *testing.T) {
	svc := newTestService(t)
	importPipeline(t, svc)

	p, err := svc.Project("test_deals", "Stage")
	require.NoError(t, err)
	assert.Equal(t, []string{"Lead", "Review", "LOI"}, keyTexts(p.Keys()))

	counts, err := svc.Counts("test_deals", "Stage")
	require.NoError(t, err)
	assert.Equal(t, "Lead", counts[0].Value.Text())
	assert.Equal(t, 2, counts[0].Count)

	vs, err := svc.Distinct("test_deals", "Project Name")
	require.NoError(t, err)
	assert.Equal(t, []string{"Project Q", "AlphaTech", "Dup"}, keyTexts(vs))

	recs, err := svc.Records("test_deals", "Stage", "Lead")
	require.NoError(t, err)
	assert.Equal(t, []string{"Project Q", "Dup"}, columnTexts(recs, "Project Name"))

	_, err = svc.Records("test_deals", "Owner", "x")
	assert.ErrorIs(t, err, ErrFormat)
}

func TestService_Sample(t *testing.T) {
	svc := newTestService(t)
	var out bytes.Buffer
	require.NoError(t, svc.Sample("test_deals", &out))
	assert.Equal(t, "Project Name,Stage,Deadline,Comments\nProject Q,Lead,2025-09-01,\n", out.String())
}

func TestService_Datasets(t *testing.T) {
	svc := newTestService(t)
	importPipeline(t, svc)

	var found *DatasetSummary
	for _, sum := range svc.Datasets() {
		if sum.Info.Key == "test_deals" {
			found = &sum
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, 4, found.Rows)
	assert.False(t, found.LoadedAt.IsZero())
}

func TestService_PersistAndRestore(t *testing.T) {
	useDefinition(t, testDeals)
	ctx := context.Background()

	repo, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "dealdesk.db"))
	require.NoError(t, err)
	defer repo.Close()

	svc := NewService(repo, ServiceOptions{})
	importPipeline(t, svc)
	resp := svc.Edit(ctx, "test_deals", EditRequest{Key: "Dup", FieldUpdates: map[string]string{"Comments": "a, \"b\""}})
	require.True(t, resp.OK, resp.Message)

	var want bytes.Buffer
	require.NoError(t, svc.Export(ctx, "test_deals", &want))

	restarted := NewService(repo, ServiceOptions{})
	n, err := restarted.Restore(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)

	var got bytes.Buffer
	require.NoError(t, restarted.Export(ctx, "test_deals", &got))
	assert.Equal(t, want.String(), got.String())

	before, _ := svc.Dataset("test_deals")
	after, _ := restarted.Dataset("test_deals")
	assert.Equal(t, before.Revision, after.Revision)
}

func TestService_RestoreWithoutRepo(t *testing.T) {
	n, err := NewService(nil, ServiceOptions{}).Restore(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
