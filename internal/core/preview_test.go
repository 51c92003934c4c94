package core

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviewImport(t *testing.T) {
	svc := newTestService(t)
	importPipeline(t, svc)

	incoming := "Project Name,Stage,Deadline,Comments\n" +
		"Project Q,Lead,2025-09-01,\n" + // unchanged
		"AlphaTech,LOI,2025-08-15,\n" + // changed
		"Beacon,Won,soon,\n" + // new, two bad cells
		"Beacon,Lead,,\n" // duplicate key

	resp, err := svc.PreviewImport(context.Background(), "test_deals", strings.NewReader(incoming))
	require.NoError(t, err)

	assert.Equal(t, PreviewSummary{
		TotalRows:       4,
		NewRows:         1,
		ChangedRows:     1,
		UnchangedRows:   1,
		RemovedRows:     2, // both Dup rows
		WarningRows:     1,
		DuplicateInFile: 1,
	}, resp.Summary)

	assert.Equal(t, []string{"Beacon"}, resp.NewKeys)
	require.Len(t, resp.Changes, 1)
	assert.Equal(t, "AlphaTech", resp.Changes[0].Key)
	assert.Equal(t, []string{"Stage"}, resp.Changes[0].Changed)
	assert.Equal(t, 3, resp.Changes[0].Line)

	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, 4, resp.Warnings[0].Line)
	assert.Len(t, resp.Warnings[0].Issues, 2)

	require.Len(t, resp.Duplicates, 1)
	assert.Equal(t, DuplicateKey{Key: "Beacon", Lines: []int{4, 5}}, resp.Duplicates[0])
}

func TestPreviewImport_DoesNotModify(t *testing.T) {
	svc := newTestService(t)
	importPipeline(t, svc)
	before, _ := svc.Dataset("test_deals")

	_, err := svc.PreviewImport(context.Background(), "test_deals",
		strings.NewReader("Project Name,Stage\nOnly,Lead\n"))
	require.NoError(t, err)

	after, _ := svc.Dataset("test_deals")
	assert.Equal(t, before, after)
}

func TestPreviewImport_Errors(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.PreviewImport(context.Background(), "test_deals", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = svc.PreviewImport(context.Background(), "test_deals", strings.NewReader("Stage\nLead\n"))
	assert.ErrorIs(t, err, ErrFormat)

	_, err = svc.PreviewImport(context.Background(), "nope", strings.NewReader("a\n"))
	assert.ErrorIs(t, err, ErrUnknownDataset)
}
