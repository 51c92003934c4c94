package web

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dealdesk/internal/config"
	"github.com/JonMunkholm/dealdesk/internal/core"
	_ "github.com/JonMunkholm/dealdesk/internal/core/tables"
)

const dealsCSV = `Project Name,Stage,Type,Deadline
Project Q,Lead,SaaS,2025-09-01
AlphaTech,Review,AgriTech,8/15/2025
GreenFields,LOI,Healthcare,2025-10-10
`

type testServer struct {
	t   *testing.T
	srv *Server
	cfg *config.Config
}

func newTestServer(t *testing.T, env map[string]string) *testServer {
	t.Helper()
	cfg, err := config.LoadFrom(config.MapLookup(env))
	require.NoError(t, err)
	svc := core.NewService(nil, core.ServiceOptions{})
	return &testServer{t: t, srv: NewServer(svc, cfg), cfg: cfg}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.srv.Router().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) get(path string) *httptest.ResponseRecorder {
	return ts.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (ts *testServer) post(path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return ts.do(req)
}

func (ts *testServer) postJSON(path string, v any) *httptest.ResponseRecorder {
	b, err := json.Marshal(v)
	require.NoError(ts.t, err)
	return ts.post(path, "application/json", bytes.NewReader(b))
}

func (ts *testServer) importDeals() {
	ts.t.Helper()
	rec := ts.post("/api/datasets/deals/import", "text/csv", strings.NewReader(dealsCSV))
	require.Equal(ts.t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestImport_RawBody(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.post("/api/datasets/deals/import", "text/csv", strings.NewReader(dealsCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[core.ImportResult](t, rec)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, "deals", res.Dataset)
	assert.NotEmpty(t, res.Revision)

	sum := decode[core.DatasetSummary](t, ts.get("/api/datasets/deals"))
	assert.Equal(t, 3, sum.Rows)
	assert.Equal(t, "Project Name", sum.Info.KeyField)
}

func TestImport_Multipart(t *testing.T) {
	ts := newTestServer(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "deals.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(dealsCSV))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := ts.post("/api/datasets/deals/import", mw.FormDataContentType(), &body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 3, decode[core.ImportResult](t, rec).Rows)
}

func TestImport_MultipartWithoutFile(t *testing.T) {
	ts := newTestServer(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())

	rec := ts.post("/api/datasets/deals/import", mw.FormDataContentType(), &body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FILE002", decode[ErrorResponse](t, rec).Code)
}

func TestImport_Errors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"empty input", "/api/datasets/deals/import", "", http.StatusUnprocessableEntity, "REC001"},
		{"ragged row", "/api/datasets/deals/import", "Project Name,Stage\nA,Lead,extra\n", http.StatusUnprocessableEntity, "REC002"},
		{"missing key column", "/api/datasets/deals/import", "Stage\nLead\n", http.StatusUnprocessableEntity, "REC002"},
		{"unknown dataset", "/api/datasets/vendors/import", dealsCSV, http.StatusNotFound, "DS001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			rec := ts.post(tt.path, "text/csv", strings.NewReader(tt.body))
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantErr, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestImport_TooLarge(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.cfg.Upload.MaxFileSize = 16

	rec := ts.post("/api/datasets/deals/import", "text/csv", strings.NewReader(dealsCSV))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	assert.Equal(t, "FILE001", decode[ErrorResponse](t, rec).Code)
}

func TestImport_FailedImportKeepsData(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.importDeals()

	rec := ts.post("/api/datasets/deals/import", "text/csv", strings.NewReader("Project Name,Stage\n\"open quote\n"))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 3, decode[core.DatasetSummary](t, ts.get("/api/datasets/deals")).Rows)
}

func TestPreview(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.importDeals()

	incoming := "Project Name,Stage\nProject Q,LOI\nBeacon,Lead\n"
	rec := ts.post("/api/datasets/deals/preview", "text/csv", strings.NewReader(incoming))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	p := decode[core.PreviewResponse](t, rec)
	assert.Equal(t, 2, p.Summary.TotalRows)
	assert.Equal(t, 1, p.Summary.NewRows)
	assert.Equal(t, 1, p.Summary.ChangedRows)
	assert.Equal(t, 2, p.Summary.RemovedRows)
	assert.Equal(t, []string{"Beacon"}, p.NewKeys)

	// Nothing was imported.
	assert.Equal(t, 3, decode[core.DatasetSummary](t, ts.get("/api/datasets/deals")).Rows)
}

func TestRecords_Query(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.importDeals()

	rec := ts.get("/api/datasets/deals/records?sort=Project+Name&dir=desc&pageSize=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Records    []map[string]string `json:"records"`
		TotalRows  int                 `json:"totalRows"`
		TotalPages int                 `json:"totalPages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 3, page.TotalRows)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Records, 2)
	assert.Equal(t, "Project Q", page.Records[0]["Project Name"])
	assert.Equal(t, "GreenFields", page.Records[1]["Project Name"])

	rec = ts.get("/api/datasets/deals/records?field=Stage&value=Review")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Records, 1)
	assert.Equal(t, "AlphaTech", page.Records[0]["Project Name"])
}

func TestOpenRecord(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.importDeals()

	rec := ts.get("/api/datasets/deals/records/AlphaTech")
	require.Equal(t, http.StatusOK, rec.Code)
	var form struct {
		Index  int               `json:"index"`
		Record map[string]string `json:"record"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &form))
	assert.Equal(t, 1, form.Index)
	assert.Equal(t, "Review", form.Record["Stage"])

	rec = ts.get("/api/datasets/deals/records/Nobody")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "REC003", decode[ErrorResponse](t, rec).Code)
}

func TestEdit(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.importDeals()

	rec := ts.postJSON("/api/datasets/deals/edit", core.EditRequest{
		Key:          "AlphaTech",
		FieldUpdates: map[string]string{"Stage": "LOI", "Deadline": "Sep 30, 2025"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[core.EditResponse](t, rec)
	assert.True(t, resp.OK)

	var form struct {
		Record map[string]string `json:"record"`
	}
	require.NoError(t, json.Unmarshal(ts.get("/api/datasets/deals/records/AlphaTech").Body.Bytes(), &form))
	assert.Equal(t, "LOI", form.Record["Stage"])
	assert.Equal(t, "2025-09-30", form.Record["Deadline"])
}

func TestEdit_FormLineEndingsSurviveExport(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.importDeals()

	rec := ts.postJSON("/api/datasets/deals/edit", core.EditRequest{
		Key:          "GreenFields",
		FieldUpdates: map[string]string{"Type": "Healthcare\r\nClinics"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	exported := ts.get("/api/datasets/deals/export").Body.String()
	assert.Contains(t, exported, "\"Healthcare\nClinics\"")
	assert.NotContains(t, exported, "\r")

	rec = ts.post("/api/datasets/deals/import", "text/csv", strings.NewReader(exported))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, exported, ts.get("/api/datasets/deals/export").Body.String())
}

func TestEdit_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		req      core.EditRequest
		wantCode int
		wantKind string
	}{
		{"unknown key", core.EditRequest{Key: "Nobody", FieldUpdates: map[string]string{"Stage": "LOI"}}, http.StatusNotFound, core.KindNotFoundError},
		{"bad enum", core.EditRequest{Key: "AlphaTech", FieldUpdates: map[string]string{"Stage": "Won"}}, http.StatusUnprocessableEntity, core.KindFormatError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			ts.importDeals()

			rec := ts.postJSON("/api/datasets/deals/edit", tt.req)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			resp := decode[core.EditResponse](t, rec)
			assert.False(t, resp.OK)
			assert.Equal(t, tt.wantKind, resp.ErrorKind)
		})
	}
}

func TestEdit_InvalidJSON(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.post("/api/datasets/deals/edit", "application/json", strings.NewReader("{"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddRecord(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.importDeals()

	rec := ts.postJSON("/api/datasets/deals/records", AddRecordRequest{
		Values: map[string]string{"Project Name": "Beacon", "Stage": "Lead"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 4, decode[core.DatasetSummary](t, ts.get("/api/datasets/deals")).Rows)
}

func TestUndo(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.post("/api/datasets/deals/undo", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DS002", decode[ErrorResponse](t, rec).Code)

	ts.importDeals()
	rec = ts.post("/api/datasets/deals/undo", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[core.UndoResult](t, rec)
	assert.Equal(t, 3, res.RowsBefore)
	assert.Equal(t, 0, res.RowsRestored)
}

func TestExportAndSample(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.importDeals()

	rec := ts.get("/api/datasets/deals/export")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dealsCSV, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="deals.csv"`)

	rec = ts.get("/api/datasets/deals/sample")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Project Name,Size,Seller"))
}

func TestProjectAndCounts(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.importDeals()

	rec := ts.get("/api/datasets/deals/project/Stage")
	require.Equal(t, http.StatusOK, rec.Code)
	var proj struct {
		Field  string `json:"field"`
		Groups []struct {
			Value string `json:"value"`
			Count int    `json:"count"`
		} `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &proj))
	assert.Equal(t, "Stage", proj.Field)
	require.Len(t, proj.Groups, 3)
	assert.Equal(t, "Lead", proj.Groups[0].Value)
	assert.Equal(t, 1, proj.Groups[0].Count)

	rec = ts.get("/api/datasets/deals/project/Missing")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = ts.get("/api/datasets/deals/distinct/Type")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["SaaS","AgriTech","Healthcare"]`, rec.Body.String())
}

func TestPages(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.importDeals()

	tests := []struct {
		path string
		want []string
	}{
		{"/", []string{"Deal Pipeline", "Healthcare"}},
		{"/datasets/deals", []string{"AlphaTech", "GreenFields"}},
		{"/datasets/deals?field=Stage&value=LOI", []string{"GreenFields"}},
		{"/datasets/deals/board", []string{"Project Q", "Review", "LOI"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := ts.get(tt.path)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
			for _, s := range tt.want {
				assert.Contains(t, rec.Body.String(), s)
			}
		})
	}
}

func TestPages_UnknownDatasetRendersErrorPage(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.get("/datasets/vendors")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "DS001")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(core.ErrTooManyImports))
	assert.Equal(t, http.StatusInternalServerError, statusFor(io.ErrUnexpectedEOF))
	assert.Equal(t, http.StatusRequestEntityTooLarge, statusFor(&http.MaxBytesError{Limit: 1}))
}
