package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/dealdesk/internal/core"
	"github.com/JonMunkholm/dealdesk/internal/web/pages"
)

// multipartMemory is how much of a multipart form is held in memory before
// spilling to temp files.
const multipartMemory = 8 << 20

// datasetDefinition returns the definition named by the {key} URL parameter.
func datasetDefinition(r *http.Request) (core.Definition, error) {
	key := chi.URLParam(r, "key")
	def, ok := core.Get(key)
	if !ok {
		return core.Definition{}, fmt.Errorf("%w: %s", core.ErrUnknownDataset, key)
	}
	return def, nil
}

// parseIntParam parses a positive integer query parameter.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseSorts reads comma-separated sort=Field1,Field2 and dir=asc,desc.
func parseSorts(r *http.Request) []core.SortSpec {
	sortStr := r.URL.Query().Get("sort")
	if sortStr == "" {
		return nil
	}
	dirs := strings.Split(r.URL.Query().Get("dir"), ",")

	var sorts []core.SortSpec
	for i, field := range strings.Split(sortStr, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		dir := "asc"
		if i < len(dirs) && strings.TrimSpace(dirs[i]) == "desc" {
			dir = "desc"
		}
		sorts = append(sorts, core.SortSpec{Field: field, Dir: dir})
	}
	return sorts
}

// parseQuery builds a RecordQuery from field, value, q, page, pageSize,
// sort and dir.
func parseQuery(r *http.Request) core.RecordQuery {
	q := r.URL.Query()
	return core.RecordQuery{
		FilterField: q.Get("field"),
		FilterValue: q.Get("value"),
		Search:      q.Get("q"),
		Sorts:       parseSorts(r),
		Page:        parseIntParam(r, "page", 1),
		PageSize:    parseIntParam(r, "pageSize", core.DefaultPageSize),
	}
}

// uploadBody returns the CSV sent with the request: the "file" part of a
// multipart form, or the raw body otherwise. The size limit applies to both.
func (s *Server) uploadBody(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, nil
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, errors.New("invalid multipart form")
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, errors.New("no file provided")
	}
	return file, nil
}

// sendCSV writes data as a CSV attachment.
func sendCSV(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		slog.Warn("csv write failed", "file", filename, "error", err)
	}
}

// renderPage renders body inside the layout. Rendering goes to a buffer
// first so a failure can still produce an error page.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, title string, body templ.Component) {
	var buf bytes.Buffer
	if err := pages.Layout(title, body).Render(r.Context(), &buf); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// editStatus maps an EditResponse error kind to an HTTP status.
func editStatus(resp core.EditResponse) int {
	if resp.OK {
		return http.StatusOK
	}
	switch resp.ErrorKind {
	case core.KindNotFoundError, core.KindUnknownDataset:
		return http.StatusNotFound
	case core.KindFormatError, core.KindEmptyInputError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
