package web

import (
	"bytes"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/dealdesk/internal/core"
	"github.com/JonMunkholm/dealdesk/internal/logging"
	"github.com/JonMunkholm/dealdesk/internal/web/pages"
)

// boardDetailFields is how many extra fields a board card shows.
const boardDetailFields = 3

// handleDashboard renders every dataset with its value-count charts.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	var cards []pages.DashboardCard
	for _, sum := range s.service.Datasets() {
		card := pages.DashboardCard{Summary: sum}
		for _, field := range sum.Info.ChartFields {
			counts, err := s.service.Counts(sum.Info.Key, field)
			if err != nil {
				// A chart field missing from the imported file.
				logger.Debug("chart skipped", "dataset", sum.Info.Key, "field", field, "error", err)
				continue
			}
			card.Charts = append(card.Charts, pages.ChartData{Field: field, Counts: counts})
		}
		cards = append(cards, card)
	}
	s.renderPage(w, r, "Dashboard", pages.Dashboard(cards))
}

// handleTablePage renders one page of records. The filter selector uses
// ?field= or, by default, the first chart field.
func (s *Server) handleTablePage(w http.ResponseWriter, r *http.Request) {
	def, err := datasetDefinition(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	key := def.Info.Key
	sum, err := s.service.Dataset(key)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	q := parseQuery(r)
	if q.FilterField == "" && len(def.Info.ChartFields) > 0 {
		q.FilterField = def.Info.ChartFields[0]
	}
	if q.FilterField != "" && !slices.Contains(sum.Fields, q.FilterField) {
		q.FilterField, q.FilterValue = "", ""
	}

	page, err := s.service.Query(key, q)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	data := pages.TableData{
		Summary:     sum,
		Page:        page,
		FilterField: q.FilterField,
		FilterValue: q.FilterValue,
		Search:      q.Search,
	}
	if q.FilterField != "" {
		if data.Options, err = s.service.Distinct(key, q.FilterField); err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	s.renderPage(w, r, def.Info.Label, pages.Table(data))
}

// handleBoardPage renders the stage board. ?field= overrides the stage field.
func (s *Server) handleBoardPage(w http.ResponseWriter, r *http.Request) {
	def, err := datasetDefinition(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	field := r.URL.Query().Get("field")
	if field == "" {
		field = def.Info.StageField
	}
	if field == "" {
		s.badRequest(w, r, "dataset has no stage field; pass ?field=")
		return
	}

	sum, err := s.service.Dataset(def.Info.Key)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	proj, err := s.service.Project(def.Info.Key, field)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var details []string
	for _, f := range sum.Fields {
		if f == field || f == def.Info.KeyField {
			continue
		}
		details = append(details, f)
		if len(details) == boardDetailFields {
			break
		}
	}
	s.renderPage(w, r, def.Info.Label+" board", pages.Board(pages.BoardData{
		Summary:    sum,
		Projection: proj,
		TitleField: def.Info.KeyField,
		Details:    details,
	}))
}

// handleListDatasets returns every dataset summary.
func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.Datasets())
}

// handleGetDataset returns one dataset summary.
func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	sum, err := s.service.Dataset(chi.URLParam(r, "key"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, sum)
}

// handleExport downloads the dataset as CSV.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var buf bytes.Buffer
	if err := s.service.Export(r.Context(), key, &buf); err != nil {
		s.respondError(w, r, err)
		return
	}
	sendCSV(w, key+".csv", buf.Bytes())
}

// handleSample downloads the dataset's example CSV.
func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var buf bytes.Buffer
	if err := s.service.Sample(key, &buf); err != nil {
		s.respondError(w, r, err)
		return
	}
	sendCSV(w, key+"-sample.csv", buf.Bytes())
}

// handleRecords returns one page of records. See parseQuery for parameters.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	page, err := s.service.Query(chi.URLParam(r, "key"), parseQuery(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, page)
}

// handleOpenRecord returns the current values of one record.
func (s *Server) handleOpenRecord(w http.ResponseWriter, r *http.Request) {
	form, err := s.service.Open(chi.URLParam(r, "key"), chi.URLParam(r, "recordKey"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, form)
}

// ProjectionGroup is one group of a projection response.
type ProjectionGroup struct {
	Value   string        `json:"value"`
	Count   int           `json:"count"`
	Records []core.Record `json:"records"`
}

// handleProject returns records grouped by a field, groups in
// first-occurrence order.
func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	proj, err := s.service.Project(chi.URLParam(r, "key"), chi.URLParam(r, "field"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	groups := make([]ProjectionGroup, 0, proj.Len())
	for _, g := range proj.Groups() {
		groups = append(groups, ProjectionGroup{Value: g.Value.Text(), Count: len(g.Records), Records: g.Records})
	}
	writeJSON(w, map[string]any{"field": proj.Field, "groups": groups})
}

// handleCounts returns value counts, most frequent first.
func (s *Server) handleCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.service.Counts(chi.URLParam(r, "key"), chi.URLParam(r, "field"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, counts)
}

// handleDistinct returns distinct values in first-occurrence order.
func (s *Server) handleDistinct(w http.ResponseWriter, r *http.Request) {
	values, err := s.service.Distinct(chi.URLParam(r, "key"), chi.URLParam(r, "field"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, values)
}

// handleImportStatus reports import slot usage.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.ImportStatus())
}
