// Package pages renders the HTML views as templ components.
//
// Components are written by hand against templ.ComponentFunc; every piece of
// data reaches the page through templ.EscapeString.
package pages

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/dealdesk/internal/core"
)

// html collects writes and keeps the first error.
type html struct {
	w   io.Writer
	err error
}

func (h *html) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *html) rawf(format string, args ...any) {
	if h.err == nil {
		_, h.err = fmt.Fprintf(h.w, format, args...)
	}
}

func (h *html) render(ctx context.Context, c templ.Component) {
	if h.err == nil {
		h.err = c.Render(ctx, h.w)
	}
}

const styles = `
body{font-family:system-ui,sans-serif;margin:0;background:#f6f7f9;color:#1f2933}
header{background:#1f2933;color:#fff;padding:.75rem 1.5rem}
header a{color:#fff;text-decoration:none;margin-right:1rem}
main{padding:1.5rem}
table{border-collapse:collapse;background:#fff;width:100%}
th,td{border:1px solid #d9dde3;padding:.4rem .6rem;text-align:left;font-size:.9rem}
th{background:#eef1f4}
.cards{display:flex;flex-wrap:wrap;gap:1rem}
.card{background:#fff;border:1px solid #d9dde3;border-radius:6px;padding:1rem;min-width:16rem}
.bar{background:#3b82f6;height:.8rem;border-radius:3px}
.board{display:flex;gap:1rem;align-items:flex-start;overflow-x:auto}
.column{background:#eef1f4;border-radius:6px;padding:.5rem;min-width:14rem}
.item{background:#fff;border:1px solid #d9dde3;border-radius:4px;padding:.5rem;margin:.4rem 0}
.muted{color:#6b7280;font-size:.85rem}
.alert{background:#fee2e2;border:1px solid #fca5a5;padding:1rem;border-radius:6px}
`

// Layout wraps body in the shared page chrome.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(` - Deal Desk</title><style>` + styles + `</style></head><body>`)
		h.raw(`<header><a href="/"><strong>Deal Desk</strong></a></header><main>`)
		h.render(ctx, body)
		h.raw(`</main></body></html>`)
		return h.err
	})
}

// ChartData is one bar chart on the dashboard.
type ChartData struct {
	Field  string
	Counts []core.Count
}

// DashboardCard is one dataset on the dashboard.
type DashboardCard struct {
	Summary core.DatasetSummary
	Charts  []ChartData
}

// Dashboard lists every dataset with its row count and value-count charts.
func Dashboard(cards []DashboardCard) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<h1>Datasets</h1><div class="cards">`)
		for _, c := range cards {
			info := c.Summary.Info
			h.raw(`<section class="card"><h2><a href="`)
			h.text(datasetPath(info.Key))
			h.raw(`">`)
			h.text(info.Label)
			h.raw(`</a></h2><p class="muted">`)
			h.rawf("%d records", c.Summary.Rows)
			if !c.Summary.LoadedAt.IsZero() {
				h.text(" · updated " + c.Summary.LoadedAt.Format("2006-01-02 15:04"))
			}
			h.raw(`</p>`)
			if info.Description != "" {
				h.raw(`<p>`)
				h.text(info.Description)
				h.raw(`</p>`)
			}
			for _, chart := range c.Charts {
				h.render(ctx, BarChart(chart))
			}
			h.raw(`<p><a href="/api/datasets/`)
			h.text(url.PathEscape(info.Key))
			h.raw(`/sample">Sample CSV</a> · <a href="/api/datasets/`)
			h.text(url.PathEscape(info.Key))
			h.raw(`/export">Export</a>`)
			if info.StageField != "" {
				h.raw(` · <a href="`)
				h.text(datasetPath(info.Key) + "/board")
				h.raw(`">Board</a>`)
			}
			h.raw(`</p></section>`)
		}
		h.raw(`</div>`)
		return h.err
	})
}

// BarChart draws value counts as horizontal bars scaled to the largest count.
func BarChart(chart ChartData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<h3>`)
		h.text(chart.Field)
		h.raw(`</h3>`)
		if len(chart.Counts) == 0 {
			h.raw(`<p class="muted">No data</p>`)
			return h.err
		}
		top := chart.Counts[0].Count
		h.raw(`<table>`)
		for _, c := range chart.Counts {
			label := c.Value.Text()
			if label == "" {
				label = "(blank)"
			}
			h.raw(`<tr><td>`)
			h.text(label)
			h.rawf(`</td><td style="width:60%%"><div class="bar" style="width:%d%%"></div></td><td>%d</td></tr>`,
				c.Count*100/top, c.Count)
		}
		h.raw(`</table>`)
		return h.err
	})
}

// TableData is everything the table page shows.
type TableData struct {
	Summary     core.DatasetSummary
	Page        core.RecordPage
	FilterField string
	FilterValue string
	Options     []core.Value // distinct values of FilterField
	Search      string
}

// Table renders a page of records with a filter selector.
func Table(d TableData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		key := d.Summary.Info.Key
		h.raw(`<h1>`)
		h.text(d.Summary.Info.Label)
		h.raw(`</h1><form method="get" action="`)
		h.text(datasetPath(key))
		h.raw(`">`)
		if d.FilterField != "" {
			h.raw(`<input type="hidden" name="field" value="`)
			h.text(d.FilterField)
			h.raw(`"><label>`)
			h.text(d.FilterField)
			h.raw(` <select name="value"><option>`)
			h.text(core.AllValues)
			h.raw(`</option>`)
			for _, v := range d.Options {
				h.raw(`<option`)
				if v.Text() == d.FilterValue {
					h.raw(` selected`)
				}
				h.raw(`>`)
				h.text(v.Text())
				h.raw(`</option>`)
			}
			h.raw(`</select></label> `)
		}
		h.raw(`<input type="search" name="q" placeholder="Search" value="`)
		h.text(d.Search)
		h.raw(`"> <button type="submit">Apply</button></form>`)

		h.rawf(`<p class="muted">%d matching records, page %d of %d</p>`,
			d.Page.TotalRows, d.Page.Page, d.Page.TotalPages)
		h.raw(`<table><thead><tr>`)
		for _, f := range d.Page.Fields {
			h.raw(`<th>`)
			h.text(f)
			h.raw(`</th>`)
		}
		h.raw(`</tr></thead><tbody>`)
		for _, rec := range d.Page.Records {
			h.raw(`<tr>`)
			for _, f := range rec.Fields() {
				h.raw(`<td>`)
				h.text(f.Value.Text())
				h.raw(`</td>`)
			}
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table>`)
		return h.err
	})
}

// BoardData is a stage board: one column per distinct stage value.
type BoardData struct {
	Summary    core.DatasetSummary
	Projection core.Projection
	TitleField string
	Details    []string // fields shown under the title
}

// Board renders a projection as kanban columns in first-occurrence order.
func Board(d BoardData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<h1>`)
		h.text(d.Summary.Info.Label)
		h.raw(` by `)
		h.text(d.Projection.Field)
		h.raw(`</h1><div class="board">`)
		for _, g := range d.Projection.Groups() {
			label := g.Value.Text()
			if label == "" {
				label = "(blank)"
			}
			h.raw(`<section class="column"><h2>`)
			h.text(label)
			h.rawf(` <span class="muted">%d</span></h2>`, len(g.Records))
			for _, rec := range g.Records {
				h.raw(`<div class="item"><strong>`)
				h.text(rec.Text(d.TitleField))
				h.raw(`</strong>`)
				for _, f := range d.Details {
					if v := rec.Text(f); v != "" {
						h.raw(`<div class="muted">`)
						h.text(f + ": " + v)
						h.raw(`</div>`)
					}
				}
				h.raw(`</div>`)
			}
			h.raw(`</section>`)
		}
		h.raw(`</div>`)
		return h.err
	})
}

// ErrorAlert shows a user-facing error with its support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<div class="alert" role="alert"><strong>`)
		h.text(message)
		h.raw(`</strong>`)
		if action != "" {
			h.raw(`<p>`)
			h.text(action)
			h.raw(`</p>`)
		}
		h.raw(`<p class="muted">Code: `)
		h.text(code)
		h.raw(`</p></div>`)
		return h.err
	})
}

func datasetPath(key string) string {
	return "/datasets/" + url.PathEscape(key)
}
