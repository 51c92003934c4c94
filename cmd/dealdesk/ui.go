package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/JonMunkholm/dealdesk/internal/core"
)

var (
	colorAccent = lipgloss.Color("#8BC34A")
	colorMuted  = lipgloss.Color("#6B7280")
	colorWarn   = lipgloss.Color("#FFC107")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	warnStyle   = lipgloss.NewStyle().Foreground(colorWarn)

	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1).
			Width(boardColumnWidth)
	cardTitleStyle = lipgloss.NewStyle().Bold(true)
)

const (
	maxCellWidth     = 28
	boardColumnWidth = 24
)

// truncate shortens s to limit display cells, ending with an ellipsis.
func truncate(s string, limit int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if lipgloss.Width(s) <= limit {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > limit {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}

// writeTable renders rows under headers with columns sized to fit.
func writeTable(w io.Writer, title string, headers []string, rows [][]string) error {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := range min(len(row), len(widths)) {
			widths[i] = max(widths[i], lipgloss.Width(truncate(row[i], maxCellWidth)))
		}
	}

	var sb strings.Builder
	if title != "" {
		sb.WriteString(titleStyle.Render(title) + "\n")
	}
	sep := mutedStyle.Render("│")
	for i, h := range headers {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(headerStyle.Width(widths[i] + 2).Render(h))
	}
	sb.WriteString("\n")

	total := len(headers) - 1
	for _, wd := range widths {
		total += wd + 2
	}
	sb.WriteString(mutedStyle.Render(strings.Repeat("─", max(total, 0))) + "\n")

	for _, row := range rows {
		for i := range widths {
			if i > 0 {
				sb.WriteString(sep)
			}
			cell := ""
			if i < len(row) {
				cell = truncate(row[i], maxCellWidth)
			}
			sb.WriteString(cellStyle.Width(widths[i] + 2).Render(cell))
		}
		sb.WriteString("\n")
	}
	if len(rows) == 0 {
		sb.WriteString(mutedStyle.Render("(no records)") + "\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// writeRecord prints one record as field/value lines.
func writeRecord(w io.Writer, rec core.Record) error {
	rows := make([][]string, 0, rec.Len())
	for _, f := range rec.Fields() {
		rows = append(rows, []string{f.Name, f.Value.Text()})
	}
	return writeTable(w, "", []string{"Field", "Value"}, rows)
}

// renderBoard draws one bordered column per group in first-occurrence order.
func renderBoard(p core.Projection, titleField string) string {
	cols := make([]string, 0, p.Len())
	for _, g := range p.Groups() {
		label := g.Value.Text()
		if label == "" {
			label = "(none)"
		}
		var sb strings.Builder
		sb.WriteString(titleStyle.Render(fmt.Sprintf("%s (%d)", truncate(label, boardColumnWidth-6), len(g.Records))))
		for _, rec := range g.Records {
			sb.WriteString("\n" + cardTitleStyle.Render(truncate(rec.Text(titleField), boardColumnWidth-2)))
		}
		cols = append(cols, columnStyle.Render(sb.String()))
	}
	if len(cols) == 0 {
		return mutedStyle.Render("(no records)")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

// writePreview prints a PreviewResponse summary and its samples.
func writePreview(w io.Writer, p core.PreviewResponse) error {
	s := p.Summary
	rows := [][]string{
		{"Total rows", fmt.Sprint(s.TotalRows)},
		{"New", fmt.Sprint(s.NewRows)},
		{"Changed", fmt.Sprint(s.ChangedRows)},
		{"Unchanged", fmt.Sprint(s.UnchangedRows)},
		{"Removed", fmt.Sprint(s.RemovedRows)},
		{"Rows with warnings", fmt.Sprint(s.WarningRows)},
		{"Duplicate keys", fmt.Sprint(s.DuplicateInFile)},
	}
	if err := writeTable(w, "Import preview: "+p.Dataset, []string{"", "Rows"}, rows); err != nil {
		return err
	}

	var sb strings.Builder
	if len(p.NewKeys) > 0 {
		sb.WriteString("\nNew: " + strings.Join(p.NewKeys, ", ") + "\n")
	}
	for _, c := range p.Changes {
		sb.WriteString(fmt.Sprintf("line %d %q changed: %s\n", c.Line, c.Key, strings.Join(c.Changed, ", ")))
	}
	for _, wr := range p.Warnings {
		sb.WriteString(warnStyle.Render(fmt.Sprintf("line %d: %s", wr.Line, strings.Join(wr.Issues, "; "))) + "\n")
	}
	for _, d := range p.Duplicates {
		lines := make([]string, len(d.Lines))
		for i, l := range d.Lines {
			lines[i] = fmt.Sprint(l)
		}
		sb.WriteString(warnStyle.Render(fmt.Sprintf("duplicate key %q on lines %s", d.Key, strings.Join(lines, ", "))) + "\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
