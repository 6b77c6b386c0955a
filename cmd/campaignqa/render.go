package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/TFMV/campaignqa/pkg/models"
)

// NoResultsMessage is shown when a statement matched no rows.
const NoResultsMessage = "No results found for this query."

// maxDisplayRows caps how many result rows are printed.
const maxDisplayRows = 20

var (
	accent  = lipgloss.Color("#8BC34A")
	muted   = lipgloss.Color("#6B7280")
	warning = lipgloss.Color("#FFC107")
	danger  = lipgloss.Color("#E53935")
)

// styles groups the terminal styles used by the renderer.
type styles struct {
	Heading lipgloss.Style
	Code    lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Muted   lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{
			Heading: plain,
			Code:    plain,
			Header:  plain.Padding(0, 1),
			Cell:    plain.Padding(0, 1),
			Muted:   plain,
			Warning: plain,
			Error:   plain,
		}
	}
	return styles{
		Heading: lipgloss.NewStyle().Bold(true).Foreground(accent),
		Code:    lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3")),
		Header:  lipgloss.NewStyle().Bold(true).Padding(0, 1),
		Cell:    lipgloss.NewStyle().Padding(0, 1),
		Muted:   lipgloss.NewStyle().Foreground(muted),
		Warning: lipgloss.NewStyle().Foreground(warning),
		Error:   lipgloss.NewStyle().Foreground(danger),
	}
}

// renderer prints answers and advice.
type renderer struct {
	out    io.Writer
	styles styles
}

func newRenderer(out io.Writer, color bool) *renderer {
	return &renderer{out: out, styles: newStyles(color)}
}

func (r *renderer) heading(title string) {
	fmt.Fprintln(r.out, r.styles.Heading.Render("### "+title))
}

// Answer prints one answered question.
func (r *renderer) Answer(a *models.Answer) {
	if a.Kind == models.AnswerKindDirect {
		r.heading("Direct Answer")
		fmt.Fprintln(r.out, a.Reply)
		return
	}

	r.heading("SQL Query Generated")
	fmt.Fprintln(r.out, r.styles.Code.Render(a.Statement))
	if len(a.DroppedLines) > 0 {
		fmt.Fprintln(r.out, r.styles.Muted.Render(fmt.Sprintf("(%d line(s) of the reply were not part of the query)", len(a.DroppedLines))))
	}

	if a.Result.IsEmpty() {
		fmt.Fprintln(r.out, r.styles.Warning.Render(NoResultsMessage))
		return
	}

	r.heading("Query Result")
	if a.Result.IsError() {
		fmt.Fprintln(r.out, r.styles.Error.Render(r.table(a.Result.Columns, a.Result.StringRows())))
	} else {
		r.result(a.Result)
	}

	r.heading("Summary")
	fmt.Fprintln(r.out, a.Summary)
}

// Advice prints subject line suggestions.
func (r *renderer) Advice(a *models.Advice) {
	r.heading("Suggestions")
	fmt.Fprintln(r.out, a.Suggestions)
}

func (r *renderer) result(rs *models.ResultSet) {
	rows := rs.StringRows()
	shown := rows
	if len(shown) > maxDisplayRows {
		shown = shown[:maxDisplayRows]
	}
	fmt.Fprint(r.out, r.table(rs.Columns, shown))

	var notes []string
	if hidden := len(rows) - len(shown); hidden > 0 {
		notes = append(notes, fmt.Sprintf("%d more row(s) not shown", hidden))
	}
	if rs.Truncated {
		notes = append(notes, "result truncated at the row limit")
	}
	if rs.Cached {
		notes = append(notes, "served from cache")
	}
	if len(notes) > 0 {
		fmt.Fprintln(r.out, r.styles.Muted.Render("("+strings.Join(notes, "; ")+")"))
	}
}

// table renders headers and rows as aligned columns separated by "|".
func (r *renderer) table(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				if w := lipgloss.Width(cell); w > widths[i] {
					widths[i] = w
				}
			}
		}
	}
	// lipgloss widths include padding
	for i := range widths {
		widths[i] += 2
	}

	sep := r.styles.Muted.Render("|")
	var sb strings.Builder

	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = r.styles.Header.Width(widths[i]).Render(h)
	}
	header := strings.Join(cells, sep)
	sb.WriteString(header)
	sb.WriteString("\n")
	sb.WriteString(r.styles.Muted.Render(strings.Repeat("-", lipgloss.Width(header))))
	sb.WriteString("\n")

	for _, row := range rows {
		cells = cells[:0]
		for i, cell := range row {
			if i < len(widths) {
				cells = append(cells, r.styles.Cell.Width(widths[i]).Render(cell))
			}
		}
		sb.WriteString(strings.Join(cells, sep))
		sb.WriteString("\n")
	}

	return sb.String()
}
