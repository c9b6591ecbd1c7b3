package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table renders rows of text with a header, an optional cursor row and
// selection marks.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string

	// Cursor is the highlighted row, -1 for none.
	Cursor int
	// Marked rows get a selection tick in the first column.
	Marked map[int]bool
	// Alert rows render in the overdue colour.
	Alert map[int]bool
	// Selectable adds the selection column.
	Selectable bool
}

// NewTable creates a table with the given title and headers.
func NewTable(title string, headers []string) *Table {
	return &Table{
		Title:   title,
		Headers: headers,
		Rows:    make([][]string, 0),
		Cursor:  -1,
		Marked:  map[int]bool{},
		Alert:   map[int]bool{},
	}
}

// AddRow adds a row to the table.
func (t *Table) AddRow(row ...string) {
	t.Rows = append(t.Rows, row)
}

// View renders the table using the provided styles. An empty table renders
// only its title and empty text.
func (t *Table) View(styles Styles, empty string) string {
	var sb strings.Builder

	if t.Title != "" {
		sb.WriteString(styles.Title.Render(t.Title))
		sb.WriteString("\n")
	}
	if len(t.Rows) == 0 {
		sb.WriteString(styles.Muted.Render(empty))
		sb.WriteString("\n")
		return sb.String()
	}

	headers := t.Headers
	rows := t.Rows
	if t.Selectable {
		headers = append([]string{" "}, headers...)
		rows = make([][]string, len(t.Rows))
		for i, r := range t.Rows {
			mark := "☐"
			if t.Marked[i] {
				mark = "☑"
			}
			rows[i] = append([]string{mark}, r...)
		}
	}

	colWidths := make([]int, len(headers))
	for i, h := range headers {
		colWidths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(colWidths) {
				colWidths[i] = max(colWidths[i], lipgloss.Width(cell))
			}
		}
	}
	for i := range colWidths {
		colWidths[i] += 2
	}

	headerStyle := styles.Bold.Padding(0, 1)
	sepStyle := styles.Muted

	for i, h := range headers {
		sb.WriteString(headerStyle.Width(colWidths[i]).Render(h))
		if i < len(headers)-1 {
			sb.WriteString(sepStyle.Render("│"))
		}
	}
	sb.WriteString("\n")

	totalWidth := len(headers) - 1
	for _, w := range colWidths {
		totalWidth += w
	}
	sb.WriteString(styles.RenderDivider(totalWidth) + "\n")

	for r, row := range rows {
		rowStyle := styles.Body
		switch {
		case r == t.Cursor:
			rowStyle = styles.Cursor
		case t.Alert[r]:
			rowStyle = styles.Overdue
		}
		rowStyle = rowStyle.Padding(0, 1)
		for i, cell := range row {
			if i >= len(colWidths) {
				break
			}
			sb.WriteString(rowStyle.Width(colWidths[i]).Render(cell))
			if i < len(row)-1 {
				sb.WriteString(sepStyle.Render("│"))
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
