package model

import "strings"

// Table is a grid of cells organized in rows.
type Table struct {
	Rows        [][]Cell `json:"rows"`
	RowCount    int      `json:"row_count"`
	ColumnCount int      `json:"column_count"`
}

// Cell is one table cell.
type Cell struct {
	Text    string `json:"text"`
	Row     int    `json:"row"`
	Col     int    `json:"col"`
	RowSpan int    `json:"row_span"`
	ColSpan int    `json:"col_span"`
	Width   int64  `json:"width"`  // Column width in EMUs
	Height  int64  `json:"height"` // Row height in EMUs
}

// NewTable creates a table with the given dimensions and unit spans.
func NewTable(rows, cols int) *Table {
	table := &Table{
		Rows:        make([][]Cell, rows),
		RowCount:    rows,
		ColumnCount: cols,
	}
	for i := 0; i < rows; i++ {
		table.Rows[i] = make([]Cell, cols)
		for j := 0; j < cols; j++ {
			table.Rows[i][j] = Cell{Row: i, Col: j, RowSpan: 1, ColSpan: 1}
		}
	}
	return table
}

// Cell returns the cell at the given row and column (0-indexed), or nil.
func (t *Table) Cell(row, col int) *Cell {
	if row < 0 || row >= len(t.Rows) {
		return nil
	}
	if col < 0 || col >= len(t.Rows[row]) {
		return nil
	}
	return &t.Rows[row][col]
}

// PlainText returns tab separated cells, one row per line.
func (t *Table) PlainText() string {
	var sb strings.Builder
	for i, row := range t.Rows {
		if i > 0 {
			sb.WriteString("\n")
		}
		for j, cell := range row {
			if j > 0 {
				sb.WriteString("\t")
			}
			sb.WriteString(cell.Text)
		}
	}
	return sb.String()
}

// ToMarkdown converts the table to markdown format
func (t *Table) ToMarkdown() string {
	if len(t.Rows) == 0 {
		return ""
	}

	var sb strings.Builder
	writeRow := func(row []Cell) {
		sb.WriteString("|")
		for _, cell := range row {
			sb.WriteString(" ")
			sb.WriteString(escapeCell(cell.Text))
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
	}

	writeRow(t.Rows[0])
	sb.WriteString("|")
	for range t.Rows[0] {
		sb.WriteString("---|")
	}
	sb.WriteString("\n")
	for i := 1; i < len(t.Rows); i++ {
		writeRow(t.Rows[i])
	}
	return sb.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

func (t *Table) clone() *Table {
	out := *t
	out.Rows = make([][]Cell, len(t.Rows))
	for i, row := range t.Rows {
		out.Rows[i] = append([]Cell(nil), row...)
	}
	return &out
}
