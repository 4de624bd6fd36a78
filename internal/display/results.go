package display

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Align is a column alignment for RenderTable.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// RenderTable renders headers and rows as a rounded table. Headers keep
// their case. Short rows are padded with empty cells; columns without an
// entry in aligns are left-aligned.
func RenderTable(headers []string, rows [][]string, aligns []Align) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == AlignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			WidthMax:    60,
		})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

// ResultRow is one line of the batch results table.
type ResultRow struct {
	Input    string
	Output   string
	Status   string
	Duration float64
	Size     int64
	Detail   string
}

// RenderResults renders the batch results. Length and size are blank for
// rows without an output.
func RenderResults(rows []ResultRow) string {
	if len(rows) == 0 {
		return ""
	}
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		length, size := "", ""
		if r.Output != "" {
			length = FormatDuration(r.Duration)
			if r.Size > 0 {
				size = FormatBytes(r.Size)
			}
		}
		cells = append(cells, []string{r.Input, r.Output, r.Status, length, size, r.Detail})
	}
	return RenderTable(
		[]string{"Input", "Output", "Status", "Length", "Size", "Detail"},
		cells,
		[]Align{AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignRight},
	)
}
