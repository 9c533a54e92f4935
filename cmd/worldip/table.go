package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// column describes one table column: its title and how its cells line up.
type column struct {
	title string
	align columnAlignment
}

func col(title string) column {
	return column{title: title}
}

func numCol(title string) column {
	return column{title: title, align: alignRight}
}

const missingCell = "-"

// renderTable draws rows under cols in the rounded style used by every list
// command. Titles keep their case. Short rows are padded with "-", and a
// table with no rows shows a single "(none)" line so the header is never
// left dangling.
func renderTable(cols []column, rows [][]string) string {
	if len(cols) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(cols))
	configs := make([]table.ColumnConfig, len(cols))
	for i, c := range cols {
		header[i] = c.title
		align := text.AlignLeft
		if c.align == alignRight {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	if len(rows) == 0 {
		tw.AppendRow(table.Row{"(none)"})
	}
	for _, row := range rows {
		r := make(table.Row, len(cols))
		for i := range cols {
			r[i] = missingCell
			if i < len(row) && row[i] != "" {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}
