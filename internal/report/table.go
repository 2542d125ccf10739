// Package report renders ledger contents for the command line: terminal
// tables, XLSX workbooks and YAML batch files.
package report

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"fintrack/internal/core"
)

// WriteTable prints transactions in file order followed by a total row.
func WriteTable(w io.Writer, items []core.Transaction) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Date", "Category", "Description", "Amount"})

	for i, tx := range items {
		t.AppendRow(table.Row{i + 1, tx.Date, tx.Category, tx.Description, core.FormatAmount(tx.Amount)})
	}

	sum := core.Summarize(items)
	t.AppendSeparator()
	t.AppendFooter(table.Row{"", "", "", text.Bold.Sprint("Total"), text.Bold.Sprint(core.FormatAmount(sum.Total))})

	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})

	t.Render()
}

// WriteSummary prints per-category totals in first-seen order.
func WriteSummary(w io.Writer, items []core.Transaction) {
	sum := core.Summarize(items)
	if sum.Count == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Category", "Amount"})
	for _, c := range sum.ByCategory {
		name := c.Name
		if name == "" {
			name = text.FgHiBlack.Sprint("(none)")
		}
		t.AppendRow(table.Row{name, core.FormatAmount(c.Amount)})
	}
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	t.Render()
}
