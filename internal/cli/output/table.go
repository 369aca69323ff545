package output

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// TableRenderer is implemented by views that render as a table.
type TableRenderer interface {
	Headers() []string
	Rows() [][]string
}

// Summarizer is implemented by views that print "key: value" pairs above
// their table.
type Summarizer interface {
	Summary() [][2]string
}

// PrintTable writes r as a borderless, left-aligned table, preceded by its
// summary when r is also a Summarizer.
func PrintTable(w io.Writer, r TableRenderer) error {
	if s, ok := r.(Summarizer); ok {
		printPairs(w, s.Summary())
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}

	table := newTable(w, "")
	table.SetHeader(r.Headers())
	table.SetAutoFormatHeaders(true)
	table.AppendBulk(r.Rows())
	table.Render()
	return nil
}

func printPairs(w io.Writer, pairs [][2]string) {
	table := newTable(w, ":")
	table.SetAutoFormatHeaders(false)
	for _, pair := range pairs {
		table.Append(pair[:])
	}
	table.Render()
}

func newTable(w io.Writer, columnSep string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator(columnSep)
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	return table
}
