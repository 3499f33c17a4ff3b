package output

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/vegasq/colframe/frame"
)

// TableOptions configures text table rendering
type TableOptions struct {
	// MaxRows limits the rendered rows; the rest are summarized in the
	// footer. Zero renders every row.
	MaxRows int
}

// TableWriter renders a frame as an aligned text table for terminals.
// Headers show the column name and dtype; nulls print as "null".
type TableWriter struct {
	opts TableOptions
}

// NewTableWriter returns a table writer
func NewTableWriter(opts TableOptions) *TableWriter {
	return &TableWriter{opts: opts}
}

// Write renders df to w
func (t *TableWriter) Write(df *frame.DataFrame, w io.Writer) error {
	tw := tablewriter.NewWriter(w)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)

	header := make([]string, df.Width())
	for i, f := range df.Schema() {
		header[i] = fmt.Sprintf("%s (%s)", f.Name, f.DType)
	}
	tw.SetHeader(header)

	shown := df
	if t.opts.MaxRows > 0 && df.Height() > t.opts.MaxRows {
		shown = df.Head(t.opts.MaxRows)
	}
	values := columnValues(shown)
	dtypes := shown.DTypes()
	record := make([]string, len(values))
	for row := 0; row < shown.Height(); row++ {
		for i, col := range values {
			record[i] = tableCell(col[row], dtypes[i])
		}
		tw.Append(record)
	}
	if df.Width() > 0 {
		footer := make([]string, df.Width())
		footer[0] = fmt.Sprintf("%d rows", df.Height())
		if shown.Height() < df.Height() {
			footer[0] = fmt.Sprintf("%d of %d rows", shown.Height(), df.Height())
		}
		tw.SetFooter(footer)
	}
	tw.Render()
	return nil
}

func tableCell(v interface{}, dtype frame.DType) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case float64:
		return formatFloat(x, dtype)
	case string:
		return x
	}
	return fmt.Sprint(v)
}
