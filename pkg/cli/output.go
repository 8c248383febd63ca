package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"

	"fireant/widget"
)

// Output formats. Auto renders tables on a terminal and JSON otherwise.
const (
	outputAuto  = "auto"
	outputTable = "table"
	outputJSON  = "json"
)

func validateOutputFormat(output string) error {
	switch output {
	case "", outputAuto, outputTable, outputJSON:
		return nil
	}
	return fmt.Errorf("unsupported output format %q: use 'auto', 'table' or 'json'", output)
}

// effectiveFormat resolves auto against w.
func effectiveFormat(output string, w io.Writer) string {
	if output != "" && output != outputAuto {
		return output
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return outputTable
	}
	return outputJSON
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var headerStyle = color.New(color.Bold, color.FgCyan)

// printTable renders rows under headers. Header colour is dropped
// automatically when stdout is not a terminal.
func printTable(w io.Writer, headers []string, rows [][]string) {
	styled := make([]string, len(headers))
	for i, h := range headers {
		styled[i] = headerStyle.Sprint(h)
	}
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(styled)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetBorder(false)
	tw.AppendBulk(rows)
	tw.Render()
}

// printWidget renders one widget result in table form. Text results (CSV,
// HTML) are written as is; anything else falls back to JSON.
func printWidget(w io.Writer, result interface{}) error {
	switch r := result.(type) {
	case *widget.TableResult:
		headers := make([]string, len(r.Columns))
		for i, c := range r.Columns {
			headers[i] = c.Label
		}
		rows := make([][]string, len(r.Rows))
		for i, row := range r.Rows {
			rows[i] = make([]string, len(row))
			for j, cell := range row {
				rows[i][j] = cell.Display
			}
		}
		printTable(w, headers, rows)
		_, err := fmt.Fprintf(w, "(%d rows)\n", len(r.Rows))
		return err
	case string:
		_, err := io.WriteString(w, r)
		return err
	default:
		return printJSON(w, r)
	}
}
