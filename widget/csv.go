package widget

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"fireant/dataset"
	"fireant/frame"
)

// CSV renders the table layout as CSV text with labelled headers and raw,
// undecorated values.
type CSV struct {
	Table
}

// NewCSV builds a CSV widget.
func NewCSV(metrics ...dataset.Metric) (*CSV, error) {
	b, err := newBase("csv", metrics)
	if err != nil {
		return nil, err
	}
	return &CSV{Table: Table{base: b}}, nil
}

func (w *CSV) Transform(f *frame.Frame, ctx Context) (interface{}, error) {
	t := w.table(f, ctx.Plan)

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	header := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Label
	}
	if err := cw.Write(header); err != nil {
		return nil, err
	}
	for _, row := range t.Rows {
		record := make([]string, len(row))
		for i, c := range row {
			record[i] = Raw(c.Value)
		}
		if err := cw.Write(record); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return buf.String(), nil
}
