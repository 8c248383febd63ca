package widget

import (
	"strings"

	"fireant/dataset"
	"fireant/frame"
	"fireant/planner"
)

// TableColumn describes one output column.
type TableColumn struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	Dimension bool   `json:"dimension,omitempty"`
}

// Cell is a raw value with its display form.
type Cell struct {
	Value   interface{} `json:"value"`
	Display string      `json:"display"`
	Link    string      `json:"link,omitempty"`
}

// TableResult is the Table widget output.
type TableResult struct {
	Columns []TableColumn `json:"columns"`
	Rows    [][]Cell      `json:"rows"`
}

// Table renders one row per frame row, one column per dimension and metric.
type Table struct {
	base
	// Pivot moves these dimensions from rows into columns.
	Pivot []*dataset.Field
	// Transpose swaps rows and columns after pivoting.
	Transpose bool
	// Hide omits columns by alias.
	Hide []string
}

// NewTable builds a Table widget.
func NewTable(metrics ...dataset.Metric) (*Table, error) {
	b, err := newBase("table", metrics)
	if err != nil {
		return nil, err
	}
	return &Table{base: b}, nil
}

func (*Table) Hints() Hints { return Hints{} }

func (w *Table) Transform(f *frame.Frame, ctx Context) (interface{}, error) {
	return w.table(f, ctx.Plan), nil
}

func (w *Table) table(f *frame.Frame, plan *planner.Plan) *TableResult {
	hidden := map[string]bool{}
	for _, h := range w.Hide {
		hidden[dataset.Selector(h)] = true
	}
	var rowLevels, pivotLevels []int
	for i, l := range plan.Levels {
		switch {
		case hidden[l.Selector]:
		case w.pivoted(l.Field):
			pivotLevels = append(pivotLevels, i)
		default:
			rowLevels = append(rowLevels, i)
		}
	}
	var metrics []column
	for _, c := range metricColumns(w.metrics, plan.Spec.References) {
		if !hidden[c.key] {
			metrics = append(metrics, c)
		}
	}

	var out *TableResult
	if len(pivotLevels) == 0 {
		out = flatTable(f, plan, rowLevels, metrics)
	} else {
		out = pivotTable(f, plan, rowLevels, pivotLevels, metrics)
	}
	if w.Transpose {
		out = transpose(out)
	}
	return out
}

func (w *Table) pivoted(f *dataset.Field) bool {
	for _, p := range w.Pivot {
		if p == f {
			return true
		}
	}
	return false
}

func dimensionColumns(plan *planner.Plan, levels []int) []TableColumn {
	out := make([]TableColumn, 0, len(levels))
	for _, l := range levels {
		lv := plan.Levels[l]
		out = append(out, TableColumn{Key: lv.Selector, Label: levelLabel(lv), Dimension: true})
	}
	return out
}

func dimensionCell(lv planner.Level, v interface{}, values map[string]interface{}) Cell {
	c := Cell{Value: v, Display: Display(lv.Field, v)}
	if lv.Field != nil {
		c.Link = Link(lv.Field.HyperlinkTemplate, values)
	}
	return c
}

func metricCell(c column, v interface{}, values map[string]interface{}) Cell {
	return Cell{Value: v, Display: Display(c.field, v), Link: Link(c.field.HyperlinkTemplate, values)}
}

func flatTable(f *frame.Frame, plan *planner.Plan, rowLevels []int, metrics []column) *TableResult {
	out := &TableResult{Columns: dimensionColumns(plan, rowLevels)}
	for _, c := range metrics {
		out.Columns = append(out.Columns, TableColumn{Key: c.key, Label: c.label})
	}
	out.Rows = make([][]Cell, 0, f.Len())
	for i, r := range f.Rows {
		values := rowValues(f, i)
		row := make([]Cell, 0, len(out.Columns))
		for _, l := range rowLevels {
			row = append(row, dimensionCell(plan.Levels[l], r.Key[l], values))
		}
		for _, c := range metrics {
			row = append(row, metricCell(c, f.Value(i, c.key), values))
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// pivotTable groups rows by the remaining levels and spreads each metric over
// the distinct pivot-level combinations, in order of first appearance.
func pivotTable(f *frame.Frame, plan *planner.Plan, rowLevels, pivotLevels []int, metrics []column) *TableResult {
	pick := func(key []interface{}, levels []int) []interface{} {
		out := make([]interface{}, len(levels))
		for i, l := range levels {
			out[i] = key[l]
		}
		return out
	}

	type rowGroup struct {
		key   []interface{}
		cells map[string]Cell
	}
	var rows []*rowGroup
	rowIndex := map[string]*rowGroup{}
	var pivots [][]interface{}
	pivotSeen := map[string]bool{}

	for i, r := range f.Rows {
		rk, pk := pick(r.Key, rowLevels), pick(r.Key, pivotLevels)
		g, ok := rowIndex[frame.KeyString(rk)]
		if !ok {
			g = &rowGroup{key: rk, cells: map[string]Cell{}}
			rowIndex[frame.KeyString(rk)] = g
			rows = append(rows, g)
		}
		pks := frame.KeyString(pk)
		if !pivotSeen[pks] {
			pivotSeen[pks] = true
			pivots = append(pivots, pk)
		}
		values := rowValues(f, i)
		for _, c := range metrics {
			g.cells[c.key+"\x00"+pks] = metricCell(c, f.Value(i, c.key), values)
		}
	}

	out := &TableResult{Columns: dimensionColumns(plan, rowLevels)}
	for _, c := range metrics {
		for _, pk := range pivots {
			labels := make([]string, len(pk))
			keys := make([]string, len(pk))
			for i, v := range pk {
				labels[i] = Display(plan.Levels[pivotLevels[i]].Field, v)
				keys[i] = Raw(v)
			}
			out.Columns = append(out.Columns, TableColumn{
				Key:   c.key + "/" + strings.Join(keys, "/"),
				Label: c.label + " (" + strings.Join(labels, ", ") + ")",
			})
		}
	}
	for _, g := range rows {
		row := make([]Cell, 0, len(out.Columns))
		for i, l := range rowLevels {
			row = append(row, dimensionCell(plan.Levels[l], g.key[i], nil))
		}
		for _, c := range metrics {
			for _, pk := range pivots {
				row = append(row, g.cells[c.key+"\x00"+frame.KeyString(pk)])
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// transpose turns every non-dimension column into a row labelled by the
// column, with one column per original row.
func transpose(t *TableResult) *TableResult {
	var dims []int
	for i, c := range t.Columns {
		if c.Dimension {
			dims = append(dims, i)
		}
	}
	out := &TableResult{Columns: []TableColumn{{Key: "metric", Label: "", Dimension: true}}}
	for r, row := range t.Rows {
		labels := make([]string, 0, len(dims))
		keys := make([]string, 0, len(dims))
		for _, d := range dims {
			labels = append(labels, row[d].Display)
			keys = append(keys, Raw(row[d].Value))
		}
		key := strings.Join(keys, "/")
		if key == "" {
			key = "row" + Raw(r)
		}
		out.Columns = append(out.Columns, TableColumn{Key: key, Label: strings.Join(labels, ", ")})
	}
	for i, c := range t.Columns {
		if c.Dimension {
			continue
		}
		row := []Cell{{Value: c.Key, Display: c.Label}}
		for _, orig := range t.Rows {
			row = append(row, orig[i])
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}
