// Package widget turns the post-processed frame into output formats: tables,
// CSV, HTML and chart series. Widgets declare the metrics they need; the query
// builder plans the union of every widget's metrics.
package widget

import (
	"fireant/dataset"
	"fireant/domain"
	"fireant/frame"
	"fireant/planner"
)

// Hints are widget preferences the post-processor honours.
type Hints struct {
	GroupSort     bool
	GroupPaginate bool
}

// Context is what a widget sees besides the frame.
type Context struct {
	Plan       *planner.Plan
	Annotation *frame.Frame
}

// Widget is an output transformer.
type Widget interface {
	Metrics() []dataset.Metric
	Hints() Hints
	Transform(f *frame.Frame, ctx Context) (interface{}, error)
}

// base carries the metric list shared by all widgets.
type base struct {
	metrics []dataset.Metric
}

func newBase(kind string, metrics []dataset.Metric) (base, error) {
	if len(metrics) == 0 {
		return base{}, domain.ErrMetricRequired("%s widget requires at least one metric", kind)
	}
	for _, m := range metrics {
		if m == nil {
			return base{}, domain.ErrMetricRequired("%s widget has a nil metric", kind)
		}
	}
	return base{metrics: append([]dataset.Metric{}, metrics...)}, nil
}

func (b base) Metrics() []dataset.Metric { return append([]dataset.Metric{}, b.metrics...) }

// column is one metric output column.
type column struct {
	key   string
	label string
	field *dataset.Field
}

// metricColumns lists each metric followed by its reference, delta and
// delta-percent columns.
func metricColumns(metrics []dataset.Metric, refs []dataset.Reference) []column {
	var out []column
	seen := map[string]bool{}
	add := func(c column) {
		if !seen[c.key] {
			seen[c.key] = true
			out = append(out, c)
		}
	}
	for _, m := range metrics {
		alias, label, field := m.MetricAlias(), m.MetricLabel(), m.MetricField()
		add(column{key: dataset.MetricSelector(m), label: label, field: field})
		for _, r := range refs {
			add(column{key: r.Column(alias), label: label + " " + r.Label, field: field})
			if r.Delta {
				add(column{key: r.DeltaColumn(alias), label: label + " " + r.Label + " Δ", field: field})
			}
			if r.DeltaPercent {
				add(column{key: r.DeltaPercentColumn(alias), label: label + " " + r.Label + " Δ%", field: percentField(field)})
			}
		}
	}
	return out
}

func percentField(f *dataset.Field) *dataset.Field {
	precision := 2
	return &dataset.Field{
		Alias:    f.Alias,
		Label:    f.Label,
		DataType: dataset.Number,
		Format:   dataset.Format{Precision: &precision, Suffix: "%"},
	}
}

// levelLabel is the display label of an index level.
func levelLabel(l planner.Level) string {
	if l.Field == nil {
		return l.Selector
	}
	return l.Field.Label
}

// rowValues maps aliases to the values of row i for hyperlink templates.
func rowValues(f *frame.Frame, i int) map[string]interface{} {
	values := make(map[string]interface{}, len(f.Index)+len(f.Columns))
	for l, name := range f.Index {
		values[name[1:]] = f.Rows[i].Key[l]
	}
	for c, name := range f.Columns {
		values[name[1:]] = f.Rows[i].Values[c]
	}
	return values
}

// FrameWidget returns the frame restricted to its metric columns.
type FrameWidget struct {
	base
}

// NewFrame builds a FrameWidget.
func NewFrame(metrics ...dataset.Metric) (*FrameWidget, error) {
	b, err := newBase("frame", metrics)
	if err != nil {
		return nil, err
	}
	return &FrameWidget{base: b}, nil
}

func (*FrameWidget) Hints() Hints { return Hints{} }

// Transform drops the columns other widgets asked for.
func (w *FrameWidget) Transform(f *frame.Frame, ctx Context) (interface{}, error) {
	keep := map[string]bool{}
	for _, c := range metricColumns(w.metrics, ctx.Plan.Spec.References) {
		keep[c.key] = true
	}
	out := f.Clone()
	var drop []string
	for _, c := range out.Columns {
		if !keep[c] {
			drop = append(drop, c)
		}
	}
	out.DropColumns(drop...)
	return out, nil
}
