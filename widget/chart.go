package widget

import (
	"strings"

	"fireant/dataset"
	"fireant/frame"
	"fireant/planner"
)

// Point is one chart value.
type Point struct {
	X interface{} `json:"x"`
	Y interface{} `json:"y"`
}

// Series is one line or bar group of a chart.
type Series struct {
	Key    string  `json:"key"`
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// ChartAnnotation marks an x position with a label.
type ChartAnnotation struct {
	X     interface{} `json:"x"`
	Label string      `json:"label"`
}

// ChartResult is the Chart widget output.
type ChartResult struct {
	XAxis       string            `json:"x_axis"`
	Series      []Series          `json:"series"`
	Annotations []ChartAnnotation `json:"annotations,omitempty"`
}

// Chart plots the first dimension on the x axis and splits each metric into
// one series per combination of the remaining dimensions. Layout is left to
// the consumer.
type Chart struct {
	base
}

// NewChart builds a Chart widget.
func NewChart(metrics ...dataset.Metric) (*Chart, error) {
	b, err := newBase("chart", metrics)
	if err != nil {
		return nil, err
	}
	return &Chart{base: b}, nil
}

// Hints requests group-aware ordering so pagination bounds the series count.
func (*Chart) Hints() Hints { return Hints{GroupSort: true, GroupPaginate: true} }

func (w *Chart) Transform(f *frame.Frame, ctx Context) (interface{}, error) {
	plan := ctx.Plan
	out := &ChartResult{Series: []Series{}}
	var innerLevels []planner.Level
	if len(plan.Levels) > 0 {
		out.XAxis = levelLabel(plan.Levels[0])
		innerLevels = plan.Levels[1:]
	}

	for _, c := range metricColumns(w.metrics, plan.Spec.References) {
		index := map[string]int{}
		for i, r := range f.Rows {
			var x interface{}
			if len(r.Key) > 0 {
				if frame.IsTotals(r.Key[0]) {
					continue
				}
				x = r.Key[0]
			}
			var inner []interface{}
			if len(r.Key) > 1 {
				inner = r.Key[1:]
			}
			k := frame.KeyString(inner)
			s, ok := index[k]
			if !ok {
				s = len(out.Series)
				index[k] = s
				out.Series = append(out.Series, Series{
					Key:  c.key + "/" + k,
					Name: seriesName(c.label, innerLevels, inner),
				})
			}
			out.Series[s].Points = append(out.Series[s].Points, Point{X: x, Y: f.Value(i, c.key)})
		}
	}

	if a := ctx.Annotation; a != nil && len(a.Columns) > 0 {
		for _, r := range a.Rows {
			out.Annotations = append(out.Annotations, ChartAnnotation{X: r.Key[0], Label: Raw(r.Values[0])})
		}
	}
	return out, nil
}

func seriesName(metric string, levels []planner.Level, values []interface{}) string {
	if len(values) == 0 {
		return metric
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = Display(levels[i].Field, v)
	}
	return metric + " (" + strings.Join(parts, ", ") + ")"
}
