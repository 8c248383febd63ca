// Package query is the entry point for building and running queries against a
// dataset. Builders are immutable: every chain method returns a new Builder
// and leaves the receiver untouched, so partially built queries can be shared.
package query

import (
	"fireant/dataset"
	"fireant/domain"
	"fireant/planner"
	"fireant/widget"
)

// Orientation is a sort direction.
type Orientation bool

const (
	Asc  Orientation = false
	Desc Orientation = true
)

// Builder assembles a data query.
type Builder struct {
	ds         *dataset.DataSet
	widgets    []widget.Widget
	dimensions []dataset.Dimension
	filters    []dataset.Filter
	references []dataset.Reference
	orders     []planner.Order
	limit      int
	offset     int
}

// New starts a query on ds.
func New(ds *dataset.DataSet) *Builder {
	return &Builder{ds: ds}
}

func (b *Builder) clone() *Builder {
	c := *b
	c.widgets = append([]widget.Widget{}, b.widgets...)
	c.dimensions = append([]dataset.Dimension{}, b.dimensions...)
	c.filters = append([]dataset.Filter{}, b.filters...)
	c.references = append([]dataset.Reference{}, b.references...)
	c.orders = append([]planner.Order{}, b.orders...)
	return &c
}

// Widget adds output widgets. Each contributes its metrics to the query.
func (b *Builder) Widget(ws ...widget.Widget) *Builder {
	c := b.clone()
	c.widgets = append(c.widgets, ws...)
	return c
}

// Dimension appends dimensions; their order is the result's index order.
func (b *Builder) Dimension(ds ...dataset.Dimension) *Builder {
	c := b.clone()
	c.dimensions = append(c.dimensions, ds...)
	return c
}

// Filter adds filters. Invalid filters are reported by the terminal call.
func (b *Builder) Filter(fs ...dataset.Filter) *Builder {
	c := b.clone()
	c.filters = append(c.filters, fs...)
	return c
}

// Reference attaches time-shift comparisons.
func (b *Builder) Reference(rs ...dataset.Reference) *Builder {
	c := b.clone()
	c.references = append(c.references, rs...)
	return c
}

// OrderBy adds a sort key. m may be a field or an operation.
func (b *Builder) OrderBy(m dataset.Metric, o Orientation) *Builder {
	c := b.clone()
	c.orders = append(c.orders, planner.Order{Metric: m, Desc: bool(o)})
	return c
}

// Limit caps the number of returned rows (groups under group pagination).
func (b *Builder) Limit(n int) *Builder {
	c := b.clone()
	c.limit = n
	return c
}

// Offset skips rows (groups under group pagination).
func (b *Builder) Offset(n int) *Builder {
	c := b.clone()
	c.offset = n
	return c
}

// Spec assembles the planner input: the union of every widget's metrics in
// declaration order, with the widgets' sorting hints combined.
func (b *Builder) Spec() (planner.Spec, error) {
	if len(b.widgets) == 0 {
		return planner.Spec{}, domain.ErrMetricRequired("query requires at least one widget")
	}
	spec := planner.Spec{
		DataSet:    b.ds,
		Dimensions: b.dimensions,
		Filters:    b.filters,
		References: b.references,
		Orders:     b.orders,
		Limit:      b.limit,
		Offset:     b.offset,
	}
	seen := map[string]bool{}
	for _, w := range b.widgets {
		if w == nil {
			return planner.Spec{}, domain.ErrMetricRequired("query has a nil widget")
		}
		for _, m := range w.Metrics() {
			if key := dataset.MetricSelector(m); !seen[key] {
				seen[key] = true
				spec.Metrics = append(spec.Metrics, m)
			}
		}
		h := w.Hints()
		spec.GroupSort = spec.GroupSort || h.GroupSort
		spec.GroupPaginate = spec.GroupPaginate || h.GroupPaginate
	}
	return spec, nil
}

// Plan runs the planner without executing anything.
func (b *Builder) Plan() (*planner.Plan, error) {
	return b.plan("")
}

func (b *Builder) plan(hint string) (*planner.Plan, error) {
	spec, err := b.Spec()
	if err != nil {
		return nil, err
	}
	spec.Hint = hint
	return planner.Build(spec)
}

// SQL returns the planned statements in execution order.
func (b *Builder) SQL() ([]string, error) {
	p, err := b.Plan()
	if err != nil {
		return nil, err
	}
	return p.SQL(), nil
}
