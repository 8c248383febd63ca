package planner

import (
	"fireant/dataset"
	"fireant/domain"
	"fireant/frame"
	"fireant/sqlexpr"
)

// dimension is a selected grouping column after result-set rewriting.
type dimension struct {
	alias string
	kind  frame.Kind
	dim   dataset.Dimension
	set   *dataset.ResultSetFilter

	rollup   bool
	implicit bool
}

func (d dimension) selector() string { return dataset.Selector(d.alias) }

func (d dimension) field() *dataset.Field { return d.dim.Field }

func (d dimension) totals() bool { return d.rollup || d.implicit }

func kindOfDimension(d dataset.Dimension) frame.Kind {
	switch {
	case d.Interval != sqlexpr.UnitNone:
		return frame.KindDate
	case d.Bucket != nil:
		return frame.KindNumber
	}
	return KindOf(d.Field.DataType)
}

// planDimensions validates the selected dimensions and applies result-set
// filters and Share-implied rollups.
func planDimensions(spec Spec) ([]dimension, error) {
	ds := spec.DataSet
	dims := make([]dimension, 0, len(spec.Dimensions))
	seen := map[string]bool{}
	for _, d := range spec.Dimensions {
		if d.Field == nil {
			return nil, domain.ErrPlan("dimension without field")
		}
		if !ds.Owns(d.Field) {
			return nil, domain.ErrPlan("field %q is not part of dataset %q", d.Field.Alias, ds.Name())
		}
		if d.Field.Extra() {
			return nil, domain.ErrPlan("field %q can only be used as a metric", d.Field.Alias)
		}
		if d.Field.IsAggregate() {
			return nil, domain.ErrPlan("aggregate field %q cannot be used as a dimension", d.Field.Alias)
		}
		if d.Interval != sqlexpr.UnitNone && d.Field.DataType != dataset.Date {
			return nil, domain.ErrPlan("interval %s requires a date field, %q is %s", d.Interval, d.Field.Alias, d.Field.DataType)
		}
		if d.Bucket != nil && (d.Field.DataType != dataset.Number || d.Bucket.Size <= 0) {
			return nil, domain.ErrPlan("numeric interval on %q requires a number field and a positive size", d.Field.Alias)
		}
		if seen[d.Field.Alias] {
			return nil, domain.ErrPlan("dimension %q selected twice", d.Field.Alias)
		}
		seen[d.Field.Alias] = true
		dims = append(dims, dimension{
			alias:  d.Field.Alias,
			kind:   kindOfDimension(d),
			dim:    d,
			rollup: d.Rollup,
		})
	}

	for _, f := range spec.Filters {
		rs, ok := f.(*dataset.ResultSetFilter)
		if !ok {
			continue
		}
		setDim := dimension{
			alias: rs.Alias(),
			kind:  frame.KindText,
			dim:   dataset.Dimension{Field: rs.Field()},
			set:   rs,
		}
		pos := -1
		for i, d := range dims {
			if d.set == nil && d.field() == rs.Field() {
				pos = i
				break
			}
		}
		switch {
		case pos < 0 || !rs.ReplaceDimension:
			dims = append(dims, setDim)
		case rs.IgnoreDimensions:
			setDim.rollup = dims[pos].rollup
			dims[pos] = setDim
		default:
			dims = append(dims[:pos], append([]dimension{setDim}, dims[pos:]...)...)
		}
	}

	for _, op := range spec.Operations() {
		share, ok := op.(dataset.Share)
		if !ok || share.Over == nil {
			continue
		}
		pos := -1
		for i, d := range dims {
			if d.field() == share.Over {
				pos = i
				break
			}
		}
		if pos < 0 {
			return nil, domain.ErrPlan("share over %q requires %q to be selected as a dimension", share.Over.Alias, share.Over.Alias)
		}
		if !dims[pos].rollup {
			dims[pos].implicit = true
		}
	}
	return dims, nil
}

// rollupPositions lists the levels at which totals statements start.
func rollupPositions(dims []dimension) []int {
	var out []int
	for i, d := range dims {
		if d.totals() {
			out = append(out, i)
		}
	}
	return out
}

func levels(dims []dimension) []Level {
	out := make([]Level, len(dims))
	for i, d := range dims {
		out[i] = Level{
			Selector: d.selector(),
			Kind:     d.kind,
			Field:    d.field(),
			Rollup:   d.rollup,
			Totals:   d.totals(),
		}
	}
	return out
}
