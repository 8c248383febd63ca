package postprocess

import (
	"fireant/dataset"
	"fireant/frame"
)

// addDeltas computes the delta and delta-percent columns of metric for every
// reference that requests them.
func addDeltas(f *frame.Frame, refs []dataset.Reference, metric string) {
	current := f.Column(dataset.Selector(metric))
	for _, r := range refs {
		if !r.Delta && !r.DeltaPercent {
			continue
		}
		previous := f.Column(r.Column(metric))
		if current == nil || previous == nil {
			continue
		}
		if r.Delta {
			f.SetColumn(r.DeltaColumn(metric), combine(current, previous, delta))
		}
		if r.DeltaPercent {
			f.SetColumn(r.DeltaPercentColumn(metric), combine(current, previous, deltaPercent))
		}
	}
}

func combine(a, b []interface{}, fn func(x, y float64) interface{}) []interface{} {
	out := make([]interface{}, len(a))
	for i := range a {
		x, okx := frame.ToFloat(a[i])
		y, oky := frame.ToFloat(b[i])
		if okx && oky {
			out[i] = fn(x, y)
		}
	}
	return out
}

func delta(cur, ref float64) interface{} { return cur - ref }

func deltaPercent(cur, ref float64) interface{} {
	if ref == 0 {
		return nil
	}
	return 100 * (cur - ref) / ref
}

// applyReferenceFilters drops rows failing any reference filter.
func applyReferenceFilters(f *frame.Frame, refs []dataset.Reference) *frame.Frame {
	type check struct {
		column string
		filter dataset.ReferenceFilter
	}
	var checks []check
	for _, r := range refs {
		for _, rf := range r.Filters {
			checks = append(checks, check{column: r.FilterColumn(rf.Metric.Alias), filter: rf})
		}
	}
	if len(checks) == 0 {
		return f
	}
	return f.Filter(func(i int, _ frame.Row) bool {
		for _, c := range checks {
			if !c.filter.Match(f.Value(i, c.column)) {
				return false
			}
		}
		return true
	})
}
