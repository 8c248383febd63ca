package postprocess

import (
	"fireant/dataset"
	"fireant/frame"
	"fireant/planner"
)

// applyOperation adds the operation's column for the current values and for
// each reference, then refreshes the reference deltas of the new column.
func applyOperation(f *frame.Frame, plan *planner.Plan, op dataset.Operation, refs []dataset.Reference) {
	arg, alias := op.Arg().Alias, op.MetricAlias()
	f.SetColumn(dataset.Selector(alias), compute(f, plan, op, dataset.Selector(arg)))
	for _, r := range refs {
		f.SetColumn(r.Column(alias), compute(f, plan, op, r.Column(arg)))
	}
	addDeltas(f, refs, alias)
}

func compute(f *frame.Frame, plan *planner.Plan, op dataset.Operation, column string) []interface{} {
	values := f.Column(column)
	if values == nil {
		values = make([]interface{}, f.Len())
	}
	switch x := op.(type) {
	case dataset.CumSum:
		return cumulative(f, values, func(acc []float64) interface{} { return sum(acc) })
	case dataset.CumMean:
		return cumulative(f, values, func(acc []float64) interface{} { return sum(acc) / float64(len(acc)) })
	case dataset.CumProd:
		return cumulative(f, values, func(acc []float64) interface{} {
			p := 1.0
			for _, v := range acc {
				p *= v
			}
			return p
		})
	case dataset.RollingMean:
		return rolling(f, values, x.Window)
	case dataset.Share:
		return share(f, plan, values, x.Over)
	}
	return make([]interface{}, f.Len())
}

// groups partitions row positions by every key level but the first, keeping
// frame order within each group. Rows totalled on the first level are left
// out; operations yield nil for them.
func groups(f *frame.Frame) [][]int {
	var order []string
	members := map[string][]int{}
	for i, r := range f.Rows {
		if len(r.Key) > 0 && frame.IsTotals(r.Key[0]) {
			continue
		}
		var k string
		if len(r.Key) > 1 {
			k = frame.KeyString(r.Key[1:])
		}
		if _, ok := members[k]; !ok {
			order = append(order, k)
		}
		members[k] = append(members[k], i)
	}
	out := make([][]int, len(order))
	for i, k := range order {
		out[i] = members[k]
	}
	return out
}

// cumulative folds the non-null values seen so far in each group. Null
// inputs produce null outputs without resetting the running state.
func cumulative(f *frame.Frame, values []interface{}, fold func(acc []float64) interface{}) []interface{} {
	out := make([]interface{}, f.Len())
	for _, g := range groups(f) {
		var acc []float64
		for _, i := range g {
			v, ok := frame.ToFloat(values[i])
			if !ok {
				continue
			}
			acc = append(acc, v)
			out[i] = fold(acc)
		}
	}
	return out
}

func rolling(f *frame.Frame, values []interface{}, window int) []interface{} {
	out := make([]interface{}, f.Len())
	if window < 1 {
		return out
	}
	for _, g := range groups(f) {
		for pos, i := range g {
			if pos+1 < window {
				continue
			}
			total, complete := 0.0, true
			for _, j := range g[pos+1-window : pos+1] {
				v, ok := frame.ToFloat(values[j])
				if !ok {
					complete = false
					break
				}
				total += v
			}
			if complete {
				out[i] = total / float64(window)
			}
		}
	}
	return out
}

// share divides each value by the value of the row that totals the over
// dimension within the same outer group.
func share(f *frame.Frame, plan *planner.Plan, values []interface{}, over *dataset.Field) []interface{} {
	out := make([]interface{}, f.Len())
	level := -1
	if over != nil {
		for i, l := range plan.Levels {
			if l.Field == over {
				level = i
				break
			}
		}
	}
	if level < 0 {
		for i := range out {
			out[i] = 100.0
		}
		return out
	}

	totals := map[string]int{}
	for i, r := range f.Rows {
		if isTotalsFrom(r.Key, level) {
			totals[frame.KeyString(r.Key[:level])] = i
		}
	}
	for i, r := range f.Rows {
		num, ok := frame.ToFloat(values[i])
		if !ok {
			continue
		}
		if num == 0 {
			out[i] = 0.0
			continue
		}
		j, ok := totals[frame.KeyString(r.Key[:level])]
		if !ok {
			continue
		}
		den, ok := frame.ToFloat(values[j])
		if !ok || den == 0 {
			continue
		}
		out[i] = 100 * num / den
	}
	return out
}

// isTotalsFrom reports whether key levels from..n-1 all hold totals markers.
func isTotalsFrom(key []interface{}, from int) bool {
	for _, v := range key[from:] {
		if !frame.IsTotals(v) {
			return false
		}
	}
	return from < len(key)
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
