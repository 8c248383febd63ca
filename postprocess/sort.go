package postprocess

import (
	"sort"
	"time"

	"fireant/dataset"
	"fireant/frame"
	"fireant/planner"
)

// sortKeys maps requested orders onto frame columns or key levels.
func sortKeys(plan *planner.Plan) []frame.SortKey {
	var keys []frame.SortKey
	for _, o := range plan.Spec.Orders {
		name := dataset.MetricSelector(o.Metric)
		if f, ok := o.Metric.(*dataset.Field); ok {
			for _, l := range plan.Levels {
				if l.Field == f {
					name = l.Selector
					break
				}
			}
		}
		keys = append(keys, frame.SortKey{Name: name, Desc: o.Desc})
	}
	return keys
}

// simpleSort orders rows by keys. Rows totalled on the first level stay last.
func simpleSort(f *frame.Frame, keys []frame.SortKey) {
	f.SortBy(keys)
	if len(f.Index) == 0 {
		return
	}
	sort.SliceStable(f.Rows, func(i, j int) bool {
		return !frame.IsTotals(f.Rows[i].Key[0]) && frame.IsTotals(f.Rows[j].Key[0])
	})
}

// innerGroup is one combination of the inner key levels.
type innerGroup struct {
	key    string
	values []interface{}
	agg    []interface{}
	rank   int
}

// innerGroups returns the inner key combinations in global sort order:
// ordered by keys aggregated across outer groups, then null keys, then totals.
func innerGroups(f *frame.Frame, keys []frame.SortKey) []*innerGroup {
	var list []*innerGroup
	byKey := map[string]*innerGroup{}
	for i, r := range f.Rows {
		k := frame.KeyString(r.Key[1:])
		g, ok := byKey[k]
		if !ok {
			g = &innerGroup{key: k, values: r.Key[1:], agg: make([]interface{}, len(keys))}
			for _, v := range r.Key[1:] {
				switch {
				case frame.IsTotals(v):
					g.rank = 2
				case v == nil && g.rank == 0:
					g.rank = 1
				}
			}
			byKey[k] = g
			list = append(list, g)
		}
		for n, sk := range keys {
			g.agg[n] = aggregate(g.agg[n], f.Value(i, sk.Name))
		}
	}

	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		for n, sk := range keys {
			x, y := a.agg[n], b.agg[n]
			if (x == nil) != (y == nil) {
				return y == nil
			}
			c := frame.Compare(x, y)
			if c == 0 {
				continue
			}
			if sk.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return list
}

// aggregate folds v into acc: SUM for numbers, MAX for anything else.
func aggregate(acc, v interface{}) interface{} {
	if v == nil {
		return acc
	}
	if _, isTime := v.(time.Time); !isTime {
		if x, ok := frame.ToFloat(v); ok && !frame.IsTotals(v) {
			if y, ok := frame.ToFloat(acc); ok {
				return x + y
			}
			return x
		}
	}
	if acc == nil || frame.Compare(v, acc) > 0 {
		return v
	}
	return acc
}

// groupSort keeps the outer level in its current order and arranges each
// outer group by the global inner-group order.
func groupSort(f *frame.Frame, keys []frame.SortKey) {
	if len(f.Index) < 2 {
		simpleSort(f, keys)
		return
	}
	rank := map[string]int{}
	for i, g := range innerGroups(f, keys) {
		rank[g.key] = i
	}
	outer := map[string]int{}
	for _, r := range f.Rows {
		k := frame.KeyString(r.Key[:1])
		if _, ok := outer[k]; !ok {
			outer[k] = len(outer)
		}
	}
	sort.SliceStable(f.Rows, func(i, j int) bool {
		a, b := f.Rows[i].Key, f.Rows[j].Key
		oa, ob := outer[frame.KeyString(a[:1])], outer[frame.KeyString(b[:1])]
		if oa != ob {
			return oa < ob
		}
		return rank[frame.KeyString(a[1:])] < rank[frame.KeyString(b[1:])]
	})
}

// groupPaginate keeps, in every outer group, only the inner groups at
// positions [offset, offset+limit) of the global inner order. Totals inner
// groups are always kept.
func groupPaginate(f *frame.Frame, keys []frame.SortKey, limit, offset int) *frame.Frame {
	if len(f.Index) < 2 {
		return f.Slice(offset, limit)
	}
	keep := map[string]bool{}
	pos := 0
	for _, g := range innerGroups(f, keys) {
		if g.rank == 2 {
			keep[g.key] = true
			continue
		}
		if pos >= offset && (limit <= 0 || pos < offset+limit) {
			keep[g.key] = true
		}
		pos++
	}
	return f.Filter(func(_ int, r frame.Row) bool {
		return keep[frame.KeyString(r.Key[1:])]
	})
}
