package planner

import (
	"fireant/dataset"
	"fireant/domain"
	"fireant/sqlexpr"
)

const maxRefDepth = 16

// resolve expands field references in f's definition. References must stay
// within f's own dataset; blended extra fields are expanded by the blend
// composer instead.
func resolve(root *dataset.DataSet, f *dataset.Field) (sqlexpr.Expr, error) {
	return resolveDepth(root, f, 0)
}

func resolveDepth(root *dataset.DataSet, f *dataset.Field, depth int) (sqlexpr.Expr, error) {
	if depth > maxRefDepth {
		return nil, domain.ErrPlan("field %q has a cyclic definition", f.Alias)
	}
	var firstErr error
	out := sqlexpr.Rewrite(f.Definition, func(e sqlexpr.Expr) (sqlexpr.Expr, bool) {
		ref, ok := e.(*sqlexpr.Ref)
		if !ok || firstErr != nil {
			return nil, false
		}
		target, err := root.ResolveRef(f.Owner(), ref)
		if err != nil {
			firstErr = err
			return e, true
		}
		if target.Owner() != f.Owner() {
			firstErr = domain.ErrPlan("field %q references %q of another dataset", f.Alias, target.Alias)
			return e, true
		}
		def, err := resolveDepth(root, target, depth+1)
		if err != nil {
			firstErr = err
			return e, true
		}
		return def, true
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// requiredJoins selects the joins of ds needed by exprs, iterating to a fixed
// point since join criteria can require further tables. Joins keep their
// declared order.
func requiredJoins(ds *dataset.DataSet, exprs ...sqlexpr.Expr) []sqlexpr.Join {
	base := sqlexpr.TableKey(ds.Table())
	needed := map[string]bool{}
	for _, e := range exprs {
		for _, t := range sqlexpr.Tables(e) {
			if key := sqlexpr.TableKey(t); key != base {
				needed[key] = true
			}
		}
	}

	joins := ds.Joins()
	included := make([]bool, len(joins))
	for changed := true; changed; {
		changed = false
		for i, j := range joins {
			if included[i] || !needed[sqlexpr.TableKey(j.Table)] {
				continue
			}
			included[i] = true
			changed = true
			for _, t := range sqlexpr.Tables(j.Criterion) {
				if key := sqlexpr.TableKey(t); key != base {
					needed[key] = true
				}
			}
		}
	}

	var out []sqlexpr.Join
	for i, j := range joins {
		if included[i] {
			out = append(out, sqlexpr.Join{Type: j.Type, Item: j.Table, On: j.Criterion})
		}
	}
	return out
}
