package planner

import (
	"fmt"

	"fireant/dataset"
	"fireant/domain"
	"fireant/sqlexpr"
)

// blendSelect wraps one grouped subquery per touched dataset and joins them
// on the selected dimensions they share. The primary is always sq0.
func (p *planner) blendSelect(v variant, pushdown bool) (*sqlexpr.Select, error) {
	leaves := p.ds.Leaves()
	touched := map[*dataset.DataSet]bool{leaves[0]: true}
	need := map[*dataset.DataSet][]*dataset.Field{}
	sqTables := map[*dataset.DataSet]*sqlexpr.Table{}

	sqTable := func(leaf *dataset.DataSet) *sqlexpr.Table {
		t, ok := sqTables[leaf]
		if !ok {
			t = &sqlexpr.Table{}
			sqTables[leaf] = t
		}
		return t
	}

	// outer builds the outer-query expression of a field, registering the
	// leaf fields it needs.
	var outer func(f *dataset.Field, depth int) (sqlexpr.Expr, error)
	outer = func(f *dataset.Field, depth int) (sqlexpr.Expr, error) {
		if depth > maxRefDepth {
			return nil, domain.ErrPlan("field %q has a cyclic definition", f.Alias)
		}
		owner := f.Owner()
		if !owner.IsBlended() {
			touched[owner] = true
			if !containsField(need[owner], f) {
				need[owner] = append(need[owner], f)
			}
			return sqlexpr.Col(sqTable(owner), v.metricSelector(f.Alias)), nil
		}
		var firstErr error
		e := sqlexpr.Rewrite(f.Definition, func(e sqlexpr.Expr) (sqlexpr.Expr, bool) {
			ref, ok := e.(*sqlexpr.Ref)
			if !ok || firstErr != nil {
				return nil, false
			}
			target, err := p.ds.ResolveRef(owner, ref)
			if err == nil {
				var sub sqlexpr.Expr
				if sub, err = outer(target, depth+1); err == nil {
					return sub, true
				}
			}
			firstErr = err
			return e, true
		})
		return e, firstErr
	}

	metricExprs := make([]sqlexpr.Expr, len(p.fields))
	for i, f := range p.fields {
		e, err := outer(f, 0)
		if err != nil {
			return nil, err
		}
		metricExprs[i] = e
	}

	var outerWhere []sqlexpr.Expr
	filters := p.activeFilters(v)
	for _, flt := range filters {
		pred := predicateOf(flt)
		if pred == nil || !pred.Field.Owner().IsBlended() {
			continue
		}
		e, err := outer(pred.Field, 0)
		if err != nil {
			return nil, err
		}
		outerWhere = append(outerWhere, pred.Expr(e))
	}

	for _, d := range p.dims {
		owner := d.field().Owner()
		if owner.IsBlended() {
			return nil, domain.ErrPlan("blended field %q cannot be used as a dimension", d.alias)
		}
		found := false
		for _, leaf := range leaves {
			if touched[leaf] && p.ds.MappedField(d.field(), leaf) != nil {
				found = true
				break
			}
		}
		if !found {
			touched[owner] = true
		}
	}

	// A filter on a dataset nothing else touches still has to restrict the
	// result: its subquery is added and joined with INNER JOIN.
	restricting := map[*dataset.DataSet]bool{}
	for _, flt := range filters {
		pred := predicateOf(flt)
		if pred == nil || pred.Field.Owner().IsBlended() {
			continue
		}
		applied := false
		for _, leaf := range leaves {
			if touched[leaf] && p.filterApplies(flt, leaf) {
				applied = true
				break
			}
		}
		if applied {
			continue
		}
		owner := pred.Field.Owner()
		touched[owner] = true
		restricting[owner] = true
		if _, ok := flt.(*dataset.AggregateFilter); ok && !containsField(need[owner], pred.Field) {
			need[owner] = append(need[owner], pred.Field)
		}
	}

	var order []*dataset.DataSet
	for _, leaf := range leaves {
		if touched[leaf] {
			sqTable(leaf).Name = fmt.Sprintf("sq%d", len(order))
			order = append(order, leaf)
		}
	}

	// home is the first subquery projecting each dimension.
	home := make([]*dataset.DataSet, len(p.dims))
	stmt := &sqlexpr.Select{}
	for k, leaf := range order {
		ls := leafSpec{leaf: leaf, fields: need[leaf]}
		var on []sqlexpr.Expr
		for pos, d := range p.dims {
			if p.ds.MappedField(d.field(), leaf) == nil {
				continue
			}
			ls.dims = append(ls.dims, pos)
			if home[pos] == nil {
				home[pos] = leaf
				continue
			}
			on = append(on, sqlexpr.Eq(
				sqlexpr.Col(sqTable(leaf), d.selector()),
				sqlexpr.Col(sqTable(home[pos]), d.selector()),
			))
		}
		for _, flt := range filters {
			if p.filterApplies(flt, leaf) {
				ls.filters = append(ls.filters, flt)
			}
		}

		if restricting[leaf] && len(ls.dims) == 0 && len(ls.fields) == 0 {
			return nil, domain.ErrPlan("filters on dataset %q cannot restrict the blend: it shares no selected dimension with it", leaf.Name())
		}

		sub, err := p.leafSelect(ls, v)
		if err != nil {
			return nil, err
		}
		item := &sqlexpr.Subquery{Select: sub, Alias: sqTable(leaf).Name}
		join := sqlexpr.JoinLeft
		if restricting[leaf] {
			join = sqlexpr.JoinInner
		}
		switch {
		case k == 0:
			stmt.From = item
		case len(on) == 0:
			stmt.Joins = append(stmt.Joins, sqlexpr.Join{Type: sqlexpr.JoinCross, Item: item})
		default:
			stmt.Joins = append(stmt.Joins, sqlexpr.Join{Type: join, Item: item, On: sqlexpr.AndOf(on...)})
		}
	}

	for pos, d := range p.dims {
		stmt.Columns = append(stmt.Columns, sqlexpr.SelectItem{
			Expr:  sqlexpr.Col(sqTable(home[pos]), d.selector()),
			Alias: d.selector(),
		})
	}
	for i, f := range p.fields {
		stmt.Columns = append(stmt.Columns, sqlexpr.SelectItem{Expr: metricExprs[i], Alias: v.metricSelector(f.Alias)})
	}
	stmt.Where = sqlexpr.AndOf(outerWhere...)
	p.finish(stmt, v, pushdown)
	return stmt, nil
}

// filterApplies reports whether a leaf subquery evaluates flt. Dimension
// filters apply wherever their field is mapped; aggregate filters only in
// the owning dataset.
func (p *planner) filterApplies(flt dataset.Filter, leaf *dataset.DataSet) bool {
	switch x := flt.(type) {
	case *dataset.DimensionFilter:
		return !x.Field.Owner().IsBlended() && p.ds.MappedField(x.Field, leaf) != nil
	case *dataset.AggregateFilter:
		return x.Field.Owner() == leaf
	}
	return false
}

func predicateOf(f dataset.Filter) *dataset.Predicate {
	switch x := f.(type) {
	case *dataset.DimensionFilter:
		return &x.Predicate
	case *dataset.AggregateFilter:
		return &x.Predicate
	}
	return nil
}

func containsField(fields []*dataset.Field, f *dataset.Field) bool {
	for _, g := range fields {
		if g == f {
			return true
		}
	}
	return false
}
