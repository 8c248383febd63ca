package planner

import (
	"fireant/dataset"
	"fireant/frame"
	"fireant/sqlexpr"
)

// variant identifies one fan-out statement: an optional reference shift and
// an optional rollup level.
type variant struct {
	refs       []dataset.Reference
	rollupFrom int
}

func (v variant) ref() *dataset.Reference {
	if len(v.refs) == 0 {
		return nil
	}
	return &v.refs[0]
}

// metricSelector names a metric column in this variant: $votes or $votes_dod.
func (v variant) metricSelector(alias string) string {
	if r := v.ref(); r != nil {
		return r.Column(alias)
	}
	return dataset.Selector(alias)
}

// rolled reports whether level pos is replaced by the totals sentinel.
func (v variant) rolled(pos int) bool {
	return v.rollupFrom >= 0 && pos >= v.rollupFrom
}

// leafSpec selects what one non-blended dataset contributes to a statement.
type leafSpec struct {
	leaf    *dataset.DataSet
	dims    []int
	fields  []*dataset.Field
	filters []dataset.Filter
}

// leafSelect builds the grouped SELECT of a single dataset without ORDER BY
// or LIMIT.
func (p *planner) leafSelect(ls leafSpec, v variant) (*sqlexpr.Select, error) {
	stmt := &sqlexpr.Select{From: ls.leaf.Table()}
	var exprs []sqlexpr.Expr

	var shiftField *dataset.Field
	leap := false
	if r := v.ref(); r != nil {
		shiftField = p.ds.MappedField(r.Field, ls.leaf)
		leap = r.Unit == sqlexpr.UnitYear && p.weekly(r.Field)
	}
	shift := func(g *dataset.Field, def sqlexpr.Expr) sqlexpr.Expr {
		if shiftField == nil || g != shiftField {
			return def
		}
		r := v.ref()
		shifted := &sqlexpr.DateAdd{Expr: def, Unit: r.Unit, Interval: r.Interval}
		if !leap {
			return shifted
		}
		// A year shift of a week start rarely lands on a week start; truncate
		// in the shifted year and step back so week buckets stay aligned.
		return &sqlexpr.DateAdd{
			Expr:     &sqlexpr.DateTrunc{Expr: shifted, Unit: sqlexpr.UnitWeek},
			Unit:     sqlexpr.UnitYear,
			Interval: -r.Interval,
		}
	}

	for _, pos := range ls.dims {
		d := p.dims[pos]
		if v.rolled(pos) {
			stmt.Columns = append(stmt.Columns, sqlexpr.SelectItem{Expr: sqlexpr.Lit(frame.RollupSentinel), Alias: d.selector()})
			continue
		}
		g := p.ds.MappedField(d.field(), ls.leaf)
		def, err := resolve(p.ds, g)
		if err != nil {
			return nil, err
		}
		def = shift(g, def)

		var e sqlexpr.Expr
		switch {
		case d.set != nil:
			e = setExpr(d.set, def)
		case leap && g == shiftField:
			e = def
		default:
			e = d.dim.Expr(def)
		}
		exprs = append(exprs, e)
		stmt.Columns = append(stmt.Columns, sqlexpr.SelectItem{Expr: e, Alias: d.selector()})
		stmt.GroupBy = append(stmt.GroupBy, &sqlexpr.AliasRef{Name: d.selector()})
	}

	for _, f := range ls.fields {
		def, err := resolve(p.ds, f)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, def)
		sel := v.metricSelector(f.Alias)
		stmt.Columns = append(stmt.Columns, sqlexpr.SelectItem{Expr: def, Alias: sel})
		if !sqlexpr.IsAggregate(def) {
			stmt.GroupBy = append(stmt.GroupBy, &sqlexpr.AliasRef{Name: sel})
		}
	}

	var where, having []sqlexpr.Expr
	for _, flt := range ls.filters {
		switch x := flt.(type) {
		case *dataset.DimensionFilter:
			g := p.ds.MappedField(x.Field, ls.leaf)
			def, err := resolve(p.ds, g)
			if err != nil {
				return nil, err
			}
			where = append(where, x.Expr(shift(g, def)))
		case *dataset.AggregateFilter:
			def, err := resolve(p.ds, x.Field)
			if err != nil {
				return nil, err
			}
			having = append(having, x.Expr(def))
		}
	}
	exprs = append(exprs, where...)
	exprs = append(exprs, having...)
	stmt.Where = sqlexpr.AndOf(where...)
	stmt.Having = sqlexpr.AndOf(having...)
	stmt.Joins = requiredJoins(ls.leaf, exprs...)
	return stmt, nil
}

// weekly reports whether f is selected as a week-truncated dimension.
func (p *planner) weekly(f *dataset.Field) bool {
	for _, d := range p.dims {
		if d.field() == f && d.set == nil && d.dim.Interval == sqlexpr.UnitWeek {
			return true
		}
	}
	return false
}

func setExpr(rs *dataset.ResultSetFilter, def sqlexpr.Expr) sqlexpr.Expr {
	label := func(s *string) sqlexpr.Expr {
		if s == nil {
			return sqlexpr.Lit(nil)
		}
		return sqlexpr.Lit(*s)
	}
	return &sqlexpr.Case{
		Whens: []sqlexpr.When{{Cond: rs.Inner.Expr(def), Then: label(rs.SetLabel)}},
		Else:  label(rs.ComplementLabel),
	}
}

// activeFilters unwraps the filters that apply to a variant. Result-set
// filters are planned as dimensions and never filter rows.
func (p *planner) activeFilters(v variant) []dataset.Filter {
	var out []dataset.Filter
	var add func(f dataset.Filter, omitted bool)
	add = func(f dataset.Filter, omitted bool) {
		switch x := f.(type) {
		case *dataset.DimensionFilter, *dataset.AggregateFilter:
			if !omitted {
				out = append(out, x)
			}
		case *dataset.OmitFromRollupFilter:
			add(x.Inner, omitted || v.rollupFrom >= 0)
		}
	}
	for _, f := range p.spec.Filters {
		add(f, false)
	}
	return out
}

// orderBy renders the requested orders, falling back to the dimensions or
// the first column. Operation keys are sorted after post-processing.
func (p *planner) orderBy(v variant) []sqlexpr.OrderItem {
	var out []sqlexpr.OrderItem
	for _, o := range p.spec.Orders {
		f, ok := o.Metric.(*dataset.Field)
		if !ok {
			continue
		}
		sel := p.dimensionSelector(f)
		if sel == "" {
			sel = v.metricSelector(f.Alias)
		}
		out = append(out, sqlexpr.OrderItem{Expr: &sqlexpr.AliasRef{Name: sel}, Desc: o.Desc})
	}
	if len(out) > 0 {
		return out
	}
	for _, d := range p.dims {
		out = append(out, sqlexpr.OrderItem{Expr: &sqlexpr.AliasRef{Name: d.selector()}})
	}
	if len(out) == 0 {
		out = append(out, sqlexpr.OrderItem{Expr: &sqlexpr.Raw{SQL: "1"}})
	}
	return out
}

func (p *planner) dimensionSelector(f *dataset.Field) string {
	for _, d := range p.dims {
		if d.field() == f {
			return d.selector()
		}
	}
	return ""
}

// finish applies ORDER BY, LIMIT/OFFSET and the hint to the outermost SELECT.
func (p *planner) finish(stmt *sqlexpr.Select, v variant, pushdown bool) {
	stmt.OrderBy = p.orderBy(v)
	stmt.Hint = p.spec.Hint
	stmt.Limit = p.db.RowCap()
	if pushdown {
		if p.spec.Limit > 0 {
			stmt.Limit = p.spec.Limit
		}
		stmt.Offset = p.spec.Offset
	}
}
