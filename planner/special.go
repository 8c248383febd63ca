package planner

import (
	"fireant/dataset"
	"fireant/domain"
	"fireant/sqlexpr"
)

// planAnnotation adds the annotation side query when the first dimension is
// the dataset's annotation alignment field.
func (p *planner) planAnnotation(plan *Plan) error {
	a := p.ds.Annotation()
	if a == nil || len(p.dims) == 0 {
		return nil
	}
	first := p.dims[0]
	if first.set != nil || first.alias != a.DatasetAlignmentFieldAlias {
		return nil
	}

	align := first.dim.Expr(a.AlignmentField.Definition)
	stmt := &sqlexpr.Select{
		From: a.Table,
		Columns: []sqlexpr.SelectItem{
			{Expr: align, Alias: first.selector()},
			{Expr: a.Field.Definition, Alias: a.Field.Selector()},
		},
		GroupBy: []sqlexpr.Expr{
			&sqlexpr.AliasRef{Name: first.selector()},
			&sqlexpr.AliasRef{Name: a.Field.Selector()},
		},
		OrderBy: []sqlexpr.OrderItem{{Expr: &sqlexpr.AliasRef{Name: first.selector()}}},
		Limit:   p.db.RowCap(),
		Hint:    p.spec.Hint,
	}
	var where []sqlexpr.Expr
	for _, flt := range p.activeFilters(variant{rollupFrom: -1}) {
		df, ok := flt.(*dataset.DimensionFilter)
		if ok && df.Field == first.field() {
			where = append(where, df.Expr(a.AlignmentField.Definition))
		}
	}
	stmt.Where = sqlexpr.AndOf(where...)

	plan.Annotation = &Statement{SQL: sqlexpr.Format(stmt, p.dialect), RollupFrom: -1}
	plan.AnnotationLevels = []Level{{Selector: first.selector(), Kind: first.kind, Field: first.field()}}
	plan.AnnotationField = a.Field
	return nil
}

// Choices plans the distinct values of f, narrowed by dimension filters. The
// field's hint table is queried instead of the base table when every
// expression only touches base-table columns.
func Choices(ds *dataset.DataSet, f *dataset.Field, filters []dataset.Filter, hint string) (string, error) {
	if ds == nil || f == nil || !ds.Owns(f) {
		return "", domain.ErrDataSet("choices field is not part of the dataset")
	}
	leaf := f.Owner()
	if leaf.IsBlended() {
		return "", domain.ErrDataSet("choices are not supported for blended field %q", f.Alias)
	}
	if f.IsAggregate() {
		return "", domain.ErrDataSet("choices are not supported for aggregate field %q", f.Alias)
	}
	def, err := resolve(ds, f)
	if err != nil {
		return "", err
	}

	exprs := []sqlexpr.Expr{def}
	var where []sqlexpr.Expr
	for _, flt := range filters {
		if err := dataset.Validate(flt); err != nil {
			return "", err
		}
		if o, ok := flt.(*dataset.OmitFromRollupFilter); ok {
			flt = o.Inner
		}
		df, ok := flt.(*dataset.DimensionFilter)
		if !ok {
			return "", domain.ErrDataSet("choices only accept dimension filters")
		}
		g := ds.MappedField(df.Field, leaf)
		if g == nil {
			return "", domain.ErrDataSet("filter field %q is not available in dataset %q", df.Field.Alias, leaf.Name())
		}
		gdef, err := resolve(ds, g)
		if err != nil {
			return "", err
		}
		e := df.Expr(gdef)
		where = append(where, e)
		exprs = append(exprs, e)
	}

	stmt := &sqlexpr.Select{
		Hint:     hint,
		Distinct: true,
		From:     leaf.Table(),
		OrderBy:  []sqlexpr.OrderItem{{Expr: &sqlexpr.AliasRef{Name: f.Selector()}}},
		Limit:    leaf.Database().RowCap(),
	}
	if f.HintTable != nil && onlyBaseTable(leaf.Table(), exprs...) {
		stmt.From = f.HintTable
		rebind := func(e sqlexpr.Expr) sqlexpr.Expr { return rebindTable(e, leaf.Table(), f.HintTable) }
		def = rebind(def)
		for i := range where {
			where[i] = rebind(where[i])
		}
	} else {
		stmt.Joins = requiredJoins(leaf, exprs...)
	}
	stmt.Columns = []sqlexpr.SelectItem{{Expr: def, Alias: f.Selector()}}
	stmt.Where = sqlexpr.AndOf(where...)
	return sqlexpr.Format(stmt, leaf.Database().SQLDialect()), nil
}

// Latest plans the maximum value of each of fields. All fields must be
// non-aggregate and come from the same underlying dataset.
func Latest(ds *dataset.DataSet, fields ...*dataset.Field) (string, error) {
	if ds == nil || len(fields) == 0 {
		return "", domain.ErrDataSet("latest requires at least one field")
	}
	var leaf *dataset.DataSet
	stmt := &sqlexpr.Select{}
	var exprs []sqlexpr.Expr
	for _, f := range fields {
		if !ds.Owns(f) {
			return "", domain.ErrDataSet("field %q is not part of dataset %q", f.Alias, ds.Name())
		}
		if f.IsAggregate() || f.Owner().IsBlended() {
			return "", domain.ErrDataSet("latest is not supported for field %q", f.Alias)
		}
		if leaf == nil {
			leaf = f.Owner()
		} else if f.Owner() != leaf {
			return "", domain.ErrDataSet("latest fields must come from the same dataset")
		}
		def, err := resolve(ds, f)
		if err != nil {
			return "", err
		}
		e := sqlexpr.Max(def)
		exprs = append(exprs, e)
		stmt.Columns = append(stmt.Columns, sqlexpr.SelectItem{Expr: e, Alias: f.Selector()})
	}
	stmt.From = leaf.Table()
	stmt.Joins = requiredJoins(leaf, exprs...)
	return sqlexpr.Format(stmt, leaf.Database().SQLDialect()), nil
}

func onlyBaseTable(base *sqlexpr.Table, exprs ...sqlexpr.Expr) bool {
	key := sqlexpr.TableKey(base)
	for _, e := range exprs {
		for _, t := range sqlexpr.Tables(e) {
			if sqlexpr.TableKey(t) != key {
				return false
			}
		}
	}
	return true
}

func rebindTable(e sqlexpr.Expr, from, to *sqlexpr.Table) sqlexpr.Expr {
	key := sqlexpr.TableKey(from)
	return sqlexpr.Rewrite(e, func(e sqlexpr.Expr) (sqlexpr.Expr, bool) {
		c, ok := e.(*sqlexpr.Column)
		if !ok || c.Table == nil || sqlexpr.TableKey(c.Table) != key {
			return nil, false
		}
		return sqlexpr.Col(to, c.Name), true
	})
}
