package planner

import (
	"fireant/dataset"
	"fireant/domain"
	"fireant/sqlexpr"
)

type planner struct {
	spec    Spec
	ds      *dataset.DataSet
	db      *dataset.Database
	dialect sqlexpr.Dialect
	dims    []dimension
	fields  []*dataset.Field
}

// Build plans spec. Statements are ordered rollup-major: the base query, then
// one query per reference shift, then the same sequence for each rollup level.
func Build(spec Spec) (*Plan, error) {
	if spec.DataSet == nil {
		return nil, domain.ErrPlan("query has no dataset")
	}
	for _, f := range spec.Filters {
		if err := dataset.Validate(f); err != nil {
			return nil, err
		}
		if err := checkFilterOwner(spec.DataSet, f); err != nil {
			return nil, err
		}
	}

	dims, err := planDimensions(spec)
	if err != nil {
		return nil, err
	}
	db := spec.DataSet.Database()
	p := &planner{spec: spec, ds: spec.DataSet, db: db, dialect: db.SQLDialect(), dims: dims}

	for _, r := range spec.References {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if p.dimensionSelector(r.Field) == "" {
			return nil, domain.ErrPlan("reference %q on %q requires %q to be selected as a dimension", r.Alias, r.Field.Alias, r.Field.Alias)
		}
	}
	if err := p.collectFields(); err != nil {
		return nil, err
	}

	var variants []variant
	groups := groupReferences(spec.References)
	for _, from := range append([]int{-1}, rollupPositions(dims)...) {
		variants = append(variants, variant{rollupFrom: from})
		for _, g := range groups {
			variants = append(variants, variant{refs: g, rollupFrom: from})
		}
	}
	pushdown := len(variants) == 1 && !spec.GroupSort && !spec.GroupPaginate && len(spec.Operations()) == 0

	plan := &Plan{
		Spec:      spec,
		Levels:    levels(dims),
		Fields:    p.fields,
		Paginated: pushdown,
	}
	for _, v := range variants {
		stmt, err := p.statement(v, pushdown)
		if err != nil {
			return nil, err
		}
		plan.Statements = append(plan.Statements, Statement{
			SQL:        sqlexpr.Format(stmt, p.dialect),
			References: v.refs,
			RollupFrom: v.rollupFrom,
		})
	}

	if err := p.planAnnotation(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func checkFilterOwner(ds *dataset.DataSet, f dataset.Filter) error {
	var field *dataset.Field
	switch x := f.(type) {
	case *dataset.DimensionFilter:
		field = x.Field
	case *dataset.AggregateFilter:
		field = x.Field
	case *dataset.ResultSetFilter:
		field = x.Field()
	case *dataset.OmitFromRollupFilter:
		return checkFilterOwner(ds, x.Inner)
	}
	if field != nil && !ds.Owns(field) {
		return domain.ErrPlan("filter field %q is not part of dataset %q", field.Alias, ds.Name())
	}
	return nil
}

// collectFields gathers the fields projected as metrics: widget metrics,
// operation arguments, unselected order keys and reference-filter metrics.
func (p *planner) collectFields() error {
	seen := map[*dataset.Field]bool{}
	add := func(f *dataset.Field) error {
		if seen[f] {
			return nil
		}
		if !p.ds.Owns(f) {
			return domain.ErrPlan("field %q is not part of dataset %q", f.Alias, p.ds.Name())
		}
		seen[f] = true
		p.fields = append(p.fields, f)
		return nil
	}
	for _, m := range p.spec.Metrics {
		for _, f := range dataset.MetricFields(m) {
			if err := add(f); err != nil {
				return err
			}
		}
	}
	for _, o := range p.spec.Orders {
		for _, f := range dataset.MetricFields(o.Metric) {
			if p.dimensionSelector(f) != "" {
				continue
			}
			if err := add(f); err != nil {
				return err
			}
		}
	}
	for _, r := range p.spec.References {
		for _, rf := range r.Filters {
			if err := add(rf.Metric); err != nil {
				return err
			}
		}
	}
	return nil
}

// groupReferences merges references sharing the same shift so each shift is
// queried once.
func groupReferences(refs []dataset.Reference) [][]dataset.Reference {
	var groups [][]dataset.Reference
outer:
	for _, r := range refs {
		for i, g := range groups {
			if g[0].SameShift(r) {
				groups[i] = append(groups[i], r)
				continue outer
			}
		}
		groups = append(groups, []dataset.Reference{r})
	}
	return groups
}

func (p *planner) statement(v variant, pushdown bool) (*sqlexpr.Select, error) {
	if p.ds.IsBlended() {
		return p.blendSelect(v, pushdown)
	}
	positions := make([]int, len(p.dims))
	for i := range p.dims {
		positions[i] = i
	}
	stmt, err := p.leafSelect(leafSpec{
		leaf:    p.ds,
		dims:    positions,
		fields:  p.fields,
		filters: p.activeFilters(v),
	}, v)
	if err != nil {
		return nil, err
	}
	p.finish(stmt, v, pushdown)
	return stmt, nil
}
