package postprocess

import (
	"fmt"

	"fireant/domain"
	"fireant/frame"
	"fireant/planner"
)

// Process merges results, one per plan statement and in plan order, into the
// frame handed to widgets.
func Process(plan *planner.Plan, results []*domain.Result) (*frame.Frame, error) {
	f, err := merge(plan, results)
	if err != nil {
		return nil, err
	}
	refs := distinctReferences(plan.Spec.References)
	ops := plan.Spec.Operations()
	keys := sortKeys(plan)

	if len(plan.Statements) > 1 || len(ops) > 0 {
		f.SortIndex()
	}
	for _, fld := range plan.Fields {
		addDeltas(f, refs, fld.Alias)
	}
	f = applyReferenceFilters(f, refs)
	for _, op := range ops {
		applyOperation(f, plan, op, refs)
	}

	switch {
	case plan.Spec.GroupSort:
		groupSort(f, keys)
	case len(keys) > 0:
		simpleSort(f, keys)
	}

	if !plan.Paginated && (plan.Spec.Limit > 0 || plan.Spec.Offset > 0) {
		if plan.Spec.GroupPaginate {
			f = groupPaginate(f, keys, plan.Spec.Limit, plan.Spec.Offset)
		} else {
			f = f.Slice(plan.Spec.Offset, plan.Spec.Limit)
		}
	}
	return scrubImplicitTotals(f, plan), nil
}

// scrubImplicitTotals removes totals rows that exist only as share
// denominators, i.e. whose first totalled level was not rolled up explicitly.
func scrubImplicitTotals(f *frame.Frame, plan *planner.Plan) *frame.Frame {
	implicit := false
	for _, l := range plan.Levels {
		if l.Totals && !l.Rollup {
			implicit = true
		}
	}
	if !implicit {
		return f
	}
	return f.Filter(func(_ int, r frame.Row) bool {
		for i, v := range r.Key {
			if frame.IsTotals(v) {
				return plan.Levels[i].Rollup
			}
		}
		return true
	})
}

// Annotation builds the annotation frame of plan from its side query result.
func Annotation(plan *planner.Plan, res *domain.Result) (*frame.Frame, error) {
	if plan.Annotation == nil {
		return nil, nil
	}
	selectors := make([]string, len(plan.AnnotationLevels))
	kinds := make([]frame.Kind, len(plan.AnnotationLevels))
	for i, l := range plan.AnnotationLevels {
		selectors[i] = l.Selector
		kinds[i] = l.Kind
	}
	f, err := frame.FromResult(res, selectors, kinds)
	if err != nil {
		return nil, fmt.Errorf("annotation: %w", err)
	}
	return f, nil
}
