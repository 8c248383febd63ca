// Package postprocess merges the per-statement results of a plan into one
// frame and applies the in-memory steps SQL cannot express: reference deltas
// and filters, operations, group-aware sorting and pagination.
package postprocess

import (
	"fmt"

	"fireant/dataset"
	"fireant/domain"
	"fireant/frame"
	"fireant/planner"
)

// merge aligns reference statements with their base statement and appends
// rollup statements. results[i] answers plan.Statements[i].
func merge(plan *planner.Plan, results []*domain.Result) (*frame.Frame, error) {
	if len(results) != len(plan.Statements) {
		return nil, fmt.Errorf("plan has %d statements but %d results", len(plan.Statements), len(results))
	}
	selectors, kinds := plan.Selectors(), plan.Kinds()

	var out, level *frame.Frame
	flush := func() {
		if level == nil {
			return
		}
		if out == nil {
			out = level
		} else {
			out = out.Append(level)
		}
		level = nil
	}

	for i, stmt := range plan.Statements {
		f, err := frame.FromResult(results[i], selectors, kinds)
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", i, err)
		}
		if len(stmt.References) == 0 {
			flush()
			level = f
			continue
		}
		if level == nil {
			return nil, fmt.Errorf("statement %d: reference result without base result", i)
		}
		level = level.OuterJoin(f)
	}
	flush()
	if out == nil {
		out = frame.New(selectors, kinds, nil)
	}
	ensureColumns(out, plan)
	return out, nil
}

// ensureColumns adds every planned metric column so later steps can rely on
// them even when all results were empty.
func ensureColumns(f *frame.Frame, plan *planner.Plan) {
	want := make([]string, 0, len(plan.Fields)*(1+len(plan.Spec.References)))
	for _, fld := range plan.Fields {
		want = append(want, fld.Selector())
		for _, r := range plan.Spec.References {
			want = append(want, r.Column(fld.Alias))
		}
	}
	for _, name := range want {
		if !f.HasColumn(name) {
			f.SetColumn(name, make([]interface{}, f.Len()))
		}
	}
}

// distinctReferences drops references whose columns another reference with
// the same alias and flags already produces.
func distinctReferences(refs []dataset.Reference) []dataset.Reference {
	var out []dataset.Reference
	seen := map[string]bool{}
	for _, r := range refs {
		key := fmt.Sprintf("%s/%t/%t", r.Alias, r.Delta, r.DeltaPercent)
		if !seen[key] {
			seen[key] = true
			out = append(out, r)
		}
	}
	return out
}
