// Package planner turns a query description into the ordered list of SQL
// statements needed to answer it: the base query, one query per reference
// shift and one per rollup level, blended across datasets when required.
package planner

import (
	"fireant/dataset"
	"fireant/frame"
)

// Order is a requested sort key. Metric is a field or an operation.
type Order struct {
	Metric dataset.Metric
	Desc   bool
}

// Spec is the planner input assembled by the query builder.
type Spec struct {
	DataSet    *dataset.DataSet
	Metrics    []dataset.Metric
	Dimensions []dataset.Dimension
	Filters    []dataset.Filter
	References []dataset.Reference
	Orders     []Order
	Limit      int
	Offset     int

	// GroupSort and GroupPaginate request group-aware sorting and pagination
	// in post-processing.
	GroupSort     bool
	GroupPaginate bool

	// Hint labels statements on dialects that support query hints.
	Hint string
}

// Level describes one index level of the result frame.
type Level struct {
	Selector string
	Kind     frame.Kind
	Field    *dataset.Field
	// Rollup is set when totals were explicitly requested for the level.
	Rollup bool
	// Totals is set when any statement rolls the level up, including
	// rollups implied by Share operations.
	Totals bool
}

// Statement is one planned SQL query.
type Statement struct {
	SQL string
	// References holds the references answered by this statement; the first
	// one names its columns. Empty for non-reference statements.
	References []dataset.Reference
	// RollupFrom is the first rolled-up level, or -1.
	RollupFrom int
}

// Plan is the planner output consumed by the executor and the post-processor.
type Plan struct {
	Spec       Spec
	Levels     []Level
	Fields     []*dataset.Field
	Statements []Statement

	// Annotation is the optional side query with its frame layout.
	Annotation       *Statement
	AnnotationLevels []Level
	AnnotationField  *dataset.Field

	// Paginated is set when LIMIT/OFFSET were applied in SQL.
	Paginated bool
}

// SQL lists the statements' SQL strings in plan order.
func (p *Plan) SQL() []string {
	out := make([]string, len(p.Statements))
	for i, s := range p.Statements {
		out[i] = s.SQL
	}
	return out
}

// Selectors lists the level selectors.
func (p *Plan) Selectors() []string {
	out := make([]string, len(p.Levels))
	for i, l := range p.Levels {
		out[i] = l.Selector
	}
	return out
}

// Kinds lists the level kinds.
func (p *Plan) Kinds() []frame.Kind {
	out := make([]frame.Kind, len(p.Levels))
	for i, l := range p.Levels {
		out[i] = l.Kind
	}
	return out
}

// KindOf maps a field data type to a frame level kind.
func KindOf(dt dataset.DataType) frame.Kind {
	switch dt {
	case dataset.Date:
		return frame.KindDate
	case dataset.Number:
		return frame.KindNumber
	case dataset.Boolean:
		return frame.KindBoolean
	}
	return frame.KindText
}

// Operations lists the operations among the query's metrics.
func (s Spec) Operations() []dataset.Operation {
	var out []dataset.Operation
	for _, m := range s.Metrics {
		if op, ok := m.(dataset.Operation); ok {
			out = append(out, op)
		}
	}
	return out
}
