package dataset

import (
	"fmt"

	"fireant/domain"
	"fireant/sqlexpr"
)

// Filter is one of DimensionFilter, AggregateFilter, ResultSetFilter or
// OmitFromRollupFilter. Field factories return an invalid filter value for
// illegal operator/type combinations; Validate reports it.
type Filter interface {
	filter()
}

// Predicate is a comparison of a field against constant values.
type Predicate struct {
	Field  *Field
	Op     Operator
	Values []interface{}
}

// Expr renders the predicate over def, which is normally the field's
// definition or a rewritten form of it.
func (p Predicate) Expr(def sqlexpr.Expr) sqlexpr.Expr {
	lits := make([]sqlexpr.Expr, len(p.Values))
	for i, v := range p.Values {
		lits[i] = sqlexpr.Lit(v)
	}
	cmp := func(op sqlexpr.CompareOp) sqlexpr.Expr {
		return &sqlexpr.Compare{Op: op, Left: def, Right: lits[0]}
	}
	switch p.Op {
	case OpEq, OpIs:
		return cmp(sqlexpr.OpEq)
	case OpNe:
		return cmp(sqlexpr.OpNe)
	case OpGt:
		return cmp(sqlexpr.OpGt)
	case OpGe:
		return cmp(sqlexpr.OpGe)
	case OpLt:
		return cmp(sqlexpr.OpLt)
	case OpLe:
		return cmp(sqlexpr.OpLe)
	case OpIn:
		return &sqlexpr.In{Expr: def, Values: lits}
	case OpNotIn:
		return &sqlexpr.In{Expr: def, Values: lits, Not: true}
	case OpBetween:
		return &sqlexpr.Between{Expr: def, Low: lits[0], High: lits[1]}
	case OpLike:
		return &sqlexpr.Like{Expr: def, Pattern: lits[0]}
	case OpNotLike:
		return &sqlexpr.Like{Expr: def, Pattern: lits[0], Not: true}
	case OpNull:
		return &sqlexpr.IsNull{Expr: def}
	case OpNotNull:
		return &sqlexpr.IsNull{Expr: def, Not: true}
	}
	return nil
}

// DimensionFilter is a predicate over a non-aggregate field, rendered in WHERE.
type DimensionFilter struct {
	Predicate
}

// AggregateFilter is a predicate over an aggregate field, rendered in HAVING.
type AggregateFilter struct {
	Predicate
}

func (*DimensionFilter) filter() {}
func (*AggregateFilter) filter() {}

// ResultSetFilter turns the referenced dimension into a two-valued bucket:
// rows matching Inner are labelled SetLabel, the rest ComplementLabel. A nil
// label renders NULL.
type ResultSetFilter struct {
	Inner           *DimensionFilter
	SetLabel        *string
	ComplementLabel *string

	// ReplaceDimension puts the bucket at the referenced dimension's ordinal.
	// Otherwise it is appended after the last selected dimension.
	ReplaceDimension bool
	// IgnoreDimensions drops the referenced dimension from the grouping set.
	IgnoreDimensions bool
}

func (*ResultSetFilter) filter() {}

// Field is the dimension the filter buckets.
func (r *ResultSetFilter) Field() *Field { return r.Inner.Field }

// PlainPredicate renders the inner predicate without identifier quoting,
// e.g. text='abc'.
func (r *ResultSetFilter) PlainPredicate() string {
	return sqlexpr.FormatPlain(r.Inner.Expr(r.Inner.Field.Definition))
}

// Alias names the derived bucket dimension.
func (r *ResultSetFilter) Alias() string {
	return fmt.Sprintf("set(%s)", r.PlainPredicate())
}

// ResultSetOption customizes a ResultSetFilter.
type ResultSetOption func(*ResultSetFilter)

// WithSetLabel overrides the label of matching rows. Pass nil for NULL.
func WithSetLabel(label *string) ResultSetOption {
	return func(r *ResultSetFilter) { r.SetLabel = label }
}

// WithComplementLabel overrides the label of non-matching rows. Pass nil for NULL.
func WithComplementLabel(label *string) ResultSetOption {
	return func(r *ResultSetFilter) { r.ComplementLabel = label }
}

// AppendDimension keeps the referenced dimension's slot and appends the bucket
// after the last selected dimension.
func AppendDimension() ResultSetOption {
	return func(r *ResultSetFilter) { r.ReplaceDimension = false }
}

// KeepDimension groups by both the bucket and the referenced dimension.
func KeepDimension() ResultSetOption {
	return func(r *ResultSetFilter) { r.IgnoreDimensions = false }
}

// ResultSet wraps a dimension filter into a set/complement bucketing filter.
func ResultSet(inner Filter, opts ...ResultSetOption) Filter {
	var df *DimensionFilter
	switch f := inner.(type) {
	case *invalidFilter:
		return f
	case *DimensionFilter:
		df = f
	case *AggregateFilter:
		return invalid(domain.ErrDataSet("result set filter on aggregate field %q is not supported", f.Field.Alias))
	default:
		return invalid(domain.ErrDataSet("result set filter requires a field predicate, got %T", inner))
	}

	r := &ResultSetFilter{Inner: df, ReplaceDimension: true, IgnoreDimensions: true}
	setLabel := fmt.Sprintf("set(%s)", r.PlainPredicate())
	complementLabel := fmt.Sprintf("complement(%s)", r.PlainPredicate())
	r.SetLabel, r.ComplementLabel = &setLabel, &complementLabel
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OmitFromRollupFilter applies Inner to the base query only, not to rollup
// fan-out queries.
type OmitFromRollupFilter struct {
	Inner Filter
}

func (*OmitFromRollupFilter) filter() {}

// OmitFromRollup marks f as excluded from totals queries.
func OmitFromRollup(f Filter) Filter {
	if bad, ok := f.(*invalidFilter); ok {
		return bad
	}
	return &OmitFromRollupFilter{Inner: f}
}

type invalidFilter struct {
	err error
}

func (*invalidFilter) filter() {}

func invalid(err error) Filter { return &invalidFilter{err: err} }

// Validate returns the error carried by an illegal filter, or nil.
func Validate(f Filter) error {
	switch x := f.(type) {
	case nil:
		return domain.ErrDataSetFilter("nil filter")
	case *invalidFilter:
		return x.err
	case *OmitFromRollupFilter:
		return Validate(x.Inner)
	}
	return nil
}

// ReferenceFilter drops rows whose reference value for Metric fails the
// comparison. It is evaluated after post-processing, never in SQL.
type ReferenceFilter struct {
	Metric *Field
	Op     Operator
	Value  float64
}

// Match reports whether v satisfies the filter. Nil values never match.
func (rf ReferenceFilter) Match(v interface{}) bool {
	x, ok := toFloat(v)
	if !ok {
		return false
	}
	switch rf.Op {
	case OpEq:
		return x == rf.Value
	case OpNe:
		return x != rf.Value
	case OpGt:
		return x > rf.Value
	case OpGe:
		return x >= rf.Value
	case OpLt:
		return x < rf.Value
	case OpLe:
		return x <= rf.Value
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}
