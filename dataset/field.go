package dataset

import (
	"fireant/domain"
	"fireant/sqlexpr"
)

// Format holds display metadata used by widgets.
type Format struct {
	Precision         *int
	Prefix            string
	Suffix            string
	Thousands         string
	HyperlinkTemplate string
}

// Field is a named, typed expression within a dataset.
type Field struct {
	Alias      string
	Label      string
	DataType   DataType
	Definition sqlexpr.Expr
	Format

	// HintTable is a denormalized lookup table used by dimension-choices
	// queries in place of the fact table. Its columns must carry the same
	// names as the definition's columns.
	HintTable *sqlexpr.Table

	owner *DataSet
	extra bool
}

// NewField builds a field with a label defaulting to the alias.
func NewField(alias string, dt DataType, def sqlexpr.Expr) *Field {
	return &Field{Alias: alias, Label: alias, DataType: dt, Definition: def}
}

// Owner is the dataset the field was registered with.
func (f *Field) Owner() *DataSet { return f.owner }

// Extra reports whether the field may only be used as a metric.
func (f *Field) Extra() bool { return f.extra }

// IsAggregate reports whether the definition contains an aggregation.
func (f *Field) IsAggregate() bool { return sqlexpr.IsAggregate(f.Definition) }

// Selector is the "$"-prefixed column name used in SQL aliases and frames.
func (f *Field) Selector() string { return Selector(f.Alias) }

// Selector prefixes an alias with "$".
func Selector(alias string) string { return "$" + alias }

func (f *Field) MetricAlias() string { return f.Alias }
func (f *Field) MetricLabel() string { return f.Label }
func (f *Field) MetricField() *Field { return f }
func (*Field) metric()               {}

func (f *Field) predicate(op Operator, values ...interface{}) Filter {
	if !f.DataType.Allows(op) {
		return invalid(domain.ErrDataSetFilter("operator %q is not supported for %s field %q", op, f.DataType, f.Alias))
	}
	switch n := op.arity(); {
	case n == -1 && len(values) == 0,
		n >= 0 && len(values) != n:
		return invalid(domain.ErrDataSetFilter("operator %q on field %q got %d values", op, f.Alias, len(values)))
	}
	p := Predicate{Field: f, Op: op, Values: values}
	if f.IsAggregate() {
		return &AggregateFilter{Predicate: p}
	}
	return &DimensionFilter{Predicate: p}
}

func (f *Field) Eq(v interface{}) Filter { return f.predicate(OpEq, v) }
func (f *Field) Ne(v interface{}) Filter { return f.predicate(OpNe, v) }
func (f *Field) Gt(v interface{}) Filter { return f.predicate(OpGt, v) }
func (f *Field) Ge(v interface{}) Filter { return f.predicate(OpGe, v) }
func (f *Field) Lt(v interface{}) Filter { return f.predicate(OpLt, v) }
func (f *Field) Le(v interface{}) Filter { return f.predicate(OpLe, v) }

func (f *Field) In(values ...interface{}) Filter    { return f.predicate(OpIn, values...) }
func (f *Field) NotIn(values ...interface{}) Filter { return f.predicate(OpNotIn, values...) }

func (f *Field) Between(low, high interface{}) Filter { return f.predicate(OpBetween, low, high) }

func (f *Field) Like(pattern string) Filter    { return f.predicate(OpLike, pattern) }
func (f *Field) NotLike(pattern string) Filter { return f.predicate(OpNotLike, pattern) }

// Is compares a boolean field with a constant.
func (f *Field) Is(v bool) Filter { return f.predicate(OpIs, v) }

func (f *Field) IsNull() Filter  { return f.predicate(OpNull) }
func (f *Field) NotNull() Filter { return f.predicate(OpNotNull) }

// Filter builds a filter from an operator name, as used by declarative and
// HTTP callers.
func (f *Field) Filter(op Operator, values ...interface{}) Filter {
	return f.predicate(op, values...)
}
