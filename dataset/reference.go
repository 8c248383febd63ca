package dataset

import (
	"fmt"

	"fireant/domain"
	"fireant/sqlexpr"
)

// Reference compares metrics with the same metrics shifted by Interval Units
// along a date dimension.
type Reference struct {
	Field        *Field
	Alias        string
	Label        string
	Unit         sqlexpr.DateUnit
	Interval     int
	Delta        bool
	DeltaPercent bool
	Filters      []ReferenceFilter
}

// ReferenceOption customizes a Reference.
type ReferenceOption func(*Reference)

// WithDelta adds a current-minus-reference column.
func WithDelta() ReferenceOption { return func(r *Reference) { r.Delta = true } }

// WithDeltaPercent adds a percentage change column.
func WithDeltaPercent() ReferenceOption { return func(r *Reference) { r.DeltaPercent = true } }

// WithReferenceFilters drops rows failing any of the filters.
func WithReferenceFilters(filters ...ReferenceFilter) ReferenceOption {
	return func(r *Reference) { r.Filters = append(r.Filters, filters...) }
}

type referenceKind struct {
	alias string
	label string
}

var referenceKinds = map[sqlexpr.DateUnit]referenceKind{
	sqlexpr.UnitDay:     {"dod", "DoD"},
	sqlexpr.UnitWeek:    {"wow", "WoW"},
	sqlexpr.UnitMonth:   {"mom", "MoM"},
	sqlexpr.UnitQuarter: {"qoq", "QoQ"},
	sqlexpr.UnitYear:    {"yoy", "YoY"},
}

// Shift builds a reference of interval units. Intervals above one get the
// count appended to the alias and label, e.g. "dod2" / "DoD(2)".
func Shift(f *Field, unit sqlexpr.DateUnit, interval int, opts ...ReferenceOption) Reference {
	kind := referenceKinds[unit]
	r := Reference{Field: f, Alias: kind.alias, Label: kind.label, Unit: unit, Interval: interval}
	if interval > 1 {
		r.Alias = fmt.Sprintf("%s%d", kind.alias, interval)
		r.Label = fmt.Sprintf("%s(%d)", kind.label, interval)
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func DayOverDay(f *Field, opts ...ReferenceOption) Reference {
	return Shift(f, sqlexpr.UnitDay, 1, opts...)
}

func WeekOverWeek(f *Field, opts ...ReferenceOption) Reference {
	return Shift(f, sqlexpr.UnitWeek, 1, opts...)
}

func MonthOverMonth(f *Field, opts ...ReferenceOption) Reference {
	return Shift(f, sqlexpr.UnitMonth, 1, opts...)
}

func QuarterOverQuarter(f *Field, opts ...ReferenceOption) Reference {
	return Shift(f, sqlexpr.UnitQuarter, 1, opts...)
}

func YearOverYear(f *Field, opts ...ReferenceOption) Reference {
	return Shift(f, sqlexpr.UnitYear, 1, opts...)
}

// Suffix is the column suffix of the reference's raw values.
func (r Reference) Suffix() string { return r.Alias }

// Column names the reference value column of a metric, e.g. $votes_dod.
func (r Reference) Column(metricAlias string) string {
	return Selector(metricAlias + "_" + r.Alias)
}

// DeltaColumn names the current-minus-reference column.
func (r Reference) DeltaColumn(metricAlias string) string {
	return r.Column(metricAlias) + "_delta"
}

// DeltaPercentColumn names the percentage change column.
func (r Reference) DeltaPercentColumn(metricAlias string) string {
	return r.Column(metricAlias) + "_delta_percent"
}

// FilterColumn is the most specific column the reference's filters apply to.
func (r Reference) FilterColumn(metricAlias string) string {
	switch {
	case r.DeltaPercent:
		return r.DeltaPercentColumn(metricAlias)
	case r.Delta:
		return r.DeltaColumn(metricAlias)
	}
	return r.Column(metricAlias)
}

// SameShift reports whether two references can share one query.
func (r Reference) SameShift(o Reference) bool {
	return r.Field == o.Field && r.Unit == o.Unit && r.Interval == o.Interval
}

// Validate checks the reference's unit and filters.
func (r Reference) Validate() error {
	if r.Field == nil {
		return domain.ErrPlan("reference %q has no field", r.Alias)
	}
	if r.Field.DataType != Date {
		return domain.ErrPlan("reference %q requires a date field, %q is %s", r.Alias, r.Field.Alias, r.Field.DataType)
	}
	if _, ok := referenceKinds[r.Unit]; !ok {
		return domain.ErrPlan("reference %q has unsupported unit %q", r.Alias, r.Unit)
	}
	if r.Interval < 1 {
		return domain.ErrPlan("reference %q interval must be positive, got %d", r.Alias, r.Interval)
	}
	for _, rf := range r.Filters {
		switch rf.Op {
		case OpEq, OpNe, OpGt, OpGe, OpLt, OpLe:
		default:
			return domain.ErrDataSetFilter("reference filter operator %q is not supported", rf.Op)
		}
		if rf.Metric == nil {
			return domain.ErrDataSetFilter("reference filter on %q has no metric", r.Alias)
		}
	}
	return nil
}
