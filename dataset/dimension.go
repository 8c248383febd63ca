package dataset

import (
	"fireant/sqlexpr"
)

// NumericInterval buckets a number field into ranges of Size starting at Offset.
type NumericInterval struct {
	Size   float64
	Offset float64
}

// Dimension is a selected grouping field with optional modifiers.
type Dimension struct {
	Field    *Field
	Interval sqlexpr.DateUnit
	Bucket   *NumericInterval
	Rollup   bool
}

// Dim selects a field as a dimension without modifiers.
func Dim(f *Field) Dimension { return Dimension{Field: f} }

// Alias is the selected field's alias.
func (d Dimension) Alias() string { return d.Field.Alias }

// Selector is the "$"-prefixed output column name.
func (d Dimension) Selector() string { return d.Field.Selector() }

func interval(f *Field, unit sqlexpr.DateUnit) Dimension {
	return Dimension{Field: f, Interval: unit}
}

func Hour(f *Field) Dimension    { return interval(f, sqlexpr.UnitHour) }
func Day(f *Field) Dimension     { return interval(f, sqlexpr.UnitDay) }
func Week(f *Field) Dimension    { return interval(f, sqlexpr.UnitWeek) }
func Month(f *Field) Dimension   { return interval(f, sqlexpr.UnitMonth) }
func Quarter(f *Field) Dimension { return interval(f, sqlexpr.UnitQuarter) }
func Year(f *Field) Dimension    { return interval(f, sqlexpr.UnitYear) }

// Truncate applies a date interval given by unit.
func Truncate(f *Field, unit sqlexpr.DateUnit) Dimension { return interval(f, unit) }

// Bucket groups a number field into FLOOR((x-offset)/size)*size+offset.
func Bucket(f *Field, size, offset float64) Dimension {
	return Dimension{Field: f, Bucket: &NumericInterval{Size: size, Offset: offset}}
}

// Rollup requests a totals row for d.
func Rollup(d Dimension) Dimension {
	d.Rollup = true
	return d
}

// Expr renders the dimension's grouping expression over def, applying the
// interval modifier.
func (d Dimension) Expr(def sqlexpr.Expr) sqlexpr.Expr {
	switch {
	case d.Interval != sqlexpr.UnitNone:
		return &sqlexpr.DateTrunc{Expr: def, Unit: d.Interval}
	case d.Bucket != nil:
		shifted := def
		if d.Bucket.Offset != 0 {
			shifted = sqlexpr.Sub(def, sqlexpr.Lit(d.Bucket.Offset))
		}
		floor := &sqlexpr.Func{Name: "FLOOR", Args: []sqlexpr.Expr{sqlexpr.Div(shifted, sqlexpr.Lit(d.Bucket.Size))}}
		out := sqlexpr.Expr(sqlexpr.Mul(floor, sqlexpr.Lit(d.Bucket.Size)))
		if d.Bucket.Offset != 0 {
			out = sqlexpr.Add(out, sqlexpr.Lit(d.Bucket.Offset))
		}
		return out
	}
	return def
}
