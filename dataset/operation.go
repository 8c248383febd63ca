package dataset

import (
	"fmt"
)

// Metric is anything a widget can display: a field or an operation.
type Metric interface {
	MetricAlias() string
	MetricLabel() string
	// MetricField is the field whose formatting the metric inherits.
	MetricField() *Field
	metric()
}

// Operation is a post-aggregation transform evaluated on the merged frame.
// Implemented by CumSum, CumMean, CumProd, RollingMean and Share.
type Operation interface {
	Metric
	// Arg is the field the operation reads.
	Arg() *Field
	operation()
}

type CumSum struct{ Field *Field }
type CumMean struct{ Field *Field }
type CumProd struct{ Field *Field }

// RollingMean is a trailing mean over Window observations.
type RollingMean struct {
	Field  *Field
	Window int
}

// Share is 100*f over f at the totals row of Over. A nil Over yields 100 for
// every row.
type Share struct {
	Field *Field
	Over  *Field
}

func (o CumSum) MetricAlias() string      { return fmt.Sprintf("cumsum(%s)", o.Field.Alias) }
func (o CumMean) MetricAlias() string     { return fmt.Sprintf("cummean(%s)", o.Field.Alias) }
func (o CumProd) MetricAlias() string     { return fmt.Sprintf("cumprod(%s)", o.Field.Alias) }
func (o RollingMean) MetricAlias() string { return fmt.Sprintf("rollingmean(%s,%d)", o.Field.Alias, o.Window) }

func (o Share) MetricAlias() string {
	if o.Over == nil {
		return fmt.Sprintf("share(%s)", o.Field.Alias)
	}
	return fmt.Sprintf("share(%s,%s)", o.Field.Alias, o.Over.Alias)
}

func (o CumSum) MetricLabel() string  { return o.Field.Label + " cum. sum" }
func (o CumMean) MetricLabel() string { return o.Field.Label + " cum. mean" }
func (o CumProd) MetricLabel() string { return o.Field.Label + " cum. product" }
func (o RollingMean) MetricLabel() string {
	return fmt.Sprintf("%s rolling mean (%d)", o.Field.Label, o.Window)
}

func (o Share) MetricLabel() string {
	if o.Over == nil {
		return o.Field.Label + " share"
	}
	return fmt.Sprintf("%s share of %s", o.Field.Label, o.Over.Label)
}

// Share values are percentages with two decimals.
func (o Share) MetricField() *Field {
	precision := 2
	return &Field{
		Alias:    o.MetricAlias(),
		Label:    o.MetricLabel(),
		DataType: Number,
		Format:   Format{Precision: &precision, Suffix: "%"},
	}
}

func (o CumSum) MetricField() *Field      { return o.Field }
func (o CumMean) MetricField() *Field     { return o.Field }
func (o CumProd) MetricField() *Field     { return o.Field }
func (o RollingMean) MetricField() *Field { return o.Field }

func (o CumSum) Arg() *Field      { return o.Field }
func (o CumMean) Arg() *Field     { return o.Field }
func (o CumProd) Arg() *Field     { return o.Field }
func (o RollingMean) Arg() *Field { return o.Field }
func (o Share) Arg() *Field       { return o.Field }

func (CumSum) metric()      {}
func (CumMean) metric()     {}
func (CumProd) metric()     {}
func (RollingMean) metric() {}
func (Share) metric()       {}

func (CumSum) operation()      {}
func (CumMean) operation()     {}
func (CumProd) operation()     {}
func (RollingMean) operation() {}
func (Share) operation()       {}

// MetricSelector is the "$"-prefixed column name of a metric.
func MetricSelector(m Metric) string { return Selector(m.MetricAlias()) }

// MetricFields returns the fields a metric needs from SQL.
func MetricFields(m Metric) []*Field {
	switch x := m.(type) {
	case *Field:
		return []*Field{x}
	case Operation:
		return []*Field{x.Arg()}
	}
	return nil
}
