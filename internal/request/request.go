// Package request decodes query requests (from HTTP bodies or CLI files)
// into query builders.
package request

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/araddon/dateparse"

	"fireant/dataset"
	"fireant/domain"
	"fireant/query"
	"fireant/sqlexpr"
	"fireant/widget"
)

// Request is a query against one dataset.
type Request struct {
	Widget     string      `json:"widget,omitempty" yaml:"widget,omitempty"`
	Metrics    []Metric    `json:"metrics" yaml:"metrics"`
	Dimensions []Dimension `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Filters    []Filter    `json:"filters,omitempty" yaml:"filters,omitempty"`
	References []Reference `json:"references,omitempty" yaml:"references,omitempty"`
	Orders     []Order     `json:"orders,omitempty" yaml:"orders,omitempty"`
	Limit      int         `json:"limit,omitempty" yaml:"limit,omitempty"`
	Offset     int         `json:"offset,omitempty" yaml:"offset,omitempty"`

	// Table layout options; ignored by chart and frame widgets.
	Pivot     []string `json:"pivot,omitempty" yaml:"pivot,omitempty"`
	Transpose bool     `json:"transpose,omitempty" yaml:"transpose,omitempty"`
	Hide      []string `json:"hide,omitempty" yaml:"hide,omitempty"`
}

// Metric selects a field, optionally through an operation: cumsum, cummean,
// cumprod, rolling_mean (with Window) or share (with optional Over).
type Metric struct {
	Alias     string `json:"alias" yaml:"alias"`
	Operation string `json:"operation,omitempty" yaml:"operation,omitempty"`
	Window    int    `json:"window,omitempty" yaml:"window,omitempty"`
	Over      string `json:"over,omitempty" yaml:"over,omitempty"`
}

// Dimension groups by a field. Interval truncates dates (hour ... year) or,
// as "bucket", groups numbers into Size-wide buckets starting at Start.
type Dimension struct {
	Alias    string  `json:"alias" yaml:"alias"`
	Interval string  `json:"interval,omitempty" yaml:"interval,omitempty"`
	Size     float64 `json:"size,omitempty" yaml:"size,omitempty"`
	Start    float64 `json:"start,omitempty" yaml:"start,omitempty"`
	Rollup   bool    `json:"rollup,omitempty" yaml:"rollup,omitempty"`
}

// Filter is a predicate on a field.
type Filter struct {
	Alias          string        `json:"alias" yaml:"alias"`
	Op             string        `json:"op" yaml:"op"`
	Values         []interface{} `json:"values,omitempty" yaml:"values,omitempty"`
	OmitFromRollup bool          `json:"omit_from_rollup,omitempty" yaml:"omit_from_rollup,omitempty"`
}

// Reference compares metrics with a time-shifted copy of the query. Kind is
// one of dod, wow, mom, qoq, yoy, or a date unit shifted by Interval.
type Reference struct {
	Alias        string `json:"alias" yaml:"alias"`
	Kind         string `json:"kind" yaml:"kind"`
	Interval     int    `json:"interval,omitempty" yaml:"interval,omitempty"`
	Delta        bool   `json:"delta,omitempty" yaml:"delta,omitempty"`
	DeltaPercent bool   `json:"delta_percent,omitempty" yaml:"delta_percent,omitempty"`
}

// Order sorts by a requested metric alias (e.g. "cumsum(votes)") or a field.
type Order struct {
	Alias string `json:"alias" yaml:"alias"`
	Desc  bool   `json:"desc,omitempty" yaml:"desc,omitempty"`
}

var referenceKinds = map[string]func(*dataset.Field, ...dataset.ReferenceOption) dataset.Reference{
	"dod": dataset.DayOverDay,
	"wow": dataset.WeekOverWeek,
	"mom": dataset.MonthOverMonth,
	"qoq": dataset.QuarterOverQuarter,
	"yoy": dataset.YearOverYear,
}

// Builder resolves the request against ds. Unknown aliases and malformed
// values are DataSetError or DataSetFilterError values.
func (r *Request) Builder(ds *dataset.DataSet) (*query.Builder, error) {
	if len(r.Metrics) == 0 {
		return nil, domain.ErrMetricRequired("request selects no metrics")
	}

	metrics := make([]dataset.Metric, 0, len(r.Metrics))
	for _, m := range r.Metrics {
		metric, err := r.metric(ds, m)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, metric)
	}
	w, err := r.widget(ds, metrics)
	if err != nil {
		return nil, err
	}
	b := query.New(ds).Widget(w)

	for _, d := range r.Dimensions {
		dim, err := dimension(ds, d)
		if err != nil {
			return nil, err
		}
		b = b.Dimension(dim)
	}
	for _, fs := range r.Filters {
		f, err := fs.Build(ds)
		if err != nil {
			return nil, err
		}
		b = b.Filter(f)
	}
	for _, rs := range r.References {
		ref, err := reference(ds, rs)
		if err != nil {
			return nil, err
		}
		b = b.Reference(ref)
	}
	for _, o := range r.Orders {
		m, err := orderMetric(ds, metrics, o.Alias)
		if err != nil {
			return nil, err
		}
		dir := query.Asc
		if o.Desc {
			dir = query.Desc
		}
		b = b.OrderBy(m, dir)
	}
	if r.Limit > 0 {
		b = b.Limit(r.Limit)
	}
	if r.Offset > 0 {
		b = b.Offset(r.Offset)
	}
	return b, nil
}

func (r *Request) widget(ds *dataset.DataSet, metrics []dataset.Metric) (widget.Widget, error) {
	switch strings.ToLower(r.Widget) {
	case "", "table":
		t, err := widget.NewTable(metrics...)
		if err != nil {
			return nil, err
		}
		return t, r.layout(ds, t)
	case "csv":
		c, err := widget.NewCSV(metrics...)
		if err != nil {
			return nil, err
		}
		return c, r.layout(ds, &c.Table)
	case "html":
		h, err := widget.NewHTML(metrics...)
		if err != nil {
			return nil, err
		}
		return h, r.layout(ds, &h.Table)
	case "chart":
		return widget.NewChart(metrics...)
	case "frame":
		return widget.NewFrame(metrics...)
	}
	return nil, domain.ErrDataSet("unknown widget %q (expected table, csv, html, chart or frame)", r.Widget)
}

func (r *Request) layout(ds *dataset.DataSet, t *widget.Table) error {
	for _, alias := range r.Pivot {
		f, err := field(ds, alias)
		if err != nil {
			return err
		}
		t.Pivot = append(t.Pivot, f)
	}
	t.Transpose = r.Transpose
	t.Hide = append(t.Hide, r.Hide...)
	return nil
}

func (r *Request) metric(ds *dataset.DataSet, m Metric) (dataset.Metric, error) {
	f, err := field(ds, m.Alias)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(m.Operation) {
	case "":
		return f, nil
	case "cumsum":
		return dataset.CumSum{Field: f}, nil
	case "cummean":
		return dataset.CumMean{Field: f}, nil
	case "cumprod":
		return dataset.CumProd{Field: f}, nil
	case "rolling_mean", "rollingmean":
		if m.Window < 1 {
			return nil, domain.ErrDataSet("rolling_mean of %q needs a window of at least 1", m.Alias)
		}
		return dataset.RollingMean{Field: f, Window: m.Window}, nil
	case "share":
		op := dataset.Share{Field: f}
		if m.Over != "" {
			over, err := field(ds, m.Over)
			if err != nil {
				return nil, err
			}
			op.Over = over
		}
		return op, nil
	}
	return nil, domain.ErrDataSet("unknown operation %q", m.Operation)
}

func dimension(ds *dataset.DataSet, d Dimension) (dataset.Dimension, error) {
	f, err := field(ds, d.Alias)
	if err != nil {
		return dataset.Dimension{}, err
	}
	dim := dataset.Dim(f)
	switch interval := strings.ToLower(d.Interval); {
	case interval == "":
	case interval == "bucket":
		if f.DataType != dataset.Number {
			return dataset.Dimension{}, domain.ErrDataSet("bucket interval on %s field %q", f.DataType, f.Alias)
		}
		if d.Size <= 0 {
			return dataset.Dimension{}, domain.ErrDataSet("bucket interval on %q needs a positive size", f.Alias)
		}
		dim = dataset.Bucket(f, d.Size, d.Start)
	default:
		unit, ok := sqlexpr.ParseDateUnit(interval)
		if !ok {
			return dataset.Dimension{}, domain.ErrDataSet("unknown interval %q", d.Interval)
		}
		if f.DataType != dataset.Date {
			return dataset.Dimension{}, domain.ErrDataSet("%s interval on %s field %q", interval, f.DataType, f.Alias)
		}
		dim = dataset.Truncate(f, unit)
	}
	if d.Rollup {
		dim = dataset.Rollup(dim)
	}
	return dim, nil
}

// Build resolves the filter against ds, coercing values to the field's type.
func (fs Filter) Build(ds *dataset.DataSet) (dataset.Filter, error) {
	f, err := field(ds, fs.Alias)
	if err != nil {
		return nil, err
	}
	op, err := dataset.ParseOperator(fs.Op)
	if err != nil {
		return nil, domain.ErrDataSetFilter("filter on %q: %v", fs.Alias, err)
	}
	values := make([]interface{}, len(fs.Values))
	for i, v := range fs.Values {
		if values[i], err = coerce(f, v); err != nil {
			return nil, err
		}
	}
	out := f.Filter(op, values...)
	if fs.OmitFromRollup {
		out = dataset.OmitFromRollup(out)
	}
	return out, nil
}

// ParseFilter reads the compact "alias:op[:v1,v2,...]" form used in query
// strings and CLI flags.
func ParseFilter(s string) (Filter, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Filter{}, domain.ErrDataSetFilter("filter %q: expected alias:op[:values]", s)
	}
	fs := Filter{Alias: parts[0], Op: parts[1]}
	if len(parts) == 3 {
		for _, v := range strings.Split(parts[2], ",") {
			fs.Values = append(fs.Values, v)
		}
	}
	return fs, nil
}

// coerce converts JSON/YAML scalars to the Go type the field's data type
// expects. Dates accept any layout dateparse recognizes.
func coerce(f *dataset.Field, v interface{}) (interface{}, error) {
	switch f.DataType {
	case dataset.Date:
		switch x := v.(type) {
		case time.Time:
			return x, nil
		case string:
			t, err := dateparse.ParseIn(x, time.UTC)
			if err != nil {
				return nil, domain.ErrDataSetFilter("filter on %q: cannot parse date %q", f.Alias, x)
			}
			return t, nil
		}
	case dataset.Number:
		switch x := v.(type) {
		case float64, int, int64:
			return x, nil
		case string:
			n, err := strconv.ParseFloat(x, 64)
			if err != nil {
				return nil, domain.ErrDataSetFilter("filter on %q: %q is not a number", f.Alias, x)
			}
			return n, nil
		}
	case dataset.Boolean:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			b, err := strconv.ParseBool(x)
			if err != nil {
				return nil, domain.ErrDataSetFilter("filter on %q: %q is not a boolean", f.Alias, x)
			}
			return b, nil
		}
	default:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	}
	return nil, domain.ErrDataSetFilter("filter on %q: unsupported value %v (%T)", f.Alias, v, v)
}

func reference(ds *dataset.DataSet, rs Reference) (dataset.Reference, error) {
	f, err := field(ds, rs.Alias)
	if err != nil {
		return dataset.Reference{}, err
	}
	var opts []dataset.ReferenceOption
	if rs.Delta {
		opts = append(opts, dataset.WithDelta())
	}
	if rs.DeltaPercent {
		opts = append(opts, dataset.WithDeltaPercent())
	}
	kind := strings.ToLower(rs.Kind)
	if ctor, ok := referenceKinds[kind]; ok {
		return ctor(f, opts...), nil
	}
	unit, ok := sqlexpr.ParseDateUnit(kind)
	if !ok || unit == sqlexpr.UnitHour {
		return dataset.Reference{}, domain.ErrDataSet("unknown reference kind %q", rs.Kind)
	}
	interval := rs.Interval
	if interval == 0 {
		interval = 1
	}
	return dataset.Shift(f, unit, interval, opts...), nil
}

func orderMetric(ds *dataset.DataSet, metrics []dataset.Metric, alias string) (dataset.Metric, error) {
	for _, m := range metrics {
		if m.MetricAlias() == alias {
			return m, nil
		}
	}
	return field(ds, alias)
}

func field(ds *dataset.DataSet, alias string) (*dataset.Field, error) {
	if f, ok := ds.Field(alias); ok {
		return f, nil
	}
	return nil, domain.ErrDataSet("dataset %q has no field %q%s", ds.Name(), alias, didYouMean(ds, alias))
}

func didYouMean(ds *dataset.DataSet, alias string) string {
	var candidates []string
	for _, f := range ds.Fields() {
		if levenshtein.ComputeDistance(alias, f.Alias) <= len(alias)/3+1 {
			candidates = append(candidates, f.Alias)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Slice(candidates, func(i, j int) bool {
		return levenshtein.ComputeDistance(alias, candidates[i]) < levenshtein.ComputeDistance(alias, candidates[j])
	})
	return fmt.Sprintf(" (did you mean %q?)", candidates[0])
}
