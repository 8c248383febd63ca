package query

import (
	"context"

	"fireant/dataset"
	"fireant/domain"
	"fireant/frame"
	"fireant/planner"
	"fireant/widget"
)

// Choice is one distinct value of a dimension with its display label.
type Choice struct {
	Value interface{} `json:"value"`
	Label string      `json:"label"`
}

// ChoicesBuilder lists the distinct values of one dimension field.
type ChoicesBuilder struct {
	ds      *dataset.DataSet
	field   *dataset.Field
	filters []dataset.Filter
}

// Choices starts a dimension-choices query for f.
func Choices(ds *dataset.DataSet, f *dataset.Field) *ChoicesBuilder {
	return &ChoicesBuilder{ds: ds, field: f}
}

// Filter narrows the choices. Only dimension filters are accepted.
func (b *ChoicesBuilder) Filter(fs ...dataset.Filter) *ChoicesBuilder {
	c := *b
	c.filters = append(append([]dataset.Filter{}, b.filters...), fs...)
	return &c
}

// SQL returns the choices statement.
func (b *ChoicesBuilder) SQL() (string, error) {
	return planner.Choices(b.ds, b.field, b.filters, "")
}

// Fetch executes the choices statement.
func (b *ChoicesBuilder) Fetch(ctx context.Context, hint string) ([]Choice, error) {
	sqlQuery, err := planner.Choices(b.ds, b.field, b.filters, hint)
	if err != nil {
		return nil, err
	}
	res, err := runOne(ctx, b.ds, sqlQuery)
	if err != nil {
		return nil, err
	}
	kind := planner.KindOf(b.field.DataType)
	out := make([]Choice, 0, res.RowCount)
	for _, row := range res.Rows {
		if len(row) == 0 {
			continue
		}
		v := frame.NormalizeKey(row[0], kind)
		out = append(out, Choice{Value: v, Label: widget.Display(b.field, v)})
	}
	return out, nil
}

// LatestBuilder fetches the maximum value of date fields.
type LatestBuilder struct {
	ds     *dataset.DataSet
	fields []*dataset.Field
}

// Latest starts a latest-value query for fields.
func Latest(ds *dataset.DataSet, fields ...*dataset.Field) *LatestBuilder {
	return &LatestBuilder{ds: ds, fields: fields}
}

// SQL returns the latest-value statement.
func (b *LatestBuilder) SQL() (string, error) {
	return planner.Latest(b.ds, b.fields...)
}

// Fetch returns the latest value of each field keyed by alias.
func (b *LatestBuilder) Fetch(ctx context.Context) (map[string]interface{}, error) {
	sqlQuery, err := planner.Latest(b.ds, b.fields...)
	if err != nil {
		return nil, err
	}
	res, err := runOne(ctx, b.ds, sqlQuery)
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(b.fields))
	if res.RowCount == 0 {
		return out, nil
	}
	for _, f := range b.fields {
		for i, col := range res.Columns {
			if col == f.Selector() {
				out[f.Alias] = frame.NormalizeKey(res.Rows[0][i], planner.KindOf(f.DataType))
			}
		}
	}
	if len(out) != len(b.fields) {
		return nil, domain.ErrPlan("latest query returned %d of %d fields", len(out), len(b.fields))
	}
	return out, nil
}
