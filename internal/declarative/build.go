package declarative

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"fireant/dataset"
	"fireant/sqlexpr"
)

// Build validates doc and constructs its datasets and blends. Every problem
// is reported; the returned error combines them with multierr.
func Build(doc *Document, db *dataset.Database) (*Catalog, error) {
	var err error
	for _, ve := range Validate(doc) {
		err = multierr.Append(err, ve)
	}
	if err != nil {
		return nil, err
	}

	cat := &Catalog{byName: make(map[string]*dataset.DataSet, len(doc.Datasets)+len(doc.Blends))}
	for i := range doc.Datasets {
		ds, buildErr := buildDataset(&doc.Datasets[i], db)
		if buildErr != nil {
			err = multierr.Append(err, fmt.Errorf("dataset[%s]: %w", doc.Datasets[i].Name, buildErr))
			continue
		}
		cat.add(ds)
	}
	if err != nil {
		return nil, err
	}
	for i := range doc.Blends {
		ds, buildErr := buildBlend(&doc.Blends[i], cat)
		if buildErr != nil {
			err = multierr.Append(err, fmt.Errorf("blend[%s]: %w", doc.Blends[i].Name, buildErr))
			continue
		}
		cat.add(ds)
	}
	if err != nil {
		return nil, err
	}
	return cat, nil
}

func (c *Catalog) add(ds *dataset.DataSet) {
	c.byName[ds.Name()] = ds
	c.order = append(c.order, ds.Name())
}

// ParseTable splits "schema.name" into a table reference.
func ParseTable(s string) *sqlexpr.Table {
	if schema, name, ok := strings.Cut(s, "."); ok {
		return &sqlexpr.Table{Schema: schema, Name: name}
	}
	return &sqlexpr.Table{Name: s}
}

func buildDataset(d *DatasetSpec, db *dataset.Database) (*dataset.DataSet, error) {
	base := ParseTable(d.Table)
	tables := map[string]*sqlexpr.Table{d.Table: base}

	joins := make([]dataset.Join, 0, len(d.Joins))
	for _, j := range d.Joins {
		t := ParseTable(j.Table)
		from := base
		if j.From != "" {
			from = tables[j.From]
		}
		typ, _ := sqlexpr.ParseJoinType(j.Type)
		joins = append(joins, dataset.Join{
			Table:     t,
			Criterion: sqlexpr.Eq(sqlexpr.Col(from, j.On.Left), sqlexpr.Col(t, j.On.Right)),
			Type:      typ,
		})
		tables[j.Table] = t
	}

	resolve := func(arg string) sqlexpr.Expr { return dataset.Ref(arg) }
	fields, err := buildFields(d.Fields, base, tables, resolve)
	if err != nil {
		return nil, err
	}
	extra, err := buildFields(d.ExtraFields, base, tables, resolve)
	if err != nil {
		return nil, err
	}

	var annotation *dataset.Annotation
	if a := d.Annotation; a != nil {
		t := ParseTable(a.Table)
		at := map[string]*sqlexpr.Table{a.Table: t}
		af, err := buildField(&a.Field, t, at, resolve)
		if err != nil {
			return nil, err
		}
		alignment, err := buildField(&a.Alignment, t, at, resolve)
		if err != nil {
			return nil, err
		}
		annotation = &dataset.Annotation{
			Table:                      t,
			Field:                      af,
			AlignmentField:             alignment,
			DatasetAlignmentFieldAlias: a.AlignedWith,
		}
	}

	return dataset.New(dataset.Config{
		Name:                     d.Name,
		Table:                    base,
		Database:                 db,
		Fields:                   fields,
		ExtraFields:              extra,
		Joins:                    joins,
		Annotation:               annotation,
		ReturnAdditionalMetadata: d.ReturnAdditionalMetadata,
	})
}

func buildBlend(b *BlendSpec, cat *Catalog) (*dataset.DataSet, error) {
	primary, _ := cat.Get(b.Primary)
	secondary, _ := cat.Get(b.Secondary)

	mappings := make([]dataset.Mapping, 0, len(b.Mappings))
	for _, m := range b.Mappings {
		p, ok := primary.Field(m.Primary)
		if !ok {
			return nil, fmt.Errorf("primary %q has no field %q", b.Primary, m.Primary)
		}
		s, ok := secondary.Field(m.Secondary)
		if !ok {
			return nil, fmt.Errorf("secondary %q has no field %q", b.Secondary, m.Secondary)
		}
		mappings = append(mappings, dataset.Mapping{Primary: p, Secondary: s})
	}

	resolve := func(arg string) sqlexpr.Expr {
		if source, alias, ok := strings.Cut(arg, "."); ok {
			return &sqlexpr.Ref{Source: source, Alias: alias}
		}
		return dataset.Ref(arg)
	}
	extra, err := buildFields(b.ExtraFields, nil, nil, resolve)
	if err != nil {
		return nil, err
	}
	return dataset.Blend(b.Name, primary, secondary, mappings, extra...)
}

func buildFields(specs []FieldSpec, base *sqlexpr.Table, tables map[string]*sqlexpr.Table, resolve func(string) sqlexpr.Expr) ([]*dataset.Field, error) {
	out := make([]*dataset.Field, 0, len(specs))
	for i := range specs {
		f, err := buildField(&specs[i], base, tables, resolve)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func buildField(s *FieldSpec, base *sqlexpr.Table, tables map[string]*sqlexpr.Table, resolve func(string) sqlexpr.Expr) (*dataset.Field, error) {
	dt, err := dataset.ParseDataType(s.Type)
	if err != nil {
		return nil, err
	}

	var def sqlexpr.Expr
	switch {
	case s.Formula != nil:
		def, err = formula(s.Formula, resolve)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", s.Alias, err)
		}
	case s.SQL != "":
		def = &sqlexpr.Raw{SQL: s.SQL}
	default:
		t := base
		if s.Table != "" {
			t = tables[s.Table]
		}
		def = sqlexpr.Col(t, s.Column)
	}
	if s.Aggregate != "" {
		def = aggregate(s.Aggregate, def)
	}

	f := dataset.NewField(s.Alias, dt, def)
	if s.Label != "" {
		f.Label = s.Label
	}
	f.Precision = s.Precision
	f.Prefix = s.Prefix
	f.Suffix = s.Suffix
	f.Thousands = s.Thousands
	f.HyperlinkTemplate = s.Hyperlink
	if s.HintTable != "" {
		f.HintTable = ParseTable(s.HintTable)
	}
	return f, nil
}

func aggregate(name string, e sqlexpr.Expr) sqlexpr.Expr {
	switch strings.ToLower(name) {
	case "count":
		return sqlexpr.Count(e)
	case "count_distinct":
		return sqlexpr.CountDistinct(e)
	case "avg":
		return sqlexpr.Avg(e)
	case "min":
		return sqlexpr.Min(e)
	case "max":
		return sqlexpr.Max(e)
	default:
		return sqlexpr.Sum(e)
	}
}

// formula folds args left to right with op. Numeric args become literals.
func formula(spec *FormulaSpec, resolve func(string) sqlexpr.Expr) (sqlexpr.Expr, error) {
	var combine func(l, r sqlexpr.Expr) *sqlexpr.Arith
	switch strings.ToLower(spec.Op) {
	case "add":
		combine = sqlexpr.Add
	case "sub":
		combine = sqlexpr.Sub
	case "mul":
		combine = sqlexpr.Mul
	case "div":
		combine = sqlexpr.Div
	default:
		return nil, fmt.Errorf("unknown formula operator %q", spec.Op)
	}

	operand := func(arg string) sqlexpr.Expr {
		if n, err := strconv.ParseFloat(arg, 64); err == nil {
			return sqlexpr.Lit(n)
		}
		return resolve(arg)
	}
	var out sqlexpr.Expr = operand(spec.Args[0])
	for _, arg := range spec.Args[1:] {
		out = combine(out, operand(arg))
	}
	return out, nil
}
