package dataset

import (
	"log/slog"
	"time"

	"fireant/domain"
	"fireant/sqlexpr"
)

const (
	// DefaultMaxResultSet caps rows returned by any planned statement.
	DefaultMaxResultSet = 200000
	// DefaultSlowQueryThreshold is the elapsed time after which a statement is reported.
	DefaultSlowQueryThreshold = 15 * time.Second
)

// Database is the execution target of a dataset.
type Database struct {
	Dialect  sqlexpr.Dialect
	Executor domain.QueryExecutor

	// MaxWorkers bounds concurrent statements per fetch. Zero means 1.
	MaxWorkers         int
	SlowQueryThreshold time.Duration
	MaxResultSet       int
	OnSlowQuery        domain.SlowQueryHook
	Logger             *slog.Logger
}

// RowCap is the server-side LIMIT applied when a query has none.
func (db *Database) RowCap() int {
	if db == nil || db.MaxResultSet <= 0 {
		return DefaultMaxResultSet
	}
	return db.MaxResultSet
}

// SQLDialect returns the configured dialect, defaulting to Vertica.
func (db *Database) SQLDialect() sqlexpr.Dialect {
	if db == nil || db.Dialect == nil {
		return sqlexpr.Vertica
	}
	return db.Dialect
}

// Join attaches a table to the dataset's base table.
type Join struct {
	Table     *sqlexpr.Table
	Criterion sqlexpr.Expr
	Type      sqlexpr.JoinType
}

// Annotation is a side table fetched alongside results when the first
// dimension is aligned with DatasetAlignmentFieldAlias.
type Annotation struct {
	Table                      *sqlexpr.Table
	Field                      *Field
	AlignmentField             *Field
	DatasetAlignmentFieldAlias string
}

// Config describes a dataset for New.
type Config struct {
	Name     string
	Table    *sqlexpr.Table
	Database *Database
	Fields   []*Field
	// ExtraFields may be selected as metrics but never as dimensions.
	ExtraFields              []*Field
	Joins                    []Join
	Annotation               *Annotation
	ReturnAdditionalMetadata bool
}

// DataSet is a named collection of fields over a base table plus joins. A
// blended dataset (see Blend) composes several datasets instead. Datasets are
// read-only once built.
type DataSet struct {
	name           string
	table          *sqlexpr.Table
	database       *Database
	fields         []*Field
	byAlias        map[string]*Field
	joins          []Join
	annotation     *Annotation
	returnMetadata bool
	blend          *blend
}

// New validates cfg and registers its fields with the dataset.
func New(cfg Config) (*DataSet, error) {
	if cfg.Name == "" {
		return nil, domain.ErrDataSet("dataset name is required")
	}
	if cfg.Table == nil {
		return nil, domain.ErrDataSet("dataset %q has no table", cfg.Name)
	}
	ds := &DataSet{
		name:           cfg.Name,
		table:          cfg.Table,
		database:       cfg.Database,
		byAlias:        make(map[string]*Field, len(cfg.Fields)+len(cfg.ExtraFields)),
		joins:          cfg.Joins,
		annotation:     cfg.Annotation,
		returnMetadata: cfg.ReturnAdditionalMetadata,
	}
	for _, f := range cfg.Fields {
		if err := ds.register(f, false); err != nil {
			return nil, err
		}
	}
	for _, f := range cfg.ExtraFields {
		if err := ds.register(f, true); err != nil {
			return nil, err
		}
	}
	for _, j := range cfg.Joins {
		if j.Table == nil || j.Criterion == nil {
			return nil, domain.ErrDataSet("dataset %q has a join without table or criterion", cfg.Name)
		}
	}
	if a := cfg.Annotation; a != nil {
		if a.Table == nil || a.Field == nil || a.AlignmentField == nil {
			return nil, domain.ErrDataSet("dataset %q annotation is incomplete", cfg.Name)
		}
		if _, ok := ds.byAlias[a.DatasetAlignmentFieldAlias]; !ok {
			return nil, domain.ErrDataSet("dataset %q annotation aligns with unknown field %q", cfg.Name, a.DatasetAlignmentFieldAlias)
		}
	}
	return ds, nil
}

func (ds *DataSet) register(f *Field, extra bool) error {
	if f == nil || f.Alias == "" {
		return domain.ErrDataSet("dataset %q has a field without alias", ds.name)
	}
	if f.Definition == nil {
		return domain.ErrDataSet("field %q in dataset %q has no definition", f.Alias, ds.name)
	}
	if _, dup := ds.byAlias[f.Alias]; dup {
		return domain.ErrDataSet("duplicate field alias %q in dataset %q", f.Alias, ds.name)
	}
	if f.owner != nil && f.owner != ds {
		return domain.ErrDataSet("field %q already belongs to dataset %q", f.Alias, f.owner.name)
	}
	if f.Label == "" {
		f.Label = f.Alias
	}
	f.owner = ds
	f.extra = extra
	ds.fields = append(ds.fields, f)
	ds.byAlias[f.Alias] = f
	return nil
}

func (ds *DataSet) Name() string            { return ds.name }
func (ds *DataSet) Table() *sqlexpr.Table   { return ds.table }
func (ds *DataSet) Joins() []Join           { return ds.joins }
func (ds *DataSet) Annotation() *Annotation { return ds.annotation }

// ReturnAdditionalMetadata wraps fetch results with row-count metadata.
func (ds *DataSet) ReturnAdditionalMetadata() bool { return ds.returnMetadata }

// Database returns the execution target. Blends use the primary's.
func (ds *DataSet) Database() *Database {
	if ds.blend != nil {
		return ds.blend.primary.Database()
	}
	return ds.database
}

// Fields lists the selectable fields in declaration order.
func (ds *DataSet) Fields() []*Field {
	out := make([]*Field, len(ds.fields))
	copy(out, ds.fields)
	return out
}

// Field looks up a field by alias.
func (ds *DataSet) Field(alias string) (*Field, bool) {
	f, ok := ds.byAlias[alias]
	return f, ok
}

// MustField looks up a field by alias and panics when it does not exist.
func (ds *DataSet) MustField(alias string) *Field {
	f, ok := ds.byAlias[alias]
	if !ok {
		panic("dataset " + ds.name + ": unknown field " + alias)
	}
	return f
}

// Ref references one of this dataset's fields from another definition.
func (ds *DataSet) Ref(alias string) *sqlexpr.Ref {
	return &sqlexpr.Ref{Source: ds.name, Alias: alias}
}

// Ref references a field of the dataset the definition is registered with.
func Ref(alias string) *sqlexpr.Ref {
	return &sqlexpr.Ref{Alias: alias}
}

// Owns reports whether f belongs to this dataset's namespace.
func (ds *DataSet) Owns(f *Field) bool {
	got, ok := ds.byAlias[f.Alias]
	return ok && got == f
}

// ResolveRef finds the field a definition reference points to. Unqualified
// references resolve in from's namespace; qualified ones name a dataset
// within from's blend tree.
func (ds *DataSet) ResolveRef(from *DataSet, ref *sqlexpr.Ref) (*Field, error) {
	scope := from
	if scope == nil {
		scope = ds
	}
	if ref.Source != "" && ref.Source != scope.name {
		scope = nil
		for _, leaf := range ds.allDatasets() {
			if leaf.name == ref.Source {
				scope = leaf
				break
			}
		}
		if scope == nil {
			return nil, domain.ErrPlan("reference to unknown dataset %q", ref.Source)
		}
	}
	f, ok := scope.byAlias[ref.Alias]
	if !ok {
		return nil, domain.ErrPlan("reference to unknown field %q in dataset %q", ref.Alias, scope.name)
	}
	return f, nil
}
