// Package declarative loads dataset and blend definitions from YAML.
//
// A document looks like:
//
//	apiVersion: fireant/v1
//	kind: DatasetCatalog
//	datasets:
//	  - name: politics
//	    table: politics.politician
//	    joins:
//	      - table: locations.district
//	        type: left
//	        on: {left: district_id, right: id}
//	    fields:
//	      - {alias: timestamp, type: date, column: timestamp}
//	      - {alias: votes, type: number, column: votes, aggregate: sum}
//	      - {alias: district_name, type: text, table: locations.district, column: district_name}
//	      - {alias: votes_per_win, type: number, formula: {op: div, args: [votes, wins]}}
//	blends:
//	  - name: politics_spend
//	    primary: politics
//	    secondary: spending
//	    mappings: [{primary: timestamp, secondary: timestamp}]
package declarative

// SupportedAPIVersion is the only accepted apiVersion.
const SupportedAPIVersion = "fireant/v1"

// KindDatasetCatalog is the only accepted document kind.
const KindDatasetCatalog = "DatasetCatalog"

// Document is the top-level YAML document.
type Document struct {
	APIVersion string        `yaml:"apiVersion"`
	Kind       string        `yaml:"kind"`
	Datasets   []DatasetSpec `yaml:"datasets"`
	Blends     []BlendSpec   `yaml:"blends,omitempty"`
}

// DatasetSpec declares one dataset.
type DatasetSpec struct {
	Name                     string          `yaml:"name"`
	Table                    string          `yaml:"table"`
	ReturnAdditionalMetadata bool            `yaml:"return_additional_metadata,omitempty"`
	Joins                    []JoinSpec      `yaml:"joins,omitempty"`
	Fields                   []FieldSpec     `yaml:"fields"`
	ExtraFields              []FieldSpec     `yaml:"extra_fields,omitempty"`
	Annotation               *AnnotationSpec `yaml:"annotation,omitempty"`
}

// JoinSpec attaches Table on From.Left = Table.Right. From defaults to the
// dataset's base table.
type JoinSpec struct {
	Table string `yaml:"table"`
	Type  string `yaml:"type,omitempty"`
	From  string `yaml:"from,omitempty"`
	On    OnSpec `yaml:"on"`
}

// OnSpec names the equi-join columns.
type OnSpec struct {
	Left  string `yaml:"left"`
	Right string `yaml:"right"`
}

// FieldSpec declares a field. Exactly one of Column, SQL or Formula must be
// set. Aggregate wraps Column or SQL.
type FieldSpec struct {
	Alias     string       `yaml:"alias"`
	Label     string       `yaml:"label,omitempty"`
	Type      string       `yaml:"type"`
	Table     string       `yaml:"table,omitempty"`
	Column    string       `yaml:"column,omitempty"`
	SQL       string       `yaml:"sql,omitempty"`
	Aggregate string       `yaml:"aggregate,omitempty"`
	Formula   *FormulaSpec `yaml:"formula,omitempty"`

	Precision *int   `yaml:"precision,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	Suffix    string `yaml:"suffix,omitempty"`
	Thousands string `yaml:"thousands,omitempty"`
	Hyperlink string `yaml:"hyperlink,omitempty"`
	HintTable string `yaml:"hint_table,omitempty"`
}

// FormulaSpec combines other fields arithmetically. Args name fields of the
// same dataset, or "dataset.alias" inside a blend.
type FormulaSpec struct {
	Op   string   `yaml:"op"`
	Args []string `yaml:"args"`
}

// AnnotationSpec declares a side table aligned with a dataset dimension.
type AnnotationSpec struct {
	Table       string    `yaml:"table"`
	Field       FieldSpec `yaml:"field"`
	Alignment   FieldSpec `yaml:"alignment"`
	AlignedWith string    `yaml:"aligned_with"`
}

// BlendSpec composes two declared datasets (or blends).
type BlendSpec struct {
	Name        string        `yaml:"name"`
	Primary     string        `yaml:"primary"`
	Secondary   string        `yaml:"secondary"`
	Mappings    []MappingSpec `yaml:"mappings,omitempty"`
	ExtraFields []FieldSpec   `yaml:"extra_fields,omitempty"`
}

// MappingSpec equates a primary field with a secondary one.
type MappingSpec struct {
	Primary   string `yaml:"primary"`
	Secondary string `yaml:"secondary"`
}
