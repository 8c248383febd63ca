package declarative

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"fireant/dataset"
	"fireant/query"
	"fireant/sqlexpr"
	"fireant/widget"
)

const politicsYAML = `
apiVersion: fireant/v1
kind: DatasetCatalog
datasets:
  - name: politics
    table: politics.politician
    return_additional_metadata: true
    joins:
      - table: locations.district
        type: left
        on: {left: district_id, right: id}
    fields:
      - {alias: timestamp, type: date, column: timestamp, label: Date}
      - {alias: political_party, type: text, column: political_party, label: Party, hint_table: politics.hints}
      - {alias: district_name, type: text, table: locations.district, column: district_name}
      - {alias: votes, type: number, column: votes, aggregate: sum, thousands: ","}
      - {alias: wins, type: number, column: is_winner, aggregate: sum}
      - alias: votes_per_win
        type: number
        precision: 2
        formula: {op: div, args: [votes, wins]}
    annotation:
      table: politics.events
      field: {alias: event, type: text, column: description}
      alignment: {alias: event_date, type: date, column: event_date}
      aligned_with: timestamp
  - name: spending
    table: politics.spending
    fields:
      - {alias: timestamp, type: date, column: timestamp}
      - {alias: dollars, type: number, sql: "amount * 100", aggregate: sum, prefix: "$"}
blends:
  - name: politics_spending
    primary: politics
    secondary: spending
    mappings:
      - {primary: timestamp, secondary: timestamp}
    extra_fields:
      - alias: dollars_per_vote
        type: number
        formula: {op: div, args: [spending.dollars, politics.votes]}
`

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		opts    LoadOptions
		wantErr string
	}{
		{name: "valid", yaml: politicsYAML},
		{
			name:    "unknown_key",
			yaml:    "apiVersion: fireant/v1\nkind: DatasetCatalog\ndatasets: []\ncolour: blue\n",
			wantErr: "colour",
		},
		{
			name: "unknown_key_allowed",
			yaml: "apiVersion: fireant/v1\nkind: DatasetCatalog\ndatasets: []\ncolour: blue\n",
			opts: LoadOptions{AllowUnknownFields: true},
		},
		{
			name:    "bad_api_version",
			yaml:    "apiVersion: fireant/v2\nkind: DatasetCatalog\n",
			wantErr: "unsupported apiVersion",
		},
		{
			name:    "bad_kind",
			yaml:    "apiVersion: fireant/v1\nkind: Dashboard\n",
			wantErr: "unsupported kind",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), tt.opts)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuild(t *testing.T) {
	doc, err := Parse([]byte(politicsYAML), LoadOptions{})
	require.NoError(t, err)
	db := &dataset.Database{Dialect: sqlexpr.Vertica}

	cat, err := Build(doc, db)
	require.NoError(t, err)
	assert.Equal(t, []string{"politics", "spending", "politics_spending"}, cat.Names())

	politics, ok := cat.Get("politics")
	require.True(t, ok)
	assert.Same(t, db, politics.Database())
	assert.True(t, politics.ReturnAdditionalMetadata())
	assert.Equal(t, &sqlexpr.Table{Schema: "politics", Name: "politician"}, politics.Table())
	require.Len(t, politics.Joins(), 1)
	assert.Equal(t, sqlexpr.JoinLeft, politics.Joins()[0].Type)

	party := politics.MustField("political_party")
	assert.Equal(t, "Party", party.Label)
	assert.Equal(t, &sqlexpr.Table{Schema: "politics", Name: "hints"}, party.HintTable)

	votes := politics.MustField("votes")
	assert.True(t, votes.IsAggregate())
	assert.Equal(t, "votes", votes.Label)
	assert.Equal(t, ",", votes.Thousands)

	vpw := politics.MustField("votes_per_win")
	require.NotNil(t, vpw.Precision)
	assert.Equal(t, 2, *vpw.Precision)

	ann := politics.Annotation()
	require.NotNil(t, ann)
	assert.Equal(t, "timestamp", ann.DatasetAlignmentFieldAlias)
	assert.Equal(t, "event", ann.Field.Alias)

	blend, ok := cat.Get("politics_spending")
	require.True(t, ok)
	assert.True(t, blend.IsBlended())
	require.Len(t, blend.Mappings(), 1)
	_, ok = blend.Field("dollars_per_vote")
	assert.True(t, ok)
}

func TestBuild_PlansThroughQueryBuilder(t *testing.T) {
	doc, err := Parse([]byte(politicsYAML), LoadOptions{})
	require.NoError(t, err)
	cat, err := Build(doc, &dataset.Database{Dialect: sqlexpr.Vertica})
	require.NoError(t, err)

	politics, _ := cat.Get("politics")
	table, err := widget.NewTable(politics.MustField("votes_per_win"))
	require.NoError(t, err)

	sql, err := query.New(politics).
		Widget(table).
		Dimension(dataset.Dim(politics.MustField("district_name"))).
		SQL()
	require.NoError(t, err)
	require.Len(t, sql, 1)
	assert.Contains(t, sql[0], `SUM("politician"."votes")/SUM("politician"."is_winner") "$votes_per_win"`)
	assert.Contains(t, sql[0], `LEFT JOIN "locations"."district"`)
	assert.Contains(t, sql[0], `"politician"."district_id"="district"."id"`)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		wants []string
	}{
		{
			name:  "no_datasets",
			yaml:  "datasets: []",
			wants: []string{"document declares no datasets"},
		},
		{
			name: "field_problems",
			yaml: `
datasets:
  - name: p
    table: t
    fields:
      - {alias: votes, type: number, column: votes, aggregate: median}
      - {alias: votes, type: money, column: votes}
      - {alias: both, type: number, column: a, sql: b}
      - {alias: neither, type: number}
      - {alias: elsewhere, type: text, table: other, column: c}
`,
			wants: []string{
				`dataset[p].field[votes].aggregate: unknown aggregate "median"`,
				"dataset[p].field[votes]: duplicate field alias",
				`dataset[p].field[votes].type: unknown data type "money"`,
				"dataset[p].field[both]: exactly one of column, sql or formula is required",
				"dataset[p].field[neither]: exactly one of column, sql or formula is required",
				`dataset[p].field[elsewhere].table: table "other" is not the dataset table or a joined table`,
			},
		},
		{
			name: "formula_suggests_alias",
			yaml: `
datasets:
  - name: p
    table: t
    fields:
      - {alias: votes, type: number, column: votes, aggregate: sum}
      - alias: half
        type: number
        formula: {op: div, args: [vote, 2]}
      - alias: bad
        type: number
        aggregate: sum
        formula: {op: pow, args: [votes]}
`,
			wants: []string{
				`dataset[p].field[half].formula: unknown field "vote" (did you mean "votes"?)`,
				`dataset[p].field[bad].formula.op: unknown operator "pow"`,
				"dataset[p].field[bad].formula.args: at least two operands are required",
				"dataset[p].field[bad].aggregate: formulas cannot be aggregated",
			},
		},
		{
			name: "joins_and_annotation",
			yaml: `
datasets:
  - name: p
    table: t
    joins:
      - {table: j, type: sideways, from: nowhere, on: {left: a}}
    fields:
      - {alias: ts, type: date, column: ts}
    annotation:
      table: events
      field: {alias: e, type: text, column: e}
      alignment: {alias: d, type: date, column: d}
      aligned_with: tss
`,
			wants: []string{
				`dataset[p].joins[0].type: unknown join type "sideways"`,
				"dataset[p].joins[0].on: left and right columns are required",
				`dataset[p].joins[0].from: table "nowhere" is not the dataset table or an earlier join`,
				`dataset[p].annotation.aligned_with: unknown field "tss" (did you mean "ts"?)`,
			},
		},
		{
			name: "blends",
			yaml: `
datasets:
  - name: politics
    table: t
    fields:
      - {alias: ts, type: date, column: ts}
      - {alias: votes, type: number, column: votes, aggregate: sum}
  - name: spending
    table: s
    fields:
      - {alias: ts, type: date, column: ts}
blends:
  - name: politics
    primary: politcs
    secondary: spending
  - name: b
    primary: politics
    secondary: spending
    mappings: [{primary: ts, secondary: tz}]
    extra_fields:
      - {alias: raw, type: number, column: x}
      - alias: ratio
        type: number
        formula: {op: div, args: [other.votes, politics.votez]}
`,
			wants: []string{
				"blend[politics]: name collides with an earlier dataset or blend",
				`blend[politics].primary: unknown dataset "politcs" (did you mean "politics"?)`,
				`blend[b].mappings[0].secondary: unknown field "tz" (did you mean "ts"?)`,
				"blend[b].field[raw]: blend fields must be formulas",
				`blend[b].field[ratio].formula: dataset "other" is not part of this blend`,
				`blend[b].field[ratio].formula: unknown field "votez" (did you mean "votes"?)`,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte("apiVersion: fireant/v1\nkind: DatasetCatalog\n"+tt.yaml), LoadOptions{})
			require.NoError(t, err)

			var got []string
			for _, e := range Validate(doc) {
				got = append(got, e.Error())
			}
			for _, want := range tt.wants {
				assert.True(t, containsPrefix(got, want), "missing %q in\n%s", want, strings.Join(got, "\n"))
			}
		})
	}
}

func containsPrefix(list []string, prefix string) bool {
	for _, s := range list {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func TestBuild_CombinesErrors(t *testing.T) {
	doc, err := Parse([]byte(`
apiVersion: fireant/v1
kind: DatasetCatalog
datasets:
  - name: p
    fields:
      - {alias: x, type: nope, column: x}
`), LoadOptions{})
	require.NoError(t, err)

	_, err = Build(doc, nil)
	require.Error(t, err)
	errs := multierr.Errors(err)
	assert.Len(t, errs, 2)
	var ve ValidationError
	assert.ErrorAs(t, errs[0], &ve)
	assert.Equal(t, "dataset[p].table", ve.Path)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "datasets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(politicsYAML), 0o600))

	cat, err := Load(path, nil, LoadOptions{})
	require.NoError(t, err)
	assert.Len(t, cat.Names(), 3)

	_, err = Load(filepath.Join(dir, "missing.yaml"), nil, LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read ")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("apiVersion: fireant/v1\nkind: DatasetCatalog\ndatasets: []\n"), 0o600))
	_, err = Load(bad, nil, LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}

func TestMarshal_SortsDatasets(t *testing.T) {
	doc := &Document{
		APIVersion: SupportedAPIVersion,
		Kind:       KindDatasetCatalog,
		Datasets: []DatasetSpec{
			{Name: "zeta", Table: "z", Fields: []FieldSpec{{Alias: "a", Type: "text", Column: "a"}}},
			{Name: "alpha", Table: "a", Fields: []FieldSpec{{Alias: "a", Type: "text", Column: "a"}}},
		},
	}
	out, err := Marshal(doc)
	require.NoError(t, err)
	assert.Less(t, strings.Index(string(out), "alpha"), strings.Index(string(out), "zeta"))
	assert.Equal(t, "zeta", doc.Datasets[0].Name)

	back, err := Parse(out, LoadOptions{})
	require.NoError(t, err)
	assert.Len(t, back.Datasets, 2)
}
