package planner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fireant/dataset"
	"fireant/domain"
	"fireant/sqlexpr"
)

var (
	politicianTable = &sqlexpr.Table{Schema: "politics", Name: "politician"}
	districtTable   = &sqlexpr.Table{Schema: "locations", Name: "district"}
	stateTable      = &sqlexpr.Table{Schema: "locations", Name: "state"}
	spendTable      = &sqlexpr.Table{Schema: "politics", Name: "spend"}
	hintTable       = &sqlexpr.Table{Schema: "politics", Name: "hints"}
	electionTable   = &sqlexpr.Table{Schema: "politics", Name: "election"}
)

func col(name string) *sqlexpr.Column { return sqlexpr.Col(politicianTable, name) }

func politics(t *testing.T) *dataset.DataSet {
	t.Helper()
	party := dataset.NewField("political_party", dataset.Text, col("political_party"))
	party.HintTable = hintTable
	ds, err := dataset.New(dataset.Config{
		Name:  "politics",
		Table: politicianTable,
		Fields: []*dataset.Field{
			dataset.NewField("timestamp", dataset.Date, col("timestamp")),
			party,
			dataset.NewField("text", dataset.Text, col("text")),
			dataset.NewField("candidate_id", dataset.Number, col("candidate_id")),
			dataset.NewField("votes", dataset.Number, sqlexpr.Sum(col("votes"))),
			dataset.NewField("wins", dataset.Number, sqlexpr.Sum(col("is_winner"))),
			dataset.NewField("district_name", dataset.Text, sqlexpr.Col(districtTable, "district_name")),
			dataset.NewField("state", dataset.Text, sqlexpr.Col(stateTable, "state_name")),
			dataset.NewField("votes_per_win", dataset.Number, sqlexpr.Div(dataset.Ref("votes"), dataset.Ref("wins"))),
		},
		Joins: []dataset.Join{
			{Table: districtTable, Type: sqlexpr.JoinLeft, Criterion: sqlexpr.Eq(col("district_id"), sqlexpr.Col(districtTable, "id"))},
			{Table: stateTable, Type: sqlexpr.JoinInner, Criterion: sqlexpr.Eq(sqlexpr.Col(districtTable, "state_id"), sqlexpr.Col(stateTable, "id"))},
		},
		Annotation: &dataset.Annotation{
			Table:                      electionTable,
			Field:                      dataset.NewField("election", dataset.Text, sqlexpr.Col(electionTable, "name")),
			AlignmentField:             dataset.NewField("election_date", dataset.Date, sqlexpr.Col(electionTable, "date")),
			DatasetAlignmentFieldAlias: "timestamp",
		},
	})
	require.NoError(t, err)
	return ds
}

func spending(t *testing.T) *dataset.DataSet {
	t.Helper()
	ds, err := dataset.New(dataset.Config{
		Name:  "spending",
		Table: spendTable,
		Fields: []*dataset.Field{
			dataset.NewField("timestamp", dataset.Date, sqlexpr.Col(spendTable, "timestamp")),
			dataset.NewField("spend", dataset.Number, sqlexpr.Sum(sqlexpr.Col(spendTable, "spend"))),
			dataset.NewField("channel", dataset.Text, sqlexpr.Col(spendTable, "channel")),
		},
	})
	require.NoError(t, err)
	return ds
}

func blended(t *testing.T) (*dataset.DataSet, *dataset.DataSet, *dataset.DataSet) {
	t.Helper()
	primary, secondary := politics(t), spending(t)
	cpv := dataset.NewField("cost_per_vote", dataset.Number,
		sqlexpr.Div(secondary.Ref("spend"), primary.Ref("votes")))
	ds, err := dataset.Blend("blend", primary, secondary, []dataset.Mapping{
		{Primary: primary.MustField("timestamp"), Secondary: secondary.MustField("timestamp")},
	}, cpv)
	require.NoError(t, err)
	return ds, primary, secondary
}

func build(t *testing.T, spec Spec) *Plan {
	t.Helper()
	plan, err := Build(spec)
	require.NoError(t, err)
	return plan
}

func TestBuild_Scenarios(t *testing.T) {
	ds := politics(t)
	votes := ds.MustField("votes")
	ts := ds.MustField("timestamp")

	t.Run("simple_aggregate", func(t *testing.T) {
		plan := build(t, Spec{DataSet: ds, Metrics: []dataset.Metric{votes}})
		assert.Equal(t, []string{
			`SELECT SUM("votes") "$votes" FROM "politics"."politician" ORDER BY 1 LIMIT 200000`,
		}, plan.SQL())
	})

	t.Run("truncated_dimension", func(t *testing.T) {
		plan := build(t, Spec{DataSet: ds, Metrics: []dataset.Metric{votes}, Dimensions: []dataset.Dimension{dataset.Day(ts)}})
		assert.Equal(t, []string{
			`SELECT TRUNC("timestamp",'DD') "$timestamp", SUM("votes") "$votes" FROM "politics"."politician" GROUP BY "$timestamp" ORDER BY "$timestamp" LIMIT 200000`,
		}, plan.SQL())
	})

	t.Run("day_over_day", func(t *testing.T) {
		plan := build(t, Spec{
			DataSet:    ds,
			Metrics:    []dataset.Metric{votes},
			Dimensions: []dataset.Dimension{dataset.Day(ts)},
			References: []dataset.Reference{dataset.DayOverDay(ts)},
		})
		assert.Equal(t, []string{
			`SELECT TRUNC("timestamp",'DD') "$timestamp", SUM("votes") "$votes" FROM "politics"."politician" GROUP BY "$timestamp" ORDER BY "$timestamp" LIMIT 200000`,
			`SELECT TRUNC(TIMESTAMPADD('day',1,"timestamp"),'DD') "$timestamp", SUM("votes") "$votes_dod" FROM "politics"."politician" GROUP BY "$timestamp" ORDER BY "$timestamp" LIMIT 200000`,
		}, plan.SQL())
		assert.False(t, plan.Paginated)
		require.Len(t, plan.Statements[1].References, 1)
		assert.Equal(t, "dod", plan.Statements[1].References[0].Alias)
	})

	t.Run("rollup", func(t *testing.T) {
		party := ds.MustField("political_party")
		plan := build(t, Spec{
			DataSet:    ds,
			Metrics:    []dataset.Metric{votes},
			Dimensions: []dataset.Dimension{dataset.Rollup(dataset.Dim(party))},
		})
		assert.Equal(t, []string{
			`SELECT "political_party" "$political_party", SUM("votes") "$votes" FROM "politics"."politician" GROUP BY "$political_party" ORDER BY "$political_party" LIMIT 200000`,
			`SELECT '_FIREANT_ROLLUP_VALUE_' "$political_party", SUM("votes") "$votes" FROM "politics"."politician" ORDER BY "$political_party" LIMIT 200000`,
		}, plan.SQL())
		assert.Equal(t, 0, plan.Statements[1].RollupFrom)
		assert.True(t, plan.Levels[0].Rollup)
	})

	t.Run("result_set_replaces_dimension", func(t *testing.T) {
		text := ds.MustField("text")
		plan := build(t, Spec{
			DataSet:    ds,
			Metrics:    []dataset.Metric{votes},
			Dimensions: []dataset.Dimension{dataset.Dim(text)},
			Filters:    []dataset.Filter{dataset.ResultSet(text.Eq("abc"))},
		})
		assert.Equal(t, []string{
			`SELECT CASE WHEN "text"='abc' THEN 'set(text=''abc'')' ELSE 'complement(text=''abc'')' END "$set(text='abc')", SUM("votes") "$votes" FROM "politics"."politician" GROUP BY "$set(text='abc')" ORDER BY "$set(text='abc')" LIMIT 200000`,
		}, plan.SQL())
		assert.Equal(t, []string{"$set(text='abc')"}, plan.Selectors())
	})

	t.Run("blend_left_joins_on_mapped_dimension", func(t *testing.T) {
		bds, primary, secondary := blended(t)
		plan := build(t, Spec{
			DataSet:    bds,
			Metrics:    []dataset.Metric{primary.MustField("votes"), secondary.MustField("spend")},
			Dimensions: []dataset.Dimension{dataset.Day(bds.MustField("timestamp"))},
		})
		assert.Equal(t, []string{
			`SELECT "sq0"."$timestamp" "$timestamp", "sq0"."$votes" "$votes", "sq1"."$spend" "$spend" ` +
				`FROM (SELECT TRUNC("timestamp",'DD') "$timestamp", SUM("votes") "$votes" FROM "politics"."politician" GROUP BY "$timestamp") "sq0" ` +
				`LEFT JOIN (SELECT TRUNC("timestamp",'DD') "$timestamp", SUM("spend") "$spend" FROM "politics"."spend" GROUP BY "$timestamp") "sq1" ` +
				`ON "sq1"."$timestamp"="sq0"."$timestamp" ORDER BY "$timestamp" LIMIT 200000`,
		}, plan.SQL())
	})
}

func TestBuild_FanOut(t *testing.T) {
	ds := politics(t)
	ts := ds.MustField("timestamp")
	party := ds.MustField("political_party")
	state := ds.MustField("state")

	plan := build(t, Spec{
		DataSet: ds,
		Metrics: []dataset.Metric{ds.MustField("votes")},
		Dimensions: []dataset.Dimension{
			dataset.Day(ts),
			dataset.Rollup(dataset.Dim(party)),
			dataset.Rollup(dataset.Dim(state)),
		},
		References: []dataset.Reference{dataset.DayOverDay(ts), dataset.YearOverYear(ts)},
	})

	// (1 + references) x (1 + rollups), rollup-major.
	require.Len(t, plan.Statements, 9)
	var got [][2]interface{}
	for _, s := range plan.Statements {
		alias := ""
		if len(s.References) > 0 {
			alias = s.References[0].Alias
		}
		got = append(got, [2]interface{}{s.RollupFrom, alias})
	}
	assert.Equal(t, [][2]interface{}{
		{-1, ""}, {-1, "dod"}, {-1, "yoy"},
		{1, ""}, {1, "dod"}, {1, "yoy"},
		{2, ""}, {2, "dod"}, {2, "yoy"},
	}, got)

	assert.Contains(t, plan.Statements[3].SQL, `'_FIREANT_ROLLUP_VALUE_' "$political_party"`)
	assert.Contains(t, plan.Statements[3].SQL, `'_FIREANT_ROLLUP_VALUE_' "$state"`)
	assert.NotContains(t, plan.Statements[6].SQL, `'_FIREANT_ROLLUP_VALUE_' "$political_party"`)
	assert.Contains(t, plan.Statements[6].SQL, `'_FIREANT_ROLLUP_VALUE_' "$state"`)
	assert.Contains(t, plan.Statements[2].SQL, `TIMESTAMPADD('year',1,"politician"."timestamp")`)
}

func TestBuild_YearOverYearOnWeeks(t *testing.T) {
	ds := politics(t)
	ts := ds.MustField("timestamp")
	plan := build(t, Spec{
		DataSet:    ds,
		Metrics:    []dataset.Metric{ds.MustField("votes")},
		Dimensions: []dataset.Dimension{dataset.Week(ts)},
		Filters:    []dataset.Filter{ts.Between("2019-01-01", "2019-12-31")},
		References: []dataset.Reference{dataset.YearOverYear(ts)},
	})
	require.Len(t, plan.Statements, 2)

	leap := `TIMESTAMPADD('year',-1,TRUNC(TIMESTAMPADD('year',1,"timestamp"),'IW'))`
	assert.Equal(t,
		`SELECT `+leap+` "$timestamp", SUM("votes") "$votes_yoy" FROM "politics"."politician" `+
			`WHERE `+leap+` BETWEEN '2019-01-01' AND '2019-12-31' GROUP BY "$timestamp" ORDER BY "$timestamp" LIMIT 200000`,
		plan.SQL()[1])
	assert.Contains(t, plan.SQL()[0], `TRUNC("timestamp",'IW') "$timestamp"`)

	t.Run("other_units_keep_plain_shift", func(t *testing.T) {
		plan := build(t, Spec{
			DataSet:    ds,
			Metrics:    []dataset.Metric{ds.MustField("votes")},
			Dimensions: []dataset.Dimension{dataset.Week(ts)},
			References: []dataset.Reference{dataset.WeekOverWeek(ts)},
		})
		assert.Contains(t, plan.SQL()[1], `TRUNC(TIMESTAMPADD('week',1,"timestamp"),'IW') "$timestamp"`)
		assert.NotContains(t, plan.SQL()[1], `-1`)
	})
}

func TestBuild_SharedReferenceShift(t *testing.T) {
	ds := politics(t)
	ts := ds.MustField("timestamp")
	plan := build(t, Spec{
		DataSet:    ds,
		Metrics:    []dataset.Metric{ds.MustField("votes")},
		Dimensions: []dataset.Dimension{dataset.Day(ts)},
		References: []dataset.Reference{
			dataset.DayOverDay(ts),
			dataset.DayOverDay(ts, dataset.WithDelta()),
		},
	})
	require.Len(t, plan.Statements, 2)
	assert.Len(t, plan.Statements[1].References, 2)
}

func TestBuild_Joins(t *testing.T) {
	ds := politics(t)
	votes := ds.MustField("votes")

	t.Run("transitive", func(t *testing.T) {
		plan := build(t, Spec{
			DataSet:    ds,
			Metrics:    []dataset.Metric{votes},
			Dimensions: []dataset.Dimension{dataset.Dim(ds.MustField("state"))},
		})
		assert.Equal(t,
			`SELECT "state"."state_name" "$state", SUM("politician"."votes") "$votes" FROM "politics"."politician" `+
				`LEFT JOIN "locations"."district" ON "politician"."district_id"="district"."id" `+
				`JOIN "locations"."state" ON "district"."state_id"="state"."id" `+
				`GROUP BY "$state" ORDER BY "$state" LIMIT 200000`,
			plan.SQL()[0])
	})

	t.Run("only_when_needed", func(t *testing.T) {
		plan := build(t, Spec{
			DataSet:    ds,
			Metrics:    []dataset.Metric{votes},
			Dimensions: []dataset.Dimension{dataset.Dim(ds.MustField("district_name"))},
		})
		assert.Contains(t, plan.SQL()[0], `LEFT JOIN "locations"."district"`)
		assert.NotContains(t, plan.SQL()[0], `"locations"."state"`)
	})

	t.Run("filter_triggers_join", func(t *testing.T) {
		plan := build(t, Spec{
			DataSet: ds,
			Metrics: []dataset.Metric{votes},
			Filters: []dataset.Filter{ds.MustField("state").Eq("Texas")},
		})
		assert.Contains(t, plan.SQL()[0], `WHERE "state"."state_name"='Texas'`)
		assert.Contains(t, plan.SQL()[0], `JOIN "locations"."state"`)
	})
}

func TestBuild_FiltersOrdersAndPagination(t *testing.T) {
	ds := politics(t)
	votes := ds.MustField("votes")
	party := ds.MustField("political_party")

	plan := build(t, Spec{
		DataSet:    ds,
		Metrics:    []dataset.Metric{votes},
		Dimensions: []dataset.Dimension{dataset.Dim(party)},
		Filters:    []dataset.Filter{party.In("d", "r"), votes.Gt(10)},
		Orders:     []Order{{Metric: votes, Desc: true}},
		Limit:      10,
		Offset:     20,
	})
	assert.Equal(t,
		`SELECT "political_party" "$political_party", SUM("votes") "$votes" FROM "politics"."politician" `+
			`WHERE "political_party" IN ('d','r') GROUP BY "$political_party" HAVING SUM("votes")>10 `+
			`ORDER BY "$votes" DESC LIMIT 10 OFFSET 20`,
		plan.SQL()[0])
	assert.True(t, plan.Paginated)

	t.Run("unselected_order_is_projected", func(t *testing.T) {
		wins := ds.MustField("wins")
		plan := build(t, Spec{
			DataSet:    ds,
			Metrics:    []dataset.Metric{votes},
			Dimensions: []dataset.Dimension{dataset.Dim(party)},
			Orders:     []Order{{Metric: wins}},
		})
		assert.Contains(t, plan.SQL()[0], `SUM("is_winner") "$wins"`)
		assert.Contains(t, plan.SQL()[0], `ORDER BY "$wins"`)
	})

	t.Run("operations_disable_pushdown", func(t *testing.T) {
		plan := build(t, Spec{
			DataSet:    ds,
			Metrics:    []dataset.Metric{dataset.CumSum{Field: votes}},
			Dimensions: []dataset.Dimension{dataset.Dim(party)},
			Limit:      5,
		})
		assert.False(t, plan.Paginated)
		assert.Contains(t, plan.SQL()[0], "LIMIT 200000")
		assert.Contains(t, plan.SQL()[0], `SUM("votes") "$votes"`)
	})

	t.Run("omit_from_rollup", func(t *testing.T) {
		plan := build(t, Spec{
			DataSet:    ds,
			Metrics:    []dataset.Metric{votes},
			Dimensions: []dataset.Dimension{dataset.Rollup(dataset.Dim(party))},
			Filters:    []dataset.Filter{dataset.OmitFromRollup(party.Eq("d"))},
		})
		require.Len(t, plan.Statements, 2)
		assert.Contains(t, plan.SQL()[0], `WHERE "political_party"='d'`)
		assert.NotContains(t, plan.SQL()[1], "WHERE")
	})

	t.Run("group_sort_disables_pushdown", func(t *testing.T) {
		plan := build(t, Spec{
			DataSet:    ds,
			Metrics:    []dataset.Metric{votes},
			Dimensions: []dataset.Dimension{dataset.Day(ds.MustField("timestamp")), dataset.Dim(party)},
			Orders:     []Order{{Metric: votes, Desc: true}},
			Limit:      2,
			GroupSort:  true,
		})
		assert.False(t, plan.Paginated)
		assert.Contains(t, plan.SQL()[0], `ORDER BY "$votes" DESC LIMIT 200000`)
	})

	t.Run("resolved_references", func(t *testing.T) {
		plan := build(t, Spec{DataSet: ds, Metrics: []dataset.Metric{ds.MustField("votes_per_win")}})
		assert.Equal(t, `SELECT SUM("votes")/SUM("is_winner") "$votes_per_win" FROM "politics"."politician" ORDER BY 1 LIMIT 200000`, plan.SQL()[0])
	})
}

func TestBuild_Dialects(t *testing.T) {
	for _, tc := range []struct {
		dialect sqlexpr.Dialect
		want    string
	}{
		{sqlexpr.Vertica, `TRUNC("timestamp",'MM')`},
		{sqlexpr.PostgreSQL, `DATE_TRUNC('month',"timestamp")`},
		{sqlexpr.SQLite, `DATE("timestamp",'start of month')`},
	} {
		t.Run(tc.dialect.Name(), func(t *testing.T) {
			ds, err := dataset.New(dataset.Config{
				Name:     "politics",
				Table:    politicianTable,
				Database: &dataset.Database{Dialect: tc.dialect},
				Fields: []*dataset.Field{
					dataset.NewField("timestamp", dataset.Date, col("timestamp")),
					dataset.NewField("votes", dataset.Number, sqlexpr.Sum(col("votes"))),
				},
			})
			require.NoError(t, err)
			plan := build(t, Spec{
				DataSet:    ds,
				Metrics:    []dataset.Metric{ds.MustField("votes")},
				Dimensions: []dataset.Dimension{dataset.Month(ds.MustField("timestamp"))},
			})
			assert.Contains(t, plan.SQL()[0], tc.want+` "$timestamp"`)
		})
	}
}

func TestBuild_Blend(t *testing.T) {
	bds, primary, secondary := blended(t)

	t.Run("primary_only_wraps_single_subquery", func(t *testing.T) {
		plan := build(t, Spec{DataSet: bds, Metrics: []dataset.Metric{primary.MustField("votes")}})
		assert.Equal(t,
			`SELECT "sq0"."$votes" "$votes" FROM (SELECT SUM("votes") "$votes" FROM "politics"."politician") "sq0" ORDER BY 1 LIMIT 200000`,
			plan.SQL()[0])
	})

	t.Run("cross_join_without_shared_dimension", func(t *testing.T) {
		plan := build(t, Spec{DataSet: bds, Metrics: []dataset.Metric{primary.MustField("votes"), secondary.MustField("spend")}})
		assert.Equal(t,
			`SELECT "sq0"."$votes" "$votes", "sq1"."$spend" "$spend" FROM (SELECT SUM("votes") "$votes" FROM "politics"."politician") "sq0", `+
				`(SELECT SUM("spend") "$spend" FROM "politics"."spend") "sq1" ORDER BY 1 LIMIT 200000`,
			plan.SQL()[0])
	})

	t.Run("extra_field_projects_in_outer_query", func(t *testing.T) {
		plan := build(t, Spec{
			DataSet:    bds,
			Metrics:    []dataset.Metric{bds.MustField("cost_per_vote")},
			Dimensions: []dataset.Dimension{dataset.Day(bds.MustField("timestamp"))},
		})
		assert.Contains(t, plan.SQL()[0], `"sq1"."$spend"/"sq0"."$votes" "$cost_per_vote"`)
	})

	t.Run("secondary_only_dimension_is_filtered_per_subquery", func(t *testing.T) {
		plan := build(t, Spec{
			DataSet:    bds,
			Metrics:    []dataset.Metric{primary.MustField("votes"), secondary.MustField("spend")},
			Dimensions: []dataset.Dimension{dataset.Day(bds.MustField("timestamp"))},
			Filters:    []dataset.Filter{bds.MustField("timestamp").Between("2019-01-01", "2019-12-31")},
		})
		sql := plan.SQL()[0]
		assert.Contains(t, sql, `WHERE "timestamp" BETWEEN '2019-01-01' AND '2019-12-31' GROUP BY "$timestamp") "sq0"`)
		assert.Contains(t, sql, `WHERE "timestamp" BETWEEN '2019-01-01' AND '2019-12-31' GROUP BY "$timestamp") "sq1"`)
	})

	t.Run("secondary_only_filter_joins_its_subquery", func(t *testing.T) {
		plan := build(t, Spec{
			DataSet:    bds,
			Metrics:    []dataset.Metric{primary.MustField("votes")},
			Dimensions: []dataset.Dimension{dataset.Day(bds.MustField("timestamp"))},
			Filters:    []dataset.Filter{secondary.MustField("spend").Gt(100)},
		})
		assert.Equal(t,
			`SELECT "sq0"."$timestamp" "$timestamp", "sq0"."$votes" "$votes" `+
				`FROM (SELECT TRUNC("timestamp",'DD') "$timestamp", SUM("votes") "$votes" FROM "politics"."politician" GROUP BY "$timestamp") "sq0" `+
				`JOIN (SELECT TRUNC("timestamp",'DD') "$timestamp", SUM("spend") "$spend" FROM "politics"."spend" GROUP BY "$timestamp" HAVING SUM("spend")>100) "sq1" `+
				`ON "sq1"."$timestamp"="sq0"."$timestamp" ORDER BY "$timestamp" LIMIT 200000`,
			plan.SQL()[0])
	})

	t.Run("secondary_only_dimension_filter", func(t *testing.T) {
		plan := build(t, Spec{
			DataSet:    bds,
			Metrics:    []dataset.Metric{primary.MustField("votes")},
			Dimensions: []dataset.Dimension{dataset.Day(bds.MustField("timestamp"))},
			Filters:    []dataset.Filter{secondary.MustField("channel").Eq("tv")},
		})
		assert.Contains(t, plan.SQL()[0], `JOIN (SELECT TRUNC("timestamp",'DD') "$timestamp" FROM "politics"."spend" WHERE "channel"='tv' GROUP BY "$timestamp") "sq1"`)
		assert.NotContains(t, plan.SQL()[0], "LEFT JOIN")
	})

	t.Run("secondary_only_filter_without_shared_dimension", func(t *testing.T) {
		_, err := Build(Spec{
			DataSet: bds,
			Metrics: []dataset.Metric{primary.MustField("votes")},
			Filters: []dataset.Filter{secondary.MustField("channel").Eq("tv")},
		})
		var pe *domain.PlanError
		require.ErrorAs(t, err, &pe)
	})

	t.Run("reference_shifts_every_subquery", func(t *testing.T) {
		ts := bds.MustField("timestamp")
		plan := build(t, Spec{
			DataSet:    bds,
			Metrics:    []dataset.Metric{primary.MustField("votes"), secondary.MustField("spend")},
			Dimensions: []dataset.Dimension{dataset.Day(ts)},
			References: []dataset.Reference{dataset.WeekOverWeek(ts)},
		})
		require.Len(t, plan.Statements, 2)
		sql := plan.SQL()[1]
		assert.Contains(t, sql, `"sq0"."$votes_wow" "$votes_wow"`)
		assert.Contains(t, sql, `"sq1"."$spend_wow" "$spend_wow"`)
		assert.Equal(t, 2, countOf(sql, `TIMESTAMPADD('week',1,"timestamp")`))
	})
}

func countOf(s, sub string) int {
	n := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			n++
		}
	}
	return n
}

func TestBuild_Errors(t *testing.T) {
	ds := politics(t)
	other := spending(t)
	votes := ds.MustField("votes")
	ts := ds.MustField("timestamp")

	tests := []struct {
		name string
		spec Spec
	}{
		{"foreign_dimension", Spec{DataSet: ds, Metrics: []dataset.Metric{votes}, Dimensions: []dataset.Dimension{dataset.Dim(other.MustField("timestamp"))}}},
		{"foreign_metric", Spec{DataSet: ds, Metrics: []dataset.Metric{other.MustField("spend")}}},
		{"aggregate_dimension", Spec{DataSet: ds, Metrics: []dataset.Metric{votes}, Dimensions: []dataset.Dimension{dataset.Dim(votes)}}},
		{"interval_on_text", Spec{DataSet: ds, Metrics: []dataset.Metric{votes}, Dimensions: []dataset.Dimension{dataset.Day(ds.MustField("text"))}}},
		{"reference_without_dimension", Spec{DataSet: ds, Metrics: []dataset.Metric{votes}, References: []dataset.Reference{dataset.DayOverDay(ts)}}},
		{"share_over_unselected", Spec{DataSet: ds, Metrics: []dataset.Metric{dataset.Share{Field: votes, Over: ds.MustField("state")}}}},
		{"duplicate_dimension", Spec{DataSet: ds, Metrics: []dataset.Metric{votes}, Dimensions: []dataset.Dimension{dataset.Dim(ts), dataset.Day(ts)}}},
		{"foreign_filter", Spec{DataSet: ds, Metrics: []dataset.Metric{votes}, Filters: []dataset.Filter{other.MustField("timestamp").Eq("2019-01-01")}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(tc.spec)
			var target *domain.PlanError
			assert.True(t, errors.As(err, &target), "expected PlanError, got %v", err)
		})
	}

	t.Run("illegal_filter", func(t *testing.T) {
		_, err := Build(Spec{DataSet: ds, Metrics: []dataset.Metric{votes}, Filters: []dataset.Filter{ds.MustField("text").Gt(1)}})
		var target *domain.DataSetFilterError
		assert.True(t, errors.As(err, &target))
	})
}

func TestBuild_ShareImpliesRollup(t *testing.T) {
	ds := politics(t)
	votes := ds.MustField("votes")
	state := ds.MustField("state")
	plan := build(t, Spec{
		DataSet:    ds,
		Metrics:    []dataset.Metric{votes, dataset.Share{Field: votes, Over: state}},
		Dimensions: []dataset.Dimension{dataset.Dim(ds.MustField("timestamp")), dataset.Dim(state)},
	})
	require.Len(t, plan.Statements, 2)
	assert.Equal(t, 1, plan.Statements[1].RollupFrom)
	assert.False(t, plan.Levels[1].Rollup)
	assert.True(t, plan.Levels[1].Totals)
}

func TestBuild_Annotation(t *testing.T) {
	ds := politics(t)
	ts := ds.MustField("timestamp")
	plan := build(t, Spec{
		DataSet:    ds,
		Metrics:    []dataset.Metric{ds.MustField("votes")},
		Dimensions: []dataset.Dimension{dataset.Day(ts)},
		Filters:    []dataset.Filter{ts.Ge("2019-01-01")},
	})
	require.NotNil(t, plan.Annotation)
	assert.Equal(t,
		`SELECT TRUNC("date",'DD') "$timestamp", "name" "$election" FROM "politics"."election" WHERE "date">='2019-01-01' `+
			`GROUP BY "$timestamp", "$election" ORDER BY "$timestamp" LIMIT 200000`,
		plan.Annotation.SQL)
	assert.Equal(t, "election", plan.AnnotationField.Alias)

	plan = build(t, Spec{
		DataSet:    ds,
		Metrics:    []dataset.Metric{ds.MustField("votes")},
		Dimensions: []dataset.Dimension{dataset.Dim(ds.MustField("text")), dataset.Day(ts)},
	})
	assert.Nil(t, plan.Annotation)
}

func TestChoices(t *testing.T) {
	ds := politics(t)

	t.Run("hint_table", func(t *testing.T) {
		sql, err := Choices(ds, ds.MustField("political_party"), nil, "")
		require.NoError(t, err)
		assert.Equal(t, `SELECT DISTINCT "political_party" "$political_party" FROM "politics"."hints" ORDER BY "$political_party" LIMIT 200000`, sql)
	})

	t.Run("joined_filter_skips_hint_table", func(t *testing.T) {
		sql, err := Choices(ds, ds.MustField("political_party"), []dataset.Filter{ds.MustField("district_name").Eq("Manhattan")}, "")
		require.NoError(t, err)
		assert.Equal(t,
			`SELECT DISTINCT "politician"."political_party" "$political_party" FROM "politics"."politician" `+
				`LEFT JOIN "locations"."district" ON "politician"."district_id"="district"."id" `+
				`WHERE "district"."district_name"='Manhattan' ORDER BY "$political_party" LIMIT 200000`,
			sql)
	})

	t.Run("joined_field", func(t *testing.T) {
		sql, err := Choices(ds, ds.MustField("state"), nil, "")
		require.NoError(t, err)
		assert.Contains(t, sql, `JOIN "locations"."state"`)
	})

	t.Run("aggregate_rejected", func(t *testing.T) {
		_, err := Choices(ds, ds.MustField("votes"), nil, "")
		var target *domain.DataSetError
		assert.True(t, errors.As(err, &target))
	})

	t.Run("blend_maps_filters", func(t *testing.T) {
		bds, _, secondary := blended(t)
		_, err := Choices(bds, bds.MustField("timestamp"), []dataset.Filter{secondary.MustField("timestamp").Ge("2019-01-01")}, "")
		require.NoError(t, err)
	})
}

func TestLatest(t *testing.T) {
	ds := politics(t)
	sql, err := Latest(ds, ds.MustField("timestamp"))
	require.NoError(t, err)
	assert.Equal(t, `SELECT MAX("timestamp") "$timestamp" FROM "politics"."politician"`, sql)

	_, err = Latest(ds, ds.MustField("votes"))
	assert.Error(t, err)
}
