package sqlexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialects_DateFunctions(t *testing.T) {
	col := `"ts"`
	tests := []struct {
		dialect Dialect
		trunc   string
		add     string
	}{
		{Vertica, `TRUNC("ts",'MM')`, `TIMESTAMPADD('week',2,"ts")`},
		{Snowflake, `TRUNC("ts",'MM')`, `DATEADD(week,2,"ts")`},
		{PostgreSQL, `DATE_TRUNC('month',"ts")`, `"ts"+INTERVAL '2 week'`},
		{Redshift, `DATE_TRUNC('month',"ts")`, `DATEADD(week,2,"ts")`},
		{DuckDB, `DATE_TRUNC('month',"ts")`, `("ts"+INTERVAL '2 week')`},
		{MySQL, `DATE_FORMAT("ts",'%Y-%m-01')`, `DATE_ADD("ts",INTERVAL 2 WEEK)`},
		{MSSQL, `DATEADD(month,DATEDIFF(month,0,"ts"),0)`, `DATEADD(week,2,"ts")`},
		{SQLite, `DATE("ts",'start of month')`, `DATETIME("ts",'+14 day')`},
	}
	for _, tc := range tests {
		t.Run(tc.dialect.Name(), func(t *testing.T) {
			assert.Equal(t, tc.trunc, tc.dialect.TruncDate(col, UnitMonth))
			assert.Equal(t, tc.add, tc.dialect.AddDate(col, UnitWeek, 2))
		})
	}
}

func TestDialects_QuarterIntervals(t *testing.T) {
	assert.Equal(t, `"ts"+INTERVAL '3 month'`, PostgreSQL.AddDate(`"ts"`, UnitQuarter, 1))
	assert.Equal(t, `DATETIME("ts",'-6 month')`, SQLite.AddDate(`"ts"`, UnitQuarter, -2))
}

func TestDialects_Pagination(t *testing.T) {
	assert.Equal(t, " LIMIT 10 OFFSET 20", Vertica.Paginate(10, 20))
	assert.Equal(t, " LIMIT 10", PostgreSQL.Paginate(10, 0))
	assert.Equal(t, "", MySQL.Paginate(0, 0))
	assert.Equal(t, " OFFSET 20 ROWS FETCH NEXT 10 ROWS ONLY", MSSQL.Paginate(10, 20))
	assert.Equal(t, " OFFSET 0 ROWS FETCH NEXT 10 ROWS ONLY", MSSQL.Paginate(10, 0))
	assert.Equal(t, "", MSSQL.Paginate(0, 0))
}

func TestDialects_Quoting(t *testing.T) {
	assert.Equal(t, "`$votes`", MySQL.QuoteIdent("$votes"))
	assert.Equal(t, `"a""b"`, PostgreSQL.QuoteIdent(`a"b`))
	assert.Equal(t, "1", MSSQL.BoolLiteral(true))
	assert.Equal(t, "false", Vertica.BoolLiteral(false))
	assert.Equal(t, "", PostgreSQL.Hint("x"))
}

func TestDialectByName(t *testing.T) {
	d, err := DialectByName(" Postgres ")
	require.NoError(t, err)
	assert.Equal(t, "postgresql", d.Name())

	_, err = DialectByName("oracle")
	assert.ErrorContains(t, err, `unknown dialect "oracle"`)
}

func TestParseUnitsAndJoins(t *testing.T) {
	u, ok := ParseDateUnit("Quarter")
	require.True(t, ok)
	assert.Equal(t, UnitQuarter, u)
	_, ok = ParseDateUnit("fortnight")
	assert.False(t, ok)

	j, ok := ParseJoinType("full_outer")
	require.True(t, ok)
	assert.Equal(t, JoinFullOuter, j)
	_, ok = ParseJoinType("sideways")
	assert.False(t, ok)
}
