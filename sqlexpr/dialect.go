package sqlexpr

import (
	"fmt"
	"sort"
	"strings"
)

// Dialect captures the parts of SQL rendering that differ between databases:
// identifier quoting, date truncation, date arithmetic, boolean literals,
// pagination and query hints. Everything else is shared by the formatter.
type Dialect interface {
	Name() string
	QuoteIdent(s string) string
	TruncDate(expr string, unit DateUnit) string
	AddDate(expr string, unit DateUnit, interval int) string
	BoolLiteral(v bool) string
	// Paginate returns the trailing LIMIT/OFFSET clause including its leading
	// space, or "" when limit and offset are both zero.
	Paginate(limit, offset int) string
	// Hint returns a comment placed right after SELECT, or "" when unsupported.
	Hint(label string) string
}

// Registered dialects.
var (
	Vertica    Dialect = verticaDialect{}
	PostgreSQL Dialect = postgresDialect{}
	Redshift   Dialect = redshiftDialect{}
	Snowflake  Dialect = snowflakeDialect{}
	MySQL      Dialect = mysqlDialect{}
	MSSQL      Dialect = mssqlDialect{}
	DuckDB     Dialect = duckdbDialect{}
	SQLite     Dialect = sqliteDialect{}
)

var dialects = map[string]Dialect{
	"vertica":    Vertica,
	"postgresql": PostgreSQL,
	"postgres":   PostgreSQL,
	"redshift":   Redshift,
	"snowflake":  Snowflake,
	"mysql":      MySQL,
	"mssql":      MSSQL,
	"duckdb":     DuckDB,
	"sqlite":     SQLite,
	"sqlite3":    SQLite,
}

// DialectByName looks up a dialect by its (case-insensitive) name.
func DialectByName(name string) (Dialect, error) {
	if d, ok := dialects[strings.ToLower(strings.TrimSpace(name))]; ok {
		return d, nil
	}
	names := make([]string, 0, len(dialects))
	for n := range dialects {
		names = append(names, n)
	}
	sort.Strings(names)
	return nil, fmt.Errorf("unknown dialect %q (known: %s)", name, strings.Join(names, ", "))
}

// base implements the ANSI defaults the concrete dialects embed.
type base struct{}

func (base) QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func (base) BoolLiteral(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func (base) Paginate(limit, offset int) string {
	var sb strings.Builder
	if limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", limit)
	}
	if offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", offset)
	}
	return sb.String()
}

func (base) Hint(string) string { return "" }

// === Vertica ===

type verticaDialect struct{ base }

var verticaTruncCodes = map[DateUnit]string{
	UnitHour:    "HH",
	UnitDay:     "DD",
	UnitWeek:    "IW",
	UnitMonth:   "MM",
	UnitQuarter: "Q",
	UnitYear:    "Y",
}

func (verticaDialect) Name() string { return "vertica" }

func (verticaDialect) TruncDate(expr string, unit DateUnit) string {
	return fmt.Sprintf("TRUNC(%s,'%s')", expr, verticaTruncCodes[unit])
}

func (verticaDialect) AddDate(expr string, unit DateUnit, interval int) string {
	return fmt.Sprintf("TIMESTAMPADD('%s',%d,%s)", unit, interval, expr)
}

func (verticaDialect) Hint(label string) string {
	if label == "" {
		return ""
	}
	return fmt.Sprintf("/*+label(%s)*/", label)
}

// === Snowflake ===

type snowflakeDialect struct{ base }

var snowflakeTruncCodes = map[DateUnit]string{
	UnitHour:    "HH",
	UnitDay:     "DD",
	UnitWeek:    "W",
	UnitMonth:   "MM",
	UnitQuarter: "Q",
	UnitYear:    "Y",
}

func (snowflakeDialect) Name() string { return "snowflake" }

func (snowflakeDialect) TruncDate(expr string, unit DateUnit) string {
	return fmt.Sprintf("TRUNC(%s,'%s')", expr, snowflakeTruncCodes[unit])
}

func (snowflakeDialect) AddDate(expr string, unit DateUnit, interval int) string {
	return fmt.Sprintf("DATEADD(%s,%d,%s)", unit, interval, expr)
}

// === PostgreSQL ===

type postgresDialect struct{ base }

func (postgresDialect) Name() string { return "postgresql" }

func (postgresDialect) TruncDate(expr string, unit DateUnit) string {
	return fmt.Sprintf("DATE_TRUNC('%s',%s)", unit, expr)
}

func (postgresDialect) AddDate(expr string, unit DateUnit, interval int) string {
	return fmt.Sprintf("%s+INTERVAL '%s'", expr, intervalLiteral(unit, interval))
}

// intervalLiteral renders "N unit" with quarters expressed as months, which
// every interval-literal dialect understands.
func intervalLiteral(unit DateUnit, interval int) string {
	if unit == UnitQuarter {
		return fmt.Sprintf("%d month", 3*interval)
	}
	return fmt.Sprintf("%d %s", interval, unit)
}

// === Redshift ===

type redshiftDialect struct{ base }

func (redshiftDialect) Name() string { return "redshift" }

func (redshiftDialect) TruncDate(expr string, unit DateUnit) string {
	return fmt.Sprintf("DATE_TRUNC('%s',%s)", unit, expr)
}

func (redshiftDialect) AddDate(expr string, unit DateUnit, interval int) string {
	return fmt.Sprintf("DATEADD(%s,%d,%s)", unit, interval, expr)
}

// === DuckDB ===

type duckdbDialect struct{ base }

func (duckdbDialect) Name() string { return "duckdb" }

func (duckdbDialect) TruncDate(expr string, unit DateUnit) string {
	return fmt.Sprintf("DATE_TRUNC('%s',%s)", unit, expr)
}

func (duckdbDialect) AddDate(expr string, unit DateUnit, interval int) string {
	return fmt.Sprintf("(%s+INTERVAL '%s')", expr, intervalLiteral(unit, interval))
}

// === MySQL ===

type mysqlDialect struct{ base }

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) QuoteIdent(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

func (mysqlDialect) TruncDate(expr string, unit DateUnit) string {
	switch unit {
	case UnitHour:
		return fmt.Sprintf("DATE_FORMAT(%s,'%%Y-%%m-%%d %%H:00:00')", expr)
	case UnitWeek:
		return fmt.Sprintf("DATE_SUB(DATE(%s),INTERVAL WEEKDAY(%s) DAY)", expr, expr)
	case UnitMonth:
		return fmt.Sprintf("DATE_FORMAT(%s,'%%Y-%%m-01')", expr)
	case UnitQuarter:
		return fmt.Sprintf("MAKEDATE(YEAR(%s),1)+INTERVAL (QUARTER(%s)-1) QUARTER", expr, expr)
	case UnitYear:
		return fmt.Sprintf("DATE_FORMAT(%s,'%%Y-01-01')", expr)
	}
	return fmt.Sprintf("DATE(%s)", expr)
}

func (mysqlDialect) AddDate(expr string, unit DateUnit, interval int) string {
	return fmt.Sprintf("DATE_ADD(%s,INTERVAL %d %s)", expr, interval, strings.ToUpper(unit.String()))
}

// === MSSQL ===

type mssqlDialect struct{ base }

func (mssqlDialect) Name() string { return "mssql" }

func (mssqlDialect) TruncDate(expr string, unit DateUnit) string {
	return fmt.Sprintf("DATEADD(%s,DATEDIFF(%s,0,%s),0)", unit, unit, expr)
}

func (mssqlDialect) AddDate(expr string, unit DateUnit, interval int) string {
	return fmt.Sprintf("DATEADD(%s,%d,%s)", unit, interval, expr)
}

func (mssqlDialect) BoolLiteral(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func (mssqlDialect) Paginate(limit, offset int) string {
	if limit <= 0 && offset <= 0 {
		return ""
	}
	clause := fmt.Sprintf(" OFFSET %d ROWS", offset)
	if limit > 0 {
		clause += fmt.Sprintf(" FETCH NEXT %d ROWS ONLY", limit)
	}
	return clause
}

// === SQLite ===

type sqliteDialect struct{ base }

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) TruncDate(expr string, unit DateUnit) string {
	switch unit {
	case UnitHour:
		return fmt.Sprintf("STRFTIME('%%Y-%%m-%%d %%H:00:00',%s)", expr)
	case UnitWeek:
		return fmt.Sprintf("DATE(%s,'-6 days','weekday 1')", expr)
	case UnitMonth:
		return fmt.Sprintf("DATE(%s,'start of month')", expr)
	case UnitQuarter:
		return fmt.Sprintf("DATE(%s,'start of month','-'||((CAST(STRFTIME('%%m',%s) AS INTEGER)-1)%%3)||' months')", expr, expr)
	case UnitYear:
		return fmt.Sprintf("DATE(%s,'start of year')", expr)
	}
	return fmt.Sprintf("DATE(%s)", expr)
}

func (sqliteDialect) AddDate(expr string, unit DateUnit, interval int) string {
	n, name := interval, unit.String()
	switch unit {
	case UnitWeek:
		n, name = 7*interval, "day"
	case UnitQuarter:
		n, name = 3*interval, "month"
	}
	return fmt.Sprintf("DATETIME(%s,'%+d %s')", expr, n, name)
}

func (sqliteDialect) BoolLiteral(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
