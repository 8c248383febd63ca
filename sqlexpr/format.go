package sqlexpr

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Format renders a SELECT statement for the given dialect. The output is flat
// (no pretty-printing) and always quotes identifiers.
func Format(stmt *Select, d Dialect) string {
	f := &formatter{d: d}
	f.formatSelect(stmt)
	return strings.TrimSpace(f.buf.String())
}

// FormatExpr renders a single expression for the given dialect.
func FormatExpr(e Expr, d Dialect) string {
	f := &formatter{d: d}
	f.formatExpr(e)
	return f.buf.String()
}

// FormatPlain renders an expression without identifier quoting. It is used for
// human-readable labels such as result-set buckets.
func FormatPlain(e Expr) string {
	return FormatExpr(e, plainDialect{})
}

// formatter is a simple SQL string builder. No indentation or pretty-printing.
type formatter struct {
	buf     strings.Builder
	d       Dialect
	qualify bool
}

func (f *formatter) write(s string) {
	f.buf.WriteString(s)
}

func (f *formatter) writeIdent(s string) {
	f.write(f.d.QuoteIdent(s))
}

// commaSep writes items separated by sep.
func (f *formatter) commaSep(n int, sep string, fn func(i int)) {
	for i := 0; i < n; i++ {
		if i > 0 {
			f.write(sep)
		}
		fn(i)
	}
}

// sub renders e with a fresh buffer sharing the current settings.
func (f *formatter) sub(e Expr) string {
	inner := &formatter{d: f.d, qualify: f.qualify}
	inner.formatExpr(e)
	return inner.buf.String()
}

// plainDialect renders identifiers verbatim.
type plainDialect struct{ base }

func (plainDialect) Name() string               { return "plain" }
func (plainDialect) QuoteIdent(s string) string { return s }

func (plainDialect) TruncDate(expr string, unit DateUnit) string {
	return fmt.Sprintf("TRUNC(%s,'%s')", expr, unit)
}

func (plainDialect) AddDate(expr string, unit DateUnit, interval int) string {
	return fmt.Sprintf("DATEADD(%s,%d,%s)", unit, interval, expr)
}

// FormatLiteral renders a Go value as a SQL literal.
func FormatLiteral(v interface{}, d Dialect) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case bool:
		return d.BoolLiteral(x)
	case int:
		return strconv.Itoa(x)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", x)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return "'" + x.Format("2006-01-02") + "'"
		}
		return "'" + x.Format("2006-01-02T15:04:05") + "'"
	}
	return "'" + strings.ReplaceAll(fmt.Sprint(v), "'", "''") + "'"
}
