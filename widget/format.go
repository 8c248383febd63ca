package widget

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"fireant/dataset"
	"fireant/frame"
)

// TotalsLabel is displayed in place of totals markers.
const TotalsLabel = "Totals"

var printer = message.NewPrinter(language.English)

// Display renders v for humans using f's display settings. f may be nil.
func Display(f *dataset.Field, v interface{}) string {
	if v == nil {
		return ""
	}
	if frame.IsTotals(v) {
		return TotalsLabel
	}
	var format dataset.Format
	if f != nil {
		format = f.Format
	}
	switch x := v.(type) {
	case time.Time:
		return formatTime(x)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return format.Prefix + x + format.Suffix
	}
	if n, ok := frame.ToFloat(v); ok {
		return format.Prefix + formatNumber(n, format.Precision, format.Thousands) + format.Suffix
	}
	return fmt.Sprint(v)
}

// Raw renders v without display decoration, for machine-readable outputs.
func Raw(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		if frame.IsTotals(x) {
			return TotalsLabel
		}
		return formatTime(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	if frame.IsTotals(v) {
		return TotalsLabel
	}
	return fmt.Sprint(v)
}

func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatNumber(n float64, precision *int, thousands string) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return ""
	}
	digits := 2
	switch {
	case precision != nil:
		digits = *precision
	case n == math.Trunc(n):
		digits = 0
	}
	if thousands == "" {
		return strconv.FormatFloat(n, 'f', digits, 64)
	}
	s := printer.Sprint(number.Decimal(n, number.Scale(digits)))
	if thousands != "," {
		s = strings.ReplaceAll(s, ",", thousands)
	}
	return s
}

// Link expands a hyperlink template. Placeholders name dimension or metric
// aliases in braces; the link is empty when any placeholder has no value.
func Link(template string, values map[string]interface{}) string {
	if template == "" {
		return ""
	}
	var sb strings.Builder
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			sb.WriteString(rest)
			return sb.String()
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			sb.WriteString(rest)
			return sb.String()
		}
		sb.WriteString(rest[:open])
		v, ok := values[rest[open+1:open+end]]
		if !ok || v == nil || frame.IsTotals(v) {
			return ""
		}
		sb.WriteString(Raw(v))
		rest = rest[open+end+1:]
	}
}
