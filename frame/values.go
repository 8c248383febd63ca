package frame

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// Kind is the logical type of an index level.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindDate
	KindBoolean
)

// RollupSentinel is the literal planted in SQL for rolled-up dimensions.
const RollupSentinel = "_FIREANT_ROLLUP_VALUE_"

type totalsBool struct{}

func (totalsBool) String() string { return "~~totals" }

// Totals markers replace RollupSentinel per index kind.
var (
	TotalsDate    = time.Date(2262, 4, 11, 23, 47, 16, 0, time.UTC)
	TotalsText    = "~~totals"
	TotalsNumber  = int64(math.MaxInt64)
	TotalsBoolean = interface{}(totalsBool{})
)

// Totals returns the totals marker for k.
func Totals(k Kind) interface{} {
	switch k {
	case KindDate:
		return TotalsDate
	case KindNumber:
		return TotalsNumber
	case KindBoolean:
		return TotalsBoolean
	}
	return TotalsText
}

// IsTotals reports whether v is any totals marker.
func IsTotals(v interface{}) bool {
	switch x := v.(type) {
	case totalsBool:
		return true
	case string:
		return x == TotalsText
	case int64:
		return x == TotalsNumber
	case time.Time:
		return x.Equal(TotalsDate)
	}
	return false
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05.999999999",
}

// NormalizeKey converts a driver value into the canonical representation for
// an index level of kind k. RollupSentinel becomes the totals marker.
func NormalizeKey(v interface{}, k Kind) interface{} {
	v = NormalizeValue(v)
	if s, ok := v.(string); ok && s == RollupSentinel {
		return Totals(k)
	}
	switch k {
	case KindDate:
		if s, ok := v.(string); ok {
			for _, layout := range dateLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return t
				}
			}
		}
	case KindBoolean:
		switch x := v.(type) {
		case int64:
			return x != 0
		case float64:
			return x != 0
		case string:
			if b, err := strconv.ParseBool(x); err == nil {
				return b
			}
		}
	case KindNumber:
		if s, ok := v.(string); ok {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f
			}
		}
	}
	return v
}

// NormalizeValue maps driver-specific scalars onto string, int64, float64,
// bool, time.Time or nil.
func NormalizeValue(v interface{}) interface{} {
	switch x := v.(type) {
	case nil, string, int64, float64, bool, time.Time, totalsBool:
		return v
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
		return float64(x)
	case float32:
		return float64(x)
	case *big.Int:
		if x == nil {
			return nil
		}
		if x.IsInt64() {
			return x.Int64()
		}
		f, _ := new(big.Float).SetInt(x).Float64()
		return f
	case interface{ Float64() float64 }:
		return x.Float64()
	case fmt.Stringer:
		return x.String()
	}
	return v
}

// ToFloat converts numeric values to float64.
func ToFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case float32:
		return float64(x), true
	case int32:
		return float64(x), true
	}
	return 0, false
}

// Compare orders values: ordinary values first, then nil, then totals
// markers. Values of different types order by type.
func Compare(a, b interface{}) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	if ra != 0 {
		return 0
	}
	if fa, ok := ToFloat(a); ok {
		if fb, ok := ToFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			}
			return 1
		}
	}
	return strings.Compare(fmt.Sprintf("%T", a), fmt.Sprintf("%T", b))
}

func rank(v interface{}) int {
	switch {
	case IsTotals(v):
		return 2
	case v == nil:
		return 1
	}
	return 0
}

// CompareKeys compares two row keys level by level.
func CompareKeys(a, b []interface{}) int {
	for i := range a {
		if i >= len(b) {
			return 1
		}
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	if len(a) < len(b) {
		return -1
	}
	return 0
}

// KeyString renders a key so that equal keys produce equal strings.
func KeyString(key []interface{}) string {
	var sb strings.Builder
	for i, v := range key {
		if i > 0 {
			sb.WriteByte(0)
		}
		switch x := v.(type) {
		case nil:
			sb.WriteString("n:")
		case time.Time:
			if x.Equal(TotalsDate) {
				sb.WriteString("T:")
			} else {
				sb.WriteString("d:" + x.UTC().Format(time.RFC3339Nano))
			}
		case totalsBool:
			sb.WriteString("T:")
		default:
			if IsTotals(v) {
				sb.WriteString("T:")
			} else if f, ok := ToFloat(v); ok {
				sb.WriteString("f:" + strconv.FormatFloat(f, 'g', -1, 64))
			} else {
				fmt.Fprintf(&sb, "%T:%v", v, v)
			}
		}
	}
	return sb.String()
}
