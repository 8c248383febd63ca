// Package frame implements the in-memory table the post-processor works on:
// named value columns keyed by a multi-part row index.
package frame

import (
	"fmt"
	"sort"

	"fireant/domain"
)

// Row is one record: its index key and its values in column order.
type Row struct {
	Key    []interface{}
	Values []interface{}
}

// Frame is a table whose rows are identified by a key over Index levels.
type Frame struct {
	Index   []string
	Kinds   []Kind
	Columns []string
	Rows    []Row
}

// New returns an empty frame.
func New(index []string, kinds []Kind, columns []string) *Frame {
	return &Frame{
		Index:   append([]string{}, index...),
		Kinds:   append([]Kind{}, kinds...),
		Columns: append([]string{}, columns...),
	}
}

// FromResult builds a frame from an executor result. Columns named in index
// become key levels; all others become value columns in result order.
func FromResult(res *domain.Result, index []string, kinds []Kind) (*Frame, error) {
	pos := make(map[string]int, len(res.Columns))
	for i, c := range res.Columns {
		pos[c] = i
	}
	keyPos := make([]int, len(index))
	isKey := make(map[int]bool, len(index))
	for i, name := range index {
		p, ok := pos[name]
		if !ok {
			return nil, fmt.Errorf("result is missing index column %q", name)
		}
		keyPos[i] = p
		isKey[p] = true
	}
	var valuePos []int
	var columns []string
	for i, c := range res.Columns {
		if !isKey[i] {
			valuePos = append(valuePos, i)
			columns = append(columns, c)
		}
	}

	f := New(index, kinds, columns)
	f.Rows = make([]Row, 0, len(res.Rows))
	for _, raw := range res.Rows {
		key := make([]interface{}, len(keyPos))
		for i, p := range keyPos {
			k := KindText
			if i < len(kinds) {
				k = kinds[i]
			}
			key[i] = NormalizeKey(raw[p], k)
		}
		values := make([]interface{}, len(valuePos))
		for i, p := range valuePos {
			values[i] = NormalizeValue(raw[p])
		}
		f.Rows = append(f.Rows, Row{Key: key, Values: values})
	}
	return f, nil
}

// Len is the number of rows.
func (f *Frame) Len() int { return len(f.Rows) }

// Clone copies the frame. Row slices are copied; values are shared.
func (f *Frame) Clone() *Frame {
	out := New(f.Index, f.Kinds, f.Columns)
	out.Rows = make([]Row, len(f.Rows))
	for i, r := range f.Rows {
		out.Rows[i] = Row{
			Key:    append([]interface{}{}, r.Key...),
			Values: append([]interface{}{}, r.Values...),
		}
	}
	return out
}

// ColumnIndex returns the position of a value column, or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// LevelIndex returns the position of an index level, or -1.
func (f *Frame) LevelIndex(name string) int {
	for i, c := range f.Index {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether name is a value column.
func (f *Frame) HasColumn(name string) bool { return f.ColumnIndex(name) >= 0 }

// Value returns the value of column name in row i, or the key level of the
// same name. Unknown names yield nil.
func (f *Frame) Value(i int, name string) interface{} {
	if c := f.ColumnIndex(name); c >= 0 {
		return f.Rows[i].Values[c]
	}
	if l := f.LevelIndex(name); l >= 0 {
		return f.Rows[i].Key[l]
	}
	return nil
}

// Column returns a copy of a value column.
func (f *Frame) Column(name string) []interface{} {
	c := f.ColumnIndex(name)
	if c < 0 {
		return nil
	}
	out := make([]interface{}, len(f.Rows))
	for i, r := range f.Rows {
		out[i] = r.Values[c]
	}
	return out
}

// SetColumn adds or replaces a value column. values must have one entry per row.
func (f *Frame) SetColumn(name string, values []interface{}) {
	c := f.ColumnIndex(name)
	if c < 0 {
		f.Columns = append(f.Columns, name)
		for i := range f.Rows {
			f.Rows[i].Values = append(f.Rows[i].Values, values[i])
		}
		return
	}
	for i := range f.Rows {
		f.Rows[i].Values[c] = values[i]
	}
}

// DropColumns removes value columns, ignoring unknown names.
func (f *Frame) DropColumns(names ...string) {
	drop := map[string]bool{}
	for _, n := range names {
		drop[n] = true
	}
	keep := make([]int, 0, len(f.Columns))
	var columns []string
	for i, c := range f.Columns {
		if !drop[c] {
			keep = append(keep, i)
			columns = append(columns, c)
		}
	}
	for i, r := range f.Rows {
		values := make([]interface{}, len(keep))
		for j, k := range keep {
			values[j] = r.Values[k]
		}
		f.Rows[i].Values = values
	}
	f.Columns = columns
}

// OuterJoin merges other into f on the full key. Rows of f keep their order;
// rows only present in other are appended. Columns of other that f already
// has are overwritten where other has a row.
func (f *Frame) OuterJoin(other *Frame) *Frame {
	out := f.Clone()
	colMap := make([]int, len(other.Columns))
	for i, c := range other.Columns {
		idx := out.ColumnIndex(c)
		if idx < 0 {
			out.Columns = append(out.Columns, c)
			idx = len(out.Columns) - 1
			for r := range out.Rows {
				out.Rows[r].Values = append(out.Rows[r].Values, nil)
			}
		}
		colMap[i] = idx
	}

	byKey := make(map[string]int, len(out.Rows))
	for i, r := range out.Rows {
		byKey[KeyString(r.Key)] = i
	}
	for _, r := range other.Rows {
		i, ok := byKey[KeyString(r.Key)]
		if !ok {
			out.Rows = append(out.Rows, Row{
				Key:    append([]interface{}{}, r.Key...),
				Values: make([]interface{}, len(out.Columns)),
			})
			i = len(out.Rows) - 1
			byKey[KeyString(r.Key)] = i
		}
		for j, v := range r.Values {
			out.Rows[i].Values[colMap[j]] = v
		}
	}
	return out
}

// Append adds other's rows after f's, aligning columns by name. Missing
// values are nil.
func (f *Frame) Append(other *Frame) *Frame {
	out := f.Clone()
	colMap := make([]int, len(other.Columns))
	for i, c := range other.Columns {
		idx := out.ColumnIndex(c)
		if idx < 0 {
			out.Columns = append(out.Columns, c)
			idx = len(out.Columns) - 1
			for r := range out.Rows {
				out.Rows[r].Values = append(out.Rows[r].Values, nil)
			}
		}
		colMap[i] = idx
	}
	for _, r := range other.Rows {
		values := make([]interface{}, len(out.Columns))
		for j, v := range r.Values {
			values[colMap[j]] = v
		}
		out.Rows = append(out.Rows, Row{Key: append([]interface{}{}, r.Key...), Values: values})
	}
	return out
}

// SortIndex stably orders rows by key: values ascending, then nulls, then totals.
func (f *Frame) SortIndex() {
	sort.SliceStable(f.Rows, func(i, j int) bool {
		return CompareKeys(f.Rows[i].Key, f.Rows[j].Key) < 0
	})
}

// SortKey is one ordering criterion over a column or index level.
type SortKey struct {
	Name string
	Desc bool
}

// SortBy stably orders rows by the given keys. Nulls sort last in both
// directions.
func (f *Frame) SortBy(keys []SortKey) {
	sort.SliceStable(f.Rows, func(i, j int) bool {
		return f.lessBy(keys, i, j)
	})
}

func (f *Frame) lessBy(keys []SortKey, i, j int) bool {
	for _, k := range keys {
		a, b := f.Value(i, k.Name), f.Value(j, k.Name)
		if (a == nil) != (b == nil) {
			return b == nil
		}
		c := Compare(a, b)
		if c == 0 {
			continue
		}
		if k.Desc {
			return c > 0
		}
		return c < 0
	}
	return false
}

// Filter returns the rows for which keep is true.
func (f *Frame) Filter(keep func(i int, r Row) bool) *Frame {
	out := New(f.Index, f.Kinds, f.Columns)
	for i, r := range f.Rows {
		if keep(i, r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// Slice returns rows [offset, offset+limit). A zero limit means no upper bound.
func (f *Frame) Slice(offset, limit int) *Frame {
	out := New(f.Index, f.Kinds, f.Columns)
	if offset >= len(f.Rows) {
		return out
	}
	if offset < 0 {
		offset = 0
	}
	end := len(f.Rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out.Rows = append(out.Rows, f.Rows[offset:end]...)
	return out
}

// IsTotalsRow reports whether any key level of row i holds a totals marker.
func (f *Frame) IsTotalsRow(i int) bool {
	for _, v := range f.Rows[i].Key {
		if IsTotals(v) {
			return true
		}
	}
	return false
}

// Records returns rows as maps keyed by index level and column name.
func (f *Frame) Records() []map[string]interface{} {
	out := make([]map[string]interface{}, len(f.Rows))
	for i, r := range f.Rows {
		rec := make(map[string]interface{}, len(f.Index)+len(f.Columns))
		for l, name := range f.Index {
			rec[name] = r.Key[l]
		}
		for c, name := range f.Columns {
			rec[name] = r.Values[c]
		}
		out[i] = rec
	}
	return out
}
