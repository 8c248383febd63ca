package frame

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fireant/domain"
)

func day(d int) time.Time { return time.Date(2019, 1, d, 0, 0, 0, 0, time.UTC) }

func TestFromResult(t *testing.T) {
	res := &domain.Result{
		Columns: []string{"$timestamp", "$party", "$votes"},
		Rows: [][]interface{}{
			{"2019-01-01", []byte("d"), int32(5)},
			{"2019-01-01 00:00:00", RollupSentinel, big.NewInt(7)},
			{RollupSentinel, RollupSentinel, 1.5},
		},
	}
	f, err := FromResult(res, []string{"$timestamp", "$party"}, []Kind{KindDate, KindText})
	require.NoError(t, err)

	assert.Equal(t, []string{"$votes"}, f.Columns)
	require.Equal(t, 3, f.Len())
	assert.Equal(t, []interface{}{day(1), "d"}, f.Rows[0].Key)
	assert.Equal(t, int64(5), f.Rows[0].Values[0])
	assert.Equal(t, []interface{}{day(1), TotalsText}, f.Rows[1].Key)
	assert.Equal(t, int64(7), f.Rows[1].Values[0])
	assert.Equal(t, []interface{}{TotalsDate, TotalsText}, f.Rows[2].Key)
	assert.True(t, f.IsTotalsRow(2))
	assert.False(t, f.IsTotalsRow(0))

	_, err = FromResult(res, []string{"$missing"}, nil)
	assert.ErrorContains(t, err, `missing index column "$missing"`)
}

func TestNormalizeKey_Booleans(t *testing.T) {
	assert.Equal(t, true, NormalizeKey(int64(1), KindBoolean))
	assert.Equal(t, false, NormalizeKey("false", KindBoolean))
	assert.Equal(t, TotalsBoolean, NormalizeKey(RollupSentinel, KindBoolean))
	assert.Equal(t, TotalsNumber, NormalizeKey(RollupSentinel, KindNumber))
	assert.Equal(t, int64(3), NormalizeKey("3", KindNumber))
}

func TestCompare(t *testing.T) {
	assert.Negative(t, Compare(int64(1), 2.5))
	assert.Negative(t, Compare("a", nil), "values before nulls")
	assert.Negative(t, Compare(nil, TotalsText), "nulls before totals")
	assert.Negative(t, Compare(day(2), TotalsDate))
	assert.Negative(t, Compare(false, true))
	assert.Zero(t, Compare(TotalsBoolean, TotalsBoolean))
	assert.Negative(t, CompareKeys([]interface{}{"a", "b"}, []interface{}{"a", TotalsText}))
}

func sample() *Frame {
	f := New([]string{"$d"}, []Kind{KindText}, []string{"$v"})
	f.Rows = []Row{
		{Key: []interface{}{"b"}, Values: []interface{}{int64(2)}},
		{Key: []interface{}{TotalsText}, Values: []interface{}{int64(6)}},
		{Key: []interface{}{"a"}, Values: []interface{}{int64(1)}},
		{Key: []interface{}{nil}, Values: []interface{}{int64(3)}},
	}
	return f
}

func keys(f *Frame) []interface{} {
	out := make([]interface{}, f.Len())
	for i, r := range f.Rows {
		out[i] = r.Key[0]
	}
	return out
}

func TestSortIndex(t *testing.T) {
	f := sample()
	f.SortIndex()
	assert.Equal(t, []interface{}{"a", "b", nil, TotalsText}, keys(f))
}

func TestSortBy(t *testing.T) {
	f := sample()
	f.Rows[0].Values[0] = nil
	f.SortBy([]SortKey{{Name: "$v", Desc: true}})
	assert.Equal(t, []interface{}{TotalsText, nil, "a", "b"}, keys(f))

	f.SortBy([]SortKey{{Name: "$d"}})
	assert.Equal(t, []interface{}{"a", "b", TotalsText, nil}, keys(f))
}

func TestOuterJoinAndAppend(t *testing.T) {
	base := New([]string{"$d"}, []Kind{KindText}, []string{"$v"})
	base.Rows = []Row{
		{Key: []interface{}{"a"}, Values: []interface{}{int64(1)}},
		{Key: []interface{}{"b"}, Values: []interface{}{int64(2)}},
	}
	ref := New([]string{"$d"}, []Kind{KindText}, []string{"$v_dod"})
	ref.Rows = []Row{
		{Key: []interface{}{"b"}, Values: []interface{}{int64(20)}},
		{Key: []interface{}{"c"}, Values: []interface{}{int64(30)}},
	}

	joined := base.OuterJoin(ref)
	assert.Equal(t, []string{"$v", "$v_dod"}, joined.Columns)
	assert.Equal(t, []interface{}{"a", "b", "c"}, keys(joined))
	assert.Equal(t, []interface{}{nil, int64(20), int64(30)}, joined.Column("$v_dod"))
	assert.Equal(t, []interface{}{int64(1), int64(2), nil}, joined.Column("$v"))
	assert.Len(t, base.Columns, 1, "inputs are not modified")

	totals := New([]string{"$d"}, []Kind{KindText}, []string{"$v"})
	totals.Rows = []Row{{Key: []interface{}{TotalsText}, Values: []interface{}{int64(3)}}}
	appended := joined.Append(totals)
	require.Equal(t, 4, appended.Len())
	assert.Equal(t, []interface{}{int64(3), nil}, appended.Rows[3].Values)
}

func TestSliceFilterDrop(t *testing.T) {
	f := sample()
	assert.Equal(t, []interface{}{TotalsText, "a"}, keys(f.Slice(1, 2)))
	assert.Equal(t, 3, f.Slice(1, 0).Len())
	assert.Equal(t, 0, f.Slice(10, 2).Len())

	odd := f.Filter(func(i int, _ Row) bool { return i%2 == 1 })
	assert.Equal(t, []interface{}{TotalsText, nil}, keys(odd))

	f.SetColumn("$w", []interface{}{1, 2, 3, 4})
	f.DropColumns("$v", "$nope")
	assert.Equal(t, []string{"$w"}, f.Columns)
	assert.Equal(t, 3, f.Value(2, "$w"))
	assert.Equal(t, "a", f.Value(2, "$d"))

	recs := f.Records()
	assert.Equal(t, map[string]interface{}{"$d": "b", "$w": 1}, recs[0])
}
