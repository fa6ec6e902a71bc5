package tclcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIntSeriesValue(t *testing.T, start, end, step float64) Value {
	t.Helper()
	as, err := NewArithSeries(false, 0, start, end, step, 0, true, true, true, false)
	require.NoError(t, err)
	v := Value{}
	v.SetInternal(arithSeriesType, as)
	v.Incref()
	return v
}

func TestArithSeries_Basics(t *testing.T) {
	v := newIntSeriesValue(t, 1, 10, 1)
	n, err := Length(v)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	first, _ := Index(v, 0)
	assert.Equal(t, "1", string(first.GetString()))
	last, _ := Index(v, 9)
	assert.Equal(t, "10", string(last.GetString()))

	assert.Equal(t, "1 2 3 4 5 6 7 8 9 10", string(v.GetString()))

	ok, err := Contains(v, NewValueString("7"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Contains(v, NewValueString("11"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArithSeries_OutOfRangeIndexIsEmptyNotError(t *testing.T) {
	v := newIntSeriesValue(t, 1, 5, 1)
	got, err := Index(v, 99)
	require.NoError(t, err)
	assert.Equal(t, "", string(got.GetString()))
}

func TestArithSeries_Reverse(t *testing.T) {
	v := newIntSeriesValue(t, 1, 5, 1)
	require.NoError(t, Reverse(&v))
	assert.Equal(t, "5 4 3 2 1", string(v.GetString()))
}

func TestArithSeries_ReversePanicsWhenShared(t *testing.T) {
	v := newIntSeriesValue(t, 1, 5, 1)
	v.Incref() // a second holder now shares this value
	assert.Panics(t, func() { _ = Reverse(&v) })
}

func TestArithSeries_ReverseReverseIsIdentity(t *testing.T) {
	v := newIntSeriesValue(t, 1, 10, 1)
	original := string(v.GetString())
	require.NoError(t, Reverse(&v))
	require.NoError(t, Reverse(&v))
	assert.Equal(t, original, string(v.GetString()))
}

func TestArithSeries_RangeIsSubSeries(t *testing.T) {
	v := newIntSeriesValue(t, 1, 10, 1)
	full, err := ListRange(v, 0, 9)
	require.NoError(t, err)
	assert.Equal(t, "1 2 3 4 5 6 7 8 9 10", string(full.GetString()))

	mid, err := ListRange(v, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, "3 4 5", string(mid.GetString()))
}

func TestArithSeries_ZeroStepIsEmpty(t *testing.T) {
	as, err := NewArithSeries(false, 0, 1, 5, 0, 0, true, true, true, false)
	require.NoError(t, err)
	assert.Equal(t, 0, as.Length)
}

func TestArithSeries_ZeroStepSamePointIsLengthOne(t *testing.T) {
	as, err := NewArithSeries(false, 0, 3, 3, 0, 0, true, true, true, false)
	require.NoError(t, err)
	assert.Equal(t, 1, as.Length)
}

func TestArithSeries_LengthSolvedFromOthers(t *testing.T) {
	as, err := NewArithSeries(false, 0, 1, 10, 0, 0, true, true, false, false)
	require.NoError(t, err)
	assert.Equal(t, 1.0, as.Step)
	assert.Equal(t, 10, as.Length)
}

func TestArithSeries_StepSolvedFromStartEndLength(t *testing.T) {
	as, err := NewArithSeries(false, 0, 0, 8, 0, 5, true, true, false, true)
	require.NoError(t, err)
	assert.Equal(t, 2.0, as.Step)
	assert.Equal(t, 5, as.Length)
}

func TestArithSeries_DoublePrecisionAvoidsDrift(t *testing.T) {
	as, err := NewArithSeries(true, 1, 0, 1, 0.1, 0, true, true, true, false)
	require.NoError(t, err)
	assert.Equal(t, 11, as.Length)
	assert.Equal(t, "1.0", as.formatAt(10))
}

func TestArithSeries_MaterializeAllElementsCachesAndDecrefsOnFree(t *testing.T) {
	v := newIntSeriesValue(t, 1, 3, 1)
	items, err := AllElements(v)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "1", string(items[0].GetString()))

	as := v.Internal().(*ArithSeries)
	assert.Len(t, as.cache, 3)
	v.Decref()
	assert.Nil(t, as.cache)
}
