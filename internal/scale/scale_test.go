package scale

import (
	"NN-Escape/internal/bounds"
	"NN-Escape/internal/errmsg"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbered(n int) *BoundsArray {
	a := NewBoundsArray(n)
	for c := 0; c < n; c++ {
		a.Bounds.SetOne(c, bounds.New(-float64(c+1), float64(2*c+1)))
		a.Scales.SetOneByN(c, float64(c+2))
	}
	return a
}

func assertReciprocal(t *testing.T, s ArraySet) {
	t.Helper()
	for c := range s.Do {
		assert.InDelta(t, 1, s.Do[c]*s.Undo[c], 1e-12, "channel %d", c)
	}
}

func TestSetAllByN(t *testing.T) {
	s := NewArraySet(4)
	assert.True(t, s.IsIdentity())
	s.SetAllByN(0.125)
	assert.Equal(t, []float64{8, 8, 8, 8}, s.Undo)
	assertReciprocal(t, s)
	assert.False(t, s.IsIdentity())
}

func TestSetOneByFromLowerUpperToLowerUpper(t *testing.T) {
	s := NewArraySet(3)
	require.NoError(t, s.SetOneByFromLowerUpperToLowerUpper(0, -1, 1, -0.125, 0.125))
	assert.Equal(t, 0.125, s.Do[0])
	assert.Equal(t, 8.0, s.Undo[0])
	require.NoError(t, s.SetOneByFromLowerUpperToLowerUpper(1, 10, -4, -2, 2))
	assert.InDelta(t, 0.2, s.Do[1], 1e-12)
	assertReciprocal(t, ArraySet{Do: s.Do[:2], Undo: s.Undo[:2]})

	err := s.SetOneByFromLowerUpperToLowerUpper(2, 0, 0, -0.125, 0.125)
	require.ErrorIs(t, err, errmsg.ErrDegenerate)
	assert.True(t, math.IsNaN(s.Do[2]))
	assert.True(t, math.IsNaN(s.Undo[2]))
}

func TestConcatMovesOnly(t *testing.T) {
	a, b := numbered(3), numbered(2)
	c := Concat(a, b)
	require.Equal(t, 5, c.Len())
	for i := 0; i < 3; i++ {
		assert.Equal(t, a.One(i), c.One(i))
		assert.Equal(t, a.Scales.Do[i], c.Scales.Do[i])
		assert.Equal(t, a.Scales.Undo[i], c.Scales.Undo[i])
	}
	for i := 0; i < 2; i++ {
		assert.Equal(t, b.One(i), c.One(3+i))
		assert.Equal(t, b.Scales.Do[i], c.Scales.Do[3+i])
		assert.Equal(t, b.Scales.Undo[i], c.Scales.Undo[3+i])
	}
}

func TestSplitMovesOnly(t *testing.T) {
	a := numbered(6)
	lo, hi, err := Split(a)
	require.NoError(t, err)
	if diff := cmp.Diff(a.Bounds.Lowers[:3], lo.Bounds.Lowers); diff != "" {
		t.Errorf("lower half lowers (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(a.Scales.Undo[3:], hi.Scales.Undo); diff != "" {
		t.Errorf("upper half undo (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Concat(lo, hi).Bounds, a.Bounds); diff != "" {
		t.Errorf("split then concat (-want +got):\n%s", diff)
	}

	_, _, err = Split(numbered(5))
	require.ErrorIs(t, err, errmsg.ErrChannelMismatch)
}

func TestInterleaveByTwo(t *testing.T) {
	a := numbered(6)
	b, err := InterleaveByTwo(a)
	require.NoError(t, err)
	want := []int{0, 3, 1, 4, 2, 5}
	for to, from := range want {
		assert.Equal(t, a.One(from), b.One(to), "channel %d", to)
		assert.Equal(t, a.Scales.Do[from], b.Scales.Do[to], "channel %d", to)
		assert.Equal(t, a.Scales.Undo[from], b.Scales.Undo[to], "channel %d", to)
	}
	assert.Same(t, a, b.BeforeShuffle)
	assertReciprocal(t, b.Scales)
}

func TestAdd(t *testing.T) {
	a, b := numbered(2), numbered(2)
	c, err := Add(a, b)
	require.NoError(t, err)
	assert.Equal(t, bounds.New(-2, 2), c.One(0))
	assert.Equal(t, bounds.New(-4, 6), c.One(1))
	assert.Equal(t, a.Scales.Do, c.Scales.Do)

	b.Scales.SetOneByN(1, 0.5)
	_, err = Add(a, b)
	require.ErrorIs(t, err, errmsg.ErrScaleMismatch)

	_, err = Add(a, numbered(3))
	require.ErrorIs(t, err, errmsg.ErrChannelMismatch)
}
