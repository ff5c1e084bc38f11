package bounds

import (
	"NN-Escape/internal/errmsg"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNormalizesOrder(t *testing.T) {
	b := New(5, -3)
	assert.Equal(t, -3.0, b.Lower)
	assert.Equal(t, 5.0, b.Upper)
	assert.Equal(t, 8.0, b.Difference())
}

func TestMultiply(t *testing.T) {
	got := New(-3, 5).Multiply(New(-2, 1))
	assert.Equal(t, New(-10, 6), got)

	got = New(-3, 5).MultiplyN(-2)
	assert.Equal(t, New(-10, 6), got)

	got = New(0, math.Inf(1)).MultiplyN(0)
	assert.Equal(t, Zero, got)
}

func TestUnionZero(t *testing.T) {
	assert.Equal(t, New(0, 5), New(2, 5).UnionZero())
	assert.Equal(t, New(-4, 0), New(-4, -1).UnionZero())
	assert.Equal(t, New(-4, 1), New(-4, 1).UnionZero())
}

func TestFromTo(t *testing.T) {
	st := FromTo(New(-3, 5), New(0, 1))
	assert.InDelta(t, 0.125, st.Scale, 1e-12)
	assert.InDelta(t, 0.375, st.Translate, 1e-12)
	assert.InDelta(t, 0.0, st.Apply(-3), 1e-12)
	assert.InDelta(t, 1.0, st.Apply(5), 1e-12)
	assert.Equal(t, New(0, 1), st.ApplyBounds(New(-3, 5)))
}

func TestPureScale(t *testing.T) {
	linear := New(-0.125, 0.125)
	cases := []struct {
		name   string
		source Bounds
		target Bounds
		want   float64
	}{
		{"upper larger", New(-3, 5), linear, 0.025},
		{"lower larger", New(-5, 3), linear, 0.025},
		{"all negative", New(-4, -2), linear, 0.03125},
		{"all positive", New(2, 4), linear, 0.03125},
		{"widen", New(-1, 1), New(-2, 2), 2},
		{"asymmetric keeps both ends", New(-3, 5), New(-1, 6), 1.0 / 3},
		{"unbounded target", New(0, 5), New(0, math.Inf(1)), 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s, err := PureScale(c.source, c.target)
			require.NoError(t, err)
			assert.InDelta(t, c.want, s, 1e-12)
			slack := Bounds{Lower: c.target.Lower - 1e-12, Upper: c.target.Upper + 1e-12}
			assert.True(t, slack.ContainsBounds(c.source.MultiplyN(s)))
		})
	}
}

func TestPureScaleDegenerate(t *testing.T) {
	s, err := PureScale(Zero, New(-0.125, 0.125))
	require.ErrorIs(t, err, errmsg.ErrDegenerate)
	assert.True(t, math.IsNaN(s))
}

func TestPureScaleOneSidedTarget(t *testing.T) {
	s, err := PureScale(New(-3, 5), New(0, math.Inf(1)))
	require.NoError(t, err)
	assert.Equal(t, 0.0, math.Abs(s))
}

func TestArrayMultiplyAll(t *testing.T) {
	a := NewArray(3)
	a.SetOne(0, New(-1, 2))
	a.SetOne(1, New(3, 4))
	a.SetOne(2, New(-8, 8))
	a.MultiplyAll([]float64{2, -1, 0.125})
	assert.Equal(t, New(-2, 4), a.One(0))
	assert.Equal(t, New(-4, -3), a.One(1))
	assert.Equal(t, New(-1, 1), a.One(2))
	assert.Equal(t, New(-4, 4), a.Hull())
}
