package cba

import (
	"NN-Escape/internal/act"
	"NN-Escape/internal/bounds"
	"NN-Escape/internal/errmsg"
	"NN-Escape/internal/scale"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func escapedInput() *scale.BoundsArray {
	in := scale.NewBoundsArray(2)
	in.Bounds.SetOne(0, bounds.New(-0.125, 0.0625))
	in.Scales.SetOneByN(0, 0.125)
	in.Bounds.SetOne(1, bounds.New(-3, 5))
	return in
}

func TestNewUndoesPreviousEscaping(t *testing.T) {
	in := escapedInput()
	s := New(in, 3)
	assert.Equal(t, bounds.New(-1, 0.5), s.AfterUndoPreviousEscaping.One(0))
	assert.Equal(t, bounds.New(-3, 5), s.AfterUndoPreviousEscaping.One(1))
	assert.Equal(t, bounds.New(-0.125, 0.0625), in.One(0), "input0 is read-only")
	assert.Equal(t, 3, s.OutputChannelCount())
}

func TestConvolvedChannelKeepsFullRange(t *testing.T) {
	s := New(escapedInput(), 1)
	s.AddFilterTap(0, 0, 2, false)
	s.AddFilterTap(0, 1, -1, false)
	s.SetBias(0, 0.5)
	assert.Equal(t, bounds.New(-6.5, 4.5), s.AfterBias.One(0))

	require.NoError(t, s.Escape(act.Lookup(act.Tanh)))
	assert.Equal(t, 1.0, s.Output0.Scales.Do[0])
	assert.Equal(t, bounds.New(-6.5, 4.5), s.AfterEscaping.One(0))
	assert.Equal(t, bounds.New(-1, 1), s.Output0.One(0))
	assert.False(t, s.PassThrough[0])
}

func TestPassThroughEscapesIntoLinearDomain(t *testing.T) {
	s := New(escapedInput(), 2)
	s.SetPassThrough(0, 1, 1, false)
	s.SetBias(0, 0)
	s.SetPassThrough(1, 0, 1, false)
	s.SetBias(1, 0)
	require.NoError(t, s.Escape(act.Lookup(act.Sin)))

	assert.InDelta(t, 0.025, s.Output0.Scales.Do[0], 1e-12)
	assert.InDelta(t, 40, s.Output0.Scales.Undo[0], 1e-9)
	assert.InDelta(t, 0.125, s.Output0.Scales.Do[1], 1e-12)
	for c := 0; c < 2; c++ {
		assert.InDelta(t, 1, s.Output0.Scales.Do[c]*s.Output0.Scales.Undo[c], 1e-12)
		slack := bounds.New(-0.125-1e-12, 0.125+1e-12)
		assert.True(t, slack.ContainsBounds(s.AfterEscaping.One(c)), "channel %d", c)
		assert.Equal(t, s.AfterBias.One(c), s.AfterEscaping.One(c))
	}
	assert.Equal(t, 2, s.PassThroughCount())
}

func TestDegenerateAfterBiasIsWidened(t *testing.T) {
	in := scale.NewBoundsArray(1)
	s := New(in, 1)
	s.SetPassThrough(0, 0, 1, false)
	s.SetBias(0, 0)
	require.NoError(t, s.Escape(act.Lookup(act.Tanh)))
	do := s.Output0.Scales.Do[0]
	assert.False(t, math.IsInf(do, 0) || math.IsNaN(do))
	assert.NotZero(t, do)
	assert.Equal(t, 0.125, do)
	assert.Equal(t, 8.0, s.Output0.Scales.Undo[0])
	assert.Equal(t, bounds.New(-0.125, 0.125), s.AfterBias.One(0))
	assert.Equal(t, bounds.New(-0.125, 0.125), s.AfterEscaping.One(0))
	assert.Equal(t, bounds.Unit, s.Output0.One(0))
}

func TestIdentityNeverEscapes(t *testing.T) {
	s := New(escapedInput(), 1)
	s.SetPassThrough(0, 1, 1, false)
	s.SetBias(0, 0)
	require.NoError(t, s.Escape(act.Lookup(act.None)))
	assert.Equal(t, 1.0, s.Output0.Scales.Do[0])
	assert.Equal(t, bounds.New(-3, 5), s.Output0.One(0))
}

func TestInfeasiblePassThrough(t *testing.T) {
	for _, kind := range []act.Kind{act.Sigmoid, act.ReLU, act.ReLU6} {
		t.Run(kind.String(), func(t *testing.T) {
			s := New(escapedInput(), 1)
			s.SetPassThrough(0, 1, 1, false)
			s.SetBias(0, 0)
			err := s.Escape(act.Lookup(kind))
			require.ErrorIs(t, err, errmsg.ErrInfeasible)
			var e *errmsg.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, 0, e.Channel)
			assert.Equal(t, -3.0, e.Lower)
			assert.Equal(t, 5.0, e.Upper)
		})
	}
}

func TestUnboundedPassThroughIsInfeasible(t *testing.T) {
	in := scale.Uniform(1, bounds.New(0, math.Inf(1)))
	s := New(in, 1)
	s.SetPassThrough(0, 0, 1, false)
	s.SetBias(0, 0)
	err := s.Escape(act.Lookup(act.ClipN2P2))
	require.ErrorIs(t, err, errmsg.ErrInfeasible)
	assert.Contains(t, err.Error(), "unbounded")
}

func TestPaddedTapIncludesZero(t *testing.T) {
	in := scale.Uniform(1, bounds.New(2, 3))
	s := New(in, 1)
	s.AddFilterTap(0, 0, 1, true)
	s.AddFilterTap(0, 0, 1, false)
	s.SetBias(0, 0)
	assert.Equal(t, bounds.New(2, 6), s.AfterBias.One(0))
}

func TestBoundVariants(t *testing.T) {
	in := scale.Uniform(1, bounds.New(-1, 2))
	s := New(in, 1)
	s.AddFilterTapBound(0, 0, bounds.Symmetric(4), false)
	s.SetBiasBound(0, bounds.Symmetric(4))
	assert.Equal(t, bounds.New(-12, 12), s.AfterBias.One(0))
}
