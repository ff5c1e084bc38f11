package cba

import (
	"NN-Escape/internal/act"
	"NN-Escape/internal/bounds"
	"NN-Escape/internal/errmsg"
	"NN-Escape/internal/scale"
	"math"
)

// BoundsArraySet tracks one convolution-bias-activation stage. Input0 is
// borrowed from the previous stage and never written. Every other field
// belongs to this stage; Output0 becomes the next stage's Input0.
type BoundsArraySet struct {
	Input0                    *scale.BoundsArray
	AfterUndoPreviousEscaping bounds.Array
	AfterFilter               bounds.Array
	AfterBias                 bounds.Array
	AfterEscaping             bounds.Array
	AfterActivation           bounds.Array
	Output0                   *scale.BoundsArray
	PassThrough               []bool
}

// New performs step 1 (undo the previous escaping) and leaves every
// per-output array at [0,0], ready for accumulation.
func New(input0 *scale.BoundsArray, outCount int) *BoundsArraySet {
	s := &BoundsArraySet{
		Input0:                    input0,
		AfterUndoPreviousEscaping: input0.Bounds.Clone(),
		AfterFilter:               bounds.NewArray(outCount),
		AfterBias:                 bounds.NewArray(outCount),
		AfterEscaping:             bounds.NewArray(outCount),
		AfterActivation:           bounds.NewArray(outCount),
		Output0:                   scale.NewBoundsArray(outCount),
		PassThrough:               make([]bool, outCount),
	}
	s.AfterUndoPreviousEscaping.MultiplyAll(input0.Scales.Undo)
	return s
}

func (s *BoundsArraySet) OutputChannelCount() int {
	return len(s.PassThrough)
}

// AddFilterTap accumulates one filter tap of output channel out reading
// input channel in with the (de-escaped) weight w. A tap that can land on
// zero padding also contributes 0.
func (s *BoundsArraySet) AddFilterTap(out, in int, w float64, mayPad bool) {
	b := s.AfterUndoPreviousEscaping.One(in).MultiplyN(w)
	if mayPad {
		b = b.UnionZero()
	}
	s.AfterFilter.AddOne(out, b)
}

// AddFilterTapBound is AddFilterTap for a weight known only to lie in w.
func (s *BoundsArraySet) AddFilterTapBound(out, in int, w bounds.Bounds, mayPad bool) {
	b := s.AfterUndoPreviousEscaping.One(in).Multiply(w)
	if mayPad {
		b = b.UnionZero()
	}
	s.AfterFilter.AddOne(out, b)
}

// SetPassThrough marks out as a copy of in through a single tap holding
// filterValue.
func (s *BoundsArraySet) SetPassThrough(out, in int, filterValue float64, mayPad bool) {
	s.PassThrough[out] = true
	s.AfterFilter.SetOne(out, bounds.Zero)
	s.AddFilterTap(out, in, filterValue, mayPad)
}

// SetBias finishes step 3 for out. Call it exactly once per output
// channel, after all of its taps.
func (s *BoundsArraySet) SetBias(out int, bias float64) {
	s.AfterBias.SetOne(out, s.AfterFilter.One(out).AddN(bias))
}

func (s *BoundsArraySet) SetBiasBound(out int, bias bounds.Bounds) {
	s.AfterBias.SetOne(out, s.AfterFilter.One(out).Add(bias))
}

// Escape runs steps 4 to 6 for every output channel: it chooses the
// escape scale, applies it to the filter and bias bounds in place, and
// fills AfterEscaping, AfterActivation and Output0. A degenerate
// pass-through AfterBias is widened to [-1,1] first.
func (s *BoundsArraySet) Escape(info *act.Info) error {
	for c := range s.PassThrough {
		if err := s.escapeOne(c, info); err != nil {
			return err
		}
	}
	s.Output0.Bounds = s.AfterActivation.Clone()
	return nil
}

func (s *BoundsArraySet) escapeOne(c int, info *act.Info) error {
	sc := s.Output0.Scales
	if info.IsIdentity() || !s.PassThrough[c] {
		sc.SetOneByN(c, 1)
	} else {
		b := s.AfterBias.One(c)
		if !b.IsFinite() {
			return errmsg.New(errmsg.Infeasible,
				"cannot pass through an unbounded channel with %s", info.Kind).
				AtChannel(c).WithBounds(b.Lower, b.Upper)
		}
		if b.IsDegenerate() {
			b = bounds.Unit
			s.AfterBias.SetOne(c, b)
		}
		d := info.Linear
		if err := sc.SetOneByFromLowerUpperToLowerUpper(c, b.Lower, b.Upper, d.Lower, d.Upper); err != nil {
			return err
		}
	}
	do, undo := sc.Do[c], sc.Undo[c]
	if math.IsNaN(do) || math.IsInf(do, 0) || math.IsNaN(undo) || math.IsInf(undo, 0) || do <= 0 {
		b := s.AfterBias.One(c)
		return errmsg.New(errmsg.Infeasible,
			"cannot pass through %s (near-linear domain [%g, %g])",
			info.Kind, info.Linear.Lower, info.Linear.Upper).
			AtChannel(c).WithBounds(b.Lower, b.Upper).WithValue(do)
	}
	s.AfterFilter.MultiplyOne(c, do)
	s.AfterBias.MultiplyOne(c, do)
	s.AfterEscaping.SetOne(c, s.AfterBias.One(c))
	if info.IsIdentity() {
		s.AfterActivation.SetOne(c, s.AfterEscaping.One(c))
	} else {
		s.AfterActivation.SetOne(c, info.Output)
	}
	return nil
}

func (s *BoundsArraySet) PassThroughCount() int {
	n := 0
	for _, p := range s.PassThrough {
		if p {
			n++
		}
	}
	return n
}
