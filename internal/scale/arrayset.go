package scale

import (
	"NN-Escape/internal/bounds"
	"NN-Escape/internal/errmsg"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ArraySet holds the per-channel escape scale (Do) and its reciprocal
// (Undo). Undo is always derived from Do.
type ArraySet struct {
	Do   []float64
	Undo []float64
}

func NewArraySet(n int) ArraySet {
	s := ArraySet{
		Do:   make([]float64, n),
		Undo: make([]float64, n),
	}
	s.SetAllByN(1)
	return s
}

func (s ArraySet) Len() int {
	return len(s.Do)
}

func (s ArraySet) SetAllByN(n float64) {
	for c := range s.Do {
		s.Do[c] = n
	}
	s.Reciprocal()
}

func (s ArraySet) SetOneByN(c int, n float64) {
	s.Do[c] = n
	s.Undo[c] = 1 / n
}

// SetOneByFromLowerUpperToLowerUpper sets channel c to the pure scale
// carrying [srcLo, srcHi] into [dstLo, dstHi]. A degenerate source is an
// error and leaves Do[c] and Undo[c] NaN.
func (s ArraySet) SetOneByFromLowerUpperToLowerUpper(c int, srcLo, srcHi, dstLo, dstHi float64) error {
	n, err := bounds.PureScale(bounds.New(srcLo, srcHi), bounds.New(dstLo, dstHi))
	if err != nil {
		s.Do[c], s.Undo[c] = math.NaN(), math.NaN()
		if e, ok := err.(*errmsg.Error); ok {
			e.AtChannel(c)
		}
		return err
	}
	s.SetOneByN(c, n)
	return nil
}

// Reciprocal rederives every Undo from Do.
func (s ArraySet) Reciprocal() {
	for c := range s.Undo {
		s.Undo[c] = 1
	}
	floats.Div(s.Undo, s.Do)
}

func (s ArraySet) Clone() ArraySet {
	return ArraySet{
		Do:   append([]float64(nil), s.Do...),
		Undo: append([]float64(nil), s.Undo...),
	}
}

func (s ArraySet) CopyFrom(to int, src ArraySet, from, n int) {
	copy(s.Do[to:to+n], src.Do[from:from+n])
	copy(s.Undo[to:to+n], src.Undo[from:from+n])
}

// IsIdentity reports whether every channel is unscaled.
func (s ArraySet) IsIdentity() bool {
	for c := range s.Do {
		if s.Do[c] != 1 || s.Undo[c] != 1 {
			return false
		}
	}
	return true
}
