package bounds

import (
	"NN-Escape/internal/errmsg"
	"math"
)

// Bounds is a closed interval. New keeps Lower <= Upper.
type Bounds struct {
	Lower float64
	Upper float64
}

func New(a, b float64) Bounds {
	if a > b {
		a, b = b, a
	}
	return Bounds{Lower: a, Upper: b}
}

var (
	Zero = Bounds{}
	Unit = Bounds{Lower: -1, Upper: 1}
	All  = Bounds{Lower: math.Inf(-1), Upper: math.Inf(1)}
)

func (b Bounds) Difference() float64 {
	return b.Upper - b.Lower
}

// IsDegenerate reports the [0,0] interval, which no scale can stretch.
func (b Bounds) IsDegenerate() bool {
	return b.Lower == 0 && b.Upper == 0
}

func (b Bounds) Contains(x float64) bool {
	return b.Lower <= x && x <= b.Upper
}

func (b Bounds) ContainsBounds(o Bounds) bool {
	return b.Lower <= o.Lower && o.Upper <= b.Upper
}

func (b Bounds) Add(o Bounds) Bounds {
	return Bounds{Lower: b.Lower + o.Lower, Upper: b.Upper + o.Upper}
}

func (b Bounds) AddN(n float64) Bounds {
	return Bounds{Lower: b.Lower + n, Upper: b.Upper + n}
}

func mul(x, n float64) float64 {
	if x == 0 || n == 0 {
		return 0
	}
	return x * n
}

// MultiplyN scales both endpoints. Zero times an infinite endpoint is
// zero: a zero weight removes the channel entirely.
func (b Bounds) MultiplyN(n float64) Bounds {
	return New(mul(b.Lower, n), mul(b.Upper, n))
}

// Multiply is the interval product.
func (b Bounds) Multiply(o Bounds) Bounds {
	ll := mul(b.Lower, o.Lower)
	lu := mul(b.Lower, o.Upper)
	ul := mul(b.Upper, o.Lower)
	uu := mul(b.Upper, o.Upper)
	return Bounds{
		Lower: math.Min(math.Min(ll, lu), math.Min(ul, uu)),
		Upper: math.Max(math.Max(ll, lu), math.Max(ul, uu)),
	}
}

// UnionZero widens b to contain 0 (a tap reading zero padding).
func (b Bounds) UnionZero() Bounds {
	return Bounds{Lower: math.Min(b.Lower, 0), Upper: math.Max(b.Upper, 0)}
}

// Symmetric returns [-m, m] for a magnitude bound m.
func Symmetric(m float64) Bounds {
	return New(-m, m)
}

func (b Bounds) IsFinite() bool {
	return !math.IsInf(b.Lower, 0) && !math.IsInf(b.Upper, 0) &&
		!math.IsNaN(b.Lower) && !math.IsNaN(b.Upper)
}

// ScaleTranslate is the affine map x -> Scale*x + Translate.
type ScaleTranslate struct {
	Scale     float64
	Translate float64
}

// FromTo returns the order-preserving affine map carrying source onto
// target.
func FromTo(source, target Bounds) ScaleTranslate {
	s := target.Difference() / source.Difference()
	return ScaleTranslate{
		Scale:     s,
		Translate: target.Lower - s*source.Lower,
	}
}

func (st ScaleTranslate) Apply(x float64) float64 {
	return st.Scale*x + st.Translate
}

func (st ScaleTranslate) ApplyBounds(b Bounds) Bounds {
	return New(st.Apply(b.Lower), st.Apply(b.Upper))
}

// PureScale returns the scale (no translation, so 0 stays 0) that maps
// the larger-magnitude endpoint of source onto the same-sign endpoint of
// target without pushing the other endpoint outside target. Infinite
// target endpoints impose no constraint; with no constraint at all the
// scale is 1. A degenerate source has no such scale.
func PureScale(source, target Bounds) (float64, error) {
	if source.IsDegenerate() {
		return math.NaN(), errmsg.New(errmsg.Degenerate,
			"cannot scale [0, 0]; widen it first").WithBounds(source.Lower, source.Upper)
	}
	s, bound := math.Inf(1), false
	if source.Upper > 0 && !math.IsInf(target.Upper, 1) {
		s, bound = math.Min(s, target.Upper/source.Upper), true
	}
	if source.Lower < 0 && !math.IsInf(target.Lower, -1) {
		s, bound = math.Min(s, target.Lower/source.Lower), true
	}
	if !bound {
		return 1, nil
	}
	return s, nil
}
