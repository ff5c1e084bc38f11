package bounds

import (
	"gonum.org/v1/gonum/floats"
)

// Array holds one interval per channel as parallel slices.
type Array struct {
	Lowers []float64
	Uppers []float64
}

func NewArray(n int) Array {
	return Array{
		Lowers: make([]float64, n),
		Uppers: make([]float64, n),
	}
}

func (a Array) Len() int {
	return len(a.Lowers)
}

func (a Array) One(c int) Bounds {
	return Bounds{Lower: a.Lowers[c], Upper: a.Uppers[c]}
}

func (a Array) SetOne(c int, b Bounds) {
	a.Lowers[c], a.Uppers[c] = b.Lower, b.Upper
}

func (a Array) SetAll(b Bounds) {
	for c := range a.Lowers {
		a.SetOne(c, b)
	}
}

func (a Array) AddOne(c int, b Bounds) {
	a.SetOne(c, a.One(c).Add(b))
}

func (a Array) MultiplyOne(c int, n float64) {
	a.SetOne(c, a.One(c).MultiplyN(n))
}

// MultiplyAll scales channel c by ns[c]. A negative factor swaps that
// channel's endpoints back into order.
func (a Array) MultiplyAll(ns []float64) {
	if len(ns) != a.Len() {
		panic("bug")
	}
	floats.Mul(a.Lowers, ns)
	floats.Mul(a.Uppers, ns)
	for c := range a.Lowers {
		if a.Lowers[c] > a.Uppers[c] {
			a.Lowers[c], a.Uppers[c] = a.Uppers[c], a.Lowers[c]
		}
	}
}

func (a Array) Clone() Array {
	return Array{
		Lowers: append([]float64(nil), a.Lowers...),
		Uppers: append([]float64(nil), a.Uppers...),
	}
}

// CopyFrom copies src[from:from+n] into a[to:to+n].
func (a Array) CopyFrom(to int, src Array, from, n int) {
	copy(a.Lowers[to:to+n], src.Lowers[from:from+n])
	copy(a.Uppers[to:to+n], src.Uppers[from:from+n])
}

// Hull returns the smallest interval containing every channel.
func (a Array) Hull() Bounds {
	if a.Len() == 0 {
		return Zero
	}
	return Bounds{Lower: floats.Min(a.Lowers), Upper: floats.Max(a.Uppers)}
}
