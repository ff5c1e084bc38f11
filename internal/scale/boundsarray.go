package scale

import (
	"NN-Escape/internal/bounds"
	"NN-Escape/internal/errmsg"

	"github.com/samber/lo"
)

// BoundsArray is the value passed between stages. Bounds is what each
// channel currently holds, already multiplied by Scales.Do; Scales.Undo
// reverses that. BeforeShuffle, when set, is the array as it was before
// the most recent InterleaveByTwo.
type BoundsArray struct {
	Bounds        bounds.Array
	Scales        ArraySet
	BeforeShuffle *BoundsArray
}

func NewBoundsArray(n int) *BoundsArray {
	return &BoundsArray{
		Bounds: bounds.NewArray(n),
		Scales: NewArraySet(n),
	}
}

// Uniform is an unscaled array whose every channel is b.
func Uniform(n int, b bounds.Bounds) *BoundsArray {
	a := NewBoundsArray(n)
	a.Bounds.SetAll(b)
	return a
}

func (a *BoundsArray) Len() int {
	return a.Bounds.Len()
}

func (a *BoundsArray) Clone() *BoundsArray {
	return &BoundsArray{
		Bounds:        a.Bounds.Clone(),
		Scales:        a.Scales.Clone(),
		BeforeShuffle: a.BeforeShuffle,
	}
}

func (a *BoundsArray) One(c int) bounds.Bounds {
	return a.Bounds.One(c)
}

func (a *BoundsArray) copyFrom(to int, src *BoundsArray, from, n int) {
	a.Bounds.CopyFrom(to, src.Bounds, from, n)
	a.Scales.CopyFrom(to, src.Scales, from, n)
}

// Concat places b's channels after a's.
func Concat(a, b *BoundsArray) *BoundsArray {
	na, nb := a.Len(), b.Len()
	c := NewBoundsArray(na + nb)
	c.copyFrom(0, a, 0, na)
	c.copyFrom(na, b, 0, nb)
	return c
}

// Sub returns channels [begin, end) of a.
func Sub(a *BoundsArray, begin, end int) *BoundsArray {
	c := NewBoundsArray(end - begin)
	c.copyFrom(0, a, begin, end-begin)
	return c
}

// Split cuts a into its lower and upper halves.
func Split(a *BoundsArray) (*BoundsArray, *BoundsArray, error) {
	n := a.Len()
	if n%2 != 0 {
		return nil, nil, errmsg.New(errmsg.ChannelMismatch,
			"cannot split %d channels into halves", n)
	}
	return Sub(a, 0, n/2), Sub(a, n/2, n), nil
}

// InterleaveByTwo is the two-group channel shuffle: output channel 2i is
// input channel i and output channel 2i+1 is input channel n/2+i.
func InterleaveByTwo(a *BoundsArray) (*BoundsArray, error) {
	lo0, hi0, err := Split(a)
	if err != nil {
		return nil, err
	}
	index := lo.Interleave(
		lo.RangeFrom(0, lo0.Len()),
		lo.RangeFrom(lo0.Len(), hi0.Len()),
	)
	c := NewBoundsArray(a.Len())
	for to, from := range index {
		c.copyFrom(to, a, from, 1)
	}
	c.BeforeShuffle = a
	return c, nil
}

// Add is the elementwise sum of two branches. Both must carry the same
// escape scale on every channel, since the sum of two differently
// scaled signals cannot be undone.
func Add(a, b *BoundsArray) (*BoundsArray, error) {
	n := a.Len()
	if b.Len() != n {
		return nil, errmsg.New(errmsg.ChannelMismatch,
			"cannot add %d channels to %d channels", b.Len(), n)
	}
	c := NewBoundsArray(n)
	for i := 0; i < n; i++ {
		if a.Scales.Do[i] != b.Scales.Do[i] {
			return nil, errmsg.New(errmsg.ScaleMismatch,
				"do scales %g and %g differ", a.Scales.Do[i], b.Scales.Do[i]).AtChannel(i)
		}
		c.Bounds.SetOne(i, a.One(i).Add(b.One(i)))
	}
	c.Scales.CopyFrom(0, a.Scales, 0, n)
	return c, nil
}
