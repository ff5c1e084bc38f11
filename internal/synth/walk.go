package synth

import (
	"NN-Escape/internal/part"
)

// entry is one filter coefficient in weight-source order.
type entry struct {
	index int
	out   int
	in    int
	y, x  int
	pass  bool
	hot   bool
}

// walkFilters visits the filter block in the order the flat weight
// source is consumed: taps (row, then column) outermost for depthwise,
// then parts in order, input channels ascending, and each input
// channel's output channels ascending. A pointwise pass-through part
// only visits its unit entries; everything it skips stays 0.
func (st *Stage) walkFilters(fn func(e *entry)) {
	parts := st.parts()
	ranges := parts.OutputRanges(st.Kind, st.multiplier())
	h, w := st.filterHW()
	fan := st.fanOut()
	var e entry
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			tap := (y*w + x) * st.InputChannels
			for i := range parts.Parts {
				p := &parts.Parts[i]
				ty, tx := p.Tap(h, w)
				for in := p.InBegin; in < p.InEnd; in++ {
					switch st.Kind {
					case part.Depthwise:
						for m := 0; m < st.Multiplier; m++ {
							out := in*st.Multiplier + m
							e = entry{
								index: (tap+in)*fan + m,
								out:   out, in: in, y: y, x: x,
								pass: p.PassThrough,
								hot:  p.PassThrough && y == ty && x == tx,
							}
							fn(&e)
						}
					case part.Pointwise:
						r := ranges[i]
						if p.PassThrough {
							out := r.Begin + in - p.InBegin
							e = entry{index: in*fan + out, out: out, in: in, pass: true, hot: true}
							fn(&e)
							continue
						}
						for out := r.Begin; out < r.End; out++ {
							e = entry{index: in*fan + out, out: out, in: in}
							fn(&e)
						}
					}
				}
			}
		}
	}
}

// walkBiases visits output channels in part order, which is also
// ascending output channel order.
func (st *Stage) walkBiases(fn func(out int, pass bool)) {
	parts := st.parts()
	for i, r := range parts.OutputRanges(st.Kind, st.multiplier()) {
		for out := r.Begin; out < r.End; out++ {
			fn(out, parts.Parts[i].PassThrough)
		}
	}
}
