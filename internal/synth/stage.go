package synth

import (
	"NN-Escape/internal/act"
	"NN-Escape/internal/errmsg"
	"NN-Escape/internal/part"
	"NN-Escape/internal/pass"
	"NN-Escape/internal/scale"
)

type Padding int

const (
	Valid Padding = iota
	Same
)

var PaddingStrings = []string{
	Valid: "Valid",
	Same:  "Same",
}

func (p Padding) String() string {
	return PaddingStrings[p]
}

// Stage is the static shape of one depthwise or pointwise
// convolution-bias-activation unit. Index only labels errors.
//
// A depthwise filter is FilterH x FilterW x InputChannels x Multiplier
// and output channel i*Multiplier+m reads input channel i. A pointwise
// filter is InputChannels x OutputChannels. In both the output channel
// is the innermost (fastest) filter dimension.
type Stage struct {
	Index          int
	Kind           part.Layout
	InputChannels  int
	OutputChannels int
	Multiplier     int
	FilterH        int
	FilterW        int
	Stride         int
	Padding        Padding
	Bias           bool
	Activation     act.Kind
	Style          pass.Style
	Parts          *part.FiltersBiasesPartInfo
}

func (st *Stage) OutputChannelCount() int {
	if st.Kind == part.Depthwise {
		return st.InputChannels * st.Multiplier
	}
	return st.OutputChannels
}

func (st *Stage) filterHW() (int, int) {
	if st.Kind == part.Pointwise {
		return 1, 1
	}
	return st.FilterH, st.FilterW
}

func (st *Stage) FilterSize() int {
	h, w := st.filterHW()
	return h * w
}

func (st *Stage) FilterLen() int {
	return st.FilterSize() * st.InputChannels * st.fanOut()
}

// fanOut is the size of the innermost filter dimension.
func (st *Stage) fanOut() int {
	if st.Kind == part.Depthwise {
		return st.Multiplier
	}
	return st.OutputChannels
}

func (st *Stage) multiplier() int {
	if st.Kind == part.Depthwise {
		return st.Multiplier
	}
	return 1
}

func (st *Stage) parts() *part.FiltersBiasesPartInfo {
	if st.Parts != nil {
		return st.Parts
	}
	return part.All(st.Kind, st.InputChannels, st.OutputChannelCount())
}

// mayPad reports whether tap (y, x) can read zero padding. Under Same
// padding only the centre tap of an odd-sized filter never does.
func (st *Stage) mayPad(y, x int) bool {
	if st.Padding != Same {
		return false
	}
	h, w := st.filterHW()
	centre := h%2 == 1 && w%2 == 1 && y == (h-1)/2 && x == (w-1)/2
	return !centre
}

func (st *Stage) shapeError(format string, args ...interface{}) error {
	return errmsg.New(errmsg.BadPart, format, args...).AtStage(st.Index)
}

// Validate checks the stage shape and its partition against input0.
func (st *Stage) Validate(input0 *scale.BoundsArray) error {
	if st.InputChannels <= 0 {
		return st.shapeError("no input channels")
	}
	if n := input0.Len(); n != st.InputChannels {
		return errmsg.New(errmsg.ChannelMismatch,
			"stage declares %d input channels but its input has %d", st.InputChannels, n).
			AtStage(st.Index)
	}
	switch st.Kind {
	case part.Depthwise:
		if st.Multiplier <= 0 {
			return st.shapeError("channel multiplier %d", st.Multiplier)
		}
		if st.FilterH <= 0 || st.FilterW <= 0 {
			return st.shapeError("filter %dx%d", st.FilterH, st.FilterW)
		}
	case part.Pointwise:
		if st.OutputChannels <= 0 {
			return st.shapeError("no output channels")
		}
	}
	h, w := st.filterHW()
	parts := st.parts()
	err := parts.Validate(st.Kind, st.InputChannels, st.OutputChannelCount(), st.multiplier(), h, w)
	if err != nil {
		return errmsg.Stage(err, st.Index)
	}
	if !st.Bias && pass.Lookup(st.Style).Bias != 0 && parts.HasPassThrough() {
		return errmsg.New(errmsg.Style,
			"%s needs a bias but the stage has none", st.Style).AtStage(st.Index)
	}
	return nil
}

// WeightCount is how many values the stage consumes from the flat
// weight source. It depends on the static shape only.
func (st *Stage) WeightCount() int {
	n := 0
	parts := st.parts()
	for i := range parts.Parts {
		p := &parts.Parts[i]
		if p.PassThrough {
			continue
		}
		outs := p.OutputCount(st.Kind, st.multiplier())
		if st.Kind == part.Depthwise {
			n += outs * st.FilterSize()
		} else {
			n += outs * p.InCount()
		}
		if st.Bias {
			n += outs
		}
	}
	return n
}
