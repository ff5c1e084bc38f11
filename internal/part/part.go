package part

import (
	"NN-Escape/internal/errmsg"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Layout selects how a part's input range fans out to output channels.
type Layout int

const (
	// Depthwise: each input channel feeds Multiplier output channels.
	Depthwise Layout = iota
	// Pointwise: each output channel reads every input channel of its part.
	Pointwise
)

// ChannelPartInfo is one contiguous piece of a stage's weight block.
// A pass-through part copies input channel InBegin+j to its j-th output
// (for every fan-out of a depthwise multiplier) through the single tap
// (TapY, TapX); a convolved part draws its weights from the flat source.
// OutCount is the number of output channels of a convolved pointwise part
// and is ignored otherwise.
type ChannelPartInfo struct {
	InBegin     int
	InEnd       int
	OutCount    int
	PassThrough bool
	TapY        int
	TapX        int
}

func Conv(inBegin, inEnd int) ChannelPartInfo {
	return ChannelPartInfo{InBegin: inBegin, InEnd: inEnd}
}

func ConvTo(inBegin, inEnd, outCount int) ChannelPartInfo {
	return ChannelPartInfo{InBegin: inBegin, InEnd: inEnd, OutCount: outCount}
}

func Pass(inBegin, inEnd int) ChannelPartInfo {
	return ChannelPartInfo{InBegin: inBegin, InEnd: inEnd, PassThrough: true, TapY: -1, TapX: -1}
}

func PassAt(inBegin, inEnd, tapY, tapX int) ChannelPartInfo {
	return ChannelPartInfo{InBegin: inBegin, InEnd: inEnd, PassThrough: true, TapY: tapY, TapX: tapX}
}

func (p *ChannelPartInfo) InCount() int {
	return p.InEnd - p.InBegin
}

// OutputCount is how many output channels p produces.
func (p *ChannelPartInfo) OutputCount(layout Layout, multiplier int) int {
	switch {
	case layout == Depthwise:
		return p.InCount() * multiplier
	case p.PassThrough:
		return p.InCount()
	default:
		return p.OutCount
	}
}

// Tap resolves the pass-through tap, defaulting to the filter centre.
func (p *ChannelPartInfo) Tap(filterH, filterW int) (int, int) {
	y, x := p.TapY, p.TapX
	if y < 0 {
		y = (filterH - 1) / 2
	}
	if x < 0 {
		x = (filterW - 1) / 2
	}
	return y, x
}

func (p ChannelPartInfo) String() string {
	if p.PassThrough {
		s := fmt.Sprintf("p%d-%d", p.InBegin, p.InEnd)
		if p.TapY >= 0 || p.TapX >= 0 {
			s += fmt.Sprintf("@%dx%d", p.TapY, p.TapX)
		}
		return s
	}
	s := fmt.Sprintf("c%d-%d", p.InBegin, p.InEnd)
	if p.OutCount != 0 {
		s += fmt.Sprintf("x%d", p.OutCount)
	}
	return s
}

// FiltersBiasesPartInfo lays out one filter block and one bias block.
// Parts are consumed strictly in order.
type FiltersBiasesPartInfo struct {
	Parts []ChannelPartInfo
}

func New(parts ...ChannelPartInfo) *FiltersBiasesPartInfo {
	return &FiltersBiasesPartInfo{Parts: parts}
}

// All is the ordinary stage: every channel convolved.
func All(layout Layout, inCount, outCount int) *FiltersBiasesPartInfo {
	if layout == Pointwise {
		return New(ConvTo(0, inCount, outCount))
	}
	return New(Conv(0, inCount))
}

func (f *FiltersBiasesPartInfo) String() string {
	return strings.Join(lo.Map(f.Parts, func(p ChannelPartInfo, _ int) string {
		return p.String()
	}), "+")
}

// Range is a half-open span of output channels.
type Range struct {
	Begin int
	End   int
}

// OutputRanges lists, per part, the output channels it produces.
func (f *FiltersBiasesPartInfo) OutputRanges(layout Layout, multiplier int) []Range {
	ranges := make([]Range, len(f.Parts))
	at := 0
	for i := range f.Parts {
		n := f.Parts[i].OutputCount(layout, multiplier)
		ranges[i] = Range{Begin: at, End: at + n}
		at += n
	}
	return ranges
}

func (f *FiltersBiasesPartInfo) OutputChannelCount(layout Layout, multiplier int) int {
	return lo.SumBy(f.Parts, func(p ChannelPartInfo) int {
		return p.OutputCount(layout, multiplier)
	})
}

func (f *FiltersBiasesPartInfo) HasPassThrough() bool {
	return lo.ContainsBy(f.Parts, func(p ChannelPartInfo) bool {
		return p.PassThrough
	})
}

// Validate checks f against a stage shape. Depthwise parts must tile the
// input channels from 0 in order; pointwise parts may read any input
// range. Either way the output coverage must be exactly outCount.
func (f *FiltersBiasesPartInfo) Validate(layout Layout, inCount, outCount, multiplier, filterH, filterW int) error {
	if len(f.Parts) == 0 {
		return errmsg.New(errmsg.Coverage, "no parts")
	}
	at := 0
	for i := range f.Parts {
		p := &f.Parts[i]
		if p.InBegin < 0 || p.InEnd > inCount || p.InBegin >= p.InEnd {
			return errmsg.New(errmsg.BadPart,
				"part %d (%s) reads input channels outside [0, %d)", i, p, inCount)
		}
		switch layout {
		case Depthwise:
			if p.InBegin != at {
				return errmsg.New(errmsg.Coverage,
					"part %d (%s) starts at input channel %d, want %d", i, p, p.InBegin, at)
			}
			at = p.InEnd
			if p.PassThrough {
				y, x := p.Tap(filterH, filterW)
				if y < 0 || y >= filterH || x < 0 || x >= filterW {
					return errmsg.New(errmsg.BadPart,
						"part %d (%s) tap %dx%d outside %dx%d filter", i, p, y, x, filterH, filterW)
				}
			}
		case Pointwise:
			if !p.PassThrough && p.OutCount <= 0 {
				return errmsg.New(errmsg.BadPart,
					"part %d (%s) has no output channels", i, p)
			}
		}
	}
	if layout == Depthwise && at != inCount {
		return errmsg.New(errmsg.Coverage,
			"parts cover input channels [0, %d), want [0, %d)", at, inCount)
	}
	if got := f.OutputChannelCount(layout, multiplier); got != outCount {
		return errmsg.New(errmsg.Coverage,
			"parts cover %d output channels, want %d", got, outCount)
	}
	return nil
}
