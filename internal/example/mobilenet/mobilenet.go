package mobilenet

import (
	"NN-Escape/internal/act"
	"NN-Escape/internal/example/text"
	"NN-Escape/internal/part"
)

const (
	mobileNetV2      = "MobileNetV2"
	mobileNetV2Fused = "MobileNetV2Fused"
)

var (
	relu6 = act.Strings[act.ReLU6]
	clip  = act.Strings[act.ClipN2P2]
	none  = act.Strings[act.None]
)

type tensor struct {
	name     string
	channels int
}

type state struct {
	fused bool
	t     *text.Text
}

func (st *state) pw(t1 tensor, toChannels int, activation, parts string) tensor {
	t2 := tensor{st.t.Name("pw"), toChannels}
	st.t.Node("Pointwise", t1.name, t2.name, text.Itoa(toChannels), "", activation, "", parts)
	return t2
}

func (st *state) dw(t1 tensor, stride int, activation, parts string) tensor {
	t2 := tensor{st.t.Name("dw"), t1.channels}
	st.t.Node("Depthwise", t1.name, t2.name, "1", "3", "3", text.Itoa(stride), "Same", "",
		activation, "", parts)
	return t2
}

func (st *state) add(t1, t2 tensor) tensor {
	t3 := tensor{st.t.Name("add"), t1.channels}
	st.t.Node("Add", t1.name, t2.name, t3.name)
	return t3
}

func (st *state) block(t1 tensor, expand, toChannels, stride int) tensor {
	c, e := t1.channels, t1.channels*expand
	residual := stride == 1 && c == toChannels
	if st.fused && residual && expand != 1 {
		return st.fusedBlock(t1, e)
	}
	t2 := t1
	if expand != 1 {
		t2 = st.pw(t1, e, relu6, "")
	}
	t3 := st.dw(t2, stride, relu6, "")
	t4 := st.pw(t3, toChannels, none, "")
	if residual {
		return st.add(t1, t4)
	}
	return t4
}

// fusedBlock carries the block input through the expansion and the
// depthwise stage as pass-through channels, then adds it back after the
// projection. The activations need a linear middle, so Clip replaces
// ReLU6.
func (st *state) fusedBlock(t1 tensor, e int) tensor {
	c := t1.channels
	t2 := st.pw(t1, e+c, clip, part.New(part.ConvTo(0, c, e), part.Pass(0, c)).String())
	t3 := st.dw(t2, 1, clip, part.New(part.Conv(0, e), part.Pass(e, e+c)).String())
	t4 := st.pw(t3, 2*c, none, part.New(part.ConvTo(0, e, c), part.Pass(e, e+c)).String())
	lo, hi := tensor{st.t.Name("split"), c}, tensor{st.t.Name("split"), c}
	st.t.Node("Split", t4.name, lo.name, hi.name)
	return st.add(lo, hi)
}

var blocks = [...]struct {
	expand, channels, reps, stride int
}{
	{1, 16, 1, 1},
	{6, 24, 2, 2},
	{6, 32, 3, 2},
	{6, 64, 4, 2},
	{6, 96, 3, 1},
	{6, 160, 3, 2},
	{6, 320, 1, 1},
}

func gen(variant string, fused bool) []byte {
	st := &state{fused: fused, t: text.New(variant)}
	image := tensor{"image", 3}
	st.t.Node("Input", image.name, "3", "224", "224", "-1", "1")
	t1 := st.dw(st.pw(image, 32, relu6, ""), 2, relu6, "")
	for _, b := range &blocks {
		for i := 0; i < b.reps; i++ {
			stride := 1
			if i == 0 {
				stride = b.stride
			}
			t1 = st.block(t1, b.expand, b.channels, stride)
		}
	}
	t2 := st.pw(t1, 1280, relu6, "")
	st.t.Node("Output", t2.name)
	return st.t.Bytes()
}

func MobileNetV2() []byte { return gen(mobileNetV2, false) }

// MobileNetV2Fused replaces the identity shortcut of every residual
// block with pass-through channels.
func MobileNetV2Fused() []byte { return gen(mobileNetV2Fused, true) }
