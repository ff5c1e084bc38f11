package shufflenet

import (
	"NN-Escape/internal/act"
	"NN-Escape/internal/example/text"
	"NN-Escape/internal/part"
)

const (
	shuffleNetV2      = "ShuffleNetV2"
	shuffleNetV2Fused = "ShuffleNetV2Fused"
)

type tensor struct {
	name     string
	channels int
}

type state struct {
	fused bool
	t     *text.Text
}

func (st *state) activation() string {
	if st.fused {
		return act.Strings[act.ClipN2P2]
	}
	return act.Strings[act.ReLU]
}

func (st *state) pw(t1 tensor, toChannels int, activation, parts string) tensor {
	t2 := tensor{st.t.Name("pw"), toChannels}
	st.t.Node("Pointwise", t1.name, t2.name, text.Itoa(toChannels), "", activation, "", parts)
	return t2
}

func (st *state) dw(t1 tensor, stride int, parts string) tensor {
	t2 := tensor{st.t.Name("dw"), t1.channels}
	st.t.Node("Depthwise", t1.name, t2.name, "1", "3", "3", text.Itoa(stride), "Same", "",
		act.Strings[act.None], "", parts)
	return t2
}

func (st *state) shuffle(t1 tensor) tensor {
	t2 := tensor{st.t.Name("shuffle"), t1.channels}
	st.t.Node("Shuffle", t1.name, t2.name)
	return t2
}

func (st *state) concat(t1, t2 tensor) tensor {
	t3 := tensor{st.t.Name("concat"), t1.channels + t2.channels}
	st.t.Node("Concat", t1.name, t2.name, t3.name)
	return t3
}

// unit keeps the channel count. The low half is carried unchanged and
// the high half goes through pointwise, depthwise, pointwise.
func (st *state) unit(t1 tensor) tensor {
	c := t1.channels
	h := c / 2
	if !st.fused {
		lo, hi := tensor{st.t.Name("split"), h}, tensor{st.t.Name("split"), h}
		st.t.Node("Split", t1.name, lo.name, hi.name)
		t2 := st.pw(hi, h, st.activation(), "")
		t3 := st.dw(t2, 1, "")
		t4 := st.pw(t3, h, st.activation(), "")
		return st.shuffle(st.concat(lo, t4))
	}
	carry := part.Pass(0, h)
	pw := part.New(carry, part.ConvTo(h, c, h)).String()
	dw := part.New(carry, part.Conv(h, c)).String()
	t2 := st.pw(t1, c, st.activation(), pw)
	t3 := st.dw(t2, 1, dw)
	t4 := st.pw(t3, c, st.activation(), pw)
	return st.shuffle(t4)
}

// down halves the spatial extent and doubles the channel count. Both
// branches see the whole input.
func (st *state) down(t1 tensor) tensor {
	c := t1.channels
	if !st.fused {
		b1 := st.pw(st.dw(t1, 2, ""), c, st.activation(), "")
		b2 := st.pw(st.dw(st.pw(t1, c, st.activation(), ""), 2, ""), c, st.activation(), "")
		return st.shuffle(st.concat(b1, b2))
	}
	pw1 := part.New(part.Pass(0, c), part.ConvTo(0, c, c)).String()
	pw2 := part.New(part.ConvTo(0, c, c), part.ConvTo(c, 2*c, c)).String()
	t2 := st.pw(t1, 2*c, st.activation(), pw1)
	t3 := st.dw(t2, 2, "")
	t4 := st.pw(t3, 2*c, st.activation(), pw2)
	return st.shuffle(t4)
}

func gen(variant string, fused bool) []byte {
	st := &state{fused: fused, t: text.New(variant)}
	image := tensor{"image", 3}
	st.t.Node("Input", image.name, "3", "224", "224", "-1", "1")
	t1 := st.dw(st.pw(image, 24, st.activation(), ""), 2, "")
	for _, reps := range []int{4, 8, 4} {
		t1 = st.down(t1)
		for i := 1; i < reps; i++ {
			t1 = st.unit(t1)
		}
	}
	t2 := st.pw(t1, 1024, st.activation(), "")
	st.t.Node("Output", t2.name)
	return st.t.Bytes()
}

// ShuffleNetV2 spells out every channel split, concatenation and
// shuffle.
func ShuffleNetV2() []byte { return gen(shuffleNetV2, false) }

// ShuffleNetV2Fused carries the untouched half of each unit through the
// convolutions as pass-through channels instead of splitting it off.
func ShuffleNetV2Fused() []byte { return gen(shuffleNetV2Fused, true) }
