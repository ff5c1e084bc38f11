package build

import (
	"NN-Escape/internal/part"
	"NN-Escape/internal/raw"
	"NN-Escape/internal/scale"
	"NN-Escape/internal/synth"
	"fmt"

	"github.com/pkg/errors"
)

func anError(msg, tensor string, lines ...int) error {
	var pre string
	if n := len(lines); n != 0 {
		if n > 2 {
			panic("bug")
		}
		l0 := lines[0]
		if n == 1 || l0 == lines[1] {
			pre = fmt.Sprintf("line %d: ", l0)
		} else {
			l1 := lines[1]
			if l0 > l1 {
				l0, l1 = l1, l0
			}
			pre = fmt.Sprintf("lines %d and %d: ", l0, l1)
		}
	}
	if tensor != "" {
		pre += tensor + ": "
	}
	return errors.New(pre + msg)
}

// wrap prefixes a core error with its graph location and keeps it
// reachable through errors.Is.
func wrap(err error, tensor string, line int) error {
	return errors.Wrapf(err, "line %d: %s", line, tensor)
}

type arc struct {
	tensor string
	attach int
}

// dims is channels, height, width.
type dims [3]int

// Graph is a parsed and validated network, ready to Run. Stage weight
// offsets are fixed by line order.
type Graph struct {
	Config  *raw.Config
	nodes   []raw.Node
	inputs  []int
	outputs []int
	fanins  [][]arc
	fanouts [][]arc
	gen     map[string]int
	shapes  map[string]dims
	stages  []*synth.Stage
	offsets []int
	waves   [][]int
	weights int
}

// Plan parses text and checks it is a well-formed network.
func Plan(text string) (*Graph, error) {
	nodes, err := raw.Parse(text)
	if err != nil {
		return nil, err
	}
	g := &Graph{nodes: nodes}
	for _, stage := range &checks {
		if err := stage(g); err != nil {
			return nil, errors.Wrap(err, "plan failed")
		}
	}
	return g, nil
}

var checks = [...]func(*Graph) error{
	(*Graph).check1,
	(*Graph).check2,
	(*Graph).check3,
	(*Graph).check4,
	(*Graph).check5,
	(*Graph).check6,
	(*Graph).check7,
}

// WeightCount is how many flat weights Run consumes.
func (g *Graph) WeightCount() int {
	return g.weights
}

// Outputs lists the output tensor names in line order.
func (g *Graph) Outputs() []string {
	names := make([]string, len(g.outputs))
	for i, j := range g.outputs {
		names[i] = g.nodes[j].FromTensors()[0]
	}
	return names
}

func (g *Graph) check1() error {
	for i, node := range g.nodes {
		if config, ok := node.(*raw.Config); ok {
			if g.Config != nil {
				return anError("second Config", "", config.LineNum)
			}
			g.Config = config
			copy(g.nodes[1:], g.nodes[:i])
			g.nodes = g.nodes[1:]
		}
	}
	if g.Config == nil {
		return anError("no Config", "")
	}
	return nil
}

func (g *Graph) check2() error {
	const directly = "Input is directly connected to Output"
	seen := make(map[string]int)
	for i, node := range g.nodes {
		switch at := node.(type) {
		case *raw.Input:
			to := at.ToTensor
			if at.Lower > at.Upper {
				return anError("Lower exceeds Upper", to, at.LineNum)
			}
			if prev := seen[to]; prev == 0 {
				seen[to] = -at.LineNum
				g.inputs = append(g.inputs, i)
			} else if prev < 0 {
				return anError("Inputs have the same ToTensor", to, -prev, at.LineNum)
			} else {
				return anError(directly, to, prev, at.LineNum)
			}
		case *raw.Output:
			from := at.FromTensor
			if prev := seen[from]; prev == 0 {
				seen[from] = at.LineNum
				g.outputs = append(g.outputs, i)
			} else if prev < 0 {
				return anError(directly, from, -prev, at.LineNum)
			} else {
				return anError("Outputs have the same FromTensor", from, prev, at.LineNum)
			}
		}
	}
	if len(g.inputs) == 0 {
		return anError("no Input", "")
	}
	if len(g.outputs) == 0 {
		return anError("no Output", "")
	}
	return nil
}

func (g *Graph) check3() error {
	n := len(g.nodes)
	use := make(map[string][]int, n)
	g.gen = make(map[string]int, n)
	for i, node := range g.nodes {
		for _, tensor := range node.FromTensors() {
			use[tensor] = append(use[tensor], i)
		}
		for _, tensor := range node.ToTensors() {
			if j, ok := g.gen[tensor]; ok {
				ii, jj := node.LineNumber(), g.nodes[j].LineNumber()
				return anError("tensor is produced more than once", tensor, ii, jj)
			}
			g.gen[tensor] = i
		}
	}
	g.fanins = make([][]arc, n)
	g.fanouts = make([][]arc, n)
	insert := func(fan *[]arc, z arc) {
		for _, have := range *fan {
			if have == z {
				return
			}
		}
		*fan = append(*fan, z)
	}
	for i, node := range g.nodes {
		for _, tensor := range node.FromTensors() {
			if j, ok := g.gen[tensor]; ok {
				if i == j {
					return anError("self-loop", tensor, node.LineNumber())
				}
				insert(&g.fanins[i], arc{tensor, j})
				continue
			}
			line := node.LineNumber()
			return anError("tensor is consumed but never produced", tensor, line)
		}
		for _, tensor := range node.ToTensors() {
			for _, j := range use[tensor] {
				insert(&g.fanouts[i], arc{tensor, j})
			}
		}
	}
	return nil
}

func (g *Graph) check4() error {
	const (
		white byte = iota
		gray
		black
	)
	type frame struct {
		to   []arc
		from int
	}
	v := 0
	n := len(g.nodes)
	color := make([]byte, n)
	stack := make([]frame, n)
	for _, i := range g.outputs {
		v += 1
		color[i] = gray
		stack[0] = frame{g.fanins[i], i}
		for j := 0; j >= 0; {
			top := &stack[j]
			if len(top.to) == 0 {
				color[top.from] = black
				j -= 1
				continue
			}
			arc0 := top.to[0]
			top.to = top.to[1:]
			k := arc0.attach
			if color[k] == white {
				v += 1
				color[k] = gray
				j += 1
				stack[j] = frame{g.fanins[k], k}
				continue
			}
			if color[k] == black {
				continue
			}
			prev := g.nodes[k].LineNumber()
			curr := g.nodes[top.from].LineNumber()
			return anError("circular dependency", arc0.tensor, prev, curr)
		}
	}
	if v == n {
		return nil
	}
	for i := n - 1; ; i-- {
		if color[i] == white {
			node := g.nodes[i]
			line := node.LineNumber()
			tensor := node.ToTensors()[0]
			return anError("no path to an Output", tensor, line)
		}
	}
}

func (g *Graph) check5Spatial(at *raw.Depthwise, from dims) (dims, error) {
	h, w := from[1], from[2]
	s := at.Stride
	if at.Padding == raw.Same {
		h = (h + s - 1) / s
		w = (w + s - 1) / s
	} else {
		h -= at.FilterH
		w -= at.FilterW
		if h >= 0 {
			h = h/s + 1
		}
		if w >= 0 {
			w = w/s + 1
		}
	}
	if h <= 0 || w <= 0 {
		return dims{}, anError("tensor is empty", at.ToTensor, at.LineNum)
	}
	return dims{from[0] * at.Multiplier, h, w}, nil
}

func (g *Graph) check5Even(tensor string, from dims, line int) error {
	if from[0]%2 != 0 {
		msg := fmt.Sprintf("FromTensor has %d channels (not even)", from[0])
		return anError(msg, tensor, line)
	}
	return nil
}

func (g *Graph) check5Fill(i int) (err error) {
	node := g.nodes[i]
	if to := node.ToTensors(); len(to) != 0 {
		if _, ok := g.shapes[to[0]]; ok {
			return nil
		}
	}
	for _, a := range g.fanins[i] {
		if err = g.check5Fill(a.attach); err != nil {
			return
		}
	}
	from := func(tensor string) dims {
		return g.shapes[tensor]
	}
	switch at := node.(type) {
	case *raw.Input:
		g.shapes[at.ToTensor] = dims{at.Channels, at.Height, at.Width}
	case *raw.Output:
	case *raw.Depthwise:
		var d dims
		if d, err = g.check5Spatial(at, from(at.FromTensor)); err == nil {
			g.shapes[at.ToTensor] = d
		}
	case *raw.Pointwise:
		f := from(at.FromTensor)
		g.shapes[at.ToTensor] = dims{at.ToChannels, f[1], f[2]}
	case *raw.Add:
		f1, f2 := from(at.FromTensor1), from(at.FromTensor2)
		if f1 != f2 {
			const chw = "%s is %dx%dx%d"
			msg := fmt.Sprintf(chw+" but "+chw+" (CxHxW mismatch)",
				at.FromTensor1, f1[0], f1[1], f1[2],
				at.FromTensor2, f2[0], f2[1], f2[2])
			return anError(msg, at.ToTensor, at.LineNum)
		}
		g.shapes[at.ToTensor] = f1
	case *raw.Concat:
		f1, f2 := from(at.FromTensor1), from(at.FromTensor2)
		if f1[1] != f2[1] || f1[2] != f2[2] {
			const hw = "%s is spatially %dx%d"
			msg := fmt.Sprintf(hw+" but "+hw+" (HxW mismatch)",
				at.FromTensor1, f1[1], f1[2],
				at.FromTensor2, f2[1], f2[2])
			return anError(msg, at.ToTensor, at.LineNum)
		}
		g.shapes[at.ToTensor] = dims{f1[0] + f2[0], f1[1], f1[2]}
	case *raw.Split:
		f := from(at.FromTensor)
		if err = g.check5Even(at.FromTensor, f, at.LineNum); err == nil {
			half := dims{f[0] / 2, f[1], f[2]}
			g.shapes[at.ToTensor1] = half
			g.shapes[at.ToTensor2] = half
		}
	case *raw.Shuffle:
		f := from(at.FromTensor)
		if err = g.check5Even(at.FromTensor, f, at.LineNum); err == nil {
			g.shapes[at.ToTensor] = f
		}
	default:
		panic("bug")
	}
	return
}

func (g *Graph) check5() error {
	g.shapes = make(map[string]dims, len(g.gen))
	for _, i := range g.outputs {
		if err := g.check5Fill(i); err != nil {
			return err
		}
	}
	return nil
}

// check6 turns each convolution node into a synth.Stage, validates its
// partition and fixes its weight offset in line order.
func (g *Graph) check6() error {
	g.stages = make([]*synth.Stage, len(g.nodes))
	g.offsets = make([]int, len(g.nodes))
	index := 0
	for i, node := range g.nodes {
		var st *synth.Stage
		var tensor string
		switch at := node.(type) {
		case *raw.Depthwise:
			tensor = at.ToTensor
			st = &synth.Stage{
				Kind:          part.Depthwise,
				InputChannels: g.shapes[at.FromTensor][0],
				Multiplier:    at.Multiplier,
				FilterH:       at.FilterH,
				FilterW:       at.FilterW,
				Stride:        at.Stride,
				Padding:       synth.Padding(at.Padding),
				Bias:          at.Bias,
				Activation:    at.Activation,
				Style:         at.Style,
				Parts:         at.Parts,
			}
		case *raw.Pointwise:
			tensor = at.ToTensor
			st = &synth.Stage{
				Kind:           part.Pointwise,
				InputChannels:  g.shapes[at.FromTensor][0],
				OutputChannels: at.ToChannels,
				Bias:           at.Bias,
				Activation:     at.Activation,
				Style:          at.Style,
				Parts:          at.Parts,
			}
		default:
			continue
		}
		st.Index = index
		index += 1
		if err := st.Validate(scale.NewBoundsArray(st.InputChannels)); err != nil {
			return wrap(err, tensor, node.LineNumber())
		}
		g.stages[i] = st
		g.offsets[i] = g.weights
		g.weights += st.WeightCount()
	}
	return nil
}

// check7 groups the nodes into waves: every node runs after all of its
// producers, and nodes in the same wave are independent.
func (g *Graph) check7() error {
	level := make([]int, len(g.nodes))
	for i := range level {
		level[i] = -1
	}
	var fill func(int) int
	fill = func(i int) int {
		if level[i] >= 0 {
			return level[i]
		}
		at := 0
		for _, a := range g.fanins[i] {
			if l := fill(a.attach) + 1; l > at {
				at = l
			}
		}
		level[i] = at
		return at
	}
	for i := range g.nodes {
		l := fill(i)
		for len(g.waves) <= l {
			g.waves = append(g.waves, nil)
		}
		g.waves[l] = append(g.waves[l], i)
	}
	return nil
}
