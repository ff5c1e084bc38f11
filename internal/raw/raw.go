package raw

import (
	"NN-Escape/internal/act"
	"NN-Escape/internal/part"
	"NN-Escape/internal/pass"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

type Node interface {
	LineNumber() int
	FromTensors() []string
	ToTensors() []string
}

type Config struct {
	LineNum     int
	Prefix      string
	WeightBound float64
}

func (c *Config) LineNumber() int       { return c.LineNum }
func (c *Config) FromTensors() []string { return nil }
func (c *Config) ToTensors() []string   { return nil }

type Input struct {
	LineNum  int
	ToTensor string
	Channels int
	Height   int
	Width    int
	Lower    float64
	Upper    float64
}

func (i *Input) LineNumber() int       { return i.LineNum }
func (i *Input) FromTensors() []string { return nil }
func (i *Input) ToTensors() []string   { return []string{i.ToTensor} }

type Output struct {
	LineNum    int
	FromTensor string
}

func (o *Output) LineNumber() int       { return o.LineNum }
func (o *Output) FromTensors() []string { return []string{o.FromTensor} }
func (o *Output) ToTensors() []string   { return nil }

type PaddingKind int

const (
	Valid PaddingKind = iota
	Same
)

var PaddingStrings = []string{
	Valid: "Valid",
	Same:  "Same",
}

var BiasStrings = []string{"No", "Yes"}

type Depthwise struct {
	LineNum    int
	FromTensor string
	ToTensor   string
	Multiplier int
	FilterH    int
	FilterW    int
	Stride     int
	Padding    PaddingKind
	Bias       bool
	Activation act.Kind
	Style      pass.Style
	Parts      *part.FiltersBiasesPartInfo
}

func (d *Depthwise) LineNumber() int       { return d.LineNum }
func (d *Depthwise) FromTensors() []string { return []string{d.FromTensor} }
func (d *Depthwise) ToTensors() []string   { return []string{d.ToTensor} }

type Pointwise struct {
	LineNum    int
	FromTensor string
	ToTensor   string
	ToChannels int
	Bias       bool
	Activation act.Kind
	Style      pass.Style
	Parts      *part.FiltersBiasesPartInfo
}

func (p *Pointwise) LineNumber() int       { return p.LineNum }
func (p *Pointwise) FromTensors() []string { return []string{p.FromTensor} }
func (p *Pointwise) ToTensors() []string   { return []string{p.ToTensor} }

type Add struct {
	LineNum     int
	FromTensor1 string
	FromTensor2 string
	ToTensor    string
}

func (a *Add) LineNumber() int       { return a.LineNum }
func (a *Add) FromTensors() []string { return []string{a.FromTensor1, a.FromTensor2} }
func (a *Add) ToTensors() []string   { return []string{a.ToTensor} }

type Concat struct {
	LineNum     int
	FromTensor1 string
	FromTensor2 string
	ToTensor    string
}

func (c *Concat) LineNumber() int       { return c.LineNum }
func (c *Concat) FromTensors() []string { return []string{c.FromTensor1, c.FromTensor2} }
func (c *Concat) ToTensors() []string   { return []string{c.ToTensor} }

type Split struct {
	LineNum    int
	FromTensor string
	ToTensor1  string
	ToTensor2  string
}

func (s *Split) LineNumber() int       { return s.LineNum }
func (s *Split) FromTensors() []string { return []string{s.FromTensor} }
func (s *Split) ToTensors() []string   { return []string{s.ToTensor1, s.ToTensor2} }

type Shuffle struct {
	LineNum    int
	FromTensor string
	ToTensor   string
}

func (s *Shuffle) LineNumber() int       { return s.LineNum }
func (s *Shuffle) FromTensors() []string { return []string{s.FromTensor} }
func (s *Shuffle) ToTensors() []string   { return []string{s.ToTensor} }

type Seg struct {
	Doc     string
	Label   string
	Default string
	Choices []string
	Parse   func(string) (interface{}, error)
}

type Tail struct {
	Doc   string
	Segs  []*Seg
	Parse func(int, []interface{}) Node
}

var Guide = make(map[string]*Tail)

const Binder = "="

func Parse(text string) ([]Node, error) {
	const (
		pre = "parse failed: "
		wln = pre + "line %d: "
		eg  = wln + "expected %s" + Binder + "%s (for example)"
	)
	if n := len(text); n == 0 {
		return nil, nil
	} else if text[n-1] != '\n' {
		return nil, errors.New(pre + "expected final newline")
	}
	var nodes []Node
	const (
		headSpace int = iota
		headToken
		tailSpace
		tailToken
	)
	phase := headSpace
	i, lineHead, line := 0, 0, 1
	var tail *Tail
	var vals []interface{}
	for j, jj := range text {
		if !unicode.IsSpace(jj) {
			if phase == headSpace {
				phase, i, lineHead = headToken, j, line
			} else if phase == tailSpace {
				phase, i = tailToken, j
			}
			continue
		}
		if phase == headToken {
			phase = tailSpace
			if tail = Guide[text[i:j]]; tail == nil {
				heads := make([]string, 0, len(Guide))
				for head := range Guide {
					heads = append(heads, head)
				}
				sort.Strings(heads)
				msg := fmt.Sprintf(wln+"%s", line, errExpected(heads).Error())
				return nil, errors.New(msg)
			}
		} else if phase == tailToken {
			seg := tail.Segs[len(vals)]
			parts := strings.Split(text[i:j], Binder)
			if len(parts) != 2 || parts[0] != seg.Label {
				msg := fmt.Sprintf(eg, line, seg.Label, seg.Default)
				return nil, errors.New(msg)
			}
			val, err := seg.Parse(parts[1])
			if err != nil {
				msg := fmt.Sprintf(wln+"%s: %s", line, seg.Label, err.Error())
				return nil, errors.New(msg)
			}
			vals = append(vals, val)
			if len(vals) == len(tail.Segs) {
				nodes = append(nodes, tail.Parse(lineHead, vals))
				phase, vals = headSpace, vals[:0]
			} else {
				phase = tailSpace
			}
		}
		if jj == '\n' {
			line += 1
		}
	}
	if phase == tailSpace {
		seg := tail.Segs[len(vals)]
		msg := fmt.Sprintf(eg, line, seg.Label, seg.Default)
		return nil, errors.New(msg)
	}
	return nodes, nil
}

const (
	identStr  = `^[a-zA-Z][a-zA-Z0-9]*$`
	posIntStr = `^[1-9][0-9]*$`
	floatStr  = `^-?(0|[1-9][0-9]*)(\.[0-9]+)?$`
)

var (
	identRE  = regexp.MustCompile(identStr)
	posIntRE = regexp.MustCompile(posIntStr)
	floatRE  = regexp.MustCompile(floatStr)
)

const (
	identDoc  = "Must be a letter followed by zero or more letters/digits: " + identStr
	posIntDoc = "Must be a positive integer: " + posIntStr
	floatDoc  = "Must be a simple float: " + floatStr
)

var (
	errGap      = errors.New("unexpected gap after " + Binder)
	errRejected = errors.New("rejected")
)

func errMatch(a, b string) error {
	return errors.New(a + "does not match " + b)
}

func errExpected(a []string) error {
	return errors.New("expected " + strings.Join(a, " or "))
}

func ident(a string) (interface{}, error) {
	if !identRE.MatchString(a) {
		if a == "" {
			return nil, errGap
		}
		return nil, errMatch("", identStr)
	}
	return a, nil
}

func posInt(a string, r int) (interface{}, error) {
	if !posIntRE.MatchString(a) {
		if a == "" {
			return nil, errGap
		}
		return nil, errMatch("", posIntStr)
	}
	n, err := strconv.Atoi(a)
	if err != nil {
		return nil, err
	}
	if n >= r {
		return nil, errRejected
	}
	return n, nil
}

func float(a string) (interface{}, error) {
	if !floatRE.MatchString(a) {
		if a == "" {
			return nil, errGap
		}
		return nil, errMatch("", floatStr)
	}
	n, err := strconv.ParseFloat(a, 64)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// choice parses one of strs and yields its index.
func choice(a string, strs []string) (interface{}, error) {
	for i, s := range strs {
		if a == s {
			return i, nil
		}
	}
	if a == "" {
		return nil, errGap
	}
	return nil, errExpected(strs)
}

func fromTensor(x, y string) *Seg {
	return &Seg{
		Doc: "Read from a pre-existing data tensor with this name. " + x +
			identDoc,
		Label:   "FromTensor" + y,
		Default: "from" + y,
		Parse:   ident,
	}
}

func toTensor(x, y string) *Seg {
	return &Seg{
		Doc: "Write to a new data tensor with this name. " + x +
			identDoc,
		Label:   "ToTensor" + y,
		Default: "to" + y,
		Parse:   ident,
	}
}

func initConfigPrefix() *Seg {
	return &Seg{
		Doc: "A name for the network, used in reports. " +
			identDoc,
		Label:   "Prefix",
		Default: "NNEscape",
		Parse:   ident,
	}
}

func initConfigWeightBound() *Seg {
	return &Seg{
		Doc: "Every weight in the flat weight file is assumed to lie in [-B, B] where B is this value. " +
			"The bound is not checked against the weights; it is propagated to estimate channel " +
			"bounds before any weights are read. " +
			floatDoc,
		Label:   "WeightBound",
		Default: "64",
		Parse: func(a string) (interface{}, error) {
			f, err := float(a)
			if err == nil && f.(float64) <= 0 {
				return nil, errRejected
			}
			return f, err
		},
	}
}

func initConfig() {
	Guide["Config"] = &Tail{
		Doc: "Settings for the whole network.",
		Segs: []*Seg{
			initConfigPrefix(),
			initConfigWeightBound(),
		},
		Parse: func(l int, a []interface{}) Node {
			return &Config{
				LineNum:     l,
				Prefix:      a[0].(string),
				WeightBound: a[1].(float64),
			}
		},
	}
}

func initInputDim(label, def, doc string) *Seg {
	return &Seg{
		Doc:     doc + posIntDoc,
		Label:   label,
		Default: def,
		Parse: func(a string) (interface{}, error) {
			return posInt(a, 1<<48)
		},
	}
}

func initInputBound(label, def, doc string) *Seg {
	return &Seg{
		Doc:     doc + floatDoc,
		Label:   label,
		Default: def,
		Parse:   float,
	}
}

func initInput() {
	Guide["Input"] = &Tail{
		Doc: "Declare an input data tensor. Every channel of the input is assumed to hold values " +
			"in [Lower, Upper] and to carry no escape scale.",
		Segs: []*Seg{
			toTensor("", ""),
			initInputDim("Channels", "3", "The number of feature maps of this input data tensor. "),
			initInputDim("Height", "224", "The spatial height of this input data tensor. "),
			initInputDim("Width", "224", "The spatial width of this input data tensor. "),
			initInputBound("Lower", "-1", "The least value any input element can hold. "),
			initInputBound("Upper", "1", "The greatest value any input element can hold. "),
		},
		Parse: func(l int, a []interface{}) Node {
			return &Input{
				LineNum:  l,
				ToTensor: a[0].(string),
				Channels: a[1].(int),
				Height:   a[2].(int),
				Width:    a[3].(int),
				Lower:    a[4].(float64),
				Upper:    a[5].(float64),
			}
		},
	}
}

func initOutput() {
	Guide["Output"] = &Tail{
		Doc: "Declare an output data tensor. Its bounds and scales are reported after synthesis.",
		Segs: []*Seg{
			fromTensor("", ""),
		},
		Parse: func(l int, a []interface{}) Node {
			return &Output{
				LineNum:    l,
				FromTensor: a[0].(string),
			}
		},
	}
}

func initFilter(x, y string) *Seg {
	return &Seg{
		Doc:     "The spatial " + x + " of each depthwise filter. " + posIntDoc,
		Label:   "Filter" + y,
		Default: "3",
		Parse: func(a string) (interface{}, error) {
			return posInt(a, 1<<24)
		},
	}
}

func initStride() *Seg {
	return &Seg{
		Doc: "The step between adjacent filtering positions, both heightwise and widthwise. " +
			"It changes the spatial extent of ToTensor but not the channel bounds. " +
			posIntDoc,
		Label:   "Stride",
		Default: "1",
		Parse: func(a string) (interface{}, error) {
			return posInt(a, 1<<24)
		},
	}
}

func initPadding() *Seg {
	return &Seg{
		Doc: PaddingStrings[Valid] + " means no padding. " + PaddingStrings[Same] + " means zero padding " +
			"that keeps the spatial extent (for stride 1); every filter tap except the centre tap " +
			"of an odd-sized filter may then read a zero.",
		Label:   "Padding",
		Default: PaddingStrings[Same],
		Choices: PaddingStrings,
		Parse: func(a string) (interface{}, error) {
			return choice(a, PaddingStrings)
		},
	}
}

func initBias() *Seg {
	return &Seg{
		Doc: "Whether the stage adds a bias to each output channel. " +
			"Convolved channels take their biases from the weight file.",
		Label:   "Bias",
		Default: BiasStrings[1],
		Choices: BiasStrings,
		Parse: func(a string) (interface{}, error) {
			return choice(a, BiasStrings)
		},
	}
}

func initActivation() *Seg {
	return &Seg{
		Doc: "The activation function applied after the bias. " +
			act.Strings[act.None] + " is the identity. Pass-through channels are scaled into the " +
			"activation's near-linear domain before it and scaled back by the next stage; " +
			act.Strings[act.Sigmoid] + " has no such domain and rejects pass-through.",
		Label:   "Activation",
		Default: act.Strings[act.None],
		Choices: act.Strings,
		Parse: func(a string) (interface{}, error) {
			if k, ok := act.Parse(a); ok {
				return k, nil
			}
			return choice(a, act.Strings)
		},
	}
}

func initStyle() *Seg {
	return &Seg{
		Doc: "The constants used for pass-through parts: " + pass.Strings[pass.Filter1Bias0] +
			" copies the input channel exactly, " + pass.Strings[pass.Filter0Bias0] + " emits zero, " +
			pass.Strings[pass.Filter1Bias1] + " adds one, " + pass.Strings[pass.Filter0Bias1] +
			" emits one. The last two need Bias=" + BiasStrings[1] + ".",
		Label:   "Style",
		Default: pass.Strings[pass.Default],
		Choices: pass.Strings,
		Parse: func(a string) (interface{}, error) {
			if st, ok := pass.Parse(a); ok {
				return st, nil
			}
			return choice(a, pass.Strings)
		},
	}
}

func initParts() *Seg {
	return &Seg{
		Doc:     "How the stage's channels are partitioned into convolved and pass-through parts. " + part.Doc,
		Label:   "Parts",
		Default: part.AllStr,
		Parse: func(a string) (interface{}, error) {
			if a == "" {
				return nil, errGap
			}
			return part.Parse(a)
		},
	}
}

func initDepthwiseMultiplier() *Seg {
	return &Seg{
		Doc: "The number of output channels per input channel. ToTensor has Channels*Multiplier " +
			"channels and output channel I*Multiplier+M reads input channel I. " +
			posIntDoc,
		Label:   "Multiplier",
		Default: "1",
		Parse: func(a string) (interface{}, error) {
			return posInt(a, 1<<16)
		},
	}
}

func initDepthwise() {
	Guide["Depthwise"] = &Tail{
		Doc: "A depthwise convolution, bias and activation stage. The filter tensor is " +
			"FilterH x FilterW x Channels x Multiplier with the multiplier innermost. " +
			"Convolved filter values are read from the weight file in that order, skipping " +
			"pass-through channels, followed by one bias per convolved output channel.",
		Segs: []*Seg{
			fromTensor("", ""),
			toTensor("", ""),
			initDepthwiseMultiplier(),
			initFilter("height", "H"),
			initFilter("width", "W"),
			initStride(),
			initPadding(),
			initBias(),
			initActivation(),
			initStyle(),
			initParts(),
		},
		Parse: func(l int, a []interface{}) Node {
			return &Depthwise{
				LineNum:    l,
				FromTensor: a[0].(string),
				ToTensor:   a[1].(string),
				Multiplier: a[2].(int),
				FilterH:    a[3].(int),
				FilterW:    a[4].(int),
				Stride:     a[5].(int),
				Padding:    PaddingKind(a[6].(int)),
				Bias:       a[7].(int) == 1,
				Activation: a[8].(act.Kind),
				Style:      a[9].(pass.Style),
				Parts:      a[10].(*part.FiltersBiasesPartInfo),
			}
		},
	}
}

func initPointwiseToChannels() *Seg {
	return &Seg{
		Doc:     "The number of feature maps in ToTensor. " + posIntDoc,
		Label:   "ToChannels",
		Default: "64",
		Parse: func(a string) (interface{}, error) {
			return posInt(a, 1<<48)
		},
	}
}

func initPointwise() {
	Guide["Pointwise"] = &Tail{
		Doc: "A 1x1 convolution, bias and activation stage. The filter tensor is " +
			"Channels x ToChannels with the output channel innermost. For each convolved part, " +
			"for each of its input channels in turn, one weight per output channel of the part is " +
			"read from the weight file, followed by one bias per convolved output channel.",
		Segs: []*Seg{
			fromTensor("", ""),
			toTensor("", ""),
			initPointwiseToChannels(),
			initBias(),
			initActivation(),
			initStyle(),
			initParts(),
		},
		Parse: func(l int, a []interface{}) Node {
			return &Pointwise{
				LineNum:    l,
				FromTensor: a[0].(string),
				ToTensor:   a[1].(string),
				ToChannels: a[2].(int),
				Bias:       a[3].(int) == 1,
				Activation: a[4].(act.Kind),
				Style:      a[5].(pass.Style),
				Parts:      a[6].(*part.FiltersBiasesPartInfo),
			}
		},
	}
}

func initAdd() {
	Guide["Add"] = &Tail{
		Doc: "Elementwise addition of two data tensors with the same number of channels. " +
			"Both must carry the same escape scale on every channel.",
		Segs: []*Seg{
			fromTensor("", "1"),
			fromTensor("", "2"),
			toTensor("", ""),
		},
		Parse: func(l int, a []interface{}) Node {
			return &Add{
				LineNum:     l,
				FromTensor1: a[0].(string),
				FromTensor2: a[1].(string),
				ToTensor:    a[2].(string),
			}
		},
	}
}

func initConcat() {
	Guide["Concat"] = &Tail{
		Doc: "Concatenate two tensors along the channel dimension. " +
			"The channels of FromTensor1 go first. Bounds and scales move with their channels.",
		Segs: []*Seg{
			fromTensor("The feature maps of this tensor get the low channel numbers in ToTensor. ", "1"),
			fromTensor("The feature maps of this tensor get the high channel numbers in ToTensor. ", "2"),
			toTensor("", ""),
		},
		Parse: func(l int, a []interface{}) Node {
			return &Concat{
				LineNum:     l,
				FromTensor1: a[0].(string),
				FromTensor2: a[1].(string),
				ToTensor:    a[2].(string),
			}
		},
	}
}

func initSplit() {
	Guide["Split"] = &Tail{
		Doc: "Split a tensor with an even number of channels into its lower and upper halves.",
		Segs: []*Seg{
			fromTensor("", ""),
			toTensor("Receives the low half of the channels. ", "1"),
			toTensor("Receives the high half of the channels. ", "2"),
		},
		Parse: func(l int, a []interface{}) Node {
			return &Split{
				LineNum:    l,
				FromTensor: a[0].(string),
				ToTensor1:  a[1].(string),
				ToTensor2:  a[2].(string),
			}
		},
	}
}

func initShuffle() {
	Guide["Shuffle"] = &Tail{
		Doc: "Two-group channel shuffle of a tensor with an even number of channels C: " +
			"channel 2I of ToTensor is channel I of FromTensor and channel 2I+1 is channel C/2+I.",
		Segs: []*Seg{
			fromTensor("", ""),
			toTensor("", ""),
		},
		Parse: func(l int, a []interface{}) Node {
			return &Shuffle{
				LineNum:    l,
				FromTensor: a[0].(string),
				ToTensor:   a[1].(string),
			}
		},
	}
}

func init() {
	initConfig()
	initInput()
	initOutput()
	initDepthwise()
	initPointwise()
	initAdd()
	initConcat()
	initSplit()
	initShuffle()
}
