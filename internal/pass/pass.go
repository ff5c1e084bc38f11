package pass

type Style int

const (
	Filter1Bias0 Style = iota
	Filter0Bias0
	Filter1Bias1
	Filter0Bias1
)

var Strings = []string{
	Filter1Bias0: "Filter1Bias0",
	Filter0Bias0: "Filter0Bias0",
	Filter1Bias1: "Filter1Bias1",
	Filter0Bias1: "Filter0Bias1",
}

// Info holds the constants emitted for a pass-through range: the one
// non-zero filter tap and the bias.
type Info struct {
	Style  Style
	Filter float64
	Bias   float64
}

var table = []Info{
	Filter1Bias0: {Filter1Bias0, 1, 0},
	Filter0Bias0: {Filter0Bias0, 0, 0},
	Filter1Bias1: {Filter1Bias1, 1, 1},
	Filter0Bias1: {Filter0Bias1, 0, 1},
}

const Default = Filter1Bias0

func Lookup(s Style) Info {
	if s < 0 || int(s) >= len(table) {
		panic("bug")
	}
	return table[s]
}

func Parse(s string) (Style, bool) {
	for i, each := range Strings {
		if s == each {
			return Style(i), true
		}
	}
	return 0, false
}

func (s Style) String() string {
	return Strings[s]
}
