package act

import (
	"NN-Escape/internal/bounds"
	"math"
)

type Kind int

const (
	None Kind = iota
	ClipN2P2
	Tanh
	Sin
	Softsign
	Sigmoid
	ReLU
	ReLU6
)

var Strings = []string{
	None:     "None",
	ClipN2P2: "ClipN2P2",
	Tanh:     "Tanh",
	Sin:      "Sin",
	Softsign: "Softsign",
	Sigmoid:  "Sigmoid",
	ReLU:     "ReLU",
	ReLU6:    "ReLU6",
}

// Info describes one activation. Linear is the input sub-domain where
// Func(x) is x to within a fraction of a percent; Output contains every
// value Func can produce.
type Info struct {
	Kind   Kind
	Func   func(float64) float64
	Linear bounds.Bounds
	Output bounds.Bounds
}

func (i *Info) IsIdentity() bool {
	return i.Kind == None
}

var inf = math.Inf(1)

var table = []Info{
	None: {
		Kind:   None,
		Func:   func(x float64) float64 { return x },
		Linear: bounds.All,
		Output: bounds.All,
	},
	ClipN2P2: {
		Kind:   ClipN2P2,
		Func:   func(x float64) float64 { return math.Max(-2, math.Min(2, x)) },
		Linear: bounds.New(-2, 2),
		Output: bounds.New(-2, 2),
	},
	Tanh: {
		Kind:   Tanh,
		Func:   math.Tanh,
		Linear: bounds.New(-0.125, 0.125),
		Output: bounds.New(-1, 1),
	},
	Sin: {
		Kind:   Sin,
		Func:   math.Sin,
		Linear: bounds.New(-0.125, 0.125),
		Output: bounds.New(-1, 1),
	},
	Softsign: {
		Kind:   Softsign,
		Func:   func(x float64) float64 { return x / (1 + math.Abs(x)) },
		Linear: bounds.New(-0.005, 0.005),
		Output: bounds.New(-1, 1),
	},
	// Sigmoid is affine near 0 but never the identity.
	Sigmoid: {
		Kind:   Sigmoid,
		Func:   func(x float64) float64 { return 1 / (1 + math.Exp(-x)) },
		Linear: bounds.Zero,
		Output: bounds.New(0, 1),
	},
	ReLU: {
		Kind:   ReLU,
		Func:   func(x float64) float64 { return math.Max(0, x) },
		Linear: bounds.New(0, inf),
		Output: bounds.New(0, inf),
	},
	ReLU6: {
		Kind:   ReLU6,
		Func:   func(x float64) float64 { return math.Max(0, math.Min(6, x)) },
		Linear: bounds.New(0, 6),
		Output: bounds.New(0, 6),
	},
}

func Lookup(k Kind) *Info {
	if k < 0 || int(k) >= len(table) {
		panic("bug")
	}
	return &table[k]
}

func Parse(s string) (Kind, bool) {
	for i, each := range Strings {
		if s == each {
			return Kind(i), true
		}
	}
	return 0, false
}

func (k Kind) String() string {
	return Strings[k]
}
