package text

import (
	"NN-Escape/internal/raw"
	"strconv"
)

// Text accumulates graph lines. Node writes every segment of a head in
// raw.Guide order, so generators never spell out a label.
type Text struct {
	buf   []byte
	names map[string]int
}

// New starts a graph with a Config line for prefix.
func New(prefix string) *Text {
	t := &Text{names: make(map[string]int)}
	t.Node("Config", prefix)
	return t
}

// Name returns prefix followed by a counter that is unique per prefix.
func (t *Text) Name(prefix string) string {
	i := t.names[prefix] + 1
	t.names[prefix] = i
	return prefix + strconv.Itoa(i)
}

// Node appends one head. Segment i takes vals[i], or its default when
// vals[i] is empty or missing.
func (t *Text) Node(head string, vals ...string) {
	tail := raw.Guide[head]
	if tail == nil || len(vals) > len(tail.Segs) {
		panic("bug")
	}
	t.buf = append(t.buf, head...)
	for i, seg := range tail.Segs {
		val := seg.Default
		if i < len(vals) && vals[i] != "" {
			val = vals[i]
		}
		t.buf = append(t.buf, " "+seg.Label+raw.Binder+val...)
	}
	t.buf = append(t.buf, '\n')
}

func (t *Text) Bytes() []byte {
	return t.buf
}

func Itoa(n int) string {
	return strconv.Itoa(n)
}
