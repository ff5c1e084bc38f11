package errmsg

import (
	"fmt"
	"math"
	"strings"
)

type Kind int

const (
	ChannelMismatch Kind = iota
	Coverage
	Degenerate
	Infeasible
	ShortWeights
	ScaleMismatch
	BadPart
	Style
)

var KindStrings = []string{
	ChannelMismatch: "channel count mismatch",
	Coverage:        "partition coverage",
	Degenerate:      "degenerate bounds",
	Infeasible:      "infeasible escape scale",
	ShortWeights:    "weight source exhausted",
	ScaleMismatch:   "scale mismatch",
	BadPart:         "bad channel part",
	Style:           "pass-through style",
}

var (
	ErrChannelMismatch = New(ChannelMismatch, "")
	ErrCoverage        = New(Coverage, "")
	ErrDegenerate      = New(Degenerate, "")
	ErrInfeasible      = New(Infeasible, "")
	ErrShortWeights    = New(ShortWeights, "")
	ErrScaleMismatch   = New(ScaleMismatch, "")
	ErrBadPart         = New(BadPart, "")
	ErrStyle           = New(Style, "")
)

// Error is a construction-time failure. Stage and Channel are -1 when
// they do not apply. Lower/Upper hold the offending interval, if any.
type Error struct {
	Kind    Kind
	Stage   int
	Channel int
	Value   float64
	Lower   float64
	Upper   float64
	Msg     string
	bounded bool
	valued  bool
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Stage:   -1,
		Channel: -1,
		Value:   math.NaN(),
		Msg:     fmt.Sprintf(format, args...),
	}
}

func (e *Error) AtStage(stage int) *Error {
	e.Stage = stage
	return e
}

func (e *Error) AtChannel(channel int) *Error {
	e.Channel = channel
	return e
}

func (e *Error) WithBounds(lower, upper float64) *Error {
	e.Lower, e.Upper, e.bounded = lower, upper, true
	return e
}

func (e *Error) WithValue(value float64) *Error {
	e.Value, e.valued = value, true
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Stage >= 0 {
		fmt.Fprintf(&b, "stage %d: ", e.Stage)
	}
	if e.Channel >= 0 {
		fmt.Fprintf(&b, "channel %d: ", e.Channel)
	}
	b.WriteString(KindStrings[e.Kind])
	if e.Msg != "" {
		b.WriteString(": " + e.Msg)
	}
	if e.bounded {
		fmt.Fprintf(&b, " (bounds [%g, %g])", e.Lower, e.Upper)
	}
	if e.valued {
		fmt.Fprintf(&b, " (value %g)", e.Value)
	}
	return b.String()
}

// Is matches on Kind only, so the package-level sentinels work with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Stage attaches a stage index to err when err is an *Error that has none.
func Stage(err error, stage int) error {
	if e, ok := err.(*Error); ok && e.Stage < 0 {
		e.Stage = stage
	}
	return err
}
