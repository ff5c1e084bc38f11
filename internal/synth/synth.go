package synth

import (
	"NN-Escape/internal/act"
	"NN-Escape/internal/bounds"
	"NN-Escape/internal/cba"
	"NN-Escape/internal/errmsg"
	"NN-Escape/internal/pass"
	"NN-Escape/internal/scale"
)

// Result is what a downstream executor needs for one stage. Biases is
// nil for a stage without bias. Next is the weight-source offset just
// past this stage's consumption.
type Result struct {
	Filters []float32
	Biases  []float32
	Bounds  *cba.BoundsArraySet
	Next    int
}

func (r *Result) Output() *scale.BoundsArray {
	return r.Bounds.Output0
}

// Synthesize builds the stage's filter and bias blocks from weights
// starting at offset.
//
// Round 1 lays out every coefficient provisionally: pass-through parts
// get the style's constants, convolved parts take the next weights. Each
// filter value is pre-multiplied by the undo scale of the input channel
// it reads, so the previous stage's escaping is removed. The bounds of
// every output channel accumulate along the way and determine its escape
// scale. Round 2 then multiplies every filter and bias by the escape
// scale of its output channel; the executor applies no scale of its own.
func (st *Stage) Synthesize(input0 *scale.BoundsArray, weights []float32, offset int) (*Result, error) {
	if err := st.Validate(input0); err != nil {
		return nil, err
	}
	if need := st.WeightCount(); offset < 0 || offset+need > len(weights) {
		return nil, errmsg.New(errmsg.ShortWeights,
			"need %d weights from offset %d but the source holds %d", need, offset, len(weights)).
			AtStage(st.Index)
	}
	outCount := st.OutputChannelCount()
	set := cba.New(input0, outCount)
	style := pass.Lookup(st.Style)
	undo := input0.Scales.Undo
	filters := make([]float32, st.FilterLen())
	var biases []float32
	if st.Bias {
		biases = make([]float32, outCount)
	}
	at := offset
	st.walkFilters(func(e *entry) {
		switch {
		case e.hot:
			filters[e.index] = float32(style.Filter * undo[e.in])
			set.SetPassThrough(e.out, e.in, style.Filter, st.mayPad(e.y, e.x))
		case e.pass:
		default:
			w := float64(weights[at])
			at++
			filters[e.index] = float32(w * undo[e.in])
			set.AddFilterTap(e.out, e.in, w, st.mayPad(e.y, e.x))
		}
	})
	st.walkBiases(func(out int, passThrough bool) {
		var b float64
		switch {
		case passThrough:
			b = style.Bias
		case st.Bias:
			b = float64(weights[at])
			at++
		}
		if biases != nil {
			biases[out] = float32(b)
		}
		set.SetBias(out, b)
	})
	if err := set.Escape(act.Lookup(st.Activation)); err != nil {
		return nil, errmsg.Stage(err, st.Index)
	}
	do := set.Output0.Scales.Do
	for i := range filters {
		filters[i] = float32(float64(filters[i]) * do[i%outCount])
	}
	for out := range biases {
		biases[out] = float32(float64(biases[out]) * do[out])
	}
	return &Result{
		Filters: filters,
		Biases:  biases,
		Bounds:  set,
		Next:    at,
	}, nil
}

// Estimate runs the bounds pipeline without weights: every convolved
// filter and bias value is assumed to lie within [-weightBound,
// weightBound].
func (st *Stage) Estimate(input0 *scale.BoundsArray, weightBound float64) (*cba.BoundsArraySet, error) {
	if err := st.Validate(input0); err != nil {
		return nil, err
	}
	set := cba.New(input0, st.OutputChannelCount())
	style := pass.Lookup(st.Style)
	w := bounds.Symmetric(weightBound)
	st.walkFilters(func(e *entry) {
		switch {
		case e.hot:
			set.SetPassThrough(e.out, e.in, style.Filter, st.mayPad(e.y, e.x))
		case e.pass:
		default:
			set.AddFilterTapBound(e.out, e.in, w, st.mayPad(e.y, e.x))
		}
	})
	st.walkBiases(func(out int, passThrough bool) {
		switch {
		case passThrough:
			set.SetBias(out, style.Bias)
		case st.Bias:
			set.SetBiasBound(out, w)
		default:
			set.SetBias(out, 0)
		}
	})
	if err := set.Escape(act.Lookup(st.Activation)); err != nil {
		return nil, errmsg.Stage(err, st.Index)
	}
	return set, nil
}
