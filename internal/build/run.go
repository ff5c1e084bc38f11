package build

import (
	"NN-Escape/internal/bounds"
	"NN-Escape/internal/cba"
	"NN-Escape/internal/errmsg"
	"NN-Escape/internal/raw"
	"NN-Escape/internal/scale"
	"NN-Escape/internal/synth"
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// StageResult is one Depthwise or Pointwise node after Run. Synth is
// nil when Run estimated instead of synthesizing.
type StageResult struct {
	Line        int
	Node        string
	Tensor      string
	Stage       *synth.Stage
	Offset      int
	Weights     int
	PassThrough int
	Synth       *synth.Result
	Bounds      *cba.BoundsArraySet
}

type Result struct {
	Name      string
	Estimated bool
	Consumed  int
	Stages    []*StageResult
	Tensors   map[string]*scale.BoundsArray
	Outputs   []string
}

// slot is written only by the goroutine running its node.
type slot struct {
	tensors []*scale.BoundsArray
	stage   *StageResult
}

// Run propagates bounds and escape scales through g. With weights it
// synthesizes every stage's filters and biases; with nil weights it
// estimates every stage from the Config WeightBound.
func Run(ctx context.Context, log *slog.Logger, g *Graph, weights []float32) (*Result, error) {
	estimate := weights == nil
	if !estimate && len(weights) < g.weights {
		return nil, errmsg.New(errmsg.ShortWeights,
			"graph needs %d weights but %d were given", g.weights, len(weights))
	}
	if extra := len(weights) - g.weights; extra > 0 {
		log.Warn("unused weights", "count", extra)
	}
	slots := make([]slot, len(g.nodes))
	for w, wave := range g.waves {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Debug("wave", "index", w, "nodes", len(wave))
		eg, gctx := errgroup.WithContext(ctx)
		for _, i := range wave {
			eg.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return g.runNode(log, slots, i, weights, estimate)
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}
	res := &Result{
		Name:      g.Config.Prefix,
		Estimated: estimate,
		Consumed:  g.weights,
		Tensors:   make(map[string]*scale.BoundsArray, len(g.gen)),
		Outputs:   g.Outputs(),
	}
	for i, node := range g.nodes {
		for j, tensor := range node.ToTensors() {
			res.Tensors[tensor] = slots[i].tensors[j]
		}
		if sr := slots[i].stage; sr != nil {
			res.Stages = append(res.Stages, sr)
		}
	}
	return res, nil
}

// from finds the bounds of tensor in its producer's slot.
func (g *Graph) from(slots []slot, tensor string) *scale.BoundsArray {
	j := g.gen[tensor]
	for k, to := range g.nodes[j].ToTensors() {
		if to == tensor {
			return slots[j].tensors[k]
		}
	}
	panic("bug")
}

func (g *Graph) runNode(log *slog.Logger, slots []slot, i int, weights []float32, estimate bool) error {
	node := g.nodes[i]
	line := node.LineNumber()
	out := &slots[i]
	one := func(a *scale.BoundsArray, err error, tensor string) error {
		if err != nil {
			return wrap(err, tensor, line)
		}
		out.tensors = []*scale.BoundsArray{a}
		return nil
	}
	switch at := node.(type) {
	case *raw.Input:
		b := bounds.New(at.Lower, at.Upper)
		out.tensors = []*scale.BoundsArray{scale.Uniform(at.Channels, b)}
	case *raw.Output:
		out.tensors = nil
	case *raw.Depthwise:
		return g.runStage(log, out, i, "Depthwise", at.FromTensor, at.ToTensor, slots, weights, estimate)
	case *raw.Pointwise:
		return g.runStage(log, out, i, "Pointwise", at.FromTensor, at.ToTensor, slots, weights, estimate)
	case *raw.Add:
		a, err := scale.Add(g.from(slots, at.FromTensor1), g.from(slots, at.FromTensor2))
		return one(a, err, at.ToTensor)
	case *raw.Concat:
		a := scale.Concat(g.from(slots, at.FromTensor1), g.from(slots, at.FromTensor2))
		return one(a, nil, at.ToTensor)
	case *raw.Shuffle:
		a, err := scale.InterleaveByTwo(g.from(slots, at.FromTensor))
		return one(a, err, at.ToTensor)
	case *raw.Split:
		lo, hi, err := scale.Split(g.from(slots, at.FromTensor))
		if err != nil {
			return wrap(err, at.ToTensor1, line)
		}
		out.tensors = []*scale.BoundsArray{lo, hi}
	default:
		panic("bug")
	}
	return nil
}

func (g *Graph) runStage(log *slog.Logger, out *slot, i int, name, from, to string,
	slots []slot, weights []float32, estimate bool) error {
	st := g.stages[i]
	line := g.nodes[i].LineNumber()
	in := g.from(slots, from)
	sr := &StageResult{
		Line:    line,
		Node:    name,
		Tensor:  to,
		Stage:   st,
		Offset:  g.offsets[i],
		Weights: st.WeightCount(),
	}
	if estimate {
		set, err := st.Estimate(in, g.Config.WeightBound)
		if err != nil {
			return wrap(err, to, line)
		}
		sr.Bounds = set
	} else {
		r, err := st.Synthesize(in, weights, sr.Offset)
		if err != nil {
			return wrap(err, to, line)
		}
		if r.Next != sr.Offset+sr.Weights {
			return errors.Errorf("line %d: %s: consumed %d weights, planned %d",
				line, to, r.Next-sr.Offset, sr.Weights)
		}
		sr.Synth = r
		sr.Bounds = r.Bounds
	}
	sr.PassThrough = sr.Bounds.PassThroughCount()
	out.tensors = []*scale.BoundsArray{sr.Bounds.Output0}
	out.stage = sr
	log.Debug("stage",
		"line", line,
		"node", name,
		"tensor", to,
		"offset", sr.Offset,
		"weights", sr.Weights,
		"passThrough", sr.PassThrough,
		"escaped", !sr.Bounds.Output0.Scales.IsIdentity(),
	)
	return nil
}
