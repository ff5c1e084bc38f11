package report

import (
	"NN-Escape/internal/build"
	"NN-Escape/internal/scale"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

func span(lo, hi float64) string {
	return fmt.Sprintf("[%g, %g]", lo, hi)
}

// doSpan is the range of escape scales over the channels of a.
func doSpan(a *scale.BoundsArray) string {
	if a.Len() == 0 {
		return "-"
	}
	return span(floats.Min(a.Scales.Do), floats.Max(a.Scales.Do))
}

// Write prints one row per stage followed by one row per output tensor.
func Write(w io.Writer, res *build.Result) error {
	mode := "synthesized"
	if res.Estimated {
		mode = "estimated"
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s (%s, %d weights)\n\n", res.Name, mode, res.Consumed)
	fmt.Fprintln(tw, "LINE\tNODE\tTENSOR\tOFFSET\tWEIGHTS\tPASS\tBOUNDS\tDO")
	for _, sr := range res.Stages {
		out := sr.Bounds.Output0
		hull := out.Bounds.Hull()
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d/%d\t%s\t%s\n",
			sr.Line, sr.Node, sr.Tensor, sr.Offset, sr.Weights,
			sr.PassThrough, out.Len(), span(hull.Lower, hull.Upper), doSpan(out))
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "OUTPUT\tCHANNELS\tBOUNDS\tDO")
	for _, name := range res.Outputs {
		out := res.Tensors[name]
		hull := out.Bounds.Hull()
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", name, out.Len(), span(hull.Lower, hull.Upper), doSpan(out))
	}
	return errors.Wrap(tw.Flush(), "report")
}
