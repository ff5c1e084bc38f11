package example

import (
	"NN-Escape/internal/build"
	"NN-Escape/internal/params"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExamplesRun(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			g, err := build.Plan(string(Generate(name)))
			require.NoError(t, err)
			assert.Equal(t, name, g.Config.Prefix)
			assert.Positive(t, g.WeightCount())

			est, err := build.Run(context.Background(), log, g, nil)
			require.NoError(t, err)
			ws := params.Random(g.WeightCount(), g.Config.WeightBound, 1)
			res, err := build.Run(context.Background(), log, g, ws)
			require.NoError(t, err)
			require.Len(t, res.Stages, len(est.Stages))

			passThrough := 0
			for i, sr := range res.Stages {
				passThrough += sr.PassThrough
				assert.Equal(t, est.Stages[i].PassThrough, sr.PassThrough, "line %d", sr.Line)
			}
			if name == "ShuffleNetV2Fused" || name == "MobileNetV2Fused" {
				assert.Positive(t, passThrough)
			} else {
				assert.Zero(t, passThrough)
			}
		})
	}
}

func TestGenerateUnknown(t *testing.T) {
	assert.Nil(t, Generate("LeNet"))
}
