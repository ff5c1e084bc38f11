package report

import (
	"NN-Escape/internal/build"
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const graph = `Config Prefix=tiny WeightBound=1
Input ToTensor=in Channels=2 Height=4 Width=4 Lower=-1 Upper=1
Pointwise FromTensor=in ToTensor=mix ToChannels=3 Bias=Yes Activation=Tanh Style=Filter1Bias0 Parts=c0-2x1+p0-2
Output FromTensor=mix
`

func TestWrite(t *testing.T) {
	g, err := build.Plan(graph)
	require.NoError(t, err)
	res, err := build.Run(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)), g, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, res))
	var rows []string
	for _, l := range strings.Split(buf.String(), "\n") {
		rows = append(rows, strings.Join(strings.Fields(l), " "))
	}
	assert.Contains(t, rows, "tiny (estimated, 3 weights)")
	assert.Contains(t, rows, "3 Pointwise mix 0 3 2/3 [-1, 1] [0.125, 1]")
	assert.Contains(t, rows, "mix 3 [-1, 1] [0.125, 1]")
}
