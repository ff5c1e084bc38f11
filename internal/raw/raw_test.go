package raw

import (
	"NN-Escape/internal/act"
	"NN-Escape/internal/part"
	"NN-Escape/internal/pass"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNodes(t *testing.T) {
	text := "Config Prefix=net WeightBound=0.5\n" +
		"Depthwise FromTensor=a ToTensor=b Multiplier=2 FilterH=3 FilterW=5 Stride=2\n" +
		"  Padding=Valid Bias=No Activation=Sin Style=Filter0Bias0 Parts=c0-2+p2-4@1x0\n" +
		"Add FromTensor1=b\tFromTensor2=c ToTensor=d\n"
	nodes, err := Parse(text)
	require.NoError(t, err)
	want := []Node{
		&Config{LineNum: 1, Prefix: "net", WeightBound: 0.5},
		&Depthwise{
			LineNum:    2,
			FromTensor: "a",
			ToTensor:   "b",
			Multiplier: 2,
			FilterH:    3,
			FilterW:    5,
			Stride:     2,
			Padding:    Valid,
			Bias:       false,
			Activation: act.Sin,
			Style:      pass.Filter0Bias0,
			Parts:      part.New(part.Conv(0, 2), part.PassAt(2, 4, 1, 0)),
		},
		&Add{LineNum: 4, FromTensor1: "b", FromTensor2: "c", ToTensor: "d"},
	}
	if diff := cmp.Diff(want, nodes); diff != "" {
		t.Errorf("Parse (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"b", "c"}, nodes[2].FromTensors())
}

func TestParseAllParts(t *testing.T) {
	nodes, err := Parse("Pointwise FromTensor=a ToTensor=b ToChannels=8 Bias=Yes Activation=None Style=Filter1Bias0 Parts=*\n")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	pw := nodes[0].(*Pointwise)
	assert.Nil(t, pw.Parts)
	assert.True(t, pw.Bias)
	assert.Equal(t, act.None, pw.Activation)
}

func TestParseRejects(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"final newline", "Output FromTensor=a", "parse failed: expected final newline"},
		{"unknown head", "Conv FromTensor=a\n", "line 1: expected Add or Concat or Config"},
		{"wrong label", "Shuffle ToTensor=a FromTensor=b\n", "line 1: expected FromTensor=from (for example)"},
		{"truncated", "\nShuffle FromTensor=a\n", "line 3: expected ToTensor=to (for example)"},
		{"gap", "Output FromTensor=\n", "line 1: FromTensor: unexpected gap after ="},
		{"zero", "Split FromTensor=a ToTensor1=b ToTensor2=c\nInput ToTensor=x Channels=0\n", "line 2: Channels: does not match"},
		{"choice", "Pointwise FromTensor=a ToTensor=b ToChannels=8 Bias=Maybe\n", "line 1: Bias: expected No or Yes"},
		{"weight bound", "Config Prefix=a WeightBound=0\n", "line 1: WeightBound: rejected"},
		{"parts", "Pointwise FromTensor=a ToTensor=b ToChannels=8 Bias=Yes Activation=None Style=Filter1Bias0 Parts=c4-2\n",
			"line 1: Parts: "},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parse(c.text)
			require.Error(t, err)
			assert.Contains(t, err.Error(), c.want)
		})
	}
}

func TestGuideComplete(t *testing.T) {
	for _, head := range []string{"Config", "Input", "Output", "Depthwise", "Pointwise", "Add", "Concat", "Split", "Shuffle"} {
		tail := Guide[head]
		require.NotNil(t, tail, head)
		for _, seg := range tail.Segs {
			_, err := seg.Parse(seg.Default)
			assert.NoError(t, err, "%s %s", head, seg.Label)
		}
	}
	assert.Len(t, Guide, 9)
}
