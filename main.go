// NN-512 (https://NN-512.com)
//
// Copyright (C) 2019 [
//     37ef ced3 3727 60b4
//     3c29 f9c6 dc30 d518
//     f4f3 4106 6964 cab4
//     a06f c1a3 83fd 090e
// ]
//
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in
//    the documentation and/or other materials provided with the
//    distribution.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS
// "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT
// LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR
// A PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT
// HOLDER OR CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT
// LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
// DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
// THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
// (INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.

package main

import (
	"NN-Escape/internal/build"
	"NN-Escape/internal/doc"
	"NN-Escape/internal/example"
	"NN-Escape/internal/params"
	"NN-Escape/internal/report"
	"NN-Escape/internal/version"
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const (
	newline = "\n"
	indent  = "    "
)

type options struct {
	verbose  bool
	seed     uint64
	estimate bool
	save     string
}

func logger(opts *options) *slog.Logger {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func readGraph(from string) (string, error) {
	var text []byte
	var err error
	if from == "-" {
		text, err = io.ReadAll(os.Stdin)
	} else {
		text, err = os.ReadFile(from)
	}
	if err != nil {
		return "", errors.Wrap(err, "graph")
	}
	return string(text), nil
}

func weightsFor(opts *options, log *slog.Logger, g *build.Graph, args []string) ([]float32, error) {
	switch {
	case opts.estimate:
		return nil, nil
	case len(args) == 2:
		return params.ReadFile(args[1])
	}
	n := g.WeightCount()
	log.Info("random weights", "count", n, "seed", opts.seed, "bound", g.Config.WeightBound)
	ws := params.Random(n, g.Config.WeightBound, opts.seed)
	if opts.save != "" {
		if err := params.WriteFile(opts.save, ws); err != nil {
			return nil, err
		}
	}
	return ws, nil
}

func cmdSynth(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synth GRAPH [WEIGHTS]",
		Short: "Propagate bounds and escape scales through a graph and synthesize its weights.",
		Long: "The GRAPH argument specifies an input file that contains a" + newline +
			"graph language description of a neural net. - means stdin." + newline +
			newline +
			"The WEIGHTS argument specifies a file of little-endian float32" + newline +
			"weights, consumed in graph line order. Without it, random weights" + newline +
			"within the Config WeightBound are drawn from --seed.",
		Example: indent + "NN-Escape synth shufflenet.graph weights.bin" + newline +
			indent + "NN-Escape example ShuffleNetV2Fused | NN-Escape synth - --estimate",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger(opts)
			text, err := readGraph(args[0])
			if err != nil {
				return err
			}
			g, err := build.Plan(text)
			if err != nil {
				return err
			}
			ws, err := weightsFor(opts, log, g, args)
			if err != nil {
				return err
			}
			res, err := build.Run(cmd.Context(), log, g, ws)
			if err != nil {
				return errors.Wrap(err, "synth failed")
			}
			return report.Write(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().Uint64Var(&opts.seed, "seed", 1, "seed for random weights")
	cmd.Flags().BoolVar(&opts.estimate, "estimate", false, "bound every weight by WeightBound instead of synthesizing")
	cmd.Flags().StringVar(&opts.save, "save", "", "write the random weights to this file")
	cmd.MarkFlagsMutuallyExclusive("estimate", "save")
	return cmd
}

func cmdDoc() *cobra.Command {
	return &cobra.Command{
		Use:   "doc",
		Short: "Write documentation for the graph language to stdout.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := cmd.OutOrStdout().Write(doc.Bytes())
			return err
		},
	}
}

func cmdExample() *cobra.Command {
	return &cobra.Command{
		Use:   "example NAME",
		Short: "Write graph language for an example neural net to stdout.",
		Long: "The NAME argument can be:" + newline + newline +
			indent + strings.Join(example.Names(), newline+indent),
		ValidArgs: example.Names(),
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := cmd.OutOrStdout().Write(example.Generate(args[0]))
			return err
		},
	}
}

func cmdVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Write the version number of this program to stdout.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := io.WriteString(cmd.OutOrStdout(), strconv.Itoa(version.Int)+newline)
			return err
		},
	}
}

func root() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "NN-Escape",
		Short:         "Escape scaling for pass-through channels of depthwise and pointwise convolutions.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every stage to stderr")
	cmd.AddCommand(cmdSynth(opts), cmdDoc(), cmdExample(), cmdVersion())
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := root().ExecuteContext(ctx)
	stop()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + newline)
		os.Exit(1)
	}
}
