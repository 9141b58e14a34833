// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/spf13/cobra"

	"github.com/curioloop/classo/classo"
	"github.com/curioloop/classo/internal/crosscheck"
)

// supportTol is the magnitude below which a coefficient is reported as zero.
const supportTol = 1e-8

func newRootCmd() *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:   "classo",
		Short: "Constrained L1 regression with least-squares or Huber loss",
		Long: `classo fits sparse regression coefficients under linear equality constraints.

Data comes from a YAML file (--data) holding x, y and an optional c,
or is generated synthetically from the --n, --p, --nonzero flags.
Numeric settings come from defaults, then a YAML file (--config), then flags.`,
		SilenceUsage: true,
	}
	o.register(root)

	solveCmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve at a single lambda",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := o.instance(cmd)
			if err != nil {
				return err
			}
			sol, err := in.Solve(o.lambda)
			if err != nil {
				return err
			}
			out := header(in)
			s := solutionOf(sol)
			out.Solution = &s
			return writeYAML(cmd.OutOrStdout(), out)
		},
	}
	solveCmd.Flags().Float64Var(&o.lambda, "lambda", 0.1, "Regularization as a fraction of lambda max")

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Solve on a grid from lambda max down to --lambda-min",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := o.instance(cmd)
			if err != nil {
				return err
			}
			path, err := in.SolvePath(o.lambdaMin, o.points)
			if err != nil {
				return err
			}
			out := header(in)
			for i := range path.Solutions {
				out.Path = append(out.Path, solutionOf(&path.Solutions[i]))
			}
			return writeYAML(cmd.OutOrStdout(), out)
		},
	}
	pathCmd.Flags().Float64Var(&o.lambdaMin, "lambda-min", 0.01, "Smallest grid lambda as a fraction of lambda max")
	pathCmd.Flags().IntVar(&o.points, "points", 20, "Number of grid points")

	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "Solve with every algorithm concurrently and report the distance to Path-Alg",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := o.problem(cmd)
			if err != nil {
				return err
			}
			rep, err := crosscheck.Compare(cmd.Context(), p, o.lambda, nil, o.limit)
			if err != nil {
				return err
			}
			return writeYAML(cmd.OutOrStdout(), struct {
				Formulation string `yaml:"formulation"`
				*crosscheck.Report `yaml:",inline"`
			}{p.Form.String(), rep})
		},
	}
	compareCmd.Flags().Float64Var(&o.lambda, "lambda", 0.1, "Regularization as a fraction of lambda max")
	compareCmd.Flags().IntVar(&o.limit, "limit", 0, "Maximum concurrent solves, 0 for no limit")

	algosCmd := &cobra.Command{
		Use:   "algorithms",
		Short: "List the available algorithms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeYAML(cmd.OutOrStdout(), classo.Algorithms())
		},
	}

	root.AddCommand(solveCmd, pathCmd, compareCmd, algosCmd)
	return root
}
