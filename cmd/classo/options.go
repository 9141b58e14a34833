// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/curioloop/classo/classo"
	"github.com/curioloop/classo/internal/synth"
)

var errData = errors.New("malformed data file")

// fileConfig is the layout of the --config file.
type fileConfig struct {
	Formulation   string `yaml:"formulation"`
	Algorithm     string `yaml:"algorithm"`
	classo.Config `yaml:",inline"`
}

// dataFile is the layout of the --data file. Matrices are lists of rows.
type dataFile struct {
	X [][]float64 `yaml:"x"`
	Y []float64   `yaml:"y"`
	C [][]float64 `yaml:"c"`
}

type options struct {
	configFile string
	dataFile   string

	form     string
	algo     string
	rho      float64
	tol      float64
	maxIter  int
	zeroSum  bool
	logLevel int

	spec synth.Spec

	lambda    float64
	lambdaMin float64
	points    int
	limit     int
}

func (o *options) register(root *cobra.Command) {
	def := classo.DefaultConfig()
	f := root.PersistentFlags()
	f.StringVar(&o.configFile, "config", "", "YAML file with formulation, algorithm and numeric settings")
	f.StringVar(&o.dataFile, "data", "", "YAML file with x, y and optional c; synthetic data when empty")

	f.StringVarP(&o.form, "form", "f", classo.R1.String(), "Formulation: R1, R2, R3 or R4")
	f.StringVarP(&o.algo, "algorithm", "a", string(classo.PathAlg), "Algorithm, see the algorithms command")
	f.Float64Var(&o.rho, "rho", def.Rho, "Huber transition for R3 and R4")
	f.Float64Var(&o.tol, "tol", def.Tolerance, "Relative tolerance of the stopping rule")
	f.IntVar(&o.maxIter, "max-iter", def.MaxIterations, "Iteration or path event cap")
	f.BoolVar(&o.zeroSum, "zero-sum", def.ZeroSum, "Constrain the coefficients to sum to zero when no c is given")
	f.IntVar(&o.logLevel, "log-level", int(classo.LogNoop), "Solver log level written to stderr")

	f.IntVar(&o.spec.N, "n", 100, "Synthetic samples")
	f.IntVar(&o.spec.P, "p", 50, "Synthetic coefficients")
	f.IntVar(&o.spec.NonZero, "nonzero", 5, "Synthetic nonzero coefficients")
	f.IntVar(&o.spec.Blocks, "blocks", 1, "Synthetic correlated column blocks")
	f.Float64Var(&o.spec.Noise, "noise", 0.5, "Synthetic noise standard deviation")
	f.Uint64Var(&o.spec.Seed, "seed", 1, "Synthetic data seed")
}

// problem assembles the problem from defaults, the config file, flags and data, in that order.
func (o *options) problem(cmd *cobra.Command) (p classo.Problem, err error) {
	fc := fileConfig{
		Formulation: classo.R1.String(),
		Algorithm:   string(classo.PathAlg),
		Config:      classo.DefaultConfig(),
	}
	if o.configFile != "" {
		raw, err := os.ReadFile(o.configFile)
		if err != nil {
			return p, err
		}
		if err = yaml.Unmarshal(raw, &fc); err != nil {
			return p, fmt.Errorf("config %s: %w", o.configFile, err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("form") {
		fc.Formulation = o.form
	}
	if flags.Changed("algorithm") {
		fc.Algorithm = o.algo
	}
	if flags.Changed("rho") {
		fc.Rho = o.rho
	}
	if flags.Changed("tol") {
		fc.Tolerance = o.tol
	}
	if flags.Changed("max-iter") {
		fc.MaxIterations = o.maxIter
	}
	if flags.Changed("zero-sum") {
		fc.ZeroSum = o.zeroSum
	}

	if p.Form, err = classo.ParseFormulation(fc.Formulation); err != nil {
		return
	}
	p.Algorithm = classo.Algorithm(fc.Algorithm)
	p.Config = fc.Config
	p.Data, err = o.data(fc.ZeroSum)
	return
}

func (o *options) data(zeroSum bool) (classo.Data, error) {
	if o.dataFile == "" {
		spec := o.spec
		spec.ZeroSum = zeroSum
		ds, err := synth.Generate(spec)
		if err != nil {
			return classo.Data{}, err
		}
		d := classo.Data{X: ds.X, Y: ds.Y}
		if ds.C != nil {
			d.C = ds.C
		}
		return d, nil
	}

	raw, err := os.ReadFile(o.dataFile)
	if err != nil {
		return classo.Data{}, err
	}
	var df dataFile
	if err = yaml.Unmarshal(raw, &df); err != nil {
		return classo.Data{}, fmt.Errorf("data %s: %w", o.dataFile, err)
	}
	x, err := dense("x", df.X)
	if err != nil {
		return classo.Data{}, err
	}
	d := classo.Data{X: x, Y: df.Y}
	if len(df.C) > 0 {
		if d.C, err = dense("c", df.C); err != nil {
			return classo.Data{}, err
		}
	}
	return d, nil
}

// dense packs rows into a matrix, rejecting empty or ragged input.
func dense(name string, rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", errData, name)
	}
	r, c := len(rows), len(rows[0])
	m := mat.NewDense(r, c, nil)
	for i, row := range rows {
		if len(row) != c {
			return nil, fmt.Errorf("%w: %s row %d has %d entries, want %d", errData, name, i, len(row), c)
		}
		m.SetRow(i, row)
	}
	return m, nil
}

func (o *options) instance(cmd *cobra.Command) (*classo.Instance, error) {
	p, err := o.problem(cmd)
	if err != nil {
		return nil, err
	}
	var logger *classo.Logger
	if lvl := classo.LogLevel(o.logLevel); lvl != classo.LogNoop {
		w := cmd.ErrOrStderr()
		logger = &classo.Logger{Level: lvl, Msg: w, Out: w}
	}
	return p.New(logger)
}
