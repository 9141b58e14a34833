// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/curioloop/classo/classo"
)

type solutionOutput struct {
	Lambda     float64   `yaml:"lambda"`
	Status     string    `yaml:"status"`
	Iterations int       `yaml:"iterations"`
	Objective  float64   `yaml:"objective"`
	Sigma      float64   `yaml:"sigma"`
	Support    []int     `yaml:"support,flow"`
	Beta       []float64 `yaml:"beta,flow"`
	Weights    []float64 `yaml:"weights,flow,omitempty"`
}

type output struct {
	Formulation string           `yaml:"formulation"`
	Algorithm   classo.Algorithm `yaml:"algorithm"`
	Samples     int              `yaml:"samples"`
	Features    int              `yaml:"features"`
	Constraints int              `yaml:"constraints"`
	LambdaMax   float64          `yaml:"lambda_max"`
	Solution    *solutionOutput  `yaml:"solution,omitempty"`
	Path        []solutionOutput `yaml:"path,omitempty"`
}

func header(in *classo.Instance) output {
	n, p, k := in.Dims()
	return output{
		Formulation: in.Formulation().String(),
		Algorithm:   in.Algorithm(),
		Samples:     n,
		Features:    p,
		Constraints: k,
		LambdaMax:   in.LambdaMax(),
	}
}

func solutionOf(sol *classo.Solution) solutionOutput {
	return solutionOutput{
		Lambda:     sol.Lambda,
		Status:     sol.Status.String(),
		Iterations: sol.NumIter,
		Objective:  sol.F,
		Sigma:      sol.Sigma,
		Support:    sol.Support(supportTol),
		Beta:       sol.Beta,
		Weights:    sol.Weights,
	}
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
