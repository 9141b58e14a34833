// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classo

import "slices"

// Algorithm names a solver.
type Algorithm string

const (
	PathAlg Algorithm = "Path-Alg" // exact homotopy on lambda
	DR      Algorithm = "DR"       // Douglas-Rachford splitting
	PPDS    Algorithm = "P-PDS"    // projected primal-dual splitting
	PFPDS   Algorithm = "PF-PDS"   // projection-free primal-dual splitting
)

// solver solves an instance on a strictly decreasing grid of lambdas in (0,1),
// each relative to λₘₐₓ, and returns one solution per lambda.
type solver interface {
	solve(in *Instance, lambdas []float64) ([]Solution, error)
}

var solvers = map[Algorithm]solver{
	PathAlg: homotopy{},
	DR:      splitting(newDouglasRachford),
	PPDS:    splitting(newProjectedPDS),
	PFPDS:   splitting(newProjFreePDS),
}

// Algorithms returns the registered solver names in lexical order.
func Algorithms() []Algorithm {
	names := make([]Algorithm, 0, len(solvers))
	for a := range solvers {
		names = append(names, a)
	}
	slices.Sort(names)
	return names
}
