// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classo

// Status reports how a solve terminated.
type Status int

const (
	// Converged the stopping rule was met, or the path reached the requested lambda.
	Converged Status = iota
	// Trivial lambda is at or above λₘₐₓ, or 𝐗𝛃 vanishes on the constraint set, so 𝛃 = 0 without iterating.
	Trivial
	// NotConverged the iteration cap was reached, or the concomitant scale vanished
	// without an optimality certificate; the last iterate is still returned.
	NotConverged
	// Boundary the concomitant scale tends to zero at the optimum: 𝛃 minimizes the σ → 0 limit
	// of the objective and Sigma is 0.
	Boundary
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "Converged"
	case Trivial:
		return "Trivial"
	case NotConverged:
		return "NotConverged"
	case Boundary:
		return "Boundary"
	}
	return "Unknown"
}

// Solution contains the result of a single solve.
type Solution struct {
	OK      bool      // Whether the solve converged, at the boundary included.
	F       float64   // Final objective value of the formulation.
	Beta    []float64 // Coefficients, feasible up to the solver accuracy.
	Sigma   float64   // Concomitant scale for R2/R4, 0 with status Boundary, 1 otherwise.
	Weights []float64 // Per-sample Huber weights for R3/R4, nil otherwise.
	Lambda  float64   // Requested lambda relative to λₘₐₓ.
	Summary           // Solve summary.
}

// Summary contains a summary of the solve.
type Summary struct {
	Status  Status // Final status.
	NumIter int    // Number of iterations, or path events for the path algorithm.
}

// Path is the sequence of solutions on a decreasing lambda grid.
type Path struct {
	Lambdas   []float64  // Grid from 1 down to lambda_min.
	Solutions []Solution // One solution per grid point.
}

// Support returns the indices of nonzero coefficients, treating |𝛃ᵢ| ≤ tol as zero.
func (s *Solution) Support(tol float64) []int {
	var idx []int
	for i, b := range s.Beta {
		if b > tol || b < -tol {
			idx = append(idx, i)
		}
	}
	return idx
}
