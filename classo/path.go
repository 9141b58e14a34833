// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Grid returns points lambdas evenly spaced from 1 down to lambdaMin inclusive.
func Grid(lambdaMin float64, points int) ([]float64, error) {
	switch {
	case !(lambdaMin > 0 && lambdaMin < 1):
		return nil, fmt.Errorf("lambda min %v must lie in (0,1): %w", lambdaMin, ErrInvalidParameter)
	case points < 2:
		return nil, fmt.Errorf("path needs at least 2 points, got %d: %w", points, ErrInvalidParameter)
	}
	grid := floats.Span(make([]float64, points), 1, lambdaMin)
	grid[points-1] = lambdaMin
	return grid, nil
}

// SolvePath solves the instance on the grid returned by Grid.
// The first point is the trivial solution 𝛃 = 0; later points reuse the previous solution as a warm start.
func (in *Instance) SolvePath(lambdaMin float64, points int) (*Path, error) {
	grid, err := Grid(lambdaMin, points)
	if err != nil {
		return nil, err
	}
	path := &Path{Lambdas: grid, Solutions: make([]Solution, 0, points)}
	path.Solutions = append(path.Solutions, in.trivial(grid[0]))
	if in.lmax == 0 {
		for _, lam := range grid[1:] {
			path.Solutions = append(path.Solutions, in.trivial(lam))
		}
		return path, nil
	}
	sols, err := in.method.solve(in, grid[1:])
	if err != nil {
		return nil, err
	}
	path.Solutions = append(path.Solutions, sols...)
	return path, nil
}

// NonZeros returns the number of coefficients with |𝛃ᵢ| > tol at every grid point.
func (p *Path) NonZeros(tol float64) []int {
	nz := make([]int, len(p.Solutions))
	for i := range p.Solutions {
		nz[i] = len(p.Solutions[i].Support(tol))
	}
	return nz
}

// Coefficient returns the trajectory of coefficient j along the path.
func (p *Path) Coefficient(j int) []float64 {
	c := make([]float64, len(p.Solutions))
	for i := range p.Solutions {
		c[i] = p.Solutions[i].Beta[j]
	}
	return c
}

// interpolate evaluates a piecewise-linear path given by knots with non-increasing lambda.
// Values outside the knot range are clamped to the nearest end.
func interpolate(dst []float64, knots []knot, lam float64) {
	last := len(knots) - 1
	switch {
	case lam >= knots[0].lam:
		copy(dst, knots[0].beta)
		return
	case lam <= knots[last].lam:
		copy(dst, knots[last].beta)
		return
	}
	i := 0
	for i < last && knots[i+1].lam > lam {
		i++
	}
	a, b := knots[i], knots[i+1]
	w := 0.0
	if span := a.lam - b.lam; span > 0 {
		w = (a.lam - lam) / span
	}
	w = math.Min(math.Max(w, 0), 1)
	for j := range dst {
		dst[j] = a.beta[j] + w*(b.beta[j]-a.beta[j])
	}
}
