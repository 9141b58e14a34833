// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package synth generates reproducible sparse regression problems with correlated designs.
package synth

import (
	"errors"
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Correlation is the pairwise correlation between columns of the same block.
const Correlation = 0.9

// Spec describes a synthetic problem.
type Spec struct {
	N, P    int     // samples and coefficients
	NonZero int     // true nonzero coefficients
	Blocks  int     // correlated column blocks
	Noise   float64 // standard deviation of the additive noise
	ZeroSum bool    // true coefficients sum to zero and C is the all-ones row
	Seed    uint64
}

// Dataset is a generated problem with its ground truth.
type Dataset struct {
	X    *mat.Dense // N × P
	Y    []float64  // N
	C    *mat.Dense // 1 × P when ZeroSum, nil otherwise
	Beta []float64  // true coefficients
}

// ErrSpec is returned by Generate when a Spec describes no valid dataset.
var ErrSpec = errors.New("synth: invalid spec")

// Generate draws the rows of X from 𝒩(0, Σ) where Σ is the identity except for Blocks leading groups
// of equally correlated columns, picks NonZero coefficients with magnitudes in [1,3] and random signs,
// centres them when ZeroSum is set, and returns y = Xβ + Noise × 𝒩(0, I).
// The same Spec always yields the same Dataset.
func Generate(s Spec) (*Dataset, error) {
	size := 0
	if s.Blocks > 0 {
		size = max(2, s.P/(2*s.Blocks))
	}
	switch {
	case s.N <= 0 || s.P <= 0:
		return nil, fmt.Errorf("%w: shape %d × %d", ErrSpec, s.N, s.P)
	case s.NonZero < 0 || s.NonZero > s.P:
		return nil, fmt.Errorf("%w: %d nonzero of %d", ErrSpec, s.NonZero, s.P)
	case s.ZeroSum && s.NonZero == 1:
		return nil, fmt.Errorf("%w: a single nonzero coefficient cannot sum to zero", ErrSpec)
	case s.Blocks < 0 || s.Blocks*size > s.P:
		return nil, fmt.Errorf("%w: %d blocks do not fit %d columns", ErrSpec, s.Blocks, s.P)
	case s.Noise < 0:
		return nil, fmt.Errorf("%w: noise %v", ErrSpec, s.Noise)
	}

	rng := rand.New(rand.NewSource(s.Seed))

	cov := mat.NewSymDense(s.P, nil)
	for i := 0; i < s.P; i++ {
		cov.SetSym(i, i, 1)
	}
	for b := 0; b < s.Blocks; b++ {
		for i := b * size; i < (b+1)*size; i++ {
			for j := i + 1; j < (b+1)*size; j++ {
				cov.SetSym(i, j, Correlation)
			}
		}
	}
	normal, ok := distmv.NewNormal(make([]float64, s.P), cov, rng)
	if !ok {
		return nil, fmt.Errorf("%w: covariance is not positive definite", ErrSpec)
	}

	x := mat.NewDense(s.N, s.P, nil)
	row := make([]float64, s.P)
	for i := 0; i < s.N; i++ {
		x.SetRow(i, normal.Rand(row))
	}

	beta := make([]float64, s.P)
	support := rng.Perm(s.P)[:s.NonZero]
	for _, j := range support {
		v := 1 + 2*rng.Float64()
		if rng.Intn(2) == 0 {
			v = -v
		}
		beta[j] = v
	}
	if s.ZeroSum && s.NonZero > 0 {
		mean := floats.Sum(beta) / float64(s.NonZero)
		for _, j := range support {
			beta[j] -= mean
		}
	}

	y := make([]float64, s.N)
	yv := mat.NewVecDense(s.N, y)
	yv.MulVec(x, mat.NewVecDense(s.P, beta))
	for i := range y {
		y[i] += s.Noise * rng.NormFloat64()
	}

	ds := &Dataset{X: x, Y: y, Beta: beta}
	if s.ZeroSum {
		ds.C = mat.NewDense(1, s.P, nil)
		for j := 0; j < s.P; j++ {
			ds.C.Set(0, j, 1)
		}
	}
	return ds, nil
}

// Outliers adds shift to the responses at count randomly chosen samples, alternating its sign.
func (d *Dataset) Outliers(count int, shift float64, seed uint64) {
	rng := rand.New(rand.NewSource(seed))
	for q, i := range rng.Perm(len(d.Y))[:min(count, len(d.Y))] {
		if q%2 == 0 {
			d.Y[i] += shift
		} else {
			d.Y[i] -= shift
		}
	}
}
