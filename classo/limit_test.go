// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/classo/internal/synth"
)

// Two samples, three zero-sum coefficients. Xβ = y has the sparsest zero-sum solution (2, 1, -3),
// so for R2 (and R4 with ρ = 1.345) the optimal scale vanishes for λ ≤ 1/(√2·λₘₐₓ) and 𝛃 = 0 for λ ≥ 1/2.
func exact(t *testing.T, form Formulation, algo Algorithm) *Instance {
	t.Helper()
	conf := DefaultConfig()
	if algo != PathAlg {
		conf = tight()
	}
	p := Problem{
		Data:      Data{X: mat.NewDense(2, 3, []float64{1, 0, 0, 0, 1, 0}), Y: []float64{2, 1}},
		Form:      form,
		Algorithm: algo,
		Config:    conf,
	}
	in, err := p.New(nil)
	require.NoError(t, err)
	return in
}

func TestVanishingScale(t *testing.T) {
	const lam = 0.1
	for _, form := range []Formulation{R2, R4} {
		for _, algo := range Algorithms() {
			in := exact(t, form, algo)
			require.InDelta(t, 4/math.Sqrt(5), in.LambdaMax(), 1e-12)

			sol, err := in.Solve(lam)
			require.NoError(t, err)
			assert.True(t, sol.OK, "%v %v", form, algo)
			assert.Equal(t, Boundary, sol.Status, "%v %v", form, algo)
			assert.Equal(t, 0.0, sol.Sigma, "%v %v", form, algo)
			assert.InDeltaSlice(t, []float64{2, 1, -3}, sol.Beta, 1e-6, "%v %v", form, algo)
			assert.InDelta(t, lam*in.LambdaMax()*6, sol.F, 1e-6, "%v %v", form, algo)

			cert := in.KKT(sol, 1e-8)
			assert.LessOrEqual(t, cert.Stationarity, in.conf.Tolerance, "%v %v", form, algo)
			assert.Less(t, cert.Feasibility, 1e-8, "%v %v", form, algo)
			assert.Equal(t, 0.0, cert.Scale)
			assert.Equal(t, []int{0, 1, 2}, cert.Support)
		}
	}
}

func TestInteriorScale(t *testing.T) {
	const lam = 0.45
	for _, form := range []Formulation{R2, R4} {
		ref, err := exact(t, form, PathAlg).Solve(lam)
		require.NoError(t, err)
		require.Equal(t, Converged, ref.Status, form)
		require.Greater(t, ref.Sigma, 0.0, form)

		for _, algo := range Algorithms() {
			in := exact(t, form, algo)
			sol, err := in.Solve(lam)
			require.NoError(t, err)
			assert.Equal(t, Converged, sol.Status, "%v %v", form, algo)
			assert.InEpsilon(t, ref.Sigma, sol.Sigma, 1e-4, "%v %v", form, algo)
			assert.InEpsilon(t, ref.F, sol.F, 1e-6, "%v %v", form, algo)
			assert.InDelta(t, 0, sol.Beta[0]+sol.Beta[1]+sol.Beta[2], 1e-8, "%v %v", form, algo)
		}
	}
}

func TestWideDesign(t *testing.T) {
	ds, err := synth.Generate(synth.Spec{N: 10, P: 25, NonZero: 4, ZeroSum: true, Seed: 3})
	require.NoError(t, err)

	for _, form := range []Formulation{R2, R4} {
		for _, lam := range []float64{0.05, 0.01} {
			ref, err := instance(t, ds, form, PathAlg, DefaultConfig()).Solve(lam)
			require.NoError(t, err)
			require.True(t, ref.OK, "%v at %v: %v", form, lam, ref.Status)

			for _, algo := range Algorithms() {
				conf := DefaultConfig()
				if algo != PathAlg {
					conf = tight()
				}
				in := instance(t, ds, form, algo, conf)
				sol, err := in.Solve(lam)
				require.NoError(t, err)
				require.True(t, sol.OK, "%v %v at %v: %v", form, algo, lam, sol.Status)

				cert := in.KKT(sol, 1e-8)
				switch sol.Status {
				case Converged:
					// a reported interior scale is a genuine stationary point
					assert.Greater(t, sol.Sigma, in.floor, "%v %v at %v", form, algo, lam)
					assert.Less(t, cert.Stationarity, 1e-3, "%v %v at %v", form, algo, lam)
					assert.Less(t, cert.Scale, 1e-3, "%v %v at %v", form, algo, lam)
				case Boundary:
					assert.Equal(t, 0.0, sol.Sigma)
					assert.LessOrEqual(t, cert.Stationarity, in.conf.Tolerance, "%v %v at %v", form, algo, lam)
				default:
					t.Errorf("%v %v at %v: unexpected status %v", form, algo, lam, sol.Status)
				}
				assert.Less(t, cert.Feasibility, 1e-8, "%v %v at %v", form, algo, lam)
				assert.InEpsilon(t, ref.F, sol.F, 1e-4, "%v %v at %v", form, algo, lam)
			}
		}
	}
}

func TestCollapseWithoutLimit(t *testing.T) {
	// a tall design has no exact fit, so R2 never takes the boundary
	ds := dataset(t)
	in := instance(t, ds, R2, PathAlg, DefaultConfig())
	_, err := in.limitPrimal(in.LambdaMax())
	assert.ErrorIs(t, err, errNoLimit)

	lim, ok := in.boundary(0.01 * in.LambdaMax())
	assert.False(t, ok)
	assert.Nil(t, lim.beta)
}
