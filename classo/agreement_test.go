// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func relL1(ref, beta []float64) float64 {
	return floats.Distance(ref, beta, 1) / floats.Norm(ref, 1)
}

// tight runs the splitting solvers well past the default stopping rule.
func tight() Config {
	conf := DefaultConfig()
	conf.Tolerance = 1e-9
	conf.MaxIterations = 1000000
	return conf
}

func TestAllMethodsMatch(t *testing.T) {
	ds := dataset(t)
	for _, tc := range []struct {
		form Formulation
		lam  float64
	}{
		{R1, 0.05},
		{R2, 0.1},
		{R3, 0.1},
		{R4, 0.1},
	} {
		t.Run(tc.form.String(), func(t *testing.T) {
			ref, err := instance(t, ds, tc.form, PathAlg, DefaultConfig()).Solve(tc.lam)
			require.NoError(t, err)
			require.True(t, ref.OK)

			for _, algo := range []Algorithm{DR, PPDS, PFPDS} {
				sol, err := instance(t, ds, tc.form, algo, tight()).Solve(tc.lam)
				require.NoError(t, err)
				assert.True(t, sol.OK, "%s: %v after %d iterations", algo, sol.Status, sol.NumIter)
				assert.Less(t, relL1(ref.Beta, sol.Beta), 1e-2, algo)
				assert.InDelta(t, ref.F, sol.F, 1e-4*ref.F, algo)
				if tc.form.Concomitant() {
					assert.InDelta(t, ref.Sigma, sol.Sigma, 1e-3*ref.Sigma, algo)
				}
			}
		})
	}
}

func TestConstraintSatisfaction(t *testing.T) {
	ds := dataset(t)
	for _, algo := range Algorithms() {
		for form := R1; form <= R4; form++ {
			sol, err := instance(t, ds, form, algo, DefaultConfig()).Solve(0.1)
			require.NoError(t, err)
			var cb mat.VecDense
			cb.MulVec(ds.C, mat.NewVecDense(20, sol.Beta))
			assert.Less(t, mat.Norm(&cb, 2), 1e-4, "%s %v", algo, form)
		}
	}
}

func TestGeneralConstraint(t *testing.T) {
	ds := dataset(t)
	// two groups, each summing to zero
	c := mat.NewDense(2, 20, nil)
	for j := 0; j < 20; j++ {
		c.Set(j/10, j, 1)
	}
	conf := DefaultConfig()
	conf.ZeroSum = false

	solve := func(algo Algorithm, conf Config) *Solution {
		p := Problem{Data: Data{X: ds.X, Y: ds.Y, C: c}, Form: R1, Algorithm: algo, Config: conf}
		in, err := p.New(nil)
		require.NoError(t, err)
		sol, err := in.Solve(0.05)
		require.NoError(t, err)
		if algo == PathAlg {
			assert.Less(t, in.KKT(sol, 1e-12).Stationarity, 1e-8)
		}
		return sol
	}

	ref := solve(PathAlg, conf)
	assert.InDelta(t, 0, floats.Sum(ref.Beta[:10]), 1e-10)
	assert.InDelta(t, 0, floats.Sum(ref.Beta[10:]), 1e-10)

	conf.Tolerance, conf.MaxIterations = 1e-9, 1000000
	for _, algo := range []Algorithm{DR, PPDS, PFPDS} {
		sol := solve(algo, conf)
		assert.Less(t, relL1(ref.Beta, sol.Beta), 1e-2, algo)
	}
}

func TestSplittingPath(t *testing.T) {
	ds := dataset(t)
	ref, err := instance(t, ds, R1, PathAlg, DefaultConfig()).SolvePath(0.1, 4)
	require.NoError(t, err)
	for _, algo := range []Algorithm{DR, PPDS, PFPDS} {
		path, err := instance(t, ds, R1, algo, tight()).SolvePath(0.1, 4)
		require.NoError(t, err)
		for i := 1; i < 4; i++ {
			assert.Less(t, relL1(ref.Solutions[i].Beta, path.Solutions[i].Beta), 1e-2, "%s at %v", algo, path.Lambdas[i])
		}
	}
}

func TestNotConverged(t *testing.T) {
	ds := dataset(t)
	conf := DefaultConfig()
	conf.MaxIterations = 3
	for _, algo := range []Algorithm{DR, PPDS, PFPDS} {
		sol, err := instance(t, ds, R2, algo, conf).Solve(0.1)
		require.NoError(t, err)
		assert.False(t, sol.OK, algo)
		assert.Equal(t, NotConverged, sol.Status, algo)
		assert.Equal(t, 3, sol.NumIter, algo)
		assert.Len(t, sol.Beta, 20)
	}
}
