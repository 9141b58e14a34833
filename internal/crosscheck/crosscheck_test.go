// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package crosscheck

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curioloop/classo/classo"
	"github.com/curioloop/classo/internal/synth"
)

func problem(t *testing.T, form classo.Formulation) classo.Problem {
	t.Helper()
	ds, err := synth.Generate(synth.Spec{N: 30, P: 15, NonZero: 4, Blocks: 1, Noise: 0.3, ZeroSum: true, Seed: 3})
	require.NoError(t, err)
	conf := classo.DefaultConfig()
	conf.Tolerance = 1e-9
	conf.MaxIterations = 1000000
	return classo.Problem{Data: classo.Data{X: ds.X, Y: ds.Y}, Form: form, Config: conf}
}

func TestCompare(t *testing.T) {
	for _, form := range []classo.Formulation{classo.R1, classo.R4} {
		rep, err := Compare(context.Background(), problem(t, form), 0.1, nil, 2)
		require.NoError(t, err)
		require.Len(t, rep.Results, 4)
		assert.Equal(t, 0.1, rep.Lambda)

		assert.Equal(t, Reference, rep.Results[0].Algorithm)
		assert.Zero(t, rep.Results[0].RelErr)
		for _, res := range rep.Results {
			assert.Equal(t, "Converged", res.Status, "%s", res.Algorithm)
			assert.Len(t, res.Beta, 15)
		}
		algo, worst := rep.Worst()
		assert.NotEqual(t, Reference, algo)
		assert.Less(t, worst, 1e-2, "%v %s", form, algo)
	}
}

func TestCompareSubset(t *testing.T) {
	rep, err := Compare(context.Background(), problem(t, classo.R1), 0.2, []classo.Algorithm{classo.DR, classo.PathAlg, classo.DR}, 0)
	require.NoError(t, err)
	require.Len(t, rep.Results, 2)
	assert.Equal(t, classo.PathAlg, rep.Results[0].Algorithm)
	assert.Equal(t, classo.DR, rep.Results[1].Algorithm)
}

func TestCompareTrivial(t *testing.T) {
	rep, err := Compare(context.Background(), problem(t, classo.R2), 1, nil, 0)
	require.NoError(t, err)
	for _, res := range rep.Results {
		assert.Equal(t, "Trivial", res.Status)
		assert.Zero(t, res.RelErr)
	}
}

func TestCompareErrors(t *testing.T) {
	p := problem(t, classo.R1)
	p.Config.Tolerance = -1
	_, err := Compare(context.Background(), p, 0.1, nil, 0)
	assert.ErrorIs(t, err, classo.ErrInvalidParameter)

	_, err = Compare(context.Background(), problem(t, classo.R1), 0, nil, 0)
	assert.ErrorIs(t, err, classo.ErrInvalidParameter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Compare(ctx, problem(t, classo.R1), 0.1, nil, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
