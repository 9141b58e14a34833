// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curioloop/classo/numdiff"
	"github.com/curioloop/classo/prox"
)

func TestParseFormulation(t *testing.T) {
	for _, f := range []Formulation{R1, R2, R3, R4} {
		got, err := ParseFormulation(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	got, err := ParseFormulation("r4")
	require.NoError(t, err)
	assert.Equal(t, R4, got)

	_, err = ParseFormulation("R5")
	assert.ErrorIs(t, err, ErrInvalidParameter)
	assert.Equal(t, "Formulation(9)", Formulation(9).String())

	assert.False(t, R1.Robust() || R1.Concomitant())
	assert.True(t, R2.Concomitant() && !R2.Robust())
	assert.True(t, R3.Robust() && !R3.Concomitant())
	assert.True(t, R4.Robust() && R4.Concomitant())
}

func TestLossModel(t *testing.T) {
	const rho, sigma, lam = 1.345, 0.8, 2.0
	r := []float64{0.3, -1.5, 2.2, -0.1, 4}
	beta := []float64{1, 0, -1}
	n := float64(len(r))

	ls := newLossModel(R1, rho, len(r))
	assert.True(t, math.IsInf(ls.rho, 1))
	assert.InDelta(t, 0.09+2.25+4.84+0.01+16+lam*2, ls.objective(r, beta, lam, 1), 1e-12)
	assert.Equal(t, 1.0, ls.update(r, 0))
	assert.Nil(t, ls.weights(r, ls.rho))
	lr, rr := ls.reduced(lam, sigma)
	assert.Equal(t, lam, lr)
	assert.True(t, math.IsInf(rr, 1))

	// R2 at fixed σ is the R1 data fit divided by σ
	cls := newLossModel(R2, rho, len(r))
	ss := 0.0
	for _, v := range r {
		ss += v * v
	}
	assert.InDelta(t, ss/sigma+n*sigma/2+lam*2, cls.objective(r, beta, lam, sigma), 1e-12)
	lr, _ = cls.reduced(lam, sigma)
	assert.Equal(t, lam*sigma, lr)
	assert.InDelta(t, prox.ScaleLS(r), cls.update(r, 0), 1e-15)
	assert.Equal(t, 1e3, cls.update([]float64{0, 0}, 1e3))

	hub := newLossModel(R3, rho, len(r))
	assert.InDelta(t, prox.Huber(r, rho)+lam*2, hub.objective(r, beta, lam, 1), 1e-12)
	w := hub.weights(r, rho)
	assert.Equal(t, []float64{1, rho / 1.5, rho / 2.2, 1, rho / 4}, w)

	// R4 at fixed σ equals σ∑𝒉ᵨ(rᵢ/σ) + nσ/2
	chub := newLossModel(R4, rho, len(r))
	want := 0.0
	for _, v := range r {
		want += sigma * prox.Huber([]float64{v / sigma}, rho)
	}
	want += n*sigma/2 + lam*2
	assert.InDelta(t, want, chub.objective(r, beta, lam, sigma), 1e-12)
	lr, rr = chub.reduced(lam, sigma)
	assert.Equal(t, lam*sigma, lr)
	assert.Equal(t, rho*sigma, rr)
	assert.InDelta(t, prox.ScaleHuber(r, rho), chub.update(r, 0), 1e-15)

	// σ = 0 keeps only the linear tails of the Huber loss
	assert.InDelta(t, 2*rho*(0.3+1.5+2.2+0.1+4)+lam*2, chub.objective(r, beta, lam, 0), 1e-12)
	assert.Equal(t, lam*2, cls.objective(r, beta, lam, 0))
}

func TestScaleStationary(t *testing.T) {
	r := []float64{0.3, -1.5, 2.2, -0.1, 4}
	beta := []float64{1, 0, -1}
	for _, form := range []Formulation{R2, R4} {
		for _, rho := range []float64{1, 1.345} {
			m := newLossModel(form, rho, len(r))
			s := m.update(r, 0)
			d, err := numdiff.Derivative(func(sigma float64) float64 {
				return m.objective(r, beta, 0.5, sigma)
			}, s, numdiff.Bound{0, math.Inf(1)})
			require.NoError(t, err)
			assert.InDelta(t, 0, d, 1e-7, "%v rho %v", form, rho)
		}
	}
}

func TestLossGradient(t *testing.T) {
	ds := dataset(t)
	for form := R1; form <= R4; form++ {
		in := instance(t, ds, form, PathAlg, DefaultConfig())
		_, rho := in.loss.reduced(1, in.sigma0)
		beta := append([]float64(nil), ds.Beta...)

		g := make([]float64, in.p)
		in.lossGrad(g, in.residual(nil, beta), make([]float64, in.n), rho)
		fd, err := numdiff.Gradient(func(b []float64) float64 {
			return in.loss.value(in.residual(nil, b), rho)
		}, beta, nil)
		require.NoError(t, err)
		assert.InDeltaSlice(t, fd, g, 1e-6, form)
	}
}
