// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classo

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/classo/prox"
)

// projFreePDS replaces the projection by a multiplier 𝐯 of the constraint:
//
//	𝛃⁺ = 𝚜𝚘𝚏𝚝(𝛃 - τ(∇f(𝛃) + 𝐂ᵀ𝐯), τλ)
//	𝐯⁺ = 𝐯 + σ𝐂(2𝛃⁺ - 𝛃)
//
// The steps satisfy τ(σ‖𝐂‖₂² + 𝐋/2) < 1 with τ = 0.99/𝐋 and σ = 0.99(1/τ - 𝐋/2)/‖𝐂‖₂².
// Its residual also includes the constraint violation ‖𝐂𝛃‖₂ / 𝚖𝚊𝚡(‖𝛃‖₂, 1).
type projFreePDS struct {
	in         *Instance
	tau, sigma float64
	v, vn      []float64 // k
	g, x, t, r []float64 // p, p, p, n
}

func newProjFreePDS(in *Instance) splitter {
	lip := 2 * in.xnorm * in.xnorm
	tau := 0.99 / lip
	return &projFreePDS{
		in:  in,
		tau: tau, sigma: 0.99 * (1/tau - lip/2) / (in.cnorm * in.cnorm),
		v: make([]float64, in.k), vn: make([]float64, in.k),
		g: make([]float64, in.p), x: make([]float64, in.p),
		t: make([]float64, in.p), r: make([]float64, in.n),
	}
}

func (pd *projFreePDS) step(beta []float64, lam, rho float64) float64 {
	in := pd.in

	// 𝛃⁺ = 𝚜𝚘𝚏𝚝(𝛃 - τ(∇f(𝛃) + 𝐂ᵀ𝐯), τλ)
	in.lossGrad(pd.g, in.residual(pd.r, beta), pd.r, rho)
	ctv := mat.NewVecDense(in.p, pd.t)
	ctv.MulVec(in.c.T(), mat.NewVecDense(in.k, pd.v))
	floats.Add(pd.g, pd.t)
	floats.AddScaledTo(pd.x, beta, -pd.tau, pd.g)
	prox.SoftThreshold(pd.x, pd.x, pd.tau*lam)

	// 𝐯⁺ = 𝐯 + σ𝐂(2𝛃⁺ - 𝛃)
	for i := range pd.t {
		pd.t[i] = 2*pd.x[i] - beta[i]
	}
	cx := mat.NewVecDense(in.k, pd.vn)
	cx.MulVec(in.c, mat.NewVecDense(in.p, pd.t))
	floats.Scale(pd.sigma, pd.vn)
	floats.Add(pd.vn, pd.v)

	res := relNorm(pd.vn, pd.v)
	copy(pd.v, pd.vn)
	copy(beta, pd.x)

	// feasibility of the new iterate
	cx.MulVec(in.c, mat.NewVecDense(in.p, beta))
	feas := floats.Norm(pd.vn, 2) / math.Max(floats.Norm(beta, 2), 1)
	return math.Max(res, feas)
}
