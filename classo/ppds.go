// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classo

import (
	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/classo/prox"
)

// projectedPDS is the primal-dual splitting of Condat and Vũ with the constraint handled by projection:
//
//	𝛃⁺ = 𝐏(𝛃 - τ(∇f(𝛃) + 𝐮))
//	𝐮⁺ = 𝚌𝚕𝚒𝚙(𝐮 + σ(2𝛃⁺ - 𝛃), λ)
//
// where ∇f(𝛃) = 𝐗ᵀ𝒉ᵨ′(𝐗𝛃 - 𝐲) is 𝐋-Lipschitz with 𝐋 = 2‖𝐗‖₂², 𝐏 projects onto the null space of 𝐂
// and 𝐮 converges to a subgradient of λ‖𝛃‖₁. The steps τ = 0.99/𝐋 and σ = 𝐋/2 satisfy 1/τ - σ ≥ 𝐋/2.
type projectedPDS struct {
	in         *Instance
	tau, sigma float64
	u, un      []float64 // p
	g, x, r    []float64 // p, p, n
}

func newProjectedPDS(in *Instance) splitter {
	lip := 2 * in.xnorm * in.xnorm
	return &projectedPDS{
		in:  in,
		tau: 0.99 / lip, sigma: lip / 2,
		u: make([]float64, in.p), un: make([]float64, in.p),
		g: make([]float64, in.p), x: make([]float64, in.p), r: make([]float64, in.n),
	}
}

func (pd *projectedPDS) step(beta []float64, lam, rho float64) float64 {
	in := pd.in

	// 𝛃⁺ = 𝐏(𝛃 - τ(∇f(𝛃) + 𝐮))
	in.lossGrad(pd.g, in.residual(pd.r, beta), pd.r, rho)
	floats.Add(pd.g, pd.u)
	floats.AddScaledTo(pd.x, beta, -pd.tau, pd.g)
	in.proj.Project(pd.x, pd.x)

	// 𝐮⁺ = 𝚌𝚕𝚒𝚙(𝐮 + σ(2𝛃⁺ - 𝛃), λ)
	for i := range pd.un {
		pd.un[i] = pd.u[i] + pd.sigma*(2*pd.x[i]-beta[i])
	}
	prox.Clip(pd.un, pd.un, lam)

	res := relNorm(pd.un, pd.u)
	copy(pd.u, pd.un)
	copy(beta, pd.x)
	return res
}
