// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classo

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Certificate measures how far a solution is from satisfying the optimality conditions.
type Certificate struct {
	// Largest violation of 𝟎 ∈ 𝐗ᵀψ(𝐫) + 𝐂ᵀ𝛍 + λ∂‖𝛃‖₁ divided by the reduced penalty λ.
	// At σ = 0 it is the relative gap between the objective and the best dual bound of the limit.
	Stationarity float64
	// Constraint residual ‖𝐂𝛃‖₂.
	Feasibility float64
	// Relative gap |σ - σ(𝐫)|/σ between the reported scale and its minimizer, zero for R1/R3 and at σ = 0.
	Scale float64
	// Multipliers 𝛍 of the constraint rows.
	Multipliers []float64
	// Coefficients treated as nonzero.
	Support []int
}

// KKT checks a solution against the optimality conditions of the reduced problem without trusting the solver.
// Coefficients with |𝛃ᵢ| ≤ tol are treated as zero. The multipliers are the least-squares solution of
//
//	(𝐗ᵀψ(𝐫) + 𝐂ᵀ𝛍)ᵢ = -λ𝚜𝚐𝚗(𝛃ᵢ)   for i in the support
//
// or of 𝐗ᵀψ(𝐫) + 𝐂ᵀ𝛍 = 0 when the support is empty.
func (in *Instance) KKT(sol *Solution, tol float64) Certificate {
	sigma := sol.Sigma
	if !in.loss.concomitant {
		sigma = 1
	} else if sigma == 0 {
		lim := in.certify(sol.Beta, sol.Lambda*in.lmax)
		return Certificate{
			Stationarity: lim.gap,
			Feasibility:  in.feasibility(sol.Beta),
			Multipliers:  lim.mu,
			Support:      sol.Support(tol),
		}
	}
	lam, rho := in.loss.reduced(sol.Lambda*in.lmax, sigma)
	beta := sol.Beta

	r := in.residual(nil, beta)
	g := make([]float64, in.p)
	in.lossGrad(g, r, make([]float64, in.n), rho)

	cert := Certificate{Support: sol.Support(tol)}
	rows := cert.Support
	if len(rows) == 0 {
		rows = make([]int, in.p)
		for j := range rows {
			rows[j] = j
		}
	}

	// 𝐂ᵀ restricted to the rows, against -(𝐠 + λ𝚜𝚐𝚗(𝛃))
	a := mat.NewDense(len(rows), in.k, nil)
	b := mat.NewVecDense(len(rows), nil)
	for q, j := range rows {
		for i := 0; i < in.k; i++ {
			a.Set(q, i, in.c.At(i, j))
		}
		b.SetVec(q, -g[j]-lam*sgn(beta[j]))
	}
	mu := mat.NewVecDense(in.k, nil)
	var svd mat.SVD
	if svd.Factorize(a, mat.SVDThin) {
		if rank := svd.Rank(rankTol); rank > 0 {
			svd.SolveVecTo(mu, b, rank)
		}
	}
	cert.Multipliers = mu.RawVector().Data

	var ctm mat.VecDense
	ctm.MulVec(in.c.T(), mu)
	worst := 0.0
	for j, gj := range g {
		v := gj + ctm.AtVec(j)
		if beta[j] > tol || beta[j] < -tol {
			worst = math.Max(worst, math.Abs(v+lam*sgn(beta[j])))
		} else {
			worst = math.Max(worst, math.Abs(v)-lam)
		}
	}
	cert.Stationarity = worst / lam

	cert.Feasibility = in.feasibility(beta)

	if in.loss.concomitant {
		cert.Scale = math.Abs(sigma-in.loss.update(r, in.floor)) / sigma
	}
	return cert
}

// feasibility returns ‖𝐂𝛃‖₂.
func (in *Instance) feasibility(beta []float64) float64 {
	var cb mat.VecDense
	cb.MulVec(in.c, mat.NewVecDense(in.p, beta))
	return floats.Norm(cb.RawVector().Data, 2)
}
