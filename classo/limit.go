// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classo

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// As σ → 0 the concomitant objectives tend to the linear programs
//
//	R2:  λ‖𝛃‖₁              s.t.  𝐗𝛃 = 𝐲,  𝐂𝛃 = 0
//	R4:  2ρ‖𝐫‖₁ + λ‖𝛃‖₁     s.t.  𝐂𝛃 = 0
//
// Since σ∑𝒉ᵨ(𝐫ᵢ/σ) = 𝚖𝚊𝚡{𝐰ᵀ𝐫 - σ∑𝐰ᵢ²/4 : |𝐰ᵢ| ≤ 2ρ}, minimizing over σ ≥ 0 gives the dual
//
//	𝚖𝚊𝚡 -𝐲ᵀ𝐰   s.t.  ‖𝐗ᵀ𝐰 + 𝐂ᵀ𝛍‖∞ ≤ λ,  |𝐰ᵢ| ≤ 2ρ,  ‖𝐰‖₂² ≤ 2n
//
// so every feasible 𝐰 bounds the optimum from below, and the limit point is optimal
// when a bound meets its objective. The ball is replaced by tangent cuts; scaling an
// iterate into the ball keeps it feasible, the cut program itself bounds the dual from above.

const (
	collapseRatio = 1e-3  // scale relative to σ₀ below which the σ = 0 limit is tried
	maxCuts       = 30    // tangent cuts of the dual ball
	lpTol         = 1e-10 // reduced cost tolerance of the simplex method
)

var errNoLimit = errors.New("classo: residual cannot vanish")

// limitPoint is the σ = 0 limit point of a concomitant formulation.
type limitPoint struct {
	beta []float64
	f    float64   // objective at σ = 0
	gap  float64   // relative gap between f and the best dual bound
	mu   []float64 // constraint multipliers of the best dual bound
}

// boundary solves the σ = 0 limit at absolute penalty lam and reports whether it is optimal.
func (in *Instance) boundary(lam float64) (lim limitPoint, ok bool) {
	beta, err := in.limitPrimal(lam)
	if err != nil {
		if in.logger.enable(LogTrace) {
			in.logger.log("Limit  lambda= %12.5e    %v\n", lam, err)
		}
		return lim, false
	}
	lim = in.certify(beta, lam)
	if in.logger.enable(LogTrace) {
		in.logger.log("Limit  lambda= %12.5e    F= %12.5e    gap= %10.3e\n", lam, lim.f, lim.gap)
	}
	return lim, lim.gap <= in.conf.Tolerance
}

// limitPrimal solves the σ = 0 limit with 𝛃 = 𝐮 - 𝐯 and, for Huber, 𝐫 = 𝐚 - 𝐛:
//
//	𝚖𝚒𝚗 λ𝟏ᵀ(𝐮 + 𝐯) + 2ρ𝟏ᵀ(𝐚 + 𝐛)   s.t.  𝐗(𝐮 - 𝐯) - (𝐚 - 𝐛) = 𝐲,  𝐂(𝐮 - 𝐯) = 0,  𝐮, 𝐯, 𝐚, 𝐛 ≥ 0
func (in *Instance) limitPrimal(lam float64) ([]float64, error) {
	n, p, k := in.n, in.p, in.k
	robust := !math.IsInf(in.loss.rho, 1)
	cols := 2 * p
	if robust {
		cols += 2 * n
	} else if n+k > p {
		// 𝐗𝛃 = 𝐲 has no solution for generic 𝐲
		return nil, errNoLimit
	}

	a := mat.NewDense(n+k, cols, nil)
	c := make([]float64, cols)
	b := make([]float64, n+k)
	copy(b, in.y)
	for j := 0; j < p; j++ {
		c[j], c[p+j] = lam, lam
		for i := 0; i < n; i++ {
			v := in.x.At(i, j)
			a.Set(i, j, v)
			a.Set(i, p+j, -v)
		}
		for i := 0; i < k; i++ {
			v := in.c.At(i, j)
			a.Set(n+i, j, v)
			a.Set(n+i, p+j, -v)
		}
	}
	if robust {
		w := 2 * in.loss.rho
		for i := 0; i < n; i++ {
			c[2*p+i], c[2*p+n+i] = w, w
			a.Set(i, 2*p+i, -1)
			a.Set(i, 2*p+n+i, 1)
		}
	}

	_, x, err := lp.Simplex(c, a, b, lpTol, nil)
	if err != nil {
		return nil, err
	}
	beta := make([]float64, p)
	floats.SubTo(beta, x[:p], x[p:2*p])
	return beta, nil
}

// certify bounds the gap between the σ = 0 objective of beta and the optimum at absolute penalty lam.
//
// Each round solves the dual over the box |𝐰ᵢ| ≤ 𝚖𝚒𝚗(2ρ, √2n) and the cuts so far in standard form
//
//	𝐰 = 𝐰⁺ - 𝐰⁻,  𝛍 = 𝛍⁺ - 𝛍⁻,  one slack per inequality
//
// starting from the all-slack basis, which is feasible since every right-hand side is positive.
func (in *Instance) certify(beta []float64, lam float64) limitPoint {
	n, k := in.n, in.k
	r := in.residual(nil, beta)
	lim := limitPoint{
		beta: beta,
		f:    in.loss.objective(r, beta, lam, 0),
		gap:  math.Inf(1),
		mu:   make([]float64, k),
	}
	if math.IsInf(in.loss.rho, 1) {
		ynorm := floats.Norm(in.y, math.Inf(1))
		if floats.Norm(r, math.Inf(1)) > in.conf.Tolerance*math.Max(ynorm, 1) {
			return lim
		}
	}
	scale := math.Max(math.Abs(lim.f), eps)
	radius := math.Sqrt(2 * float64(n))
	box := math.Min(2*in.loss.rho, radius)

	var cuts [][]float64
	w, mu := make([]float64, n), make([]float64, k)
	for round := 0; round <= maxCuts; round++ {
		upper, err := in.dualBound(w, mu, lam, box, radius, cuts)
		if err != nil {
			break
		}
		s := 1.0
		if nrm := floats.Norm(w, 2); nrm > radius {
			s = radius / nrm
		}
		if lower := -s * floats.Dot(in.y, w); (lim.f-lower)/scale < lim.gap {
			lim.gap = math.Max((lim.f-lower)/scale, 0)
			floats.ScaleTo(lim.mu, s, mu)
		}
		if lim.gap <= in.conf.Tolerance || upper < lim.f-in.conf.Tolerance*scale || s == 1 {
			break
		}
		cut := make([]float64, n)
		floats.ScaleTo(cut, s/radius, w)
		cuts = append(cuts, cut)
	}
	return lim
}

// dualBound solves the outer approximation of the dual, stores its solution in w and mu
// and returns its value, an upper bound on the optimum.
func (in *Instance) dualBound(w, mu []float64, lam, box, radius float64, cuts [][]float64) (float64, error) {
	n, p, k := in.n, in.p, in.k
	vars := 2*n + 2*k
	rows := 2*p + 2*n + len(cuts)
	a := mat.NewDense(rows, vars+rows, nil)
	b := make([]float64, rows)
	c := make([]float64, vars+rows)
	basic := make([]int, rows)

	for j := 0; j < p; j++ {
		for i := 0; i < n; i++ {
			v := in.x.At(i, j)
			a.Set(j, i, v)
			a.Set(j, n+i, -v)
			a.Set(p+j, i, -v)
			a.Set(p+j, n+i, v)
		}
		for i := 0; i < k; i++ {
			v := in.c.At(i, j)
			a.Set(j, 2*n+i, v)
			a.Set(j, 2*n+k+i, -v)
			a.Set(p+j, 2*n+i, -v)
			a.Set(p+j, 2*n+k+i, v)
		}
		b[j], b[p+j] = lam, lam
	}
	for i := 0; i < n; i++ {
		a.Set(2*p+i, i, 1)
		a.Set(2*p+n+i, n+i, 1)
		b[2*p+i], b[2*p+n+i] = box, box
		c[i], c[n+i] = in.y[i], -in.y[i]
	}
	for q, g := range cuts {
		row := 2*p + 2*n + q
		for i, v := range g {
			a.Set(row, i, v)
			a.Set(row, n+i, -v)
		}
		b[row] = radius
	}
	for q := range basic {
		a.Set(q, vars+q, 1)
		basic[q] = vars + q
	}

	f, x, err := lp.Simplex(c, a, b, lpTol, basic)
	if err != nil {
		return 0, err
	}
	floats.SubTo(w, x[:n], x[n:2*n])
	floats.SubTo(mu, x[2*n:2*n+k], x[2*n+k:vars])
	return -f, nil
}
