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

// douglasRachford splits the reduced problem into
//
//	f₁(𝐮) = ‖𝐁𝐮 - 𝐲‖² + ι(𝐂𝛃 = 0)      f₂(𝐮) = λ‖𝛃‖₁ + 2ρ‖𝐨‖₁
//
// over 𝐮 = (𝛃, 𝐨), using 𝒉ᵨ(t) = 𝚖𝚒𝚗ₒ (t - o)² + 2ρ|o| with 𝐁𝐮 = 𝐗𝛃 - 𝐨.
// Least squares drops the outlier part 𝐨. The recursion with unit relaxation is
//
//	𝐱 = 𝚙𝚛𝚘𝚡(γf₁)(𝐳),   𝐰 = 𝚙𝚛𝚘𝚡(γf₂)(2𝐱 - 𝐳),   𝐳 ← 𝐳 + 𝐰 - 𝐱
//
// Only f₂ depends on λ and ρ, so the factorization of f₁ is shared by every lambda and scale.
// With 𝛃 = 𝐍𝛂 on the null space basis 𝐍, 𝚙𝚛𝚘𝚡(γf₁) solves
//
//	(2𝐀ᵀ𝐀 + 𝐈/γ)(𝛂, 𝐨) = 2𝐀ᵀ𝐲 + (𝐍ᵀ𝐳ᵦ, 𝐳ₒ)/γ     with 𝐀 = [𝐗𝐍, -𝐈]
type douglasRachford struct {
	p, q, m int // coefficients, null space dimension, unknowns of the reduced system
	huber   bool
	gamma   float64
	null    *mat.Dense
	chol    mat.Cholesky
	aty     []float64 // 2𝐀ᵀ𝐲

	z, x, w, v []float64  // p (+n)
	rhs, u     *mat.VecDense // m
	tb         *mat.VecDense // q
	xb         *mat.VecDense // p
}

func newDouglasRachford(in *Instance) splitter {
	n, p := in.n, in.p
	null := in.proj.Null()
	_, q := null.Dims()
	huber := !math.IsInf(in.loss.rho, 1)

	var xn mat.Dense
	xn.Mul(in.x, null)
	smax, smin := prox.Spectral(&xn)
	// any γ > 0 converges; the floor keeps the proximal system well conditioned
	smax = math.Max(smax, 1e-6*in.xnorm)

	dr := &douglasRachford{p: p, q: q, m: q, huber: huber, null: null}
	a := mat.Matrix(&xn)
	if huber {
		dr.m = q + n
		aug := mat.NewDense(n, q+n, nil)
		aug.Slice(0, n, 0, q).(*mat.Dense).Copy(&xn)
		for i := 0; i < n; i++ {
			aug.Set(i, q+i, -1)
		}
		a = aug
		dr.gamma = 1 / (2 * math.Hypot(smax, 1))
	} else {
		dr.gamma = 1 / (2 * smax * math.Max(smin, 0.05*smax))
	}

	k := mat.NewSymDense(dr.m, nil)
	k.SymOuterK(2, a.T())
	for i := 0; i < dr.m; i++ {
		k.SetSym(i, i, k.At(i, i)+1/dr.gamma)
	}
	if !dr.chol.Factorize(k) {
		panic("classo: proximal system is not positive definite")
	}

	dr.aty = make([]float64, dr.m)
	aty := mat.NewVecDense(dr.m, dr.aty)
	aty.MulVec(a.T(), mat.NewVecDense(n, in.y))
	aty.ScaleVec(2, aty)

	size := p
	if huber {
		size += n
	}
	dr.z, dr.x, dr.w, dr.v = make([]float64, size), make([]float64, size), make([]float64, size), make([]float64, size)
	dr.rhs, dr.u = mat.NewVecDense(dr.m, nil), mat.NewVecDense(dr.m, nil)
	dr.tb, dr.xb = mat.NewVecDense(q, nil), mat.NewVecDense(p, dr.x[:p])
	return dr
}

func (dr *douglasRachford) step(beta []float64, lam, rho float64) float64 {
	p, q := dr.p, dr.q

	// 𝐱 = 𝚙𝚛𝚘𝚡(γf₁)(𝐳)
	dr.tb.MulVec(dr.null.T(), mat.NewVecDense(p, dr.z[:p]))
	rhs := dr.rhs.RawVector().Data
	for i := 0; i < q; i++ {
		rhs[i] = dr.aty[i] + dr.tb.AtVec(i)/dr.gamma
	}
	for i := q; i < dr.m; i++ {
		rhs[i] = dr.aty[i] + dr.z[p+i-q]/dr.gamma
	}
	if err := dr.chol.SolveVecTo(dr.u, dr.rhs); err != nil {
		panic(err)
	}
	dr.xb.MulVec(dr.null, dr.u.SliceVec(0, q))
	copy(dr.x[p:], dr.u.RawVector().Data[q:])

	// 𝐰 = 𝚙𝚛𝚘𝚡(γf₂)(2𝐱 - 𝐳)
	floats.ScaleTo(dr.v, 2, dr.x)
	floats.Sub(dr.v, dr.z)
	prox.SoftThreshold(dr.w[:p], dr.v[:p], dr.gamma*lam)
	if dr.huber {
		prox.SoftThreshold(dr.w[p:], dr.v[p:], 2*dr.gamma*rho)
	}

	// 𝐳 ← 𝐳 + 𝐰 - 𝐱
	floats.Add(dr.z, dr.w)
	floats.Sub(dr.z, dr.x)

	copy(beta, dr.x[:p])
	return relNorm(dr.w, dr.x)
}
