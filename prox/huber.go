// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prox

import (
	"math"
	"slices"
)

// The Huber function with transition ρ > 0 is quadratic near zero and linear in the tails:
//
//	       ⎧ t²            |t| ≤ ρ
//	𝒉ᵨ(t) = ⎨
//	       ⎩ 2ρ|t| - ρ²    |t| > ρ
//
// It matches t² and its derivative at |t| = ρ, so 𝒉ᵨ → t² as ρ → ∞.
// Setting rho to +Inf turns every function below into its least-squares counterpart.

// Huber returns ∑𝒉ᵨ(rᵢ).
func Huber(r []float64, rho float64) (s float64) {
	for _, t := range r {
		if a := math.Abs(t); a <= rho {
			s += t * t
		} else {
			s += 2*rho*a - rho*rho
		}
	}
	return
}

// HuberGradient stores 𝒉ᵨ′(rᵢ) in dst: 2rᵢ inside the quadratic zone and 2ρ𝚜𝚐𝚗(rᵢ) outside.
// The dst and r may alias.
func HuberGradient(dst, r []float64, rho float64) {
	if len(dst) != len(r) {
		panic("prox: slice length mismatch")
	}
	for i, t := range r {
		switch {
		case t > rho:
			dst[i] = 2 * rho
		case t < -rho:
			dst[i] = -2 * rho
		default:
			dst[i] = 2 * t
		}
	}
}

// HuberProx stores the proximal operator of t𝒉ᵨ at v in dst:
//
//	𝚙𝚛𝚘𝚡(𝐯)ᵢ = argmin 𝒉ᵨ(x) + (x - 𝐯ᵢ)²/2t
//	        = 𝐯ᵢ/(1+2t)          if |𝐯ᵢ| ≤ ρ(1+2t)
//	        = 𝐯ᵢ - 2tρ𝚜𝚐𝚗(𝐯ᵢ)     otherwise
//
// The dst and v may alias.
func HuberProx(dst, v []float64, rho, t float64) {
	if len(dst) != len(v) {
		panic("prox: slice length mismatch")
	}
	shrink := 1 + 2*t
	for i, vi := range v {
		switch {
		case vi > rho*shrink:
			dst[i] = vi - 2*t*rho
		case vi < -rho*shrink:
			dst[i] = vi + 2*t*rho
		default:
			dst[i] = vi / shrink
		}
	}
}

// HuberWeights stores the per-sample weights 𝒉ᵨ′(rᵢ)/2rᵢ in dst:
// 1 inside the quadratic zone and ρ/|rᵢ| outside.
func HuberWeights(dst, r []float64, rho float64) {
	if len(dst) != len(r) {
		panic("prox: slice length mismatch")
	}
	for i, t := range r {
		if a := math.Abs(t); a > rho {
			dst[i] = rho / a
		} else {
			dst[i] = 1
		}
	}
}

// ScaleLS returns the concomitant scale minimizing ‖𝐫‖²/σ + nσ/2, that is σ = √(2/n)‖𝐫‖.
func ScaleLS(r []float64) float64 {
	ss := 0.0
	for _, t := range r {
		ss += t * t
	}
	return math.Sqrt(2 * ss / float64(len(r)))
}

// ScaleHuber returns the concomitant scale σ ≥ 0 minimizing σ∑𝒉ᵨ(rᵢ/σ) + nσ/2.
//
// The derivative in σ is n/2 - ∑𝚖𝚒𝚗(rᵢ²/σ², ρ²) which is non-decreasing.
// When exactly m residuals lie outside the zone |rᵢ| ≤ ρσ, the root is given in closed form by
//
//	σ² = ∑ᵢₙ rᵢ² / (n/2 - mρ²)
//
// so the candidates are scanned by increasing m until one is self-consistent.
// Zero is returned when the derivative is positive everywhere.
func ScaleHuber(r []float64, rho float64) float64 {
	if math.IsInf(rho, 1) {
		return ScaleLS(r)
	}
	n := len(r)
	a := make([]float64, n)
	tail := 0.0
	for i, t := range r {
		a[i] = math.Abs(t)
		tail += t * t
	}
	slices.Sort(a)
	slices.Reverse(a)

	half, rr := float64(n)/2, rho*rho
	for m := 0; m <= n; m++ {
		if m > 0 {
			tail -= a[m-1] * a[m-1]
		}
		den := half - float64(m)*rr
		if den <= 0 {
			break
		}
		s := math.Sqrt(math.Max(tail, 0) / den)
		if (m == n || a[m] <= rho*s) && (m == 0 || a[m-1] >= rho*s) {
			return s
		}
	}

	// Fall back to bisection when rounding breaks the interval test.
	nz := 0
	for _, t := range a {
		if t > 0 {
			nz++
		}
	}
	if float64(nz)*rr <= half {
		return 0
	}
	deriv := func(s float64) float64 {
		d := half
		for _, t := range a {
			d -= math.Min(t*t/(s*s), rr)
		}
		return d
	}
	lo, hi := 0.0, a[0]
	for deriv(hi) < 0 {
		hi *= 2
	}
	for i := 0; i < 200 && hi-lo > 1e-15*hi; i++ {
		mid := (lo + hi) / 2
		if deriv(mid) < 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}
