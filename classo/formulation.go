// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classo

import (
	"fmt"
	"math"
	"strings"

	"github.com/curioloop/classo/prox"
)

// Formulation selects the objective minimized subject to 𝐂𝛃 = 0, with residual 𝐫 = 𝐗𝛃 - 𝐲:
//
//	R1:  ‖𝐫‖² + λ‖𝛃‖₁
//	R2:  ‖𝐫‖²/σ + nσ/2 + λ‖𝛃‖₁          (σ > 0)
//	R3:  ∑𝒉ᵨ(𝐫ᵢ) + λ‖𝛃‖₁
//	R4:  σ∑𝒉ᵨ(𝐫ᵢ/σ) + nσ/2 + λ‖𝛃‖₁     (σ > 0)
//
// where 𝒉ᵨ is the Huber function with transition ρ.
type Formulation int

const (
	R1 Formulation = iota + 1 // least squares
	R2                        // concomitant least squares
	R3                        // Huber
	R4                        // concomitant Huber
)

func (f Formulation) String() string {
	switch f {
	case R1:
		return "R1"
	case R2:
		return "R2"
	case R3:
		return "R3"
	case R4:
		return "R4"
	}
	return fmt.Sprintf("Formulation(%d)", int(f))
}

// Robust reports whether the data-fit term is the Huber loss.
func (f Formulation) Robust() bool { return f == R3 || f == R4 }

// Concomitant reports whether a noise scale σ is estimated jointly with 𝛃.
func (f Formulation) Concomitant() bool { return f == R2 || f == R4 }

func (f Formulation) valid() bool { return f >= R1 && f <= R4 }

// ParseFormulation maps "R1".."R4" (case-insensitive) to a Formulation.
func ParseFormulation(s string) (Formulation, error) {
	for f := R1; f <= R4; f++ {
		if strings.EqualFold(s, f.String()) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown formulation %q: %w", s, ErrInvalidParameter)
}

// lossModel holds the per-formulation hooks every solver calls instead of branching on the formulation.
//
// For a fixed σ the concomitant objectives are σ⁻¹ times the reduced problem
//
//	∑𝒉ᵨ'(𝐫ᵢ) + λ'‖𝛃‖₁    with λ' = λσ and ρ' = ρσ
//
// so all solvers work on the reduced problem and refresh σ through update.
type lossModel struct {
	n           int
	rho         float64 // +Inf for least squares
	concomitant bool
}

func newLossModel(form Formulation, rho float64, n int) lossModel {
	m := lossModel{n: n, rho: math.Inf(1), concomitant: form.Concomitant()}
	if form.Robust() {
		m.rho = rho
	}
	return m
}

// reduced returns the penalty and the Huber transition of the reduced problem at scale sigma.
func (m *lossModel) reduced(lam, sigma float64) (lamR, rhoR float64) {
	if !m.concomitant {
		return lam, m.rho
	}
	return lam * sigma, m.rho * sigma
}

// value returns the reduced data-fit term ∑𝒉ᵨ'(𝐫ᵢ).
func (m *lossModel) value(r []float64, rhoR float64) float64 {
	return prox.Huber(r, rhoR)
}

// gradient stores 𝒉ᵨ'′(𝐫) in dst; the gradient in 𝛃 is 𝐗ᵀdst.
func (m *lossModel) gradient(dst, r []float64, rhoR float64) {
	prox.HuberGradient(dst, r, rhoR)
}

// update returns the scale minimizing the objective for residual r, or 1 for fixed-scale formulations.
// The result is floored at floor so the reduced problem never loses its penalty.
func (m *lossModel) update(r []float64, floor float64) float64 {
	if !m.concomitant {
		return 1
	}
	var s float64
	if math.IsInf(m.rho, 1) {
		s = prox.ScaleLS(r)
	} else {
		s = prox.ScaleHuber(r, m.rho)
	}
	return math.Max(s, floor)
}

// objective returns the full objective of the formulation at (𝛃, σ).
// At σ = 0 it is the limit 2ρ‖𝐫‖₁ + λ‖𝛃‖₁, or λ‖𝛃‖₁ for least squares where the limit is finite only at 𝐫 = 0.
func (m *lossModel) objective(r, beta []float64, lam, sigma float64) float64 {
	pen := lam * prox.L1(beta)
	switch {
	case !m.concomitant:
		return prox.Huber(r, m.rho) + pen
	case sigma == 0 && math.IsInf(m.rho, 1):
		return pen
	case sigma == 0:
		return 2*m.rho*prox.L1(r) + pen
	}
	// σ∑𝒉ᵨ(𝐫ᵢ/σ) = ∑𝒉ᵨσ(𝐫ᵢ)/σ
	return prox.Huber(r, m.rho*sigma)/sigma + float64(m.n)*sigma/2 + pen
}

// weights stores the per-sample Huber weights at the reduced transition, or nil for least squares.
func (m *lossModel) weights(r []float64, rhoR float64) []float64 {
	if math.IsInf(m.rho, 1) {
		return nil
	}
	w := make([]float64, len(r))
	prox.HuberWeights(w, r, rhoR)
	return w
}
