// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classo

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// splitter performs iterations of a splitting method on the reduced problem.
// Its auxiliary variables persist between lambdas so a path is solved with warm starts.
type splitter interface {
	// step advances one iteration with reduced penalty lam and Huber transition rho,
	// overwrites beta with the new primal iterate and returns the relative residual
	// of the auxiliary variables, which must also fall below the tolerance.
	step(beta []float64, lam, rho float64) (res float64)
}

// splitting adapts a splitter constructor to the solver contract.
type splitting func(in *Instance) splitter

func (f splitting) solve(in *Instance, lambdas []float64) ([]Solution, error) {
	sp := f(in)
	beta := make([]float64, in.p)
	sigma := in.sigma0
	sols := make([]Solution, len(lambdas))
	for i, lam := range lambdas {
		sols[i] = in.iterate(sp, beta, &sigma, lam)
		in.printLast(&sols[i])
	}
	return sols, nil
}

// iterate runs sp from beta until the stopping rule
//
//	‖𝛃ₖ₊₁ - 𝛃ₖ‖₂ / 𝚖𝚊𝚡(‖𝛃ₖ₊₁‖₂, 𝚎𝚙𝚜) ≤ 𝚝𝚘𝚕,   𝚛𝚎𝚜ₖ₊₁ ≤ 𝚝𝚘𝚕
//
// holds or the iteration cap is reached. For R2/R4 the rule ends a reduced solve at fixed σ,
// after which σ is refreshed and the solve restarts until |σₖ₊₁ - σₖ|/σₖ ≤ 𝚝𝚘𝚕.
// beta and sigma are updated in place.
func (in *Instance) iterate(sp splitter, beta []float64, sigma *float64, lambda float64) Solution {
	tol, limit := in.conf.Tolerance, in.conf.MaxIterations
	log := &in.logger
	lam := lambda * in.lmax
	prev := make([]float64, in.p)
	r := make([]float64, in.n)
	sc := scaler{in: in, lam: lam, sigma: *sigma}

	status, k, inner := NotConverged, 0, 0
	lamR, rhoR := in.loss.reduced(lam, sc.sigma)
loop:
	for k < limit {
		k++
		inner++
		copy(prev, beta)
		res := sp.step(beta, lamR, rhoR)

		floats.Sub(prev, beta)
		change := floats.Norm(prev, 2) / math.Max(floats.Norm(beta, 2), eps)

		if log.every(k) {
			f := in.loss.objective(in.residual(r, beta), beta, lam, sc.sigma)
			log.log("At iterate %6d    F= %12.5e    change= %10.3e    res= %10.3e    sigma= %10.4e\n",
				k, f, change, res, sc.sigma)
		}
		if inner == 1 || change > tol || res > tol {
			continue
		}
		if !in.loss.concomitant {
			status = Converged
			break
		}

		switch sc.update(beta) {
		case scaleSettled:
			status = Converged
			break loop
		case scaleBoundary:
			status = Boundary
			copy(beta, sc.point.beta)
			break loop
		case scaleVanished:
			break loop
		}
		lamR, rhoR = in.loss.reduced(lam, sc.sigma)
		inner = 0
	}

	out := sc.sigma
	if status == Boundary {
		out = 0
	}
	if sc.sigma > in.floor {
		*sigma = sc.sigma
	}
	sol := in.finish(append([]float64(nil), beta...), out, lambda)
	sol.NumIter = k
	sol.OK, sol.Status = status == Converged || status == Boundary, status
	return sol
}

// scaleStep is the outcome of a concomitant scale update.
type scaleStep int

const (
	scaleMoved    scaleStep = iota // the reduced problem must be solved again
	scaleSettled                   // σ is a fixed point within tolerance
	scaleBoundary                  // the σ = 0 limit is optimal
	scaleVanished                  // σ reached the floor without a certificate for the limit
)

// scaler alternates between reduced solves and the scale update at one penalty.
// update must only see coefficients of a converged reduced solve.
type scaler struct {
	in     *Instance
	lam    float64 // absolute penalty
	sigma  float64
	change float64
	tried  bool
	point  limitPoint
}

func (s *scaler) update(beta []float64) scaleStep {
	in := s.in
	next := in.loss.update(in.residual(nil, beta), in.floor)
	s.change = math.Abs(next-s.sigma) / s.sigma
	s.sigma = next

	if next <= collapseRatio*in.sigma0 && !s.tried {
		s.tried = true
		if lim, ok := in.boundary(s.lam); ok {
			s.point = lim
			return scaleBoundary
		}
	}
	switch {
	case next <= in.floor:
		return scaleVanished
	case s.change <= in.conf.Tolerance:
		return scaleSettled
	}
	return scaleMoved
}

// eps is the machine epsilon.
var eps = math.Nextafter(1, 2) - 1

// relNorm returns ‖𝐚 - 𝐛‖₂ / 𝚖𝚊𝚡(‖𝐛‖₂, 1).
func relNorm(a, b []float64) float64 {
	return floats.Distance(a, b, 2) / math.Max(floats.Norm(b, 2), 1)
}
