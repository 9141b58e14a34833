// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// The path algorithm follows the solution of the reduced problem
//
//	min ∑𝒉ᵨ(𝐗𝛃 - 𝐲)ᵢ + λ‖𝛃‖₁   s.t.  𝐂𝛃 = 0
//
// as λ decreases. With active set E, signs 𝐬 and multipliers 𝛍 the optimality conditions read
//
//	𝐜 = 𝐗ᵀψ(𝐫) + 𝐂ᵀ𝛍,   𝐜ⱼ = -λ𝐬ⱼ (j ∈ E),   |𝐜ⱼ| ≤ λ (j ∉ E)
//
// Between events the inlier set I of the Huber loss is fixed, so the path is linear in λ
// and its slope solves the saddle point system
//
//	⎡ 2𝐗ᵢₑᵀ𝐗ᵢₑ  𝐂ᵣₑᵀ ⎤ ⎡ d𝛃ₑ ⎤   ⎡ -𝐬ₑ ⎤
//	⎣   𝐂ᵣₑ      0   ⎦ ⎣ d𝛍ᵣ ⎦ = ⎣  0  ⎦
//
// where R holds linearly independent constraint rows touching E; the other multipliers stay frozen.
// An event occurs when a coefficient reaches zero, a correlation reaches ±λ,
// or a residual crosses ±ρ. Least squares is the case ρ = +∞ with no sample events.

// homotopy implements Path-Alg.
type homotopy struct{}

// knot is a breakpoint of the path at reduced penalty lam.
type knot struct {
	lam  float64
	beta []float64
}

type eventKind int

const (
	evTarget eventKind = iota
	evJoin
	evLeave
	evSample
)

func (k eventKind) String() string {
	return [...]string{"target", "join", "leave", "sample"}[k]
}

const (
	condMax  = 1e12  // largest tolerated condition number of the saddle point system
	ridgeRel = 1e-10 // relative ridge added to a singular Gram block
	orthTol  = 1e-10 // relative residual below which a constraint row is dependent
	maxScale = 1000  // cap of concomitant fixed point iterations
)

func (h homotopy) solve(in *Instance, lambdas []float64) ([]Solution, error) {
	if in.loss.concomitant {
		return h.concomitant(in, lambdas)
	}
	last := lambdas[len(lambdas)-1]
	sw := newSweep(in, in.loss.rho)
	knots, events, err := sw.run(last * in.lmax)
	if err != nil {
		return nil, err
	}
	reached := knots[len(knots)-1].lam
	sols := make([]Solution, len(lambdas))
	for i, lam := range lambdas {
		beta := make([]float64, in.p)
		interpolate(beta, knots, lam*in.lmax)
		sols[i] = in.finish(beta, 1, lam)
		sols[i].NumIter = events
		if lam*in.lmax < reached {
			sols[i].Status = NotConverged
		} else {
			sols[i].OK, sols[i].Status = true, Converged
		}
		in.printLast(&sols[i])
	}
	return sols, nil
}

// concomitant solves R2/R4 at each lambda by the fixed point σₖ₊₁ = σ(𝐫(𝛃(λσₖ, ρσₖ))),
// which is alternating minimization of a jointly convex objective.
// Each lambda starts from the scale of the previous one.
func (h homotopy) concomitant(in *Instance, lambdas []float64) ([]Solution, error) {
	sols := make([]Solution, len(lambdas))
	sigma := in.sigma0
	limit := min(in.conf.MaxIterations, maxScale)
	log := &in.logger

	for i, lam := range lambdas {
		var (
			beta   []float64
			events int
			status = NotConverged
		)
		sc := scaler{in: in, lam: lam * in.lmax, sigma: sigma}
	outer:
		for k := 1; k <= limit; k++ {
			lamR, rhoR := in.loss.reduced(sc.lam, sc.sigma)
			knots, n, err := newSweep(in, rhoR).run(lamR)
			if err != nil {
				return nil, err
			}
			events += n
			end := knots[len(knots)-1]
			beta = end.beta
			if end.lam > lamR {
				break
			}
			step := sc.update(beta)
			if log.every(k) {
				log.log("Scale  %5d    sigma= %12.5e    change= %10.3e    events= %d\n", k, sc.sigma, sc.change, n)
			}
			switch step {
			case scaleSettled:
				status = Converged
				break outer
			case scaleBoundary:
				status, beta = Boundary, sc.point.beta
				break outer
			case scaleVanished:
				break outer
			}
		}

		out := sc.sigma
		if status == Boundary {
			out = 0
		}
		if sc.sigma > in.floor {
			sigma = sc.sigma
		}
		sols[i] = in.finish(beta, out, lam)
		sols[i].NumIter = events
		sols[i].OK, sols[i].Status = status == Converged || status == Boundary, status
		in.printLast(&sols[i])
	}
	return sols, nil
}

// sweep is the state of one homotopy run at a fixed Huber transition.
type sweep struct {
	in      *Instance
	rho     float64
	lam     float64
	beta    []float64 // p
	mu      []float64 // k
	sign    []float64 // p, nonzero on the active set
	active  []int     // active set in joining order
	inlier  []bool    // n
	rows    []int     // independent constraint rows touching the active set
	blocked int       // coefficient excluded from joining until the next event, -1 if none

	r, c, buf  []float64 // n, p, n
	dbeta, dmu []float64 // p, k
	dr, dc     []float64 // n, p
}

func newSweep(in *Instance, rho float64) *sweep {
	n, p, k := in.n, in.p, in.k
	return &sweep{
		in: in, rho: rho,
		beta: make([]float64, p), mu: make([]float64, k), sign: make([]float64, p),
		inlier: make([]bool, n), blocked: -1,
		r: make([]float64, n), c: make([]float64, p), buf: make([]float64, n),
		dbeta: make([]float64, p), dmu: make([]float64, k),
		dr: make([]float64, n), dc: make([]float64, p),
	}
}

// run follows the path from the first breakpoint down to the reduced penalty target.
// The last knot lies above target only when the event cap was reached.
func (s *sweep) run(target float64) (knots []knot, events int, err error) {
	in, log := s.in, &s.in.logger

	s.refresh(true)
	j := floats.MaxIdx(absTo(nil, s.c))
	s.lam = math.Abs(s.c[j])
	knots = append(knots, s.knot())
	if target >= s.lam {
		s.lam = target
		knots[0].lam = target
		return
	}
	s.join(j, -sgn(s.c[j]))
	last := j

	for {
		if err = s.direction(); err != nil {
			return
		}
		delta, id, kind := s.next(target, last)
		s.advance(delta, id, kind)
		if kind == evTarget {
			s.lam = target
			knots = append(knots, s.knot())
			return
		}
		knots = append(knots, s.knot())
		events++
		if log.enable(LogTrace) {
			idx := id
			if kind == evSample {
				idx -= in.p
			}
			log.log("Event  %5d    lambda= %12.5e    %-6s %4d    active= %d\n", events, s.lam, kind, idx, len(s.active))
		}
		if events >= in.conf.MaxIterations {
			return
		}
		s.blocked = -1
		switch kind {
		case evJoin:
			s.join(id, s.sideOf(id))
		case evLeave:
			s.leave(id)
		case evSample:
			s.inlier[id-in.p] = !s.inlier[id-in.p]
		}
		last = id
		s.refresh(false)
	}
}

func (s *sweep) knot() knot {
	return knot{lam: s.lam, beta: append([]float64(nil), s.beta...)}
}

// refresh recomputes the residual and the correlations 𝐜 = 𝐗ᵀψ(𝐫) + 𝐂ᵀ𝛍.
// The inlier set is classified from the residual only on the first call;
// afterwards it changes through sample events alone.
func (s *sweep) refresh(classify bool) {
	in := s.in
	in.residual(s.r, s.beta)
	for i, ri := range s.r {
		if classify {
			s.inlier[i] = math.Abs(ri) <= s.rho
		}
		if s.inlier[i] {
			s.buf[i] = 2 * ri
		} else {
			s.buf[i] = 2 * s.rho * sgn(ri)
		}
	}
	c := mat.NewVecDense(in.p, s.c)
	c.MulVec(in.x.T(), mat.NewVecDense(in.n, s.buf))
	if in.k > 0 {
		var cm mat.VecDense
		cm.MulVec(in.c.T(), mat.NewVecDense(in.k, s.mu))
		c.AddVec(c, &cm)
	}
}

func (s *sweep) join(j int, side float64) {
	s.active = append(s.active, j)
	s.sign[j] = side
}

func (s *sweep) leave(j int) {
	for a, e := range s.active {
		if e == j {
			s.active = append(s.active[:a], s.active[a+1:]...)
			break
		}
	}
	s.beta[j], s.sign[j] = 0, 0
}

// sideOf returns the sign a joining coefficient takes: opposite to its correlation.
func (s *sweep) sideOf(j int) float64 {
	return -sgn(s.c[j])
}

// direction computes the slope of the path, resolving a singular system first by a ridge on the Gram block
// and then by dropping the coefficient that joined last.
func (s *sweep) direction() error {
	if s.slope(0) || s.slope(ridgeRel) {
		return nil
	}
	if e := len(s.active); e > 1 {
		if j := s.active[e-1]; s.beta[j] == 0 {
			s.active = s.active[:e-1]
			s.sign[j] = 0
			s.blocked = j
			if s.slope(ridgeRel) {
				return nil
			}
		}
	}
	return fmt.Errorf("%d active coefficients at lambda %.6g: %w", len(s.active), s.lam, ErrPathDegenerate)
}

// slope assembles and solves the saddle point system, reporting false when it is too ill-conditioned.
func (s *sweep) slope(ridge float64) bool {
	in := s.in
	act := s.active
	s.rows = s.independentRows()
	e, m := len(act), len(act)+len(s.rows)

	kkt := mat.NewDense(m, m, nil)
	diag := 0.0
	for a, ja := range act {
		for b := a; b < e; b++ {
			jb := act[b]
			h := 0.0
			for i := 0; i < in.n; i++ {
				if s.inlier[i] {
					h += in.x.At(i, ja) * in.x.At(i, jb)
				}
			}
			kkt.Set(a, b, 2*h)
			kkt.Set(b, a, 2*h)
		}
		diag = math.Max(diag, kkt.At(a, a))
	}
	if ridge > 0 {
		for a := 0; a < e; a++ {
			kkt.Set(a, a, kkt.At(a, a)+ridge*(1+diag))
		}
	}
	for q, row := range s.rows {
		for a, ja := range act {
			v := in.c.At(row, ja)
			kkt.Set(e+q, a, v)
			kkt.Set(a, e+q, v)
		}
	}

	rhs := mat.NewVecDense(m, nil)
	for a, ja := range act {
		rhs.SetVec(a, -s.sign[ja])
	}

	var lu mat.LU
	lu.Factorize(kkt)
	if c := lu.Cond(); math.IsNaN(c) || c > condMax {
		return false
	}
	var d mat.VecDense
	if err := lu.SolveVecTo(&d, false, rhs); err != nil {
		return false
	}

	// Entries at rounding level relative to the solution are exact zeros,
	// as for a coefficient pinned at zero by the constraint.
	cut := 1e-11 * mat.Norm(&d, math.Inf(1))
	clear(s.dbeta)
	clear(s.dmu)
	for a, ja := range act {
		if v := d.AtVec(a); math.Abs(v) > cut {
			s.dbeta[ja] = v
		}
	}
	for q, row := range s.rows {
		s.dmu[row] = d.AtVec(e + q)
	}

	// 𝐝𝐫 = 𝐗d𝛃 ,  𝐝𝐜 = 𝐗ᵀ(2𝐝𝐫 on I) + 𝐂ᵀd𝛍
	dr := mat.NewVecDense(in.n, s.dr)
	dr.MulVec(in.x, mat.NewVecDense(in.p, s.dbeta))
	for i, v := range s.dr {
		if s.inlier[i] {
			s.buf[i] = 2 * v
		} else {
			s.buf[i] = 0
		}
	}
	dc := mat.NewVecDense(in.p, s.dc)
	dc.MulVec(in.x.T(), mat.NewVecDense(in.n, s.buf))
	if in.k > 0 {
		var cm mat.VecDense
		cm.MulVec(in.c.T(), mat.NewVecDense(in.k, s.dmu))
		dc.AddVec(dc, &cm)
	}
	return true
}

// independentRows selects constraint rows touching the active set whose restriction to it
// is linearly independent, by Gram-Schmidt in joining order.
func (s *sweep) independentRows() []int {
	in, act := s.in, s.active
	rows := s.rows[:0]
	var basis [][]float64
	for row := 0; row < in.k; row++ {
		v := make([]float64, len(act))
		for a, j := range act {
			v[a] = in.c.At(row, j)
		}
		norm := floats.Norm(v, 2)
		if norm == 0 {
			continue
		}
		for _, q := range basis {
			floats.AddScaled(v, -floats.Dot(q, v), q)
		}
		if res := floats.Norm(v, 2); res > orthTol*norm {
			floats.Scale(1/res, v)
			basis = append(basis, v)
			rows = append(rows, row)
		}
	}
	return rows
}

// next returns the step Δ in λ to the nearest event, excluding a repeat of the previous event.
// Event ids are coefficient indices for joins and leaves, and p+i for sample i.
func (s *sweep) next(target float64, last int) (delta float64, id int, kind eventKind) {
	in := s.in
	delta, kind = s.lam-target, evTarget

	for _, j := range s.active {
		if j == last || s.beta[j] == 0 || s.dbeta[j] == 0 {
			continue
		}
		if d := s.beta[j] / s.dbeta[j]; d > 0 && d < delta {
			delta, id, kind = d, j, evLeave
		}
	}

	for j := 0; j < in.p; j++ {
		if s.sign[j] != 0 || j == last || j == s.blocked {
			continue
		}
		cj, dj := s.c[j], s.dc[j]
		// 𝐜ⱼ - Δd𝐜ⱼ = ±(λ - Δ)
		if den := 1 - dj; den > 0 {
			if d := math.Max(s.lam-cj, 0) / den; d < delta {
				delta, id, kind = d, j, evJoin
			}
		}
		if den := 1 + dj; den > 0 {
			if d := math.Max(s.lam+cj, 0) / den; d < delta {
				delta, id, kind = d, j, evJoin
			}
		}
	}

	if math.IsInf(s.rho, 1) {
		return
	}
	for i, ri := range s.r {
		dri := s.dr[i]
		if dri == 0 || in.p+i == last {
			continue
		}
		// 𝐫ᵢ - Δd𝐫ᵢ = ±ρ
		for _, b := range [2]float64{s.rho, -s.rho} {
			if d := (ri - b) / dri; d > 0 && d < delta {
				delta, id, kind = d, in.p+i, evSample
			}
		}
	}
	return
}

// advance moves along the path by Δ.
func (s *sweep) advance(delta float64, id int, kind eventKind) {
	floats.AddScaled(s.beta, -delta, s.dbeta)
	floats.AddScaled(s.mu, -delta, s.dmu)
	s.lam -= delta
	if kind == evLeave {
		s.beta[id] = 0
	}
	if kind == evJoin {
		// the correlation used for the sign must be the one at the event
		floats.AddScaled(s.c, -delta, s.dc)
	}
}

func absTo(dst, v []float64) []float64 {
	for _, x := range v {
		dst = append(dst, math.Abs(x))
	}
	return dst
}

func sgn(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

// printLast writes the one-line summary of a finished solve.
func (in *Instance) printLast(sol *Solution) {
	if log := &in.logger; log.enable(LogLast) {
		log.log("%s %s  lambda= %8.4f  F= %12.5e  sigma= %10.4e  nnz= %d  iter= %d  %v\n",
			in.algo, in.form, sol.Lambda, sol.F, sol.Sigma, len(sol.Support(0)), sol.NumIter, sol.Status)
	}
}
