// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classo

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/classo/prox"
)

// Data holds the regression inputs. They are copied by Problem.New and never modified.
type Data struct {
	X mat.Matrix // n × p design matrix.
	Y []float64  // n responses.
	C mat.Matrix // k × p constraint matrix with full row rank and k < p, optional when Config.ZeroSum is set.
}

// Problem specifies a constrained sparse regression problem.
type Problem struct {
	Data
	Form      Formulation // Objective, R1 to R4.
	Algorithm Algorithm   // Solver name, see Algorithms.
	Config    Config      // Numeric settings, usually derived from DefaultConfig.
}

// New validates the problem and creates an immutable instance for it.
// A nil logger disables output.
func (p *Problem) New(logger *Logger) (in *Instance, err error) {

	if p.X == nil {
		return nil, fmt.Errorf("design matrix is required: %w", ErrInvalidParameter)
	}
	n, d := p.X.Dims()
	conf, form := p.Config, p.Form

	var c mat.Matrix = p.C
	if c == nil && conf.ZeroSum {
		c = ones(d)
	}

	switch {
	case n == 0 || d == 0:
		err = fmt.Errorf("design matrix is %d × %d: %w", n, d, ErrDimensionMismatch)
	case len(p.Y) != n:
		err = fmt.Errorf("response has %d entries, design has %d rows: %w", len(p.Y), n, ErrDimensionMismatch)
	case c == nil:
		err = fmt.Errorf("constraint matrix is required when zero-sum is disabled: %w", ErrInvalidParameter)
	case !form.valid():
		err = fmt.Errorf("unknown formulation %v: %w", form, ErrInvalidParameter)
	}
	if err != nil {
		return
	}

	k, q := c.Dims()
	switch {
	case q != d:
		err = fmt.Errorf("constraint matrix has %d columns, design has %d: %w", q, d, ErrDimensionMismatch)
	case k >= d:
		err = fmt.Errorf("%d constraints leave no free coefficients among %d: %w", k, d, ErrInvalidParameter)
	case solvers[p.Algorithm] == nil:
		err = fmt.Errorf("unknown algorithm %q: %w", p.Algorithm, ErrInvalidParameter)
	default:
		err = conf.validate(form)
	}
	if err != nil {
		return
	}

	x, cm := mat.DenseCopyOf(p.X), mat.DenseCopyOf(c)
	y := append([]float64(nil), p.Y...)
	switch {
	case !finite(x.RawMatrix().Data):
		err = fmt.Errorf("design matrix has non-finite entries: %w", ErrInvalidParameter)
	case !finite(y):
		err = fmt.Errorf("response has non-finite entries: %w", ErrInvalidParameter)
	case !finite(cm.RawMatrix().Data):
		err = fmt.Errorf("constraint matrix has non-finite entries: %w", ErrInvalidParameter)
	}
	if err != nil {
		return
	}

	proj, perr := prox.NewProjector(cm, rankTol)
	if errors.Is(perr, prox.ErrRankDeficient) {
		return nil, fmt.Errorf("constraint matrix rank %d below %d rows: %w: %w", proj.Rank(), k, ErrInvalidParameter, perr)
	} else if perr != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParameter, perr)
	}

	smax, _ := prox.Spectral(x)
	var xn mat.Dense
	xn.Mul(x, proj.Null())
	xnull, _ := prox.Spectral(&xn)
	in = &Instance{
		n: n, p: d, k: k,
		form:   form,
		algo:   p.Algorithm,
		method: solvers[p.Algorithm],
		loss:   newLossModel(form, conf.Rho, n),
		conf:   conf,
		logger: newLogger(logger),
		x:      x, y: y, c: cm,
		proj:   proj,
		xnorm:  smax,
		cnorm:  proj.Singular()[0],
	}
	in.initScale(xnull <= rankTol*smax)
	return
}

// rankTol is the relative singular value cutoff of the constraint matrix.
const rankTol = 1e-12

func ones(p int) *mat.Dense {
	c := mat.NewDense(1, p, nil)
	for j := 0; j < p; j++ {
		c.Set(0, j, 1)
	}
	return c
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Instance is a validated problem. It is immutable and safe for concurrent solves:
// every call allocates its own iteration state.
type Instance struct {
	n, p, k int
	form    Formulation
	algo    Algorithm
	method  solver
	loss    lossModel
	conf    Config
	logger  Logger

	x    *mat.Dense // n × p
	y    []float64  // n
	c    *mat.Dense // k × p
	proj *prox.Projector

	xnorm  float64 // ‖𝐗‖₂
	cnorm  float64 // ‖𝐂‖₂
	sigma0 float64 // scale at 𝛃 = 0
	lmax   float64 // λₘₐₓ
	floor  float64 // smallest admissible scale
}

// initScale computes the scale at 𝛃 = 0 and λₘₐₓ = ‖𝐗ᵀψ(-𝐲)‖∞/σ₀.
// λₘₐₓ is 0 when flat, that is when 𝐗𝛃 = 0 for every feasible 𝛃 and 𝛃 = 0 is optimal at any penalty.
func (in *Instance) initScale(flat bool) {
	r := make([]float64, in.n)
	floats.ScaleTo(r, -1, in.y)
	in.sigma0 = in.loss.update(r, 0)
	in.floor = in.sigma0 * 1e-12
	if in.sigma0 == 0 || flat {
		return
	}
	_, rhoR := in.loss.reduced(1, in.sigma0)
	g := make([]float64, in.p)
	in.lossGrad(g, r, r, rhoR)
	in.lmax = floats.Norm(g, math.Inf(1)) / in.sigma0
}

// Dims returns the number of samples, coefficients and constraints.
func (in *Instance) Dims() (n, p, k int) { return in.n, in.p, in.k }

// Formulation returns the objective of the instance.
func (in *Instance) Formulation() Formulation { return in.form }

// Algorithm returns the solver name of the instance.
func (in *Instance) Algorithm() Algorithm { return in.algo }

// LambdaMax returns λₘₐₓ, the absolute penalty that lambda = 1 stands for.
// It is 0 when the zero solution is optimal for every lambda.
func (in *Instance) LambdaMax() float64 { return in.lmax }

// Constraint returns a copy of the constraint matrix, built from ones when zero-sum was requested.
func (in *Instance) Constraint() *mat.Dense { return mat.DenseCopyOf(in.c) }

// Solve minimizes the formulation at lambda, given as a fraction of λₘₐₓ.
// Any lambda ≥ 1 yields 𝛃 = 0, as does any lambda when LambdaMax is 0. Reaching the iteration cap is reported by the NotConverged status, not by an error.
func (in *Instance) Solve(lambda float64) (*Solution, error) {
	if err := checkLambda(lambda); err != nil {
		return nil, err
	}
	if lambda >= 1 || in.lmax == 0 {
		sol := in.trivial(lambda)
		return &sol, nil
	}
	sols, err := in.method.solve(in, []float64{lambda})
	if err != nil {
		return nil, err
	}
	return &sols[0], nil
}

func checkLambda(lambda float64) error {
	if !(lambda > 0) || math.IsInf(lambda, 1) {
		return fmt.Errorf("lambda %v must be positive and finite: %w", lambda, ErrInvalidParameter)
	}
	return nil
}

// trivial returns the zero solution at the scale of 𝛃 = 0.
func (in *Instance) trivial(lambda float64) Solution {
	sol := in.finish(make([]float64, in.p), in.sigma0, lambda)
	sol.OK, sol.Status = true, Trivial
	return sol
}

// finish fills the objective, scale and weights of a solution from its coefficients.
func (in *Instance) finish(beta []float64, sigma, lambda float64) Solution {
	r := in.residual(nil, beta)
	if !in.loss.concomitant {
		sigma = 1
	}
	// at σ = 0 only residuals at round-off level count as inliers
	_, rhoR := in.loss.reduced(1, math.Max(sigma, in.floor))
	sol := Solution{
		Beta:    beta,
		Sigma:   sigma,
		Lambda:  lambda,
		F:       in.loss.objective(r, beta, lambda*in.lmax, sigma),
		Weights: in.loss.weights(r, rhoR),
	}
	if in.logger.enable(LogVerbose) {
		in.logger.out("beta = %v\n", beta)
	}
	return sol
}

// residual stores 𝐫 = 𝐗𝛃 - 𝐲 in dst, allocating it when nil.
func (in *Instance) residual(dst, beta []float64) []float64 {
	if dst == nil {
		dst = make([]float64, in.n)
	}
	r := mat.NewVecDense(in.n, dst)
	r.MulVec(in.x, mat.NewVecDense(in.p, beta))
	floats.Sub(dst, in.y)
	return dst
}

// lossGrad stores 𝐗ᵀ𝒉ᵨ'′(𝐫) in dst using buf (n) as scratch. The buf and r may alias.
func (in *Instance) lossGrad(dst, r, buf []float64, rhoR float64) {
	in.loss.gradient(buf, r, rhoR)
	g := mat.NewVecDense(in.p, dst)
	g.MulVec(in.x.T(), mat.NewVecDense(in.n, buf))
}
