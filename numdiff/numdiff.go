// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package numdiff estimates derivatives of vector functions by finite differences,
// keeping every evaluation inside optional box bounds.
// It is used to cross-check the closed-form gradients of the loss functions and the
// stationarity of the concomitant scale, which lives on the half-line σ ≥ 0.
package numdiff

import (
	"errors"
	"fmt"
	"math"
)

var (
	sqrtEps = math.Sqrt(math.Nextafter(1, 2) - 1)
	cubeEps = math.Cbrt(math.Nextafter(1, 2) - 1)
)

// ErrSpec is returned when a Spec is inconsistent with its arguments.
var ErrSpec = errors.New("numdiff: invalid spec")

// Method selects the difference scheme.
type Method int

const (
	// Forward uses the first order forward difference.
	Forward Method = iota
	// Central uses the central difference in the interior and the second order
	// one-sided difference next to a bound.
	Central
)

func (m Method) String() string {
	switch m {
	case Forward:
		return "Forward"
	case Central:
		return "Central"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// Bound is the closed interval a variable may be evaluated in. NaN ends are unbounded.
type Bound [2]float64

func (b Bound) limits() (lo, hi float64) {
	lo, hi = b[0], b[1]
	if math.IsNaN(lo) {
		lo = math.Inf(-1)
	}
	if math.IsNaN(hi) {
		hi = math.Inf(1)
	}
	return
}

// Spec estimates the M × N Jacobian of Func.
//
// The step for variable i is
//
//	hᵢ = AbsStep                          when AbsStep ≠ 0
//	hᵢ = RelStep·𝚜𝚒𝚐𝚗(xᵢ)·|xᵢ|              when RelStep ≠ 0
//	hᵢ = ε·𝚜𝚒𝚐𝚗(xᵢ)·𝚖𝚊𝚡(1, |xᵢ|)            otherwise
//
// with ε = √𝚎𝚙𝚜 for Forward and ∛𝚎𝚙𝚜 for Central, then shrunk or flipped to fit Bounds.
type Spec struct {
	N, M int
	// Func stores f(x) in y. It must not retain x.
	Func   func(x, y []float64)
	Method Method
	// Bounds on the variables, nil for none.
	Bounds  []Bound
	RelStep float64
	AbsStep float64
	// Store the Jacobian column-major (N × M) instead of row-major (M × N).
	Transpose bool

	f0, f1, f2 []float64
	step       []float64
	oneSided   []bool
}

func (s *Spec) check(dst, x0 []float64) (err error) {
	switch {
	case s.N <= 0 || s.M <= 0:
		err = fmt.Errorf("%w: dimensions %d × %d", ErrSpec, s.M, s.N)
	case s.Method != Forward && s.Method != Central:
		err = fmt.Errorf("%w: unknown method %v", ErrSpec, s.Method)
	case s.Func == nil:
		err = fmt.Errorf("%w: function is required", ErrSpec)
	case len(x0) != s.N:
		err = fmt.Errorf("%w: point has %d entries, want %d", ErrSpec, len(x0), s.N)
	case len(dst) != s.N*s.M:
		err = fmt.Errorf("%w: jacobian has %d entries, want %d", ErrSpec, len(dst), s.N*s.M)
	case s.Bounds != nil && len(s.Bounds) != s.N:
		err = fmt.Errorf("%w: %d bounds for %d variables", ErrSpec, len(s.Bounds), s.N)
	}
	if err != nil {
		return
	}
	for i, b := range s.Bounds {
		lo, hi := b.limits()
		switch {
		case lo > hi:
			return fmt.Errorf("%w: bound %d is empty", ErrSpec, i)
		case x0[i] < lo || x0[i] > hi:
			return fmt.Errorf("%w: variable %d lies outside its bound", ErrSpec, i)
		}
	}

	if len(s.f0) != s.M {
		s.f0, s.f1, s.f2 = make([]float64, s.M), make([]float64, s.M), make([]float64, s.M)
	}
	if len(s.step) != s.N {
		s.step, s.oneSided = make([]float64, s.N), make([]bool, s.N)
	}
	return nil
}

// Jacobian stores the estimated Jacobian at x0 in dst.
// The entries of x0 are perturbed during the evaluation and restored on return.
func (s *Spec) Jacobian(dst, x0 []float64) error {
	if err := s.check(dst, x0); err != nil {
		return err
	}
	s.initStep(x0)
	s.fitBounds(x0)

	f0, f1, f2 := s.f0, s.f1, s.f2
	s.Func(x0, f0)
	for i, h := range s.step {
		xi := x0[i]
		switch {
		case s.Method == Forward:
			x0[i] = xi + h
			s.Func(x0, f1)
			for j := range f0 {
				s.store(dst, i, j, (f1[j]-f0[j])/h)
			}
		case s.oneSided[i]:
			x0[i] = xi + h
			s.Func(x0, f1)
			x0[i] = xi + 2*h
			s.Func(x0, f2)
			for j := range f0 {
				s.store(dst, i, j, (4*f1[j]-3*f0[j]-f2[j])/(2*h))
			}
		default:
			x0[i] = xi - h
			s.Func(x0, f1)
			x0[i] = xi + h
			s.Func(x0, f2)
			for j := range f0 {
				s.store(dst, i, j, (f2[j]-f1[j])/(2*h))
			}
		}
		x0[i] = xi
	}
	return nil
}

// store writes ∂fⱼ/∂xᵢ.
func (s *Spec) store(dst []float64, i, j int, v float64) {
	if s.Transpose {
		dst[i*s.M+j] = v
	} else {
		dst[j*s.N+i] = v
	}
}

func (s *Spec) initStep(x0 []float64) {
	eps := sqrtEps
	if s.Method == Central {
		eps = cubeEps
	}
	for i, v := range x0 {
		h := s.AbsStep
		if h == 0 && s.RelStep != 0 {
			h = math.Copysign(s.RelStep, v) * math.Abs(v)
		}
		// a step lost to rounding falls back to the automatic one
		if h == 0 || (v+h)-v == 0 {
			h = math.Copysign(eps, v) * math.Max(1, math.Abs(v))
		}
		s.step[i] = h
	}
}

// fitBounds keeps x0 ± h inside the bounds: a forward step is flipped or clipped to the
// wider side, a central step becomes one-sided when it does not fit on both sides.
func (s *Spec) fitBounds(x0 []float64) {
	h, one := s.step, s.oneSided
	clear(one)
	if s.Method == Central {
		for i, v := range h {
			h[i] = math.Abs(v)
		}
	}

	for i, b := range s.Bounds {
		lo, hi := b.limits()
		if math.IsInf(lo, -1) && math.IsInf(hi, 1) {
			continue
		}
		below, above := x0[i]-lo, hi-x0[i]

		if s.Method == Forward {
			x := x0[i] + h[i]
			fits := math.Abs(h[i]) < math.Max(below, above)
			switch {
			case (x < lo || x > hi) && fits:
				h[i] = -h[i]
			case !fits && above >= below:
				h[i] = above
			case !fits:
				h[i] = -below
			}
			continue
		}

		if below >= h[i] && above >= h[i] {
			continue
		}
		if above >= below {
			h[i] = math.Min(h[i], above/2)
		} else {
			h[i] = -math.Min(h[i], below/2)
		}
		one[i] = true
		if near := math.Min(below, above); math.Abs(h[i]) <= near {
			h[i], one[i] = near, false
		}
	}
}

// Gradient returns the gradient of a scalar function at x0.
func Gradient(f func(x []float64) float64, x0 []float64, bounds []Bound) ([]float64, error) {
	s := Spec{
		N: len(x0), M: 1,
		Func:   func(x, y []float64) { y[0] = f(x) },
		Method: Central,
		Bounds: bounds,
	}
	g := make([]float64, len(x0))
	return g, s.Jacobian(g, append([]float64(nil), x0...))
}

// Derivative returns the derivative of a scalar function of one variable at x0 within b.
func Derivative(f func(float64) float64, x0 float64, b Bound) (float64, error) {
	s := Spec{
		N: 1, M: 1,
		Func:   func(x, y []float64) { y[0] = f(x[0]) },
		Method: Central,
		Bounds: []Bound{b},
	}
	d := []float64{0}
	return d[0], s.Jacobian(d, []float64{x0})
}
