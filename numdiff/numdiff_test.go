// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package numdiff

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inf(sign int) float64 { return math.Inf(sign) }

// Cases follow scipy/optimize/tests/test__numdiff.py (TestAdjustSchemeToBounds).
func TestFitBounds(t *testing.T) {
	fit := func(s *Spec, x0, h0 []float64) ([]float64, []bool) {
		require.NoError(t, s.check(make([]float64, s.N*s.M), x0))
		copy(s.step, h0)
		s.fitBounds(x0)
		return s.step, s.oneSided
	}

	t.Run("unbounded", func(t *testing.T) {
		x0, h0 := []float64{0, 0, 0}, []float64{0.01, 0.01, 0.01}
		for _, m := range []Method{Forward, Central} {
			h, one := fit(&Spec{N: 3, M: 1, Method: m}, x0, h0)
			assert.Equal(t, h0, h, m)
			assert.Equal(t, []bool{false, false, false}, one, m)
		}
	})

	t.Run("loose", func(t *testing.T) {
		x0, h0 := []float64{0, 0.85, -0.85}, []float64{0.1, 0.1, -0.1}
		b := []Bound{{-1, 1}, {-1, 1}, {-1, 1}}

		h, _ := fit(&Spec{N: 3, M: 1, Method: Forward, Bounds: b}, x0, h0)
		assert.InDeltaSlice(t, h0, h, 1e-15)

		h, one := fit(&Spec{N: 3, M: 1, Method: Central, Bounds: b}, x0, h0)
		assert.InDeltaSlice(t, []float64{0.1, 0.1, 0.1}, h, 1e-15)
		assert.Equal(t, []bool{false, false, false}, one)
	})

	t.Run("tight", func(t *testing.T) {
		x0, h0 := []float64{0, 0.03}, []float64{-0.1, -0.1}
		b := []Bound{{-0.03, 0.05}, {-0.03, 0.05}}

		h, _ := fit(&Spec{N: 2, M: 1, Method: Forward, Bounds: b}, x0, h0)
		assert.InDeltaSlice(t, []float64{0.05, -0.06}, h, 1e-15)

		h, one := fit(&Spec{N: 2, M: 1, Method: Central, Bounds: b}, x0, h0)
		assert.InDeltaSlice(t, []float64{0.03, -0.03}, h, 1e-15)
		assert.Equal(t, []bool{false, true}, one)
	})

	t.Run("nan is unbounded", func(t *testing.T) {
		nan := math.NaN()
		h, one := fit(&Spec{N: 1, M: 1, Method: Central, Bounds: []Bound{{nan, nan}}}, []float64{0}, []float64{0.5})
		assert.Equal(t, []float64{0.5}, h)
		assert.Equal(t, []bool{false}, one)
	})
}

// Cases follow scipy/optimize/tests/test__numdiff.py (test_compute_absolute_step).
func TestInitStep(t *testing.T) {
	x0 := []float64{1e-5, 0, 1, 1e5}
	neg := []float64{-1e-5, 0, -1, -1e5}

	for m, eps := range map[Method]float64{Forward: sqrtEps, Central: cubeEps} {
		s := Spec{N: 4, M: 1, Method: m}
		require.NoError(t, s.check(make([]float64, 4), x0))

		want := []float64{eps, eps, eps, eps * 1e5}
		s.initStep(x0)
		assert.InEpsilonSlice(t, want, s.step, 1e-12, m)

		s.initStep(neg)
		for i := range want {
			want[i] = math.Copysign(want[i], neg[i])
		}
		assert.InEpsilonSlice(t, want, s.step, 1e-12, m)
	}

	for _, rel := range []float64{0.1, 1, 10, 100} {
		s := Spec{N: 4, M: 1, Method: Forward, RelStep: rel}
		require.NoError(t, s.check(make([]float64, 4), x0))
		s.initStep(x0)
		// the zero entry falls back to the automatic step
		assert.InEpsilonSlice(t, []float64{rel * 1e-5, sqrtEps, rel, rel * 1e5}, s.step, 1e-12, rel)
	}
}

// Cases follow scipy/optimize/tests/test__numdiff.py (test_absolute_step_sign).
func TestStepSign(t *testing.T) {
	f := func(x, y []float64) { y[0] = -math.Abs(x[0]+1) + math.Abs(x[1]+1) }

	for _, tc := range []struct {
		step   float64
		bounds []Bound
		want   []float64
	}{
		{1e-8, nil, []float64{-1, 1}},
		{-1e-8, nil, []float64{1, -1}},
		{1e-8, []Bound{{inf(-1), -1}, {inf(-1), -1}}, []float64{1, -1}},
		{-1e-8, []Bound{{-1, inf(1)}, {-1, inf(1)}}, []float64{-1, 1}},
	} {
		s := Spec{N: 2, M: 1, Method: Forward, Func: f, AbsStep: tc.step, Bounds: tc.bounds}
		g := make([]float64, 2)
		require.NoError(t, s.Jacobian(g, []float64{-1, -1}))
		assert.InDeltaSlice(t, tc.want, g, 1e-7, tc.step)
	}
}

func TestJacobian(t *testing.T) {
	type fixture struct {
		name   string
		x0     []float64
		m      int
		f      func(x, y []float64)
		jac    []float64 // row-major
		center float64
	}
	for _, tc := range []fixture{{
		name: "scalar", x0: []float64{1}, m: 1,
		f:   func(x, y []float64) { y[0] = math.Sinh(x[0]) },
		jac: []float64{math.Cosh(1)}, center: 1e-9,
	}, {
		name: "scalar to vector", x0: []float64{0.5}, m: 3,
		f: func(x, y []float64) {
			y[0], y[1], y[2] = x[0]*x[0], math.Tan(x[0]), math.Exp(x[0])
		},
		jac: []float64{1, 1 / (math.Cos(0.5) * math.Cos(0.5)), math.Exp(0.5)}, center: 1e-9,
	}, {
		name: "vector to scalar", x0: []float64{100, -0.5}, m: 1,
		f: func(x, y []float64) { y[0] = math.Sin(x[0]*x[1]) * math.Log(x[0]) },
		jac: []float64{
			-0.5*math.Cos(-50)*math.Log(100) + math.Sin(-50)/100,
			100 * math.Cos(-50) * math.Log(100),
		}, center: 1e-7,
	}, {
		name: "vector to vector", x0: []float64{-0.5, 2}, m: 3,
		f: func(x, y []float64) {
			y[0] = x[0] * math.Sin(x[1])
			y[1] = x[1] * math.Cos(x[0])
			y[2] = x[0] * x[0] * x[0] / math.Sqrt(x[1])
		},
		jac: []float64{
			math.Sin(2), -0.5 * math.Cos(2),
			-2 * math.Sin(-0.5), math.Cos(-0.5),
			0.75 / math.Sqrt(2), 0.0625 * math.Pow(2, -1.5),
		}, center: 1e-8,
	}} {
		t.Run(tc.name, func(t *testing.T) {
			n := len(tc.x0)
			got := make([]float64, n*tc.m)

			s := Spec{N: n, M: tc.m, Func: tc.f, Method: Forward}
			require.NoError(t, s.Jacobian(got, tc.x0))
			assert.InEpsilonSlice(t, tc.jac, got, 1e-6)

			s.Method = Central
			require.NoError(t, s.Jacobian(got, tc.x0))
			assert.InEpsilonSlice(t, tc.jac, got, tc.center)

			s.Transpose = true
			require.NoError(t, s.Jacobian(got, tc.x0))
			for i := 0; i < n; i++ {
				for j := 0; j < tc.m; j++ {
					assert.InEpsilon(t, tc.jac[j*n+i], got[i*tc.m+j], tc.center)
				}
			}
		})
	}
}

func TestOneSided(t *testing.T) {
	// both functions are undefined beyond the bound they sit on
	d, err := Derivative(func(x float64) float64 {
		if x < 1 {
			return math.NaN()
		}
		return math.Sqrt(x)
	}, 1, Bound{1, 2})
	require.NoError(t, err)
	assert.InEpsilon(t, 0.5, d, 1e-8)

	g, err := Gradient(func(x []float64) float64 {
		if x[1] > 1 {
			return math.NaN()
		}
		return x[0]*x[0] + math.Log(x[1])
	}, []float64{1, 1}, []Bound{{math.NaN(), math.NaN()}, {0, 1}})
	require.NoError(t, err)
	assert.InEpsilonSlice(t, []float64{2, 1}, g, 1e-8)
}

func TestInvalidSpec(t *testing.T) {
	f := func(x, y []float64) { y[0] = x[0] }
	for _, s := range []Spec{
		{N: 0, M: 1, Func: f},
		{N: 1, M: 1},
		{N: 1, M: 1, Func: f, Method: Method(7)},
		{N: 1, M: 1, Func: f, Bounds: []Bound{{0, 1}, {0, 1}}},
		{N: 1, M: 1, Func: f, Bounds: []Bound{{1, 0}}},
		{N: 1, M: 1, Func: f, Bounds: []Bound{{2, 3}}},
	} {
		assert.ErrorIs(t, s.Jacobian(make([]float64, 1), []float64{0.5}), ErrSpec, s)
	}

	s := Spec{N: 2, M: 1, Func: f}
	assert.ErrorIs(t, s.Jacobian(make([]float64, 1), []float64{0, 0}), ErrSpec)
	assert.ErrorIs(t, s.Jacobian(make([]float64, 2), []float64{0}), ErrSpec)
}
