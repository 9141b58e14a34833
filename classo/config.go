// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classo

import (
	"fmt"
	"math"
)

// Config holds the numeric settings of a problem instance.
// It is copied into every Instance so concurrent solves with different settings never interfere.
type Config struct {
	// The Huber transition ρ > 0, used by R3 and R4 only.
	Rho float64 `yaml:"rho"`
	// The iteration stops when the relative change of the iterate satisfies:
	//   ‖𝛃ₖ₊₁ - 𝛃ₖ‖₂ / 𝚖𝚊𝚡(‖𝛃ₖ₊₁‖₂, 𝚎𝚙𝚜) ≤ 𝚝𝚘𝚕
	// The path algorithm uses it as the relative tolerance of the concomitant fixed point.
	Tolerance float64 `yaml:"tolerance"`
	// The iteration stops when the number of iterations (or path events) exceeds limit.
	MaxIterations int `yaml:"max_iterations"`
	// Build 𝐂 as the 1 × p all-ones row when no constraint matrix is supplied.
	ZeroSum bool `yaml:"zero_sum"`
}

// DefaultConfig returns the classical robust-statistics settings:
// ρ = 1.345, tolerance 1e-6, 100000 iterations and the zero-sum constraint.
func DefaultConfig() Config {
	return Config{
		Rho:           1.345,
		Tolerance:     1e-6,
		MaxIterations: 100000,
		ZeroSum:       true,
	}
}

func (c *Config) validate(form Formulation) (err error) {
	switch {
	case !(c.Tolerance > 0) || math.IsInf(c.Tolerance, 1):
		err = fmt.Errorf("tolerance %v must be positive and finite: %w", c.Tolerance, ErrInvalidParameter)
	case c.MaxIterations <= 0:
		err = fmt.Errorf("max iterations %d must be positive: %w", c.MaxIterations, ErrInvalidParameter)
	case form.Robust() && (!(c.Rho > 0) || math.IsInf(c.Rho, 1)):
		err = fmt.Errorf("rho %v must be positive and finite: %w", c.Rho, ErrInvalidParameter)
	}
	return
}
