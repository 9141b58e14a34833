// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package classo solves sparse linear regression under linear equality constraints:
//
//	minimize    𝑳(𝐗𝛃 - 𝐲) + λ‖𝛃‖₁
//	subject to  𝐂𝛃 = 0
//
// with one of four data fits 𝑳:
//
//	R1  ‖𝐫‖²
//	R2  ‖𝐫‖²/σ + nσ/2              (jointly in 𝛃 and σ > 0)
//	R3  ∑𝒉ᵨ(rᵢ)                    (Huber)
//	R4  σ∑𝒉ᵨ(rᵢ/σ) + nσ/2          (jointly in 𝛃 and σ > 0)
//
// λ is given relative to λₘₐₓ, the smallest value at which 𝛃 = 0 is optimal,
// so every lambda ≥ 1 returns the zero solution.
//
// Four algorithms are available. Path-Alg follows the piecewise-linear solution path
// from λₘₐₓ and is exact up to round-off; DR, P-PDS and PF-PDS are first-order
// splitting methods stopped by Config.Tolerance and Config.MaxIterations.
//
// A Problem is validated once by Problem.New, and the returned Instance is immutable:
// Solve and SolvePath may be called from several goroutines.
package classo
