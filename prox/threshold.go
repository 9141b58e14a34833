// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prox

import "math"

// SoftThreshold stores the proximal operator of t‖·‖₁ at v in dst:
//
//	𝚜𝚘𝚏𝚝(𝐯,t)ᵢ = 𝚜𝚐𝚗(𝐯ᵢ) × 𝚖𝚊𝚡(|𝐯ᵢ| - t, 0)
//
// The dst and v may alias.
func SoftThreshold(dst, v []float64, t float64) {
	if len(dst) != len(v) {
		panic("prox: slice length mismatch")
	}
	for i, vi := range v {
		switch {
		case vi > t:
			dst[i] = vi - t
		case vi < -t:
			dst[i] = vi + t
		default:
			dst[i] = 0
		}
	}
}

// Clip stores the projection of v onto the ℓ∞ ball of radius t in dst.
//
// By Moreau decomposition 𝚌𝚕𝚒𝚙(𝐯,t) = 𝐯 - 𝚜𝚘𝚏𝚝(𝐯,t), which is the proximal operator of the conjugate of t‖·‖₁.
func Clip(dst, v []float64, t float64) {
	if len(dst) != len(v) {
		panic("prox: slice length mismatch")
	}
	for i, vi := range v {
		dst[i] = math.Max(-t, math.Min(t, vi))
	}
}

// L1 returns ‖𝐯‖₁.
func L1(v []float64) (s float64) {
	for _, vi := range v {
		s += math.Abs(vi)
	}
	return
}
