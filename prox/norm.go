// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prox

import "gonum.org/v1/gonum/mat"

// Spectral returns the largest and smallest singular values of a.
// The smallest one is taken over min(m,n) values, so it is zero for rank-deficient a.
func Spectral(a mat.Matrix) (smax, smin float64) {
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDNone) {
		panic("prox: singular value decomposition failed")
	}
	sv := svd.Values(nil)
	return sv[0], sv[len(sv)-1]
}
