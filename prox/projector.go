// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package prox

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// Projector computes the Euclidean projection onto the null space of a constraint matrix 𝐂 (k × p).
//
// With the singular value decomposition 𝐂 = 𝐔𝚺𝐕ᵀ and 𝚛𝚊𝚗𝚔(𝐂) = r,
// the first r columns 𝐕ᵣ of 𝐕 span the row space of 𝐂 and the remaining p-r columns 𝐍 span its null space:
//
//	𝐏(𝐯) = 𝐯 - 𝐕ᵣ𝐕ᵣᵀ𝐯 = 𝐍𝐍ᵀ𝐯
//
// such that 𝐂𝐏(𝐯) = 0 and 𝐏(𝐏(𝐯)) = 𝐏(𝐯).
// A Projector is immutable after construction and safe for concurrent use.
type Projector struct {
	p, rank int
	row     *mat.Dense // p × r
	null    *mat.Dense // p × (p-r), nil when r = p
	sv      []float64
}

// ErrRankDeficient is returned when the constraint matrix does not have full row rank.
var ErrRankDeficient = errors.New("prox: constraint matrix is rank deficient")

// NewProjector factorizes c and returns its null-space projector.
// The relative tolerance rcond decides the numerical rank: singular values below rcond×σ₁ are treated as zero.
func NewProjector(c mat.Matrix, rcond float64) (*Projector, error) {
	k, p := c.Dims()
	var svd mat.SVD
	if !svd.Factorize(c, mat.SVDFullV) {
		return nil, errors.New("prox: singular value decomposition failed")
	}
	sv := svd.Values(nil)
	rank := 0
	for _, s := range sv {
		if s > rcond*sv[0] {
			rank++
		}
	}
	var v mat.Dense
	svd.VTo(&v)

	pj := &Projector{p: p, rank: rank, sv: sv}
	if rank > 0 {
		pj.row = mat.DenseCopyOf(v.Slice(0, p, 0, rank))
	}
	if rank < p {
		pj.null = mat.DenseCopyOf(v.Slice(0, p, rank, p))
	}
	if rank < k {
		return pj, ErrRankDeficient
	}
	return pj, nil
}

// Rank returns the numerical rank of the constraint matrix.
func (pj *Projector) Rank() int { return pj.rank }

// Null returns the p × (p-r) orthonormal basis 𝐍 of the null space, or nil if the null space is trivial.
// The returned matrix must not be modified.
func (pj *Projector) Null() *mat.Dense { return pj.null }

// Singular returns the singular values of the constraint matrix in decreasing order.
func (pj *Projector) Singular() []float64 { return pj.sv }

// Project stores 𝐏(𝐯) in dst. The dst and v may alias.
func (pj *Projector) Project(dst, v []float64) {
	if len(v) != pj.p || len(dst) != pj.p {
		panic("prox: projector dimension mismatch")
	}
	if pj.rank == 0 {
		copy(dst, v)
		return
	}
	if pj.null == nil {
		for i := range dst {
			dst[i] = 0
		}
		return
	}
	// 𝐭 = 𝐕ᵣᵀ𝐯 , 𝐮 = 𝐕ᵣ𝐭
	var t, u mat.VecDense
	t.MulVec(pj.row.T(), mat.NewVecDense(pj.p, v))
	u.MulVec(pj.row, &t)
	for i, ui := range u.RawVector().Data {
		dst[i] = v[i] - ui
	}
}
