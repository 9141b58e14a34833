// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classo

import "errors"

// Every error returned by this package wraps one of the sentinels below,
// so callers match them with errors.Is.
var (
	// ErrDimensionMismatch is returned by Problem.New when X, y and C have incompatible shapes.
	ErrDimensionMismatch = errors.New("classo: dimension mismatch")

	// ErrInvalidParameter is returned for out-of-range numeric settings, unknown algorithm
	// names, non-finite data, a rank-deficient constraint matrix or an invalid lambda.
	ErrInvalidParameter = errors.New("classo: invalid parameter")

	// ErrPathDegenerate is returned by the path algorithm when the active set stays linearly
	// dependent after perturbation and variable exclusion were both attempted.
	ErrPathDegenerate = errors.New("classo: degenerate solution path")
)
