// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package prox provides the linear algebra primitives shared by the constrained lasso solvers:
// projection onto the null space of a constraint matrix, proximal operators of the ℓ₁ norm
// and of the Huber function, and the closed-form concomitant scale estimates.
package prox
