// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qcqp

const (
	zero = 0.0
	one  = 1.0
	two  = 2.0
	// psdTol is the spectral slack below which a matrix still counts as positive semidefinite.
	psdTol = 1e-9
)

// Relation tells how a constraint expression relates to zero.
type Relation int

const (
	// Equality the expression must vanish: 𝐱ᵀ𝐏𝐱 + 𝐪ᵀ𝐱 + 𝑟 = 0
	Equality Relation = iota
	// LessEqual the expression is bounded above: 𝐱ᵀ𝐏𝐱 + 𝐪ᵀ𝐱 + 𝑟 ≤ 0
	LessEqual
)

// Sense is the optimization direction of the objective.
type Sense int

const (
	// Minimize searches the smallest objective value.
	Minimize Sense = iota
	// Maximize searches the largest objective value.
	Maximize
)
