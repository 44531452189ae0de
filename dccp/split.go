// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dccp reworks a quadratic program with indefinite forms into a
// difference-of-convex program.
//
// Every expression 𝐱ᵀ𝐏𝐱 + 𝐪ᵀ𝐱 + 𝐫 is split into a convex quadratic minus a
// positive semidefinite correction
//
//	𝐱ᵀ(𝐏+𝑠𝐈)𝐱 + 𝐪ᵀ𝐱 + 𝐫 − 𝑠𝐱ᵀ𝐱   𝑠 = 1−λ₀ when λ₀ < 0
//
// so each restriction reads convex(𝐱) ≤ concave(𝐱) and a convex-concave
// solver can search for a stationary point (Lipp & Boyd, Variations and
// extension of the convex-concave procedure, 2016).
package dccp

import (
	"gonum.org/v1/gonum/mat"
)

const (
	zero = 0.0
	one  = 1.0
	two  = 2.0
)

// Split decomposes a symmetric matrix into a convex part and a correction
// with convex − correction = 𝐏 and both parts positive semidefinite.
//
// A zero matrix splits into two zero matrices and a matrix that is already
// positive semidefinite needs no correction. Otherwise the diagonal is
// shifted by 1−λ₀ where λ₀ is the smallest eigenvalue.
//
// Both returned matrices are freshly allocated and 𝐏 is not retained.
// Split panics when the factorization of 𝐏 fails.
func Split(p *mat.SymDense) (convex, correction *mat.SymDense) {

	n := p.SymmetricDim()
	convex, correction = mat.NewSymDense(n, nil), mat.NewSymDense(n, nil)

	zeroed := true
	for i := 0; i < n && zeroed; i++ {
		for j := i; j < n && zeroed; j++ {
			zeroed = p.At(i, j) == zero
		}
	}
	if zeroed {
		return
	}

	var eig mat.EigenSym
	if !eig.Factorize(p, false) {
		panic("matrix spectral factorization failed")
	}

	convex.CopySym(p)
	if lam := eig.Values(nil)[0]; lam < zero {
		shift := one - lam
		for i := 0; i < n; i++ {
			convex.SetSym(i, i, convex.At(i, i)+shift)
			correction.SetSym(i, i, shift)
		}
	}
	return
}
