// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package qcqp models quadratically constrained quadratic programs.
//
// A QCQP over 𝐱 ∈ ℝⁿ is
//
//	minimize 𝐱ᵀ𝐏₀𝐱 + 𝐪₀ᵀ𝐱 + 𝑟₀ subject to
//	  - equality constraints: 𝐱ᵀ𝐏ᵢ𝐱 + 𝐪ᵢᵀ𝐱 + 𝑟ᵢ = 0  (i ∈ ℰ)
//	  - inequality constraints: 𝐱ᵀ𝐏ᵢ𝐱 + 𝐪ᵢᵀ𝐱 + 𝑟ᵢ ≤ 0  (i ∈ ℐ)
//
// where the 𝐏ᵢ are symmetric but not necessarily definite,
// which makes the problem NP-hard in general.
//
// The package only carries the model. Solution strategies live in the
// sub-packages:
//   - admm searches feasible points with a consensus ADMM heuristic
//   - sdp computes the Shor semidefinite relaxation bound
//   - dccp rewrites the model as a difference-of-convex program
package qcqp

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Entry is one quadratic coefficient in triplet layout.
type Entry struct {
	I, J  int
	Value float64
}

// Form is a scalar quadratic expression 𝐱ᵀ𝐏𝐱 + 𝐪ᵀ𝐱 + 𝑟.
// A nil P or Q stands for zero coefficients of that order.
type Form struct {
	P *mat.SymDense // Quadratic coefficients
	Q []float64     // Linear coefficients
	R float64       // Constant offset
}

// FormOf assembles a quadratic form of dimension n from triplet entries.
// Duplicate triplets accumulate and the assembled matrix is symmetrized,
// so the result evaluates 𝐱ᵀ𝐆𝐱 with 𝐆 = (𝐀+𝐀ᵀ)/2 for the raw triplet
// matrix 𝐀. Triplet indices outside [0,n) panic.
func FormOf(n int, entries []Entry, q []float64, r float64) Form {
	var p *mat.SymDense
	if len(entries) > 0 {
		g := mat.NewDense(n, n, nil)
		for _, e := range entries {
			g.Set(e.I, e.J, g.At(e.I, e.J)+e.Value)
		}
		p = mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				p.SetSym(i, j, (g.At(i, j)+g.At(j, i))/two)
			}
		}
	}
	return Form{P: p, Q: q, R: r}
}

// Eval computes the value of the form at x.
func (f Form) Eval(x []float64) float64 {
	v := f.R
	if f.Q != nil {
		v += floats.Dot(f.Q, x)
	}
	if f.P != nil {
		xv := mat.NewVecDense(len(x), x)
		v += mat.Inner(xv, f.P, xv)
	}
	return v
}

// Gradient stores 2𝐏𝐱 + 𝐪 into g.
func (f Form) Gradient(x, g []float64) {
	if f.P != nil {
		gv := mat.NewVecDense(len(g), g)
		gv.MulVec(f.P, mat.NewVecDense(len(x), x))
		floats.Scale(two, g)
	} else {
		clear(g)
	}
	if f.Q != nil {
		floats.Add(g, f.Q)
	}
}

// Neg returns the negated form -𝐱ᵀ𝐏𝐱 - 𝐪ᵀ𝐱 - 𝑟.
func (f Form) Neg() Form {
	n := Form{R: -f.R}
	if f.P != nil {
		n.P = scaleSym(-one, f.P)
	}
	if f.Q != nil {
		n.Q = floats.ScaleTo(make([]float64, len(f.Q)), -one, f.Q)
	}
	return n
}

// Convex reports whether the quadratic part is positive semidefinite.
func (f Form) Convex() bool {
	if f.P == nil {
		return true
	}
	var es mat.EigenSym
	if !es.Factorize(f.P, false) {
		return false
	}
	return es.Values(nil)[0] >= -psdTol
}

// sized reports whether the coefficient shapes match dimension n.
func (f Form) sized(n int) bool {
	return (f.P == nil || f.P.SymmetricDim() == n) && (f.Q == nil || len(f.Q) == n)
}

// finite reports whether every coefficient is a proper number.
func (f Form) finite() bool {
	if !isFinite(f.R) {
		return false
	}
	for _, v := range f.Q {
		if !isFinite(v) {
			return false
		}
	}
	if f.P != nil {
		n := f.P.SymmetricDim()
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				if !isFinite(f.P.At(i, j)) {
					return false
				}
			}
		}
	}
	return true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// scaleSym returns c×𝐀 as a fresh symmetric matrix.
func scaleSym(c float64, a *mat.SymDense) *mat.SymDense {
	n := a.SymmetricDim()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, c*a.At(i, j))
		}
	}
	return s
}

// zeroSym reports whether every entry of 𝐀 vanishes.
func zeroSym(a *mat.SymDense) bool {
	n := a.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if a.At(i, j) != zero {
				return false
			}
		}
	}
	return true
}
