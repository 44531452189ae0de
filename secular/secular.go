// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package secular projects a point onto a single quadratic surface.
//
// The projection is the nonconvex problem
//
//	minimize ‖𝐱 - 𝐳‖² subject to 𝐱ᵀ𝐀𝐱 + 𝐛ᵀ𝐱 + 𝑐 ⋈ 0  (⋈ is = or ≤)
//
// where 𝐀 is symmetric indefinite. By complementary slackness an active
// inequality reduces to the equality case, whose KKT system in the
// eigenbasis 𝐀 = 𝐐𝚲𝐐ᵀ pins the multiplier ν on the secular equation
//
//	φ(ν) = ∑ λᵢx̂ᵢ² + 𝐛̂ᵀ𝐱̂ + 𝑐 = 0 with x̂ᵢ = -(ν𝐛̂ᵢ - 2𝐳̂ᵢ) / 2(1 + νλᵢ)
//
// φ is monotone decreasing between its poles -1/λᵢ, so the root is
// bracketed by the innermost poles and located by plain bisection.
// See Park & Boyd, "General Heuristics for Nonconvex Quadratically
// Constrained Quadratic Programming" (2017), §4.1.
package secular

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	zero = 0.0
	one  = 1.0
	two  = 2.0

	// DefaultTol is the bisection width on the multiplier ν.
	DefaultTol = 1e-6

	// maxExpand caps the exponential bracket growth when a side of the
	// root has no pole. Degenerate constraints such as constant
	// infeasible expressions never produce a sign change, and the cap
	// turns that into a reported failure instead of a spin.
	maxExpand = 200

	// maxBisect caps the bisection steps. The bracket width shrinks
	// geometrically so the cap is never reached for finite input.
	maxBisect = 2048

	// tiny replaces an exactly vanishing denominator of x̂.
	// Interior multipliers keep 1+νλᵢ > 0, so the substitute preserves
	// the sign of φ near a pole.
	tiny = math.SmallestNonzeroFloat64
)

// Factor caches the eigendecomposition of one constraint matrix so that
// projections can be solved repeatedly against moving 𝐳, 𝐛 and 𝑐.
// A Factor is read-only after creation and safe for concurrent use.
type Factor struct {
	n      int
	lambda []float64 // eigenvalues of 𝐀, ascending
	vec    *mat.Dense
}

// NewFactor decomposes the symmetric constraint matrix 𝐀.
// ok is false when the eigendecomposition fails to converge.
func NewFactor(a *mat.SymDense) (f *Factor, ok bool) {
	n := a.SymmetricDim()
	var es mat.EigenSym
	if !es.Factorize(a, true) {
		return nil, false
	}
	f = &Factor{n: n, lambda: es.Values(nil), vec: mat.NewDense(n, n, nil)}
	es.VectorsTo(f.vec)
	return f, true
}

// N returns the dimension of the factored matrix.
func (f *Factor) N() int { return f.n }

// Nearest stores into dst the point of {𝐱 : 𝐱ᵀ𝐀𝐱 + 𝐛ᵀ𝐱 + 𝑐 ⋈ 0} closest
// to z. A nil b stands for zero linear coefficients. When eq is false
// the relation is ≤ and a feasible z is returned unchanged. tol is the
// bisection width on the multiplier.
//
// ok is false and dst is left untouched when no multiplier bracket
// exists, which happens for degenerate constraints that no point can
// activate.
func (f *Factor) Nearest(dst, z, b []float64, c float64, eq bool, tol float64) (ok bool) {

	if len(dst) != f.n || len(z) != f.n || b != nil && len(b) != f.n {
		panic("projection dimension not match factor")
	}

	n := f.n
	zh := make([]float64, n)
	bh := make([]float64, n)
	xh := make([]float64, n)
	toEigen(f.vec, zh, z)
	toEigen(f.vec, bh, b)

	val := c
	for i := range zh {
		val += f.lambda[i]*zh[i]*zh[i] + bh[i]*zh[i]
	}
	if !eq && val <= zero || val == zero {
		copy(dst, z)
		return true
	}

	phi := func(nu float64) float64 {
		v := c
		for i, li := range f.lambda {
			d := two * (one + nu*li)
			if d == zero {
				d = tiny
			}
			xi := -(nu*bh[i] - two*zh[i]) / d
			xh[i] = xi
			v += li*xi*xi + bh[i]*xi
		}
		return v
	}

	// The eigenvalues are ascending, so the innermost poles are
	// -1/λₙ on the left and -1/λ₁ on the right.
	s, e := math.Inf(-1), math.Inf(1)
	if hi := f.lambda[n-1]; hi > zero {
		s = -one / hi
	}
	if lo := f.lambda[0]; lo < zero {
		e = -one / lo
	}
	if math.IsInf(s, -1) {
		s = -one
		for i := 0; phi(s) <= zero; s *= two {
			if i++; i >= maxExpand {
				return false
			}
		}
	}
	if math.IsInf(e, 1) {
		e = one
		for i := 0; phi(e) >= zero; e *= two {
			if i++; i >= maxExpand {
				return false
			}
		}
	}

	for i := 0; e-s > tol && i < maxBisect; i++ {
		m := (s + e) / two
		switch p := phi(m); {
		case p > zero:
			s = m
		case p < zero:
			e = m
		default:
			s, e = m, m
		}
	}

	phi((s + e) / two)
	fromEigen(f.vec, dst, xh)
	return true
}

// Solve projects z onto a single quadratic constraint without keeping
// the factorization around.
func Solve(z []float64, a *mat.SymDense, b []float64, c float64, eq bool, tol float64) ([]float64, bool) {
	f, ok := NewFactor(a)
	if !ok {
		return nil, false
	}
	dst := make([]float64, len(z))
	if !f.Nearest(dst, z, b, c, eq, tol) {
		return nil, false
	}
	return dst, true
}

// toEigen stores 𝐐ᵀ𝐯 into dst.
func toEigen(q *mat.Dense, dst, v []float64) {
	if v == nil {
		clear(dst)
		return
	}
	n := len(dst)
	dv := mat.NewVecDense(n, dst)
	dv.MulVec(q.T(), mat.NewVecDense(n, v))
}

// fromEigen stores 𝐐𝐯 into dst.
func fromEigen(q *mat.Dense, dst, v []float64) {
	n := len(dst)
	dv := mat.NewVecDense(n, dst)
	dv.MulVec(q, mat.NewVecDense(n, v))
}
