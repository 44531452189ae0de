// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dccp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/qcqp/logger"
	"github.com/curioloop/qcqp/secular"
)

// CCP is the builtin convex-concave procedure solver.
//
// Each round freezes the concave side of every term at the current iterate,
// leaving a convex quadratic subproblem over an intersection of convex
// quadratic sets. The subproblem is solved by projected gradient descent
// with cyclic Dykstra sweeps, each set projection exact via the secular
// equation. Rounds repeat until the program objective settles.
type CCP struct {
	MaxIterations     int     // linearization rounds, default 50
	InnerIterations   int     // gradient steps per round, default 500
	ProjectIterations int     // Dykstra sweeps per projection, default 100
	Tolerance         float64 // settle tolerance on the objective, default 1e-6
}

// Solve searches a stationary point of the program starting from x0.
// A nil start falls back to the origin.
func (s *CCP) Solve(prog *Program, x0 []float64) (*Solution, error) {

	maxIter, innerIter, projIter, tol := s.MaxIterations, s.InnerIterations, s.ProjectIterations, s.Tolerance
	if maxIter == 0 {
		maxIter = 50
	}
	if innerIter == 0 {
		innerIter = 500
	}
	if projIter == 0 {
		projIter = 100
	}
	if tol == zero {
		tol = 1e-6
	}

	var err error
	switch {
	case prog == nil || prog.N <= 0:
		err = errors.New("reformulated program is required")
	case x0 != nil && len(x0) != prog.N:
		err = errors.New("start dimension not match program")
	case maxIter < 0:
		err = errors.New("round number must greater than 0")
	case innerIter < 0:
		err = errors.New("step number must greater than 0")
	case projIter < 0:
		err = errors.New("sweep number must greater than 0")
	case tol <= zero:
		err = errors.New("tolerance must greater than 0")
	}
	if err != nil {
		return nil, err
	}

	n, m := prog.N, len(prog.Constraints)
	sym := func(a *mat.SymDense) *mat.SymDense {
		if a == nil {
			a = mat.NewSymDense(n, nil)
		}
		return a
	}

	obj := prog.Objective
	pc, cv := sym(obj.Convex.P), sym(obj.Concave)

	// gradient step 1/L from the curvature of the convex objective part
	var eig mat.EigenSym
	if !eig.Factorize(pc, false) {
		return nil, errors.New("objective spectral factorization failed")
	}
	step := one / math.Max(two*eig.Values(nil)[n-1], one)

	factors := make([]*secular.Factor, m)
	cors := make([]*mat.SymDense, m)
	for i, t := range prog.Constraints {
		f, ok := secular.NewFactor(sym(t.Convex.P))
		if !ok {
			return nil, errors.New(fmt.Sprintf("restriction %d spectral factorization failed", i))
		}
		factors[i], cors[i] = f, sym(t.Concave)
	}

	x := make([]float64, n)
	if x0 != nil {
		copy(x, x0)
	}

	var (
		xv   = mat.NewVecDense(n, x)
		mv   = mat.NewVecDense(n, nil)
		qeff = make([]float64, n)
		grad = make([]float64, n)
		next = make([]float64, n)
		w    = make([]float64, n)
		py   = make([]float64, n)
		mark = make([]float64, n)
		bh   = make([][]float64, m)
		ch   = make([]float64, m)
		incs = make([][]float64, m)
	)
	for i := range bh {
		bh[i], incs[i] = make([]float64, n), make([]float64, n)
	}

	project := func(y []float64) {
		if m == 0 {
			return
		}
		for i := range incs {
			clear(incs[i])
		}
		for t := 0; t < projIter; t++ {
			copy(mark, y)
			for i, f := range factors {
				copy(w, y)
				floats.Add(w, incs[i])
				if !f.Nearest(py, w, bh[i], ch[i], false, tol) {
					copy(py, w) // an unsolved projection leaves the sweep point unchanged
				}
				copy(incs[i], w)
				floats.Sub(incs[i], py)
				copy(y, py)
			}
			if floats.Distance(mark, y, 2) <= tol {
				break
			}
		}
	}

	value, iters, settled := math.Inf(1), 0, false
	for k := 1; k <= maxIter; k++ {
		iters = k

		// freeze every concave side at the current iterate
		mv.MulVec(cv, xv)
		copy(qeff, mv.RawVector().Data)
		floats.Scale(-two, qeff)
		if obj.Convex.Q != nil {
			floats.Add(qeff, obj.Convex.Q)
		}
		for i, t := range prog.Constraints {
			mv.MulVec(cors[i], xv)
			copy(bh[i], mv.RawVector().Data)
			floats.Scale(-two, bh[i])
			if t.Convex.Q != nil {
				floats.Add(bh[i], t.Convex.Q)
			}
			ch[i] = t.Convex.R + mat.Inner(xv, cors[i], xv)
		}

		// projected gradient on the convexified subproblem
		for j := 0; j < innerIter; j++ {
			mv.MulVec(pc, xv)
			copy(grad, mv.RawVector().Data)
			floats.Scale(two, grad)
			floats.Add(grad, qeff)
			copy(next, x)
			floats.AddScaled(next, -step, grad)
			project(next)
			moved := floats.Distance(x, next, 2)
			copy(x, next)
			if moved <= tol {
				break
			}
		}

		v := prog.Objective.Value(x)
		if math.Abs(v-value) <= tol {
			value, settled = v, true
			break
		}
		value = v
	}

	log := logger.Logger()
	log.Debug().
		Bool("converged", settled).Int("rounds", iters).Float64("value", value).
		Msg("ccp finished")

	return &Solution{Converged: settled, Iters: iters, Value: value, X: x}, nil
}
