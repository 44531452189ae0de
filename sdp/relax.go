// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sdp bounds nonconvex QCQP models through the Shor relaxation.
//
// The quadratic model over 𝐱 is lifted to the symmetric variable
// 𝐗 = [𝐱 1][𝐱 1]ᵀ where every quadratic expression turns affine:
//
//	𝐱ᵀ𝐏𝐱 + 𝐪ᵀ𝐱 + 𝑟 = ⟨[[𝐏, 𝐪/2], [𝐪ᵀ/2, 𝑟]], 𝐗⟩
//
// Dropping the rank-one requirement and keeping 𝐗 ⪰ 0 with the corner
// pinned to one yields a semidefinite program whose value bounds the
// model from below (above for maximization after sign correction).
// The corner column of the solved 𝐗 doubles as a point estimate that
// is exact whenever the relaxation is tight.
package sdp

import (
	"errors"

	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/qcqp"
	"github.com/curioloop/qcqp/logger"
)

const (
	zero = 0.0
	one  = 1.0
	two  = 2.0
	ten  = 10.0
)

// Status reports how far a conic backend got on the lifted program.
type Status int

const (
	// Optimal the backend converged to its accuracy target.
	Optimal Status = iota
	// Inaccurate the backend stopped early at reduced accuracy,
	// the solution is still usable.
	Inaccurate
	// Unsolved the backend diverged or stalled far from feasibility,
	// typically an infeasible or unbounded relaxation.
	Unsolved
)

// ErrNotSolved reports a relaxation whose backend produced no usable
// lifted solution.
var ErrNotSolved = errors.New("sdp: relaxation not solved")

// LinearCon is one affine restriction ⟨𝐀,𝐗⟩ ⋈ b on the lifted variable.
type LinearCon struct {
	A  *mat.SymDense
	B  float64
	Eq bool
}

// Solution is the outcome of a conic backend on a lifted program.
type Solution struct {
	Status Status
	Iters  int
	Value  float64       // Objective ⟨𝐂,𝐗⟩ at the final iterate
	X      *mat.SymDense // Final iterate, nil when Unsolved
}

// Solver minimizes ⟨𝐂,𝐗⟩ over 𝐗 ⪰ 0 under affine restrictions.
// Implementations report degraded outcomes through Solution.Status and
// reserve errors for malformed input or numeric breakdown.
type Solver interface {
	Solve(c *mat.SymDense, cons []LinearCon) (*Solution, error)
}

// Lift validates the model and builds its Shor relaxation data:
// the lifted objective matrix in canonical minimize sense, the corner
// normalization ⟨𝐄,𝐗⟩ = 1 and one affine restriction per constraint.
func Lift(p *qcqp.Problem) (c *mat.SymDense, cons []LinearCon, err error) {
	if err = p.Check(); err != nil {
		return nil, nil, err
	}

	n := p.N
	obj, _ := p.CanonicalObjective()
	c = lifted(n, obj)

	corner := mat.NewSymDense(n+1, nil)
	corner.SetSym(n, n, one)
	cons = make([]LinearCon, 0, len(p.Constraints)+1)
	cons = append(cons, LinearCon{A: corner, B: one, Eq: true})
	for _, cn := range p.Constraints {
		cons = append(cons, LinearCon{A: lifted(n, cn.Form), Eq: cn.Rel == qcqp.Equality})
	}
	return c, cons, nil
}

// lifted embeds a quadratic form into the block matrix [[𝐏, 𝐪/2], [𝐪ᵀ/2, 𝑟]].
func lifted(n int, f qcqp.Form) *mat.SymDense {
	m := mat.NewSymDense(n+1, nil)
	if f.P != nil {
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				m.SetSym(i, j, f.P.At(i, j))
			}
		}
	}
	if f.Q != nil {
		for i := 0; i < n; i++ {
			m.SetSym(i, n, f.Q[i]/two)
		}
	}
	m.SetSym(n, n, f.R)
	return m
}

// Problem specifies the semidefinite relaxation of a QCQP model.
type Problem struct {
	Model  *qcqp.Problem // The QCQP model to relax
	Solver Solver        // Conic backend (default a Splitting solver)
}

// New validates the model and builds the lifted program.
func (p *Problem) New() (optimizer *Optimizer, err error) {
	model := p.Model
	if model == nil {
		return nil, errors.New("model is required")
	}
	c, cons, err := Lift(model)
	if err != nil {
		return nil, err
	}
	solver := p.Solver
	if solver == nil {
		solver = &Splitting{}
	}
	_, sign := model.CanonicalObjective()
	optimizer = &Optimizer{relaxSpec{
		n: model.N, sign: sign,
		c: c, cons: cons,
		solver: solver, model: model,
	}}
	return
}

type relaxSpec struct {
	// the model dimension
	n int
	// canonical value sign for the model sense
	sign float64
	// lifted objective and restrictions
	c    *mat.SymDense
	cons []LinearCon
	// conic backend
	solver Solver
	// the original model
	model *qcqp.Problem
}

// Optimizer computes the Shor bound of one lifted model.
type Optimizer struct {
	relaxSpec
}

// Result contains the final result of the relaxation.
type Result struct {
	OK      bool          // Whether the backend produced a usable solution.
	Bound   float64       // Relaxation bound in model sense.
	Point   []float64     // Corner column point estimate, nil when not OK.
	Lifted  *mat.SymDense // Lifted solution, nil when not OK.
	Summary               // Relaxation summary.
}

// Summary contains a summary of the relaxation process.
type Summary struct {
	Status  Status // Final backend status.
	NumIter int    // Number of backend iterations performed.
}

// Fit solves the lifted cone program and extracts the point estimate.
// A backend that stops Unsolved still yields the bound value with OK
// false and no point estimate.
func (o *Optimizer) Fit() (*Result, error) {
	sol, err := o.solver.Solve(o.c, o.cons)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Bound:   o.sign * sol.Value,
		Summary: Summary{Status: sol.Status, NumIter: sol.Iters},
	}
	if sol.Status == Unsolved || sol.X == nil {
		log := logger.Logger()
		log.Warn().Int("status", int(sol.Status)).Msg("relaxation not solved, bound only")
		return res, nil
	}

	res.OK = true
	res.Lifted = sol.X
	res.Point = make([]float64, o.n)
	for i := range res.Point {
		res.Point[i] = sol.X.At(i, o.n)
	}
	return res, nil
}

// Solve relaxes the model with default settings and returns the corner
// point estimate as a candidate. It matches qcqp.StrategyFunc and
// reports ErrNotSolved when the backend fails to produce a solution.
// The candidate of a loose relaxation may violate constraints, which
// the returned Point records.
func Solve(model *qcqp.Problem) (*qcqp.Point, error) {
	o, err := (&Problem{Model: model}).New()
	if err != nil {
		return nil, err
	}
	res, err := o.Fit()
	if err != nil {
		return nil, err
	}
	if !res.OK {
		return nil, ErrNotSolved
	}
	return model.Evaluate(res.Point), nil
}
