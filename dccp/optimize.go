// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dccp

import (
	"errors"
	"slices"

	"github.com/curioloop/qcqp"
	"github.com/curioloop/qcqp/logger"
)

// ErrNoSolver reports a reformulation attempt without any DC programming
// solver wired in. The strategy is unavailable, not retryable.
var ErrNoSolver = errors.New("dccp: no DC programming solver available")

// Solution is the outcome of one DC solver run.
type Solution struct {
	Converged bool    // the iterate settled before the round cap
	Iters     int     // linearization rounds taken
	Value     float64 // program objective at X
	X         []float64
}

// Solver searches a stationary point of a difference-of-convex program.
// A nil start lets the solver choose its own.
type Solver interface {
	Solve(prog *Program, x0 []float64) (*Solution, error)
}

type dccpMode int

const (
	// Stationary indicates the solver iterate settled within tolerance.
	Stationary dccpMode = iota
	// IterLimit indicates the round cap fired before the iterate settled.
	IterLimit
)

// Problem specifies the DC reformulation strategy for a QCQP model.
//
// The Solver field is mandatory. Wiring none reports ErrNoSolver so a
// caller can tell a missing capability from a solve failure.
type Problem struct {
	Model  *qcqp.Problem // The QCQP model to solve
	Solver Solver        // The DC programming solver, e.g. &CCP{}
}

type dccpSpec struct {
	n      int      // Dimension of the decision variable
	prog   *Program // Reformulated difference-of-convex program
	solver Solver
	model  *qcqp.Problem
}

// Optimizer searches a stationary point of the reformulated program.
type Optimizer struct {
	dccpSpec
}

// Result holds the point reported by the DC solver.
//
// The point is evaluated against the source model, so Best carries the
// objective in the model sense and the violation of the original
// restrictions. A lowered equality may stay violated at a stationary point.
type Result struct {
	OK   bool
	Best *qcqp.Point
	Summary
}

// Summary describes how the reformulation run went.
type Summary struct {
	Status  dccpMode
	NumIter int
}

// New validates the strategy and builds the reformulated program.
func (p *Problem) New() (optimizer *Optimizer, err error) {

	model := p.Model
	switch {
	case model == nil:
		return nil, errors.New("model is required")
	case p.Solver == nil:
		return nil, ErrNoSolver
	}

	prog, err := Reform(model)
	if err != nil {
		return nil, err
	}

	optimizer = &Optimizer{dccpSpec{
		n:      model.N,
		prog:   prog,
		solver: p.Solver,
		model:  model,
	}}
	return
}

// Fit runs the DC solver from the given start point.
// A nil start falls back to the origin.
func (o *Optimizer) Fit(x0 []float64) (*Result, error) {

	if x0 != nil && len(x0) != o.n {
		panic("initial x dimension not match model")
	}
	if x0 != nil {
		x0 = slices.Repeat(x0, 1)
	}

	sol, err := o.solver.Solve(o.prog, x0)
	if err != nil {
		return nil, err
	}

	res := &Result{
		OK:      sol.Converged,
		Best:    o.model.Evaluate(sol.X),
		Summary: Summary{Status: Stationary, NumIter: sol.Iters},
	}
	if !sol.Converged {
		res.Status = IterLimit
	}

	log := logger.Logger()
	log.Info().
		Int("rounds", sol.Iters).
		Float64("objective", res.Best.Objective).
		Float64("violation", res.Best.Violation).
		Msg("stationary point reported")
	if !res.OK {
		log.Warn().Msg("round cap reached before the iterate settled")
	}
	return res, nil
}

// Solve runs the reformulation with the builtin CCP solver from the origin.
//
// It matches qcqp.StrategyFunc. The reported point is returned even when
// the round cap fires, matching the best effort nature of the strategy.
func Solve(model *qcqp.Problem) (*qcqp.Point, error) {
	o, err := (&Problem{Model: model, Solver: &CCP{}}).New()
	if err != nil {
		return nil, err
	}
	res, err := o.Fit(nil)
	if err != nil {
		return nil, err
	}
	return res.Best, nil
}
