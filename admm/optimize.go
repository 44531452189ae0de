// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package admm searches feasible points of nonconvex QCQP models with a
// consensus ADMM heuristic.
//
// Each constraint keeps a local copy 𝐱ᵢ of the decision vector and a
// scaled dual 𝐲ᵢ. One iteration fuses the copies through the objective
//
//	(2𝐏₀ + ρM𝐈)𝐳 = ∑ᵢ(ρ𝐱ᵢ - 𝐲ᵢ) - 𝐪₀
//
// then projects 𝐳 + 𝐲ᵢ/ρ back onto every constraint surface with the
// secular solver and takes a dual ascent step. Candidate points are the
// averages 𝐳ₐ = (∑𝐱ᵢ + 𝐳)/(M+1), kept when feasible within tolerance.
// The whole scheme restarts from Gaussian random points, with the
// penalty ρ doubled whenever a trial diverges past the violation limit.
// See Park & Boyd, "General Heuristics for Nonconvex Quadratically
// Constrained Quadratic Programming" (2017), §3.3.
package admm

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/qcqp"
	"github.com/curioloop/qcqp/secular"
)

const (
	zero = 0.0
	one  = 1.0
	two  = 2.0
	five = 5.0
)

type admmMode int

const (
	// HasSolution a feasible point was found within tolerance.
	HasSolution admmMode = iota
	// NoSolution no trial produced a feasible point.
	NoSolution
)

// ErrNoFeasible reports a finished search whose best candidate still
// violates some constraint.
var ErrNoFeasible = errors.New("admm: no feasible point found")

// Problem specifies the consensus ADMM heuristic for a QCQP model.
type Problem struct {
	Model *qcqp.Problem // The QCQP model to solve
	// Number of restarts from random points (default 100)
	Trials int
	// ADMM iterations per trial (default 1000)
	Iterations int
	// Feasibility tolerance on the max violation (default 1e-3)
	Tolerance float64
	// Divergence guard: a trial exceeding it doubles ρ and stops (default 1e10)
	ViolationLimit float64
	// Initial penalty ρ (default derived from the objective curvature)
	Rho float64
	// Random source seed (default nondeterministic)
	Seed uint64
	// Concurrent trials (default 1)
	Workers int
}

// New validates the model and precomputes the spectral factorization of
// every constraint shared by all trials.
func (p *Problem) New() (optimizer *Optimizer, err error) {

	model := p.Model
	if model == nil {
		return nil, errors.New("model is required")
	}
	if err = model.Check(); err != nil {
		return nil, err
	}

	trials, iters, workers := p.Trials, p.Iterations, p.Workers
	tol, lim, rho := p.Tolerance, p.ViolationLimit, p.Rho
	if trials == 0 {
		trials = 100
	}
	if iters == 0 {
		iters = 1000
	}
	if tol == zero {
		tol = 1e-3
	}
	if lim == zero {
		lim = 1e10
	}
	if workers == 0 {
		workers = 1
	}

	switch {
	case len(model.Constraints) == 0:
		err = errors.New("at least one constraint is required")
	case trials < 0:
		err = errors.New("trial number must greater than 0")
	case iters < 0:
		err = errors.New("iteration number must greater than 0")
	case tol <= zero:
		err = errors.New("tolerance must greater than 0")
	case lim <= zero:
		err = errors.New("violation limit must greater than 0")
	case rho < zero:
		err = errors.New("initial rho must not less than 0")
	case workers < 0:
		err = errors.New("worker number must greater than 0")
	}
	if err != nil {
		return nil, err
	}

	obj, sign := model.CanonicalObjective()
	n, m := model.N, len(model.Constraints)

	cons := make([]surface, m)
	for i, c := range model.Constraints {
		a := c.P
		if a == nil {
			a = mat.NewSymDense(n, nil)
		}
		f, ok := secular.NewFactor(a)
		if !ok {
			return nil, errors.New(fmt.Sprintf("constraint %d spectral factorization failed", i))
		}
		cons[i] = surface{f: f, b: c.Q, c: c.R, eq: c.Rel == qcqp.Equality}
	}

	if rho == zero {
		lo := zero
		if obj.P != nil {
			var es mat.EigenSym
			if !es.Factorize(obj.P, false) {
				return nil, errors.New("objective spectral factorization failed")
			}
			lo = es.Values(nil)[0]
		}
		if lo < zero {
			rho = two * (one - lo) / float64(m)
		} else {
			rho = one / float64(m)
		}
		rho *= five
	}

	optimizer = &Optimizer{
		admmSpec{
			n: n, m: m,
			trials:  trials,
			iters:   iters,
			tol:     tol,
			lim:     lim,
			rho:     rho,
			seed:    p.Seed,
			workers: workers,
			sign:    sign,
			obj:     obj,
			cons:    cons,
			model:   model,
		},
	}
	return
}

// surface is one factored constraint set ready for projection.
type surface struct {
	f  *secular.Factor
	b  []float64
	c  float64
	eq bool
}

type admmSpec struct {
	// the model dimension and constraint count
	n, m int
	// restart and iteration limits
	trials, iters int
	// feasibility tolerance and divergence limit
	tol, lim float64
	// initial penalty weight
	rho float64
	// random seed, zero means nondeterministic
	seed uint64
	// concurrent trial count
	workers int
	// canonical value sign for the model sense
	sign float64
	// canonical minimized objective
	obj qcqp.Form
	// factored constraint surfaces
	cons []surface
	// the original model
	model *qcqp.Problem
}

// Optimizer implemented using the consensus ADMM heuristic.
type Optimizer struct {
	admmSpec
}

// Result contains the final result of the heuristic search.
type Result struct {
	OK      bool        // Whether a feasible point was found.
	Best    *qcqp.Point // Best feasible point in model sense, nil when none.
	Summary             // Search summary.
}

// Summary contains a summary of the search process.
type Summary struct {
	Status    admmMode // Final status after all trials.
	BestTrial int      // Trial index that produced the best point, -1 when none.
	NumTrial  int      // Number of trials performed.
	Rho       float64  // Final penalty weight after divergence doubling.
}

// Solve runs the heuristic on the model with default settings.
// It matches qcqp.StrategyFunc and reports ErrNoFeasible when the
// search finishes without a feasible point.
func Solve(model *qcqp.Problem) (*qcqp.Point, error) {
	o, err := (&Problem{Model: model}).New()
	if err != nil {
		return nil, err
	}
	res := o.Fit()
	if !res.OK {
		return nil, ErrNoFeasible
	}
	return res.Best, nil
}
