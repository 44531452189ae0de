// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dccp

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/qcqp"
)

func TestReform(t *testing.T) {

	// maximize x² subject to x² = 1
	model := &qcqp.Problem{
		N:         1,
		Sense:     qcqp.Maximize,
		Objective: qcqp.Form{P: mat.NewSymDense(1, []float64{1})},
		Constraints: []qcqp.Constraint{{
			Form: qcqp.Form{P: mat.NewSymDense(1, []float64{1}), R: -1},
			Rel:  qcqp.Equality,
		}},
	}

	prog, err := Reform(model)
	switch {
	case err != nil:
		t.Fatal("TestReform:", err)
	case prog.N != 1 || prog.Sense != qcqp.Maximize || len(prog.Constraints) != 1:
		t.Fatal("TestReform: bad program shape")
	// the canonical objective −x² splits into x² − 2x²
	case !mat.Equal(prog.Objective.Convex.P, mat.NewSymDense(1, []float64{1})):
		t.Fatal("TestReform: bad objective convex part", prog.Objective.Convex.P)
	case !mat.Equal(prog.Objective.Concave, mat.NewSymDense(1, []float64{2})):
		t.Fatal("TestReform: bad objective correction", prog.Objective.Concave)
	// the equality is lowered to the one sided form x² − 1 ≤ 0
	case !almostEqual(prog.Constraints[0].Value([]float64{2}), 3, 1e-12):
		t.Fatal("TestReform: bad restriction value")
	case !almostEqual(prog.Constraints[0].Value([]float64{1}), 0, 1e-12):
		t.Fatal("TestReform: boundary must be tight")
	}

	bad := &qcqp.Problem{N: 1, Objective: qcqp.Form{Q: []float64{math.NaN()}}}
	if _, err := Reform(bad); !errors.Is(err, qcqp.ErrNotQuadratic) {
		t.Fatal("TestReform: expect ErrNotQuadratic", err)
	}
}

func TestFitConvex(t *testing.T) {

	// minimize (x-3)² subject to x² ≤ 1 has its solution on the boundary
	model := &qcqp.Problem{
		N:         1,
		Objective: qcqp.Form{P: mat.NewSymDense(1, []float64{1}), Q: []float64{-6}, R: 9},
		Constraints: []qcqp.Constraint{{
			Form: qcqp.Form{P: mat.NewSymDense(1, []float64{1}), R: -1},
			Rel:  qcqp.LessEqual,
		}},
	}

	pt, err := Solve(model)
	switch {
	case err != nil:
		t.Fatal("TestFitConvex:", err)
	case !almostEqual(pt.X, []float64{1}, 1e-3):
		t.Fatal("TestFitConvex: expect boundary point", pt.X)
	case !almostEqual(pt.Objective, 4, 1e-2):
		t.Fatal("TestFitConvex: bad objective", pt.Objective)
	case pt.Violation > 1e-4:
		t.Fatal("TestFitConvex: point infeasible", pt.Violation)
	}
}

func TestFitNonconvex(t *testing.T) {

	// minimize −x² subject to x² ≤ 4 climbs to the boundary
	model := &qcqp.Problem{
		N:         1,
		Objective: qcqp.Form{P: mat.NewSymDense(1, []float64{-1})},
		Constraints: []qcqp.Constraint{{
			Form: qcqp.Form{P: mat.NewSymDense(1, []float64{1}), R: -4},
			Rel:  qcqp.LessEqual,
		}},
	}

	o, err := (&Problem{Model: model, Solver: &CCP{Tolerance: 1e-4}}).New()
	if err != nil {
		t.Fatal("TestFitNonconvex:", err)
	}
	res, err := o.Fit([]float64{1})
	switch {
	case err != nil:
		t.Fatal("TestFitNonconvex:", err)
	case !res.OK || res.Status != Stationary:
		t.Fatal("TestFitNonconvex: expect settled run", res.Summary)
	case !almostEqual(res.Best.X, []float64{2}, 1e-3):
		t.Fatal("TestFitNonconvex: expect boundary point", res.Best.X)
	case !almostEqual(res.Best.Objective, -4, 1e-2):
		t.Fatal("TestFitNonconvex: bad objective", res.Best.Objective)
	}
}

func TestFitMaximize(t *testing.T) {

	// maximize −(x−3)² subject to x² ≤ 1, reported in the model sense
	model := &qcqp.Problem{
		N:         1,
		Sense:     qcqp.Maximize,
		Objective: qcqp.Form{P: mat.NewSymDense(1, []float64{-1}), Q: []float64{6}, R: -9},
		Constraints: []qcqp.Constraint{{
			Form: qcqp.Form{P: mat.NewSymDense(1, []float64{1}), R: -1},
			Rel:  qcqp.LessEqual,
		}},
	}

	pt, err := Solve(model)
	switch {
	case err != nil:
		t.Fatal("TestFitMaximize:", err)
	case !almostEqual(pt.X, []float64{1}, 1e-3):
		t.Fatal("TestFitMaximize: expect boundary point", pt.X)
	case !almostEqual(pt.Objective, -4, 1e-2):
		t.Fatal("TestFitMaximize: bad model sense objective", pt.Objective)
	}
}

func TestFitLoweredEquality(t *testing.T) {

	// minimize x² subject to x² = 1
	// the one sided reformulation settles at the origin inside the disk,
	// leaving the original equality violated
	model := &qcqp.Problem{
		N:         1,
		Objective: qcqp.Form{P: mat.NewSymDense(1, []float64{1})},
		Constraints: []qcqp.Constraint{{
			Form: qcqp.Form{P: mat.NewSymDense(1, []float64{1}), R: -1},
			Rel:  qcqp.Equality,
		}},
	}

	pt, err := Solve(model)
	switch {
	case err != nil:
		t.Fatal("TestFitLoweredEquality:", err)
	case !almostEqual(pt.X, []float64{0}, 1e-6):
		t.Fatal("TestFitLoweredEquality: expect interior point", pt.X)
	case !almostEqual(pt.Violation, 1, 1e-6):
		t.Fatal("TestFitLoweredEquality: equality must stay violated", pt.Violation)
	}
}

func TestNoSolver(t *testing.T) {

	model := &qcqp.Problem{
		N:         1,
		Objective: qcqp.Form{P: mat.NewSymDense(1, []float64{1})},
	}
	if _, err := (&Problem{Model: model}).New(); !errors.Is(err, ErrNoSolver) {
		t.Fatal("TestNoSolver: expect ErrNoSolver", err)
	}
	if _, err := (&Problem{Solver: &CCP{}}).New(); err == nil {
		t.Fatal("TestNoSolver: expect model rejection")
	}
}

func TestCCPValidate(t *testing.T) {

	prog, err := Reform(&qcqp.Problem{
		N:         1,
		Objective: qcqp.Form{P: mat.NewSymDense(1, []float64{1})},
	})
	if err != nil {
		t.Fatal("TestCCPValidate:", err)
	}

	for _, tc := range []struct {
		name   string
		prog   *Program
		x0     []float64
		solver *CCP
		reason string
	}{
		{"NilProgram", nil, nil, &CCP{}, "program"},
		{"BadStart", prog, []float64{1, 2}, &CCP{}, "start"},
		{"BadRounds", prog, nil, &CCP{MaxIterations: -1}, "round"},
		{"BadSteps", prog, nil, &CCP{InnerIterations: -1}, "step"},
		{"BadSweeps", prog, nil, &CCP{ProjectIterations: -1}, "sweep"},
		{"BadTolerance", prog, nil, &CCP{Tolerance: -1}, "tolerance"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.solver.Solve(tc.prog, tc.x0)
			if err == nil || !strings.Contains(err.Error(), tc.reason) {
				t.Fatal("TestCCPValidate: expect rejection", err)
			}
		})
	}
}

func almostEqual[T float64 | []float64](a, b T, tol float64) bool {
	equalWithinAbs := func(a, b float64) bool {
		return a == b || math.Abs(a-b) <= tol
	}
	switch reflect.TypeFor[T]().Kind() {
	case reflect.Float64:
		return equalWithinAbs(any(a).(float64), any(b).(float64))
	case reflect.Slice:
		a, b := any(a).([]float64), any(b).([]float64)
		if len(a) != len(b) {
			return false
		}
		for i, a := range a {
			if !equalWithinAbs(a, b[i]) {
				return false
			}
		}
		return true
	default:
		panic("unknown type")
	}
}
