// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qcqp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func ball(r float64) Constraint {
	return Constraint{
		Form: Form{P: mat.NewSymDense(1, []float64{1}), R: -r * r},
		Rel:  LessEqual,
	}
}

func TestProblemCheck(t *testing.T) {

	valid := &Problem{
		N:           1,
		Objective:   Form{P: mat.NewSymDense(1, []float64{1})},
		Constraints: []Constraint{ball(2)},
	}
	require.NoError(t, valid.Check())

	for _, tc := range []struct {
		name   string
		model  *Problem
		target error
		detail string
	}{
		{
			"NoDimension",
			&Problem{},
			ErrDimension, "model dimension",
		},
		{
			"ObjectiveShape",
			&Problem{N: 2, Objective: Form{Q: []float64{1}}},
			ErrDimension, "objective",
		},
		{
			"ObjectiveNaN",
			&Problem{N: 1, Objective: Form{Q: []float64{math.NaN()}}},
			ErrNotQuadratic, "objective",
		},
		{
			"ConstraintShape",
			&Problem{N: 1, Constraints: []Constraint{{Form: Form{P: mat.NewSymDense(2, nil)}}}},
			ErrDimension, "constraint 0",
		},
		{
			"ConstraintInf",
			&Problem{N: 1, Constraints: []Constraint{
				ball(1),
				{Form: Form{R: math.Inf(1)}},
			}},
			ErrNotQuadratic, "constraint 1",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.model.Check()
			require.ErrorIs(t, err, tc.target)
			require.ErrorContains(t, err, tc.detail)
		})
	}
}

func TestConstraintViolation(t *testing.T) {

	eq := Constraint{Form: Form{Q: []float64{1}, R: -1}, Rel: Equality}
	require.InDelta(t, 2, eq.Violation([]float64{3}), 1e-15)
	require.InDelta(t, 2, eq.Violation([]float64{-1}), 1e-15)
	require.InDelta(t, 0, eq.Violation([]float64{1}), 1e-15)

	le := Constraint{Form: Form{Q: []float64{1}, R: -1}, Rel: LessEqual}
	require.InDelta(t, 2, le.Violation([]float64{3}), 1e-15)
	require.InDelta(t, 0, le.Violation([]float64{-1}), 1e-15)
}

func TestCanonicalObjective(t *testing.T) {

	model := &Problem{
		N:         1,
		Sense:     Maximize,
		Objective: Form{P: mat.NewSymDense(1, []float64{1})},
	}
	canon, sign := model.CanonicalObjective()
	require.InDelta(t, -1, sign, 1e-15)
	require.InDelta(t, -4, canon.Eval([]float64{2}), 1e-15)
	// canonical values map back to the model sense through the sign
	require.InDelta(t, model.Objective.Eval([]float64{2}), sign*canon.Eval([]float64{2}), 1e-15)

	model.Sense = Minimize
	canon, sign = model.CanonicalObjective()
	require.InDelta(t, 1, sign, 1e-15)
	require.InDelta(t, 4, canon.Eval([]float64{2}), 1e-15)
}

func TestProblemConvex(t *testing.T) {

	quad := mat.NewSymDense(1, []float64{1})

	convex := &Problem{N: 1, Objective: Form{P: quad}, Constraints: []Constraint{
		ball(1),
		{Form: Form{Q: []float64{1}, R: -1}, Rel: Equality},
	}}
	require.True(t, convex.Convex())

	// a quadratic equality breaks convexity even with a convex matrix
	sphere := &Problem{N: 1, Objective: Form{P: quad}, Constraints: []Constraint{
		{Form: Form{P: quad, R: -1}, Rel: Equality},
	}}
	require.False(t, sphere.Convex())

	// maximizing a convex quadratic is a concave program
	concave := &Problem{N: 1, Sense: Maximize, Objective: Form{P: quad}}
	require.False(t, concave.Convex())
}

func TestEvaluate(t *testing.T) {

	model := &Problem{
		N:           1,
		Objective:   Form{P: mat.NewSymDense(1, []float64{1}), Q: []float64{-2}, R: 1},
		Constraints: []Constraint{ball(2)},
	}
	pt := model.Evaluate([]float64{3})
	require.InDelta(t, 4, pt.Objective, 1e-15)
	require.InDelta(t, 5, pt.Violation, 1e-15)
	require.InDelta(t, 0, model.MaxViolation([]float64{1}), 1e-15)
}

func TestStrategyFunc(t *testing.T) {

	var s Strategy = StrategyFunc(func(p *Problem) (*Point, error) {
		return &Point{X: make([]float64, p.N)}, nil
	})
	pt, err := s.Solve(&Problem{N: 3})
	require.NoError(t, err)
	require.Len(t, pt.X, 3)
}
