// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sdp

import (
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestSplittingTrace(t *testing.T) {

	// minimize ⟨I,X⟩ subject to tr(X) = 1 and X ⪰ 0
	// every feasible point attains the optimum 1
	eye := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	sol, err := (&Splitting{}).Solve(eye, []LinearCon{{A: eye, B: 1, Eq: true}})
	switch {
	case err != nil:
		t.Fatal("TestSplittingTrace:", err)
	case sol.Status != Optimal:
		t.Fatal("TestSplittingTrace: expect Optimal", sol.Status)
	case !almostEqual(sol.Value, 1, 1e-5):
		t.Fatal("TestSplittingTrace: expect unit trace value", sol.Value)
	case sol.X == nil || !almostEqual(mat.Trace(sol.X), 1, 1e-5):
		t.Fatal("TestSplittingTrace: iterate off the simplex")
	}

	var eig mat.EigenSym
	if !eig.Factorize(sol.X, false) {
		t.Fatal("TestSplittingTrace: factorization fail")
	}
	for _, v := range eig.Values(nil) {
		if v < -1e-6 {
			t.Fatal("TestSplittingTrace: iterate left the cone", v)
		}
	}
}

func TestSplittingRank(t *testing.T) {

	// minimize -X01-X10 over unit diagonal recovers the rank one matrix of ones
	c := mat.NewSymDense(2, []float64{0, -1, -1, 0})
	cons := []LinearCon{
		{A: mat.NewSymDense(2, []float64{1, 0, 0, 0}), B: 1, Eq: true},
		{A: mat.NewSymDense(2, []float64{0, 0, 0, 1}), B: 1, Eq: true},
	}
	sol, err := (&Splitting{}).Solve(c, cons)
	switch {
	case err != nil:
		t.Fatal("TestSplittingRank:", err)
	case sol.Status != Optimal:
		t.Fatal("TestSplittingRank: expect Optimal", sol.Status)
	case !almostEqual(sol.Value, -2, 1e-5):
		t.Fatal("TestSplittingRank: expect correlation bound", sol.Value)
	case !almostEqual(sol.X.At(0, 1), 1, 1e-4):
		t.Fatal("TestSplittingRank: expect perfect correlation", sol.X.At(0, 1))
	}
}

func TestSplittingValidate(t *testing.T) {

	eye := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	unit := []LinearCon{{A: eye, B: 1, Eq: true}}

	for _, tc := range []struct {
		name   string
		c      *mat.SymDense
		cons   []LinearCon
		solver *Splitting
		reason string
	}{
		{"NilObjective", nil, unit, &Splitting{}, "objective"},
		{"NoRestriction", eye, nil, &Splitting{}, "restriction"},
		{"BadIterations", eye, unit, &Splitting{MaxIterations: -1}, "iteration"},
		{"BadTolerance", eye, unit, &Splitting{Tolerance: -1}, "tolerance"},
		{"BadRho", eye, unit, &Splitting{Rho: -1}, "penalty"},
		{"BadShape", eye, []LinearCon{{A: mat.NewSymDense(3, nil), B: 1, Eq: true}}, &Splitting{}, "dimension"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.solver.Solve(tc.c, tc.cons)
			if err == nil || !strings.Contains(err.Error(), tc.reason) {
				t.Fatal("TestSplittingValidate: expect rejection", err)
			}
		})
	}
}
