// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qcqp

// Point is a candidate solution together with its objective value in
// the model sense and its worst constraint violation.
type Point struct {
	X         []float64 // Candidate location
	Objective float64   // Objective value at X
	Violation float64   // Max constraint violation at X
}

// Strategy solves a model by one algorithmic approach.
// The sub-packages provide implementations with their own tuning knobs,
// each also exposed as a plain function matching StrategyFunc.
type Strategy interface {
	Solve(p *Problem) (*Point, error)
}

// StrategyFunc adapts an ordinary function to the Strategy interface.
type StrategyFunc func(p *Problem) (*Point, error)

// Solve calls f(p).
func (f StrategyFunc) Solve(p *Problem) (*Point, error) { return f(p) }
