// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qcqp

import (
	"errors"
	"fmt"
	"math"

	"github.com/curioloop/qcqp/logger"
)

var (
	// ErrNotQuadratic reports coefficients that are NaN or infinite,
	// so the expression is not a finite quadratic.
	ErrNotQuadratic = errors.New("qcqp: expression is not a finite quadratic")
	// ErrDimension reports coefficient shapes that disagree with the model dimension.
	ErrDimension = errors.New("qcqp: coefficient dimension mismatch")
)

// Constraint restricts a quadratic expression to be zero or non-positive.
type Constraint struct {
	Form
	Rel Relation
}

// Violation measures how far x is from satisfying the constraint.
// Equality violations count on both sides.
func (c Constraint) Violation(x []float64) float64 {
	v := c.Eval(x)
	if c.Rel == Equality {
		return math.Abs(v)
	}
	return math.Max(v, zero)
}

// Problem is a QCQP model over n flat variables.
type Problem struct {
	N           int          // The model dimension
	Sense       Sense        // Optimization direction
	Objective   Form         // Objective expression
	Constraints []Constraint // Quadratic constraints
}

// Check validates the model shape.
// It returns ErrDimension or ErrNotQuadratic naming the offending part.
// A fully convex model logs a warning since a plain convex solver
// handles it exactly and none of the heuristics is needed.
func (p *Problem) Check() (err error) {
	switch {
	case p.N <= 0:
		err = fmt.Errorf("%w: model dimension %d", ErrDimension, p.N)
	case !p.Objective.sized(p.N):
		err = fmt.Errorf("objective: %w", ErrDimension)
	case !p.Objective.finite():
		err = fmt.Errorf("objective: %w", ErrNotQuadratic)
	}
	if err != nil {
		return
	}
	for i, c := range p.Constraints {
		if !c.sized(p.N) {
			return fmt.Errorf("constraint %d: %w", i, ErrDimension)
		}
		if !c.finite() {
			return fmt.Errorf("constraint %d: %w", i, ErrNotQuadratic)
		}
	}
	if p.Convex() {
		log := logger.Logger()
		log.Warn().Msg("model is already convex: a generic convex solver is exact for it")
	}
	return nil
}

// Convex reports whether the model is a convex program as stated:
// the minimized objective and every inequality are convex
// while every equality is affine.
func (p *Problem) Convex() bool {
	obj, _ := p.CanonicalObjective()
	if !obj.Convex() {
		return false
	}
	for _, c := range p.Constraints {
		switch c.Rel {
		case Equality:
			if c.P != nil && !zeroSym(c.P) {
				return false
			}
		case LessEqual:
			if !c.Convex() {
				return false
			}
		}
	}
	return true
}

// MaxViolation returns the worst constraint violation at x.
func (p *Problem) MaxViolation(x []float64) float64 {
	v := zero
	for _, c := range p.Constraints {
		v = math.Max(v, c.Violation(x))
	}
	return v
}

// CanonicalObjective returns the minimized objective form together with
// the sign mapping canonical values back to the model sense.
// Maximize models negate the form once and report back with sign -1,
// so a canonical value v is published as sign×v.
func (p *Problem) CanonicalObjective() (Form, float64) {
	if p.Sense == Maximize {
		return p.Objective.Neg(), -one
	}
	return p.Objective, one
}

// Evaluate builds the candidate Point for x against the model.
func (p *Problem) Evaluate(x []float64) *Point {
	return &Point{
		X:         x,
		Objective: p.Objective.Eval(x),
		Violation: p.MaxViolation(x),
	}
}
