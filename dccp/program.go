// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dccp

import (
	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/qcqp"
)

// Term is one difference-of-convex expression convex(𝐱) − 𝐱ᵀ𝐂𝐱.
type Term struct {
	Convex  qcqp.Form     // convex quadratic 𝐱ᵀ𝐏𝐱 + 𝐪ᵀ𝐱 + 𝐫 with 𝐏 ⪰ 0
	Concave *mat.SymDense // correction 𝐂 ⪰ 0 subtracted from the convex side
}

// Value evaluates the difference convex(𝐱) − 𝐱ᵀ𝐂𝐱.
func (t Term) Value(x []float64) float64 {
	v := t.Convex.Eval(x)
	if t.Concave != nil {
		xv := mat.NewVecDense(len(x), x)
		v -= mat.Inner(xv, t.Concave, xv)
	}
	return v
}

// Program is a reformulated difference-of-convex instance.
//
// The objective term is already canonicalized to minimization and every
// restriction term encodes convex(𝐱) ≤ concave(𝐱), so a feasible point has
// Value ≤ 0 on all restrictions. Equality restrictions of the source model
// are lowered to the same one-sided form.
type Program struct {
	N           int
	Sense       qcqp.Sense // sense of the source model, reporting only
	Objective   Term
	Constraints []Term
}

// Reform builds the difference-of-convex program of a quadratic model.
//
// The objective and every restriction matrix are decomposed with Split.
// A maximization objective is negated before splitting and solvers of the
// resulting program always minimize.
func Reform(p *qcqp.Problem) (*Program, error) {

	if err := p.Check(); err != nil {
		return nil, err
	}

	canon, _ := p.CanonicalObjective()
	prog := &Program{
		N:           p.N,
		Sense:       p.Sense,
		Objective:   splitTerm(p.N, canon),
		Constraints: make([]Term, len(p.Constraints)),
	}
	for i, c := range p.Constraints {
		prog.Constraints[i] = splitTerm(p.N, c.Form)
	}
	return prog, nil
}

func splitTerm(n int, f qcqp.Form) Term {
	p := f.P
	if p == nil {
		p = mat.NewSymDense(n, nil)
	}
	convex, correction := Split(p)
	return Term{
		Convex:  qcqp.Form{P: convex, Q: f.Q, R: f.R},
		Concave: correction,
	}
}
