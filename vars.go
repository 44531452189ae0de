// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qcqp

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// Var declares a named matrix variable of shape Rows×Cols.
type Var struct {
	Name       string
	Rows, Cols int
}

// VarSet packs a list of matrix variables onto one flat vector.
// Variables follow declaration order, each laid out column-major.
type VarSet struct {
	vars []Var
	offs []int
	n    int
}

// Vars builds the flat packing for the given declarations.
func Vars(vs ...Var) *VarSet {
	s := &VarSet{vars: slices.Repeat(vs, 1), offs: make([]int, len(vs))}
	for i, v := range vs {
		s.offs[i] = s.n
		s.n += v.Rows * v.Cols
	}
	return s
}

// N returns the total flat dimension.
func (s *VarSet) N() int { return s.n }

// Offset returns the flat offset of the k-th variable.
func (s *VarSet) Offset(k int) int { return s.offs[k] }

// Index returns the flat position of element (i,j) of the k-th variable.
func (s *VarSet) Index(k, i, j int) int {
	return s.offs[k] + j*s.vars[k].Rows + i
}

// Assign splits a flat solution vector back into per-variable matrices,
// inverting the column-major packing. Extra trailing values in x beyond
// the packed dimension are ignored, which lets lifted solutions with a
// homogenizing coordinate assign directly.
func (s *VarSet) Assign(x []float64) ([]*mat.Dense, error) {
	if len(x) < s.n {
		return nil, fmt.Errorf("%w: assign %d values to %d slots", ErrDimension, len(x), s.n)
	}
	ms := make([]*mat.Dense, len(s.vars))
	for k, v := range s.vars {
		m := mat.NewDense(v.Rows, v.Cols, nil)
		off := s.offs[k]
		for j := 0; j < v.Cols; j++ {
			for i := 0; i < v.Rows; i++ {
				m.Set(i, j, x[off+j*v.Rows+i])
			}
		}
		ms[k] = m
	}
	return ms, nil
}
