// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sdp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/qcqp/logger"
)

const (
	// penalty weight range of the adaptive rescaling
	rhoMin = 1e-6
	rhoMax = 1e6
	// iterate norm treated as divergence
	divergeLim = 1e9
)

// Splitting is a first-order operator splitting backend for the lifted
// cone program, in the manner of the SCS solver family.
//
// Inequality rows carry nonnegative slacks so the program becomes
//
//	minimize ⟨𝐜,𝐮⟩ subject to 𝐀𝐮 = 𝐛, 𝐮 ∈ 𝒦 = 𝒮₊ × ℝ₊
//
// over packed symmetric coordinates. The iterate alternates a
// projection onto the affine subspace, solved through one cached
// Cholesky factor of 𝐀𝐀ᵀ, with a spectral projection onto the cone,
// and a scaled dual ascent step between them. The penalty weight is
// rebalanced from the residual ratio, which costs no refactorization
// since the affine projection does not depend on it.
type Splitting struct {
	MaxIterations int     // Iteration cap (default 20000)
	Tolerance     float64 // Relative residual tolerance (default 1e-7)
	Rho           float64 // Initial penalty weight (default 1)
}

// Solve runs the splitting iteration on the lifted program.
func (s *Splitting) Solve(c *mat.SymDense, cons []LinearCon) (*Solution, error) {

	maxIter, tol, rho := s.MaxIterations, s.Tolerance, s.Rho
	if maxIter == 0 {
		maxIter = 20000
	}
	if tol == zero {
		tol = 1e-7
	}
	if rho == zero {
		rho = one
	}

	var err error
	switch {
	case c == nil:
		err = errors.New("lifted objective is required")
	case len(cons) == 0:
		err = errors.New("at least the normalization restriction is required")
	case maxIter < 0:
		err = errors.New("iteration number must greater than 0")
	case tol <= zero:
		err = errors.New("tolerance must greater than 0")
	case rho < zero:
		err = errors.New("penalty weight must greater than 0")
	}
	if err != nil {
		return nil, err
	}

	d := c.SymmetricDim()
	pack := d * (d + 1) / 2
	m := len(cons)

	wide := pack
	for _, cn := range cons {
		if !cn.Eq {
			wide++
		}
	}

	// stack [svec(𝐀ₖ) | slack] rows into the affine system
	abar := mat.NewDense(m, wide, nil)
	b := make([]float64, m)
	row := make([]float64, pack)
	slack := pack
	for k, cn := range cons {
		if cn.A == nil || cn.A.SymmetricDim() != d {
			return nil, errors.New(fmt.Sprintf("restriction %d dimension not match objective", k))
		}
		svec(row, cn.A)
		for j, v := range row {
			abar.Set(k, j, v)
		}
		b[k] = cn.B
		if !cn.Eq {
			abar.Set(k, slack, one)
			slack++
		}
	}

	cbar := make([]float64, wide)
	svec(cbar[:pack], c)

	var aat mat.SymDense
	aat.SymOuterK(one, abar)
	var chol mat.Cholesky
	if !chol.Factorize(&aat) {
		// dependent restrictions: retry once with a tiny ridge
		ridge := (mat.Trace(&aat)/float64(m) + one) * 1e-10
		for i := 0; i < m; i++ {
			aat.SetSym(i, i, aat.At(i, i)+ridge)
		}
		if !chol.Factorize(&aat) {
			return nil, errors.New("affine restriction system is singular")
		}
	}

	u := make([]float64, wide)
	v := make([]float64, wide)
	w := make([]float64, wide)
	h := make([]float64, wide)
	t := make([]float64, m)
	y := make([]float64, m)
	spec := newSpectral(d)

	log := logger.Logger()
	status := Unsolved
	iters := 0
	rp, rd := math.Inf(1), math.Inf(1)

	for it := 1; it <= maxIter; it++ {
		iters = it

		// affine step: 𝐮 = Π(𝐯 - 𝐰 - 𝐜/ρ)
		copy(h, v)
		floats.Sub(h, w)
		floats.AddScaled(h, -one/rho, cbar)
		if err := affineProject(abar, &chol, b, h, t, y); err != nil {
			return nil, err
		}
		copy(u, h)

		// cone step: 𝐯⁺ = Π(𝐮 + 𝐰)
		copy(h, u)
		floats.Add(h, w)
		if err := spec.project(h[:pack]); err != nil {
			return nil, err
		}
		for k := pack; k < wide; k++ {
			h[k] = math.Max(h[k], zero)
		}

		rp = floats.Distance(u, h, 2)
		rd = rho * floats.Distance(h, v, 2)
		copy(v, h)

		// scaled dual step
		for k := range w {
			w[k] += u[k] - v[k]
		}

		scale := math.Max(one, math.Max(floats.Norm(u, 2), floats.Norm(v, 2)))
		if rp <= tol*scale && rd <= tol*scale {
			status = Optimal
			break
		}
		if floats.Norm(v, 2) > divergeLim {
			log.Warn().Int("iter", it).Msg("lifted iterate diverged")
			break
		}

		if it%64 == 0 {
			switch {
			case rp > ten*rd && rho < rhoMax:
				rho *= two
				floats.Scale(one/two, w)
			case rd > ten*rp && rho > rhoMin:
				rho /= two
				floats.Scale(two, w)
			}
		}
	}

	if status != Optimal {
		scale := math.Max(one, math.Max(floats.Norm(u, 2), floats.Norm(v, 2)))
		if lax := math.Sqrt(tol); rp <= lax*scale && rd <= lax*scale {
			status = Inaccurate
		}
	}

	sol := &Solution{Status: status, Iters: iters, Value: floats.Dot(cbar, u)}
	if status != Unsolved {
		x := mat.NewSymDense(d, nil)
		smat(x, u[:pack])
		sol.X = x
	}
	log.Debug().Int("iters", iters).Int("status", int(status)).
		Float64("value", sol.Value).Msg("splitting finished")
	return sol, nil
}

// affineProject overwrites h with its projection onto {𝐮 : 𝐀𝐮 = 𝐛}
// through the cached factor of 𝐀𝐀ᵀ.
func affineProject(a *mat.Dense, chol *mat.Cholesky, b, h, t, y []float64) error {
	m, wide := a.Dims()
	hv := mat.NewVecDense(wide, h)
	tv := mat.NewVecDense(m, t)
	tv.MulVec(a, hv)
	floats.Sub(t, b)
	yv := mat.NewVecDense(m, y)
	if err := chol.SolveVecTo(yv, tv); err != nil {
		return errors.New("affine projection failed: " + err.Error())
	}
	var back mat.VecDense
	back.MulVec(a.T(), yv)
	floats.Sub(h, back.RawVector().Data)
	return nil
}

// spectral carries the scratch of the PSD projection.
type spectral struct {
	d    int
	x    *mat.SymDense
	q, s *mat.Dense
	vals []float64
}

func newSpectral(d int) *spectral {
	return &spectral{
		d:    d,
		x:    mat.NewSymDense(d, nil),
		q:    mat.NewDense(d, d, nil),
		s:    mat.NewDense(d, d, nil),
		vals: make([]float64, d),
	}
}

// project clips the packed symmetric coordinates onto the PSD cone by
// zeroing negative eigenvalues.
func (p *spectral) project(h []float64) error {
	smat(p.x, h)
	var es mat.EigenSym
	if !es.Factorize(p.x, true) {
		return errors.New("cone projection eigendecomposition failed")
	}
	es.Values(p.vals)
	es.VectorsTo(p.q)
	for j, l := range p.vals {
		f := zero
		if l > zero {
			f = math.Sqrt(l)
		}
		for i := 0; i < p.d; i++ {
			p.s.Set(i, j, f*p.q.At(i, j))
		}
	}
	p.x.SymOuterK(one, p.s)
	svec(h, p.x)
	return nil
}

// svec flattens a symmetric matrix into packed upper triangle
// coordinates with √2 off-diagonal scaling, which turns the Frobenius
// inner product into a plain dot product.
func svec(dst []float64, a *mat.SymDense) {
	n := a.SymmetricDim()
	k := 0
	for i := 0; i < n; i++ {
		dst[k] = a.At(i, i)
		k++
		for j := i + 1; j < n; j++ {
			dst[k] = math.Sqrt2 * a.At(i, j)
			k++
		}
	}
}

// smat unpacks svec coordinates back into a symmetric matrix.
func smat(dst *mat.SymDense, v []float64) {
	n := dst.SymmetricDim()
	k := 0
	for i := 0; i < n; i++ {
		dst.SetSym(i, i, v[k])
		k++
		for j := i + 1; j < n; j++ {
			dst.SetSym(i, j, v[k]/math.Sqrt2)
			k++
		}
	}
}
