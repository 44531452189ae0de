// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package admm

import (
	"math"
	"math/rand/v2"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/curioloop/qcqp/logger"
	"github.com/curioloop/qcqp/secular"
)

// progress is the cross-trial state guarded by one mutex.
// The penalty weight is shared so a divergence doubling persists into
// every trial started afterwards.
type progress struct {
	mu    sync.Mutex
	rho   float64
	best  float64
	bestX []float64
	bestT int
}

func (s *progress) state() (rho, best float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rho, s.best
}

func (s *progress) double() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rho *= two
	return s.rho
}

func (s *progress) record(f float64, x []float64, trial int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f >= s.best {
		return false
	}
	s.best = f
	s.bestT = trial
	if s.bestX == nil {
		s.bestX = make([]float64, len(x))
	}
	copy(s.bestX, x)
	return true
}

// Fit runs all trials and returns the best feasible point found.
// With Seed zero every call draws a fresh random stream, otherwise the
// candidate sequence of each trial is reproducible.
func (o *Optimizer) Fit() *Result {

	seed := o.seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	sh := &progress{rho: o.rho, best: math.Inf(1), bestT: -1}

	if o.workers > 1 {
		var g errgroup.Group
		g.SetLimit(o.workers)
		for t := 0; t < o.trials; t++ {
			g.Go(func() error {
				o.runTrial(t, seed, sh)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for t := 0; t < o.trials; t++ {
			o.runTrial(t, seed, sh)
		}
	}

	res := &Result{
		Summary: Summary{
			Status:    NoSolution,
			BestTrial: sh.bestT,
			NumTrial:  o.trials,
			Rho:       sh.rho,
		},
	}

	log := logger.Logger()
	if sh.bestX != nil {
		res.OK = true
		res.Status = HasSolution
		res.Best = o.model.Evaluate(sh.bestX)
		log.Info().Int("trial", sh.bestT).
			Float64("objective", res.Best.Objective).
			Float64("violation", res.Best.Violation).
			Msg("feasible point found")
	} else {
		log.Info().Int("trials", o.trials).Msg("no feasible point found")
	}
	return res
}

// runTrial performs one random restart of the ADMM scheme.
func (o *Optimizer) runTrial(trial int, seed uint64, sh *progress) {

	log := logger.Logger()
	rho, best := sh.state()
	log.Debug().Int("trial", trial).Float64("best", best).Float64("rho", rho).Msg("trial start")

	n, m := o.n, o.m
	normal := distuv.Normal{Mu: zero, Sigma: one, Src: rand.NewPCG(seed, uint64(trial))}

	z := make([]float64, n)
	for i := range z {
		z[i] = normal.Rand()
	}

	xs := make([][]float64, m)
	ys := make([][]float64, m)
	for i := range xs {
		xs[i] = slices.Repeat(z, 1)
		ys[i] = make([]float64, n)
	}

	// the consensus system (2𝐏₀ + ρM𝐈)𝐳 = rhs is fixed within a trial
	lhs := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := zero
			if o.obj.P != nil {
				v = two * o.obj.P.At(i, j)
			}
			if i == j {
				v += rho * float64(m)
			}
			lhs.SetSym(i, j, v)
		}
	}
	var lu mat.LU
	lu.Factorize(lhs)

	zz := make([]float64, n)
	za := make([]float64, n)
	laz := make([]float64, n)
	rhs := make([]float64, n)
	zv := mat.NewVecDense(n, z)
	rv := mat.NewVecDense(n, rhs)

	settled := false
	for it := 0; it < o.iters; it++ {

		// consensus step
		clear(rhs)
		for i := range xs {
			floats.AddScaled(rhs, rho, xs[i])
			floats.Sub(rhs, ys[i])
		}
		if o.obj.Q != nil {
			floats.Sub(rhs, o.obj.Q)
		}
		if err := lu.SolveVecTo(zv, false, rv); err != nil {
			log.Debug().Int("trial", trial).Err(err).Msg("consensus system singular, trial dropped")
			return
		}

		// local projections with dual ascent
		// a failed projection keeps the previous local copy
		for i, cn := range o.cons {
			for k := range zz {
				zz[k] = z[k] + ys[i][k]/rho
			}
			cn.f.Nearest(xs[i], zz, cn.b, cn.c, cn.eq, secular.DefaultTol)
			for k := range ys[i] {
				ys[i][k] += rho * (z[k] - xs[i][k])
			}
		}

		// the candidate is the average over all copies
		copy(za, z)
		for i := range xs {
			floats.Add(za, xs[i])
		}
		floats.Scale(one/float64(m+1), za)

		if it > 0 && !settled && floats.Distance(laz, za, 2) < o.tol {
			settled = true
			log.Debug().Int("trial", trial).Int("iter", it).Msg("consensus settled")
		}
		copy(laz, za)

		viol := o.model.MaxViolation(za)
		if viol > o.lim {
			rho = sh.double()
			log.Debug().Int("trial", trial).Int("iter", it).Float64("rho", rho).Msg("divergence, rho doubled")
			return
		}

		if viol < o.tol {
			if objt := o.obj.Eval(za); sh.record(objt, za, trial) {
				log.Info().Int("trial", trial).
					Float64("objective", objt*o.sign).
					Float64("violation", viol).
					Msg("better feasible point")
			}
		}
	}
}
