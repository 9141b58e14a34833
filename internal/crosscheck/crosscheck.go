// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package crosscheck solves one problem with several algorithms in parallel
// and measures how far each answer is from the Path-Alg reference.
package crosscheck

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/classo/classo"
)

// Reference is the algorithm every other answer is measured against.
const Reference = classo.PathAlg

// Result is the outcome of one algorithm.
type Result struct {
	Algorithm classo.Algorithm `yaml:"algorithm"`
	Status    string           `yaml:"status"`
	NumIter   int              `yaml:"iterations"`
	F         float64          `yaml:"objective"`
	Sigma     float64          `yaml:"sigma"`
	// RelErr is ‖𝛃 - 𝛃ᵣₑ𝒻‖₁ / ‖𝛃ᵣₑ𝒻‖₁, or the plain L1 distance when the reference is zero.
	RelErr  float64       `yaml:"rel_err"`
	Elapsed time.Duration `yaml:"elapsed"`

	Beta []float64 `yaml:"-"`
}

// Report collects the results of Compare, reference first.
type Report struct {
	Lambda  float64  `yaml:"lambda"`
	Results []Result `yaml:"results"`
}

// Compare solves p at lambda with the reference and every algorithm in algos concurrently.
// The algorithm field of p is ignored. An empty algos means all registered algorithms.
// limit bounds the number of concurrent solves, a non-positive limit means no bound.
func Compare(ctx context.Context, p classo.Problem, lambda float64, algos []classo.Algorithm, limit int) (*Report, error) {
	if len(algos) == 0 {
		algos = classo.Algorithms()
	}
	run := []classo.Algorithm{Reference}
	for _, a := range algos {
		if !slices.Contains(run, a) {
			run = append(run, a)
		}
	}

	results := make([]Result, len(run))
	g, gCtx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, algo := range run {
		i, algo := i, algo
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			q := p
			q.Algorithm = algo
			in, err := q.New(nil)
			if err != nil {
				return fmt.Errorf("%s: %w", algo, err)
			}
			start := time.Now()
			sol, err := in.Solve(lambda)
			if err != nil {
				return fmt.Errorf("%s: %w", algo, err)
			}
			results[i] = Result{
				Algorithm: algo,
				Status:    sol.Status.String(),
				NumIter:   sol.NumIter,
				F:         sol.F,
				Sigma:     sol.Sigma,
				Elapsed:   time.Since(start),
				Beta:      sol.Beta,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ref := results[0].Beta
	scale := floats.Norm(ref, 1)
	for i := range results {
		d := floats.Distance(results[i].Beta, ref, 1)
		if scale > 0 {
			d /= scale
		}
		results[i].RelErr = d
	}
	return &Report{Lambda: lambda, Results: results}, nil
}

// Worst returns the largest relative error among the non-reference results.
func (r *Report) Worst() (classo.Algorithm, float64) {
	var (
		algo  classo.Algorithm
		worst float64
	)
	for _, res := range r.Results[1:] {
		if algo == "" || res.RelErr > worst {
			algo, worst = res.Algorithm, res.RelErr
		}
	}
	return algo, worst
}
