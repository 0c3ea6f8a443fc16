// Copyright 2025 scMulti ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package hyperopt provides random search over loss coefficients.
//
// A search samples coefficient vectors log-uniformly from a Space, runs a
// training trial per sample through an Objective, and reports the best
// trial by integration score.
package hyperopt

import (
	"github.com/scmulti-ml/scmulti/internal/hyperopt"
	"github.com/scmulti-ml/scmulti/internal/multivae"
	"github.com/scmulti-ml/scmulti/internal/train"
)

// LogUniform is a log-uniform sampling range for one dimension.
type LogUniform = hyperopt.LogUniform

// Space maps dimension names to their sampling ranges.
type Space = hyperopt.Space

// Trial records

// Status reports how a trial ended.
type Status = hyperopt.Status

// Trial statuses.
const (
	// StatusOK marks a trial whose objective returned a score.
	StatusOK Status = hyperopt.StatusOK
	// StatusFailed marks a trial whose objective returned an error.
	StatusFailed Status = hyperopt.StatusFailed
)

// Result is the outcome of one objective evaluation.
type Result = hyperopt.Result

// Trial records one parameter sample and its result.
type Trial = hyperopt.Trial

// Objective evaluates one sampled parameter vector.
type Objective = hyperopt.Objective

// Config configures a search run.
type Config = hyperopt.Config

// Search runs sequential random search over the space.
//
// Example:
//
//	space := hyperopt.Space{
//	    "kl_coef":    {Low: 1e-4, High: 1},
//	    "cycle_coef": {Low: 1e-2, High: 10},
//	}
//	trials, best, err := hyperopt.Search(space, objective, hyperopt.Config{
//	    Trials: 20,
//	    Seed:   42,
//	})
func Search(space Space, objective Objective, cfg Config) ([]Trial, *Trial, error) {
	return hyperopt.Search(space, objective, cfg)
}

// Training objectives

// Runner runs one training trial with the given coefficients.
type Runner = hyperopt.Runner

// NewObjective adapts a training Runner into an Objective by applying
// sampled coefficient parameters onto base.
func NewObjective(base multivae.Coefficients, run Runner) Objective {
	return hyperopt.NewObjective(base, run)
}

// ApplyCoefficients returns base with the named coefficient parameters
// replaced by sampled values.
func ApplyCoefficients(base multivae.Coefficients, params map[string]float64) (multivae.Coefficients, error) {
	return hyperopt.ApplyCoefficients(base, params)
}

// Score maps latent metrics to a minimization score.
func Score(m *train.Metrics) float64 {
	return hyperopt.Score(m)
}
