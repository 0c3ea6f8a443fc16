// Package hyperopt implements sequential random search over loss
// coefficients: a named space of log-uniform dimensions, an objective
// that trains and validates one candidate per sample, and a driver
// that records every trial and tracks the best successful one.
package hyperopt

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// LogUniform is a search dimension sampled log-uniformly: the
// logarithm of the value is uniform over [log(Low), log(High)].
// Coefficient searches span orders of magnitude, so uniform sampling
// in log space covers the range evenly.
type LogUniform struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Space maps dimension names to their ranges.
type Space map[string]LogUniform

// Validate reports the first invalid dimension, or nil.
func (s Space) Validate() error {
	if len(s) == 0 {
		return errors.New("search space is empty")
	}
	for _, name := range s.names() {
		d := s[name]
		if d.Low <= 0 {
			return fmt.Errorf("dimension %q: low bound must be positive, got %g", name, d.Low)
		}
		if d.High < d.Low {
			return fmt.Errorf("dimension %q: high bound %g below low bound %g", name, d.High, d.Low)
		}
	}
	return nil
}

// Sample draws one value per dimension from src. Dimensions are
// visited in name order, so one source always yields the same sequence
// of samples. The space must have been validated.
func (s Space) Sample(src rand.Source) map[string]float64 {
	params := make(map[string]float64, len(s))
	for _, name := range s.names() {
		d := s[name]
		u := distuv.Uniform{Min: math.Log(d.Low), Max: math.Log(d.High), Src: src}
		params[name] = math.Exp(u.Rand())
	}
	return params
}

func (s Space) names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
