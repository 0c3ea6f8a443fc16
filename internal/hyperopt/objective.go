package hyperopt

import (
	"fmt"
	"time"

	"github.com/scmulti-ml/scmulti/internal/multivae"
	"github.com/scmulti-ml/scmulti/internal/train"
)

// Runner trains one candidate configuration end to end and reports
// its validation metrics. Each call must build a fresh model so trials
// stay independent.
type Runner func(coeffs multivae.Coefficients) (*train.Metrics, error)

// NewObjective adapts a Runner into a search Objective. Each sample's
// parameters are applied to a copy of base, the runner trains and
// validates a fresh model with them, and the negated metric sum
// becomes the trial loss.
func NewObjective(base multivae.Coefficients, run Runner) Objective {
	return func(params map[string]float64) (Result, error) {
		start := time.Now()
		coeffs, err := ApplyCoefficients(base, params)
		if err != nil {
			return Result{Status: StatusFailed, EvalTime: time.Since(start)}, err
		}
		metrics, err := run(coeffs)
		if err != nil {
			return Result{Status: StatusFailed, EvalTime: time.Since(start)}, err
		}
		return Result{Loss: Score(metrics), Status: StatusOK, EvalTime: time.Since(start)}, nil
	}
}

// ApplyCoefficients returns base with the sampled parameters applied.
// Recognized names are "recon_coef", "kl_coef", "integ_coef",
// "cycle_coef" and "class_coef". Unknown names fail loudly so a typo
// in a space definition cannot silently search nothing.
func ApplyCoefficients(base multivae.Coefficients, params map[string]float64) (multivae.Coefficients, error) {
	for name, value := range params {
		switch name {
		case "recon_coef":
			base.Recon = value
		case "kl_coef":
			base.KL = value
		case "integ_coef":
			base.Integ = value
		case "cycle_coef":
			base.Cycle = value
		case "class_coef":
			base.Class = value
		default:
			return multivae.Coefficients{}, fmt.Errorf("hyperopt: unknown coefficient parameter %q", name)
		}
	}
	return base, nil
}

// Score collapses validation metrics into the scalar the search
// minimizes. Graph connectivity and label silhouette both live in
// [0, 1] with higher better, so their negated sum rewards candidates
// that mix batches without smearing label structure.
func Score(m *train.Metrics) float64 {
	return -(m.GraphConn + m.ASWLabel)
}
