package train

import "github.com/scmulti-ml/scmulti/internal/multivae"

// CoefficientSchedule maps an epoch index to the loss coefficients for
// that epoch. Schedules are pure functions: the same epoch always
// yields the same coefficients, so a resumed run sees the exact weights
// the interrupted run would have used.
type CoefficientSchedule func(epoch int) multivae.Coefficients

// ConstantSchedule returns base for every epoch.
func ConstantSchedule(base multivae.Coefficients) CoefficientSchedule {
	return func(int) multivae.Coefficients { return base }
}

// WarmupSchedule zeroes the alignment coefficients (integ, cycle) for
// the first warmupEpochs epochs, letting the autoencoders settle before
// the latent spaces are pulled together. From epoch warmupEpochs on it
// returns base unchanged.
func WarmupSchedule(warmupEpochs int, base multivae.Coefficients) CoefficientSchedule {
	return func(epoch int) multivae.Coefficients {
		if epoch < warmupEpochs {
			c := base
			c.Integ = 0
			c.Cycle = 0
			return c
		}
		return base
	}
}
