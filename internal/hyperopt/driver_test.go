package hyperopt

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func TestSearch_SelectsMinimumLoss(t *testing.T) {
	objective := func(params map[string]float64) (Result, error) {
		return Result{Loss: params["kl_coef"]}, nil
	}

	trials, best, err := Search(testSpace(), objective, Config{Trials: 8, Seed: 3, Logger: nopLogger()})
	require.NoError(t, err)
	require.Len(t, trials, 8)
	require.NotNil(t, best)

	seen := make(map[string]bool)
	for _, trial := range trials {
		require.NoError(t, uuid.Validate(trial.ID))
		assert.False(t, seen[trial.ID], "duplicate trial id")
		seen[trial.ID] = true

		assert.Equal(t, StatusOK, trial.Result.Status)
		assert.GreaterOrEqual(t, best.Result.Loss, 0.0)
		assert.LessOrEqual(t, best.Result.Loss, trial.Result.Loss)
		assert.False(t, trial.EndedAt.Before(trial.StartedAt))
	}
}

func TestSearch_Deterministic(t *testing.T) {
	objective := func(params map[string]float64) (Result, error) {
		return Result{Loss: params["kl_coef"] + params["cycle_coef"]}, nil
	}
	cfg := Config{Trials: 5, Seed: 11, Logger: nopLogger()}

	_, bestA, err := Search(testSpace(), objective, cfg)
	require.NoError(t, err)
	_, bestB, err := Search(testSpace(), objective, cfg)
	require.NoError(t, err)

	assert.Equal(t, bestA.Params, bestB.Params)
	assert.Equal(t, bestA.Result.Loss, bestB.Result.Loss)
}

func TestSearch_NeverSelectsFailedTrial(t *testing.T) {
	// Odd-numbered evaluations fail. The failures carry the lowest
	// would-be losses, so selecting any of them would be visible.
	calls := 0
	objective := func(map[string]float64) (Result, error) {
		calls++
		if calls%2 == 1 {
			return Result{}, errors.New("diverged")
		}
		return Result{Loss: float64(100 + calls)}, nil
	}

	trials, best, err := Search(testSpace(), objective, Config{Trials: 6, Seed: 1, Logger: nopLogger()})
	require.NoError(t, err)
	require.NotNil(t, best)

	assert.Equal(t, StatusOK, best.Result.Status)
	assert.Equal(t, 102.0, best.Result.Loss)

	failed := 0
	for _, trial := range trials {
		if trial.Result.Status == StatusFailed {
			failed++
			assert.Contains(t, trial.Err, "diverged")
			assert.Greater(t, trial.Result.EvalTime.Nanoseconds(), int64(-1))
		}
	}
	assert.Equal(t, 3, failed)
}

func TestSearch_AllFailed(t *testing.T) {
	objective := func(map[string]float64) (Result, error) {
		return Result{}, errors.New("no converged run")
	}

	trials, best, err := Search(testSpace(), objective, Config{Trials: 3, Seed: 1, Logger: nopLogger()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 3 trials failed")
	assert.Nil(t, best)
	assert.Len(t, trials, 3)
}

func TestSearch_InvalidInputs(t *testing.T) {
	objective := func(map[string]float64) (Result, error) { return Result{}, nil }

	_, _, err := Search(testSpace(), objective, Config{Trials: 0, Logger: nopLogger()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trials must be positive")

	_, _, err = Search(Space{}, objective, Config{Trials: 1, Logger: nopLogger()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search space is empty")
}
