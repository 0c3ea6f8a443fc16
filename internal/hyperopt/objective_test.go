package hyperopt

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scmulti-ml/scmulti/internal/autodiff"
	"github.com/scmulti-ml/scmulti/internal/backend/cpu"
	"github.com/scmulti-ml/scmulti/internal/multivae"
	"github.com/scmulti-ml/scmulti/internal/tensor"
	"github.com/scmulti-ml/scmulti/internal/train"
)

func TestApplyCoefficients(t *testing.T) {
	base := multivae.Coefficients{Recon: 1, KL: 1, Class: 1}

	got, err := ApplyCoefficients(base, map[string]float64{
		"kl_coef":    0.5,
		"cycle_coef": 2,
	})
	require.NoError(t, err)
	assert.Equal(t, multivae.Coefficients{Recon: 1, KL: 0.5, Cycle: 2, Class: 1}, got)
	// The input is untouched.
	assert.Equal(t, multivae.Coefficients{Recon: 1, KL: 1, Class: 1}, base)

	got, err = ApplyCoefficients(base, map[string]float64{
		"recon_coef": 3,
		"integ_coef": 4,
		"class_coef": 5,
	})
	require.NoError(t, err)
	assert.Equal(t, multivae.Coefficients{Recon: 3, KL: 1, Integ: 4, Class: 5}, got)

	_, err = ApplyCoefficients(base, map[string]float64{"kl": 0.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown coefficient parameter "kl"`)
}

func TestScore(t *testing.T) {
	m := &train.Metrics{ASWLabel: 0.8, GraphConn: 0.6}
	assert.InDelta(t, -1.4, Score(m), 1e-12)
}

func TestNewObjective_AppliesParams(t *testing.T) {
	var seen multivae.Coefficients
	objective := NewObjective(multivae.Coefficients{Recon: 1, Class: 1}, func(coeffs multivae.Coefficients) (*train.Metrics, error) {
		seen = coeffs
		return &train.Metrics{ASWLabel: 0.5, GraphConn: 0.25}, nil
	})

	result, err := objective(map[string]float64{"kl_coef": 0.01})
	require.NoError(t, err)
	assert.Equal(t, multivae.Coefficients{Recon: 1, KL: 0.01, Class: 1}, seen)
	assert.Equal(t, StatusOK, result.Status)
	assert.InDelta(t, -0.75, result.Loss, 1e-12)
	assert.Greater(t, result.EvalTime.Nanoseconds(), int64(0))
}

func TestNewObjective_RunnerError(t *testing.T) {
	objective := NewObjective(multivae.Coefficients{}, func(multivae.Coefficients) (*train.Metrics, error) {
		return nil, errors.New("training diverged")
	})

	result, err := objective(map[string]float64{"kl_coef": 0.01})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "training diverged")
	assert.Equal(t, StatusFailed, result.Status)
}

func TestNewObjective_UnknownParam(t *testing.T) {
	objective := NewObjective(multivae.Coefficients{}, func(multivae.Coefficients) (*train.Metrics, error) {
		t.Fatal("runner must not run on invalid params")
		return nil, nil
	})

	result, err := objective(map[string]float64{"bogus": 1})
	require.Error(t, err)
	assert.Equal(t, StatusFailed, result.Status)
}

type trialBackend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

// trialBatch builds 6 cells in two bags. The single categorical column
// is the bag label.
func trialBatch(t *testing.T, backend trialBackend, seed int64) *multivae.Batch[trialBackend] {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	labels := []int32{0, 0, 0, 1, 1, 1}
	catCovs, err := tensor.FromSlice(labels, tensor.Shape{6, 1}, backend)
	require.NoError(t, err)

	return &multivae.Batch[trialBackend]{
		X:       tensor.Rand[float32](tensor.Shape{6, 4}, backend, rng),
		CatCovs: catCovs,
	}
}

// milRunner trains one small classifier from scratch per call and
// scores its validation latents.
func milRunner(t *testing.T) Runner {
	return func(coeffs multivae.Coefficients) (*train.Metrics, error) {
		backend := autodiff.New(cpu.New())
		vae, err := multivae.NewMultiVAE(multivae.VAEConfig{
			Modalities:  []multivae.Modality{{Name: "rna", Dim: 4, Likelihood: multivae.LikelihoodMSE}},
			ZDim:        4,
			Hidden:      []int{6},
			CondDim:     4,
			IntegrateOn: multivae.NoIntegration,
			Norm:        true,
			Seed:        42,
		}, backend)
		if err != nil {
			return nil, err
		}
		model, err := multivae.NewMILClassifier(multivae.MILConfig{
			NumClasses:    2,
			Scoring:       multivae.ScoreAttn,
			AttnDim:       3,
			PatientColumn: multivae.NoPatient,
		}, vae, rand.New(rand.NewSource(43)))
		if err != nil {
			return nil, err
		}

		trainer, err := train.NewTrainer(model, train.Config{
			Epochs:       1,
			LR:           1e-3,
			Coefficients: coeffs,
			Neighbors:    2,
			Logger:       nopLogger(),
		})
		if err != nil {
			return nil, err
		}
		val := []*multivae.Batch[trialBackend]{trialBatch(t, backend, 7)}
		if _, err := trainer.Fit([]*multivae.Batch[trialBackend]{trialBatch(t, backend, 3)}, val); err != nil {
			return nil, err
		}
		return trainer.LatentMetrics(val)
	}
}

func TestSearch_WithTrainingRunner(t *testing.T) {
	var applied []float64
	runner := milRunner(t)
	objective := NewObjective(multivae.Coefficients{Recon: 1, Class: 1}, func(coeffs multivae.Coefficients) (*train.Metrics, error) {
		applied = append(applied, coeffs.KL)
		return runner(coeffs)
	})

	space := Space{"kl_coef": {Low: 1e-3, High: 1}}
	trials, best, err := Search(space, objective, Config{Trials: 2, Seed: 9, Logger: nopLogger()})
	require.NoError(t, err)
	require.NotNil(t, best)
	require.Len(t, trials, 2)

	for i, trial := range trials {
		assert.Equal(t, StatusOK, trial.Result.Status)
		assert.Equal(t, trial.Params["kl_coef"], applied[i])
		// Loss is the negated sum of two [0, 1] metrics.
		assert.GreaterOrEqual(t, trial.Result.Loss, -2.0)
		assert.LessOrEqual(t, trial.Result.Loss, 0.0)
	}
	assert.LessOrEqual(t, best.Result.Loss, trials[0].Result.Loss)
	assert.LessOrEqual(t, best.Result.Loss, trials[1].Result.Loss)
}
