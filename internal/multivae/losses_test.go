package multivae

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scmulti-ml/scmulti/internal/autodiff"
	"github.com/scmulti-ml/scmulti/internal/tensor"
)

func onesMask(t *testing.T, backend testBackend, cells int) *tensor.Tensor[float32, testBackend] {
	t.Helper()
	return tensor.Ones[float32](tensor.Shape{cells, 1}, backend)
}

func TestCalcKLLoss(t *testing.T) {
	backend := newTestBackend()

	// Posterior equal to the prior: KL is zero.
	mu := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
	logvar := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
	kl := CalcKLLoss(mu, logvar)
	require.Equal(t, tensor.Shape{2}, kl.Shape())
	for i, v := range kl.Data() {
		assert.InDelta(t, 0, float64(v), 1e-6, "cell %d", i)
	}

	// mu=1, logvar=0 on one dimension: -0.5*(1 + 0 - 1 - 1) = 0.5.
	mu2, err := tensor.FromSlice[float32]([]float32{1, 0}, tensor.Shape{1, 2}, backend)
	require.NoError(t, err)
	logvar2 := tensor.Zeros[float32](tensor.Shape{1, 2}, backend)
	kl2 := CalcKLLoss(mu2, logvar2)
	assert.InDelta(t, 0.5, float64(kl2.Data()[0]), 1e-6)
}

func singleModalityModel(t *testing.T, backend testBackend, mod Modality, contCovs int) *MultiVAE[testBackend] {
	t.Helper()
	cfg := VAEConfig{
		Modalities:     []Modality{mod},
		ZDim:           4,
		Hidden:         []int{6},
		CondDim:        3,
		ContCovariates: contCovs,
		IntegrateOn:    NoIntegration,
		Seed:           21,
	}
	if contCovs == 0 {
		cfg.CondDim = 0
	}
	m, err := NewMultiVAE(cfg, backend)
	require.NoError(t, err)
	return m
}

func TestCalcReconLoss_MSE(t *testing.T) {
	backend := newTestBackend()
	m := singleModalityModel(t, backend, Modality{Name: "rna", Dim: 2, Likelihood: LikelihoodMSE}, 0)

	x, err := tensor.FromSlice[float32]([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)
	r, err := tensor.FromSlice[float32]([]float32{1.5, 2, 3, 5}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)

	loss, err := m.CalcReconLoss(
		[]*tensor.Tensor[float32, testBackend]{x},
		[]*tensor.Tensor[float32, testBackend]{r},
		[]*tensor.Tensor[float32, testBackend]{onesMask(t, backend, 2)},
		nil,
	)
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{2}, loss.Shape())
	assert.InDelta(t, 0.25, float64(loss.Data()[0]), 1e-6)
	assert.InDelta(t, 1.0, float64(loss.Data()[1]), 1e-6)
}

// A masked-out cell contributes exactly zero to its modality's term.
func TestCalcReconLoss_Masked(t *testing.T) {
	backend := newTestBackend()
	m := singleModalityModel(t, backend, Modality{Name: "rna", Dim: 2, Likelihood: LikelihoodMSE}, 0)

	x, err := tensor.FromSlice[float32]([]float32{1, 2, 0, 0}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)
	r, err := tensor.FromSlice[float32]([]float32{2, 2, 3, 5}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)

	xs := []*tensor.Tensor[float32, testBackend]{x}
	loss, err := m.CalcReconLoss(xs,
		[]*tensor.Tensor[float32, testBackend]{r},
		m.PresenceMasks(xs),
		nil,
	)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, float64(loss.Data()[0]), 1e-6)
	assert.Zero(t, loss.Data()[1], "absent cell must contribute nothing")
}

// NB check against a closed form: with theta=1 the NB is geometric
// with p = 1/(1+mean), so P(x=2 | mean=1) = 0.5^3 and the loss is
// 3*ln 2.
func TestCalcReconLoss_NB(t *testing.T) {
	backend := newTestBackend()
	m := singleModalityModel(t, backend, Modality{Name: "rna", Dim: 1, Likelihood: LikelihoodNB, Theta: 1}, 1)

	x, err := tensor.FromSlice[float32]([]float32{2}, tensor.Shape{1, 1}, backend)
	require.NoError(t, err)
	r, err := tensor.FromSlice[float32]([]float32{1}, tensor.Shape{1, 1}, backend)
	require.NoError(t, err)
	sf, err := tensor.FromSlice[float32]([]float32{1}, tensor.Shape{1, 1}, backend)
	require.NoError(t, err)

	loss, err := m.CalcReconLoss(
		[]*tensor.Tensor[float32, testBackend]{x},
		[]*tensor.Tensor[float32, testBackend]{r},
		[]*tensor.Tensor[float32, testBackend]{onesMask(t, backend, 1)},
		sf,
	)
	require.NoError(t, err)
	assert.InDelta(t, 2.0794, float64(loss.Data()[0]), 1e-3)
}

// The NB gradient flows through the predicted mean; the tape gradient
// must match a central finite difference of the loss. At mean=1, x=2,
// theta=1 the analytic slope is 3/(1+m) - 2/m = -0.5.
func TestCalcReconLoss_NBGradientMatchesFiniteDifference(t *testing.T) {
	backend := newTestBackend()
	m := singleModalityModel(t, backend, Modality{Name: "rna", Dim: 1, Likelihood: LikelihoodNB, Theta: 1}, 1)

	nbLoss := func(mean float32) *tensor.Tensor[float32, testBackend] {
		x, err := tensor.FromSlice[float32]([]float32{2}, tensor.Shape{1, 1}, backend)
		require.NoError(t, err)
		r, err := tensor.FromSlice[float32]([]float32{mean}, tensor.Shape{1, 1}, backend)
		require.NoError(t, err)
		sf, err := tensor.FromSlice[float32]([]float32{1}, tensor.Shape{1, 1}, backend)
		require.NoError(t, err)
		loss, err := m.CalcReconLoss(
			[]*tensor.Tensor[float32, testBackend]{x},
			[]*tensor.Tensor[float32, testBackend]{r},
			[]*tensor.Tensor[float32, testBackend]{onesMask(t, backend, 1)},
			sf,
		)
		require.NoError(t, err)
		return loss
	}

	const h = 1e-2
	numerical := (nbLoss(1+h).Data()[0] - nbLoss(1-h).Data()[0]) / (2 * h)

	backend.Tape().StartRecording()
	defer func() {
		backend.Tape().StopRecording()
		backend.Tape().Clear()
	}()

	r, err := tensor.FromSlice[float32]([]float32{1}, tensor.Shape{1, 1}, backend)
	require.NoError(t, err)
	x, err := tensor.FromSlice[float32]([]float32{2}, tensor.Shape{1, 1}, backend)
	require.NoError(t, err)
	sf, err := tensor.FromSlice[float32]([]float32{1}, tensor.Shape{1, 1}, backend)
	require.NoError(t, err)
	loss, err := m.CalcReconLoss(
		[]*tensor.Tensor[float32, testBackend]{x},
		[]*tensor.Tensor[float32, testBackend]{r},
		[]*tensor.Tensor[float32, testBackend]{onesMask(t, backend, 1)},
		sf,
	)
	require.NoError(t, err)

	grads := autodiff.Backward(loss, backend)
	grad := grads[r.Raw()]
	require.NotNil(t, grad, "predicted mean must receive a gradient")
	assert.InDelta(t, float64(numerical), float64(grad.AsFloat32()[0]), 5e-2)
	assert.InDelta(t, -0.5, float64(grad.AsFloat32()[0]), 1e-3)
}

func TestCalcReconLoss_NBWithoutSizeFactorsFails(t *testing.T) {
	backend := newTestBackend()
	m := singleModalityModel(t, backend, Modality{Name: "rna", Dim: 1, Likelihood: LikelihoodNB}, 1)

	x := tensor.Ones[float32](tensor.Shape{1, 1}, backend)
	_, err := m.CalcReconLoss(
		[]*tensor.Tensor[float32, testBackend]{x},
		[]*tensor.Tensor[float32, testBackend]{x},
		[]*tensor.Tensor[float32, testBackend]{onesMask(t, backend, 1)},
		nil,
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size factors")
}

func TestCalcReconLoss_BCE(t *testing.T) {
	backend := newTestBackend()
	m := singleModalityModel(t, backend, Modality{Name: "atac", Dim: 2, Likelihood: LikelihoodBCE}, 0)

	// -ln(0.8) - ln(0.2) = 0.2231 + 1.6094
	x, err := tensor.FromSlice[float32]([]float32{1, 0}, tensor.Shape{1, 2}, backend)
	require.NoError(t, err)
	r, err := tensor.FromSlice[float32]([]float32{0.8, 0.8}, tensor.Shape{1, 2}, backend)
	require.NoError(t, err)

	loss, err := m.CalcReconLoss(
		[]*tensor.Tensor[float32, testBackend]{x},
		[]*tensor.Tensor[float32, testBackend]{r},
		[]*tensor.Tensor[float32, testBackend]{onesMask(t, backend, 1)},
		nil,
	)
	require.NoError(t, err)
	assert.InDelta(t, 1.8326, float64(loss.Data()[0]), 1e-3)
}

func TestCalcReconLoss_BlockCountMismatchFails(t *testing.T) {
	backend := newTestBackend()
	m := singleModalityModel(t, backend, Modality{Name: "rna", Dim: 2, Likelihood: LikelihoodMSE}, 0)

	_, err := m.CalcReconLoss(nil, nil, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "modality blocks")
}

func TestCalcIntegLoss_SingleGroupIsZero(t *testing.T) {
	backend := newTestBackend()
	z := tensor.Randn[float32](tensor.Shape{6, 3}, backend, rand.New(rand.NewSource(31)))
	loss := CalcIntegLoss(z, make([]int32, 6))
	assert.Zero(t, loss.Item())
}

// Identical group distributions give (numerically) zero MMD.
func TestCalcIntegLoss_IdenticalGroups(t *testing.T) {
	backend := newTestBackend()
	data := []float32{1, 2, 3, 4, 1, 2, 3, 4}
	z, err := tensor.FromSlice[float32](data, tensor.Shape{4, 2}, backend)
	require.NoError(t, err)

	loss := CalcIntegLoss(z, []int32{0, 0, 1, 1})
	assert.InDelta(t, 0, float64(loss.Item()), 1e-6)
}

func TestCalcIntegLoss_SeparatedGroupsPositive(t *testing.T) {
	backend := newTestBackend()
	data := []float32{0, 0, 0.1, 0.1, 10, 10, 10.1, 10.1}
	z, err := tensor.FromSlice[float32](data, tensor.Shape{4, 2}, backend)
	require.NoError(t, err)

	loss := CalcIntegLoss(z, []int32{0, 0, 1, 1})
	assert.Greater(t, loss.Item(), float32(0.1))
}

// Groups below two cells are skipped; if only one usable group
// remains there is no pair and the loss is zero, not an error.
func TestCalcIntegLoss_SmallGroupSkipped(t *testing.T) {
	backend := newTestBackend()
	z := tensor.Randn[float32](tensor.Shape{4, 2}, backend, rand.New(rand.NewSource(32)))
	loss := CalcIntegLoss(z, []int32{0, 0, 0, 1})
	assert.Zero(t, loss.Item())
}

func TestMMD_SelfIsZero(t *testing.T) {
	backend := newTestBackend()
	a := tensor.Randn[float32](tensor.Shape{5, 3}, backend, rand.New(rand.NewSource(33)))
	assert.InDelta(t, 0, float64(MMD(a, a).Item()), 1e-6)
}

func TestCalcCycleLoss_TwoModalities(t *testing.T) {
	backend := newTestBackend()
	m, err := NewMultiVAE(twoModalityConfig(), backend)
	require.NoError(t, err)

	batch := milBatch(t, backend)
	inf, err := m.Inference(batch)
	require.NoError(t, err)

	xs, err := m.SplitByModality(batch.X)
	require.NoError(t, err)
	loss, err := m.CalcCycleLoss(xs, inf.ZJoint, batch)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, loss.Item(), float32(0))
}

// With a single modality there is no cross-modal pair to cycle
// through, so the loss is exactly zero.
func TestCalcCycleLoss_SingleModalityZero(t *testing.T) {
	backend := newTestBackend()
	m := singleModalityModel(t, backend, Modality{Name: "rna", Dim: 3, Likelihood: LikelihoodMSE}, 0)

	x := tensor.Rand[float32](tensor.Shape{4, 3}, backend, rand.New(rand.NewSource(34)))
	batch := &Batch[testBackend]{X: x}
	inf, err := m.Inference(batch)
	require.NoError(t, err)

	xs, err := m.SplitByModality(batch.X)
	require.NoError(t, err)
	loss, err := m.CalcCycleLoss(xs, inf.ZJoint, batch)
	require.NoError(t, err)
	assert.Zero(t, loss.Item())
}
