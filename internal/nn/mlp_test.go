package nn

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

func TestMLP_NoHiddenIsSingleLinear(t *testing.T) {
	backend := newTestBackend()
	mlp := NewMLP(4, 2, MLPConfig[testBackend]{}, backend, rand.New(rand.NewSource(1)))

	assert.Equal(t, 4, mlp.InFeatures())
	assert.Equal(t, 2, mlp.OutFeatures())
	assert.Len(t, mlp.Parameters(), 2, "one linear layer: weight and bias")

	x := tensor.Randn[float32](tensor.Shape{3, 4}, backend, rand.New(rand.NewSource(2)))
	assert.Equal(t, tensor.Shape{3, 2}, mlp.Forward(x).Shape())
}

// Each hidden block contributes Linear (2 params) + LayerNorm (2) when
// Norm is set; Dropout and the activation add none.
func TestMLP_HiddenStackParameterCount(t *testing.T) {
	backend := newTestBackend()
	mlp := NewMLP(6, 2, MLPConfig[testBackend]{
		Hidden:  []int{8, 4},
		Norm:    true,
		Dropout: 0.2,
	}, backend, rand.New(rand.NewSource(1)))

	// 2 hidden linears + 2 layernorms + output linear.
	assert.Len(t, mlp.Parameters(), 2*2+2*2+2)

	mlp.SetTraining(false)
	x := tensor.Randn[float32](tensor.Shape{5, 6}, backend, rand.New(rand.NewSource(2)))
	assert.Equal(t, tensor.Shape{5, 2}, mlp.Forward(x).Shape())
}

func TestMLP_OutputActivation(t *testing.T) {
	backend := newTestBackend()
	mlp := NewMLP(3, 4, MLPConfig[testBackend]{
		Hidden:           []int{5},
		OutputActivation: NewSigmoid[testBackend](),
	}, backend, rand.New(rand.NewSource(1)))

	x := tensor.Randn[float32](tensor.Shape{6, 3}, backend, rand.New(rand.NewSource(2)))
	for _, v := range mlp.Forward(x).Data() {
		assert.Greater(t, v, float32(0))
		assert.Less(t, v, float32(1))
	}
}

// Eval mode must be deterministic even with dropout configured: the
// mask rng is never consulted, so repeated forwards agree exactly.
func TestMLP_EvalModeIgnoresDropout(t *testing.T) {
	backend := newTestBackend()
	cfg := MLPConfig[testBackend]{Hidden: []int{8}, Dropout: 0.5}
	mlp := NewMLP(4, 2, cfg, backend, rand.New(rand.NewSource(1)))
	mlp.SetTraining(false)

	x := tensor.Randn[float32](tensor.Shape{7, 4}, backend, rand.New(rand.NewSource(2)))
	first := mlp.Forward(x).Data()
	second := mlp.Forward(x).Data()
	assert.Equal(t, first, second)
}

func TestMLP_StateDictRoundTrip(t *testing.T) {
	backend := newTestBackend()
	cfg := MLPConfig[testBackend]{Hidden: []int{8}, Norm: true}
	src := NewMLP(4, 3, cfg, backend, rand.New(rand.NewSource(3)))
	dst := NewMLP(4, 3, cfg, backend, rand.New(rand.NewSource(4)))

	assert.NoError(t, dst.LoadStateDict(src.StateDict()))

	x := tensor.Randn[float32](tensor.Shape{5, 4}, backend, rand.New(rand.NewSource(5)))
	assert.Equal(t, src.Forward(x).Data(), dst.Forward(x).Data())
}
