package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scmulti-ml/scmulti/internal/autodiff"
	"github.com/scmulti-ml/scmulti/internal/backend/cpu"
	"github.com/scmulti-ml/scmulti/internal/tensor"
)

type testBackend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func newTestBackend() testBackend {
	return autodiff.New(cpu.New())
}

func fromSlice(t *testing.T, backend testBackend, data []float32, shape tensor.Shape) *tensor.Tensor[float32, testBackend] {
	t.Helper()
	ts, err := tensor.FromSlice[float32](data, shape, backend)
	require.NoError(t, err)
	return ts
}

func TestLeakyReLU_Forward(t *testing.T) {
	backend := newTestBackend()
	act := NewLeakyReLU[testBackend](0.01)

	x := fromSlice(t, backend, []float32{-2, 0, 3}, tensor.Shape{3})
	out := act.Forward(x)

	want := []float32{-0.02, 0, 3}
	for i, v := range out.Data() {
		assert.InDelta(t, want[i], v, 1e-6)
	}
}

func TestSigmoid_Forward(t *testing.T) {
	backend := newTestBackend()
	act := NewSigmoid[testBackend]()

	x := fromSlice(t, backend, []float32{0, 2}, tensor.Shape{2})
	out := act.Forward(x).Data()

	assert.InDelta(t, 0.5, out[0], 1e-6)
	assert.InDelta(t, 1.0/(1.0+math.Exp(-2)), out[1], 1e-5)
}

func TestTanh_Forward(t *testing.T) {
	backend := newTestBackend()
	act := NewTanh[testBackend]()

	x := fromSlice(t, backend, []float32{0, 1}, tensor.Shape{2})
	out := act.Forward(x).Data()

	assert.InDelta(t, 0, out[0], 1e-6)
	assert.InDelta(t, math.Tanh(1), out[1], 1e-5)
}

func TestExp_Forward(t *testing.T) {
	backend := newTestBackend()
	act := NewExp[testBackend]()

	x := fromSlice(t, backend, []float32{0, 1}, tensor.Shape{2})
	out := act.Forward(x).Data()

	assert.InDelta(t, 1, out[0], 1e-6)
	assert.InDelta(t, math.E, out[1], 1e-5)
}

// Activations carry no parameters and survive an empty state dict, so
// Sequential can skip them when loading.
func TestActivations_Stateless(t *testing.T) {
	modules := []Module[testBackend]{
		NewTanh[testBackend](),
		NewSigmoid[testBackend](),
		NewLeakyReLU[testBackend](0.01),
		NewExp[testBackend](),
	}

	for _, m := range modules {
		assert.Empty(t, m.Parameters())
		assert.Empty(t, m.StateDict())
		assert.NoError(t, m.LoadStateDict(nil))
	}
}
