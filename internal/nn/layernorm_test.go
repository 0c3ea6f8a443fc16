package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

func TestLayerNorm_NormalizesRows(t *testing.T) {
	backend := newTestBackend()
	norm := NewLayerNorm(3, 1e-5, backend)

	x := fromSlice(t, backend, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	out := norm.Forward(x)

	require.Equal(t, tensor.Shape{2, 3}, out.Shape())

	// Each row has mean 0 and unit variance after normalization; with
	// centered values [-1, 0, 1] that is ±sqrt(3/2).
	expected := []float32{-1.2247, 0, 1.2247}
	data := out.Data()
	for row := 0; row < 2; row++ {
		for col := 0; col < 3; col++ {
			assert.InDelta(t, expected[col], data[row*3+col], 1e-3)
		}
	}
}

func TestLayerNorm_GammaBetaScaleAndShift(t *testing.T) {
	backend := newTestBackend()
	norm := NewLayerNorm(3, 1e-5, backend)

	require.NoError(t, norm.LoadStateDict(map[string]*tensor.RawTensor{
		"gamma": fromSlice(t, backend, []float32{2, 2, 2}, tensor.Shape{3}).Raw(),
		"beta":  fromSlice(t, backend, []float32{1, 1, 1}, tensor.Shape{3}).Raw(),
	}))

	x := fromSlice(t, backend, []float32{1, 2, 3}, tensor.Shape{1, 3})
	out := norm.Forward(x).Data()

	expected := []float32{-1.4495, 1, 3.4495}
	for i, want := range expected {
		assert.InDelta(t, want, out[i], 1e-3)
	}
}

func TestLayerNorm_Parameters(t *testing.T) {
	backend := newTestBackend()
	norm := NewLayerNorm(4, 1e-5, backend)

	params := norm.Parameters()
	require.Len(t, params, 2)
	assert.Equal(t, "gamma", params[0].Name())
	assert.Equal(t, "beta", params[1].Name())
}

func TestLayerNorm_StateDictRoundTrip(t *testing.T) {
	backend := newTestBackend()

	src := NewLayerNorm(3, 1e-5, backend)
	copy(src.Gamma.Tensor().Data(), []float32{0.5, 1.5, 2.5})
	copy(src.Beta.Tensor().Data(), []float32{-1, 0, 1})

	dst := NewLayerNorm(3, 1e-5, backend)
	require.NoError(t, dst.LoadStateDict(src.StateDict()))

	x := fromSlice(t, backend, []float32{3, 1, 2}, tensor.Shape{1, 3})
	assert.Equal(t, src.Forward(x).Data(), dst.Forward(x).Data())
}

func TestLayerNorm_LoadStateDictErrors(t *testing.T) {
	backend := newTestBackend()
	norm := NewLayerNorm(3, 1e-5, backend)

	err := norm.LoadStateDict(map[string]*tensor.RawTensor{
		"beta": fromSlice(t, backend, []float32{0, 0, 0}, tensor.Shape{3}).Raw(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing "gamma"`)

	err = norm.LoadStateDict(map[string]*tensor.RawTensor{
		"gamma": fromSlice(t, backend, []float32{1, 1}, tensor.Shape{2}).Raw(),
		"beta":  fromSlice(t, backend, []float32{0, 0, 0}, tensor.Shape{3}).Raw(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shape mismatch")
}
