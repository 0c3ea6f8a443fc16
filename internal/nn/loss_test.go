package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

func TestMSELoss_Forward(t *testing.T) {
	backend := newTestBackend()
	mse := NewMSELoss[testBackend]()

	preds := fromSlice(t, backend, []float32{1, 2}, tensor.Shape{2})
	targets := fromSlice(t, backend, []float32{3, 2}, tensor.Shape{2})

	loss := mse.Forward(preds, targets)
	require.Equal(t, tensor.Shape{1}, loss.Shape())
	assert.Equal(t, float32(2), loss.Item())
}

func TestMSELoss_ZeroForIdenticalInputs(t *testing.T) {
	backend := newTestBackend()
	mse := NewMSELoss[testBackend]()

	x := fromSlice(t, backend, []float32{0.5, -1.5, 2}, tensor.Shape{3})
	assert.Equal(t, float32(0), mse.Forward(x, x).Item())
}

func TestMSELoss_PanicsOnShapeMismatch(t *testing.T) {
	backend := newTestBackend()
	mse := NewMSELoss[testBackend]()

	preds := fromSlice(t, backend, []float32{1, 2}, tensor.Shape{2})
	targets := fromSlice(t, backend, []float32{1, 2, 3}, tensor.Shape{3})

	assert.Panics(t, func() { mse.Forward(preds, targets) })
}

func TestLosses_NoParameters(t *testing.T) {
	backend := newTestBackend()

	assert.Empty(t, NewMSELoss[testBackend]().Parameters())
	assert.Empty(t, NewCrossEntropyLoss(backend).Parameters())
}
