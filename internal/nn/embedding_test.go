package nn

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

func TestEmbedding_ForwardLooksUpRows(t *testing.T) {
	backend := newTestBackend()

	weight := fromSlice(t, backend, []float32{
		0, 1,
		2, 3,
		4, 5,
		6, 7,
	}, tensor.Shape{4, 2})
	embed := NewEmbeddingWithWeight(weight)

	indices, err := tensor.FromSlice[int32]([]int32{2, 0, 2}, tensor.Shape{3}, backend)
	require.NoError(t, err)

	out := embed.Forward(indices)
	require.Equal(t, tensor.Shape{3, 2}, out.Shape())
	assert.Equal(t, []float32{4, 5, 0, 1, 4, 5}, out.Data())
}

func TestEmbedding_NewEmbedding(t *testing.T) {
	backend := newTestBackend()

	embed := NewEmbedding(5, 3, backend, rand.New(rand.NewSource(4)))
	assert.Equal(t, 5, embed.NumEmbed)
	assert.Equal(t, 3, embed.EmbedDim)
	assert.Equal(t, tensor.Shape{5, 3}, embed.Weight.Tensor().Shape())
	assert.Len(t, embed.Parameters(), 1)

	// Same seed, same init.
	twin := NewEmbedding(5, 3, backend, rand.New(rand.NewSource(4)))
	assert.Equal(t, embed.Weight.Tensor().Data(), twin.Weight.Tensor().Data())
}

func TestEmbedding_WithWeightPanicsOnNon2D(t *testing.T) {
	backend := newTestBackend()
	flat := fromSlice(t, backend, []float32{1, 2, 3}, tensor.Shape{3})

	assert.Panics(t, func() { NewEmbeddingWithWeight(flat) })
}

func TestEmbedding_StateDictRoundTrip(t *testing.T) {
	backend := newTestBackend()

	src := NewEmbedding(4, 2, backend, rand.New(rand.NewSource(5)))
	dst := NewEmbedding(4, 2, backend, rand.New(rand.NewSource(6)))
	require.NoError(t, dst.LoadStateDict(src.StateDict()))

	indices, err := tensor.FromSlice[int32]([]int32{3, 1}, tensor.Shape{2}, backend)
	require.NoError(t, err)
	assert.Equal(t, src.Forward(indices).Data(), dst.Forward(indices).Data())
}

func TestEmbedding_LoadStateDictErrors(t *testing.T) {
	backend := newTestBackend()
	embed := NewEmbedding(4, 2, backend, rand.New(rand.NewSource(7)))

	err := embed.LoadStateDict(map[string]*tensor.RawTensor{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing weight")

	err = embed.LoadStateDict(map[string]*tensor.RawTensor{
		"weight": fromSlice(t, backend, []float32{1, 2, 3, 4}, tensor.Shape{2, 2}).Raw(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shape mismatch")
}
