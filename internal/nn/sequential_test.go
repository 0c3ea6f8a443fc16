package nn

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

func TestSequential_ForwardChains(t *testing.T) {
	backend := newTestBackend()

	// Linear output [2, 4, 6] is all positive, so LeakyReLU passes it
	// through unchanged and the chain is easy to check by hand.
	seq := NewSequential[testBackend](
		loadedLinear(t, backend),
		NewLeakyReLU[testBackend](0.01),
	)

	x := fromSlice(t, backend, []float32{1, 2}, tensor.Shape{1, 2})
	out := seq.Forward(x)

	require.Equal(t, tensor.Shape{1, 3}, out.Shape())
	assert.Equal(t, []float32{2, 4, 6}, out.Data())
}

func TestSequential_StateDictPrefixes(t *testing.T) {
	backend := newTestBackend()
	rng := rand.New(rand.NewSource(1))

	seq := NewSequential[testBackend](
		NewLinear(2, 3, backend, rng),
		NewLeakyReLU[testBackend](0.01),
		NewLinear(3, 1, backend, rng),
	)

	sd := seq.StateDict()
	require.Len(t, sd, 4)
	for _, key := range []string{"0.weight", "0.bias", "2.weight", "2.bias"} {
		assert.Contains(t, sd, key)
	}
}

func TestSequential_LoadStateDictRoundTrip(t *testing.T) {
	backend := newTestBackend()

	build := func(seed int64) *Sequential[testBackend] {
		rng := rand.New(rand.NewSource(seed))
		return NewSequential[testBackend](
			NewLinear(2, 4, backend, rng),
			NewTanh[testBackend](),
			NewLinear(4, 2, backend, rng),
		)
	}

	src := build(1)
	dst := build(2)
	require.NoError(t, dst.LoadStateDict(src.StateDict()))

	x := fromSlice(t, backend, []float32{0.3, -0.7}, tensor.Shape{1, 2})
	assert.Equal(t, src.Forward(x).Data(), dst.Forward(x).Data())
}

func TestSequential_AddLenModule(t *testing.T) {
	backend := newTestBackend()

	seq := NewSequential[testBackend]()
	assert.Equal(t, 0, seq.Len())

	linear := NewLinear(2, 2, backend, rand.New(rand.NewSource(1)))
	seq.Add(linear)
	seq.Add(NewSigmoid[testBackend]())

	assert.Equal(t, 2, seq.Len())
	assert.Same(t, linear, seq.Module(0))
	assert.Panics(t, func() { seq.Module(2) })
	assert.Panics(t, func() { seq.Module(-1) })
}

func TestSequential_SetTrainingPropagates(t *testing.T) {
	backend := newTestBackend()

	dropout := NewDropout(0.5, backend, nil)
	seq := NewSequential[testBackend](
		NewLinear(2, 2, backend, rand.New(rand.NewSource(1))),
		dropout,
	)

	seq.SetTraining(false)
	assert.False(t, dropout.Training())

	seq.SetTraining(true)
	assert.True(t, dropout.Training())
}
