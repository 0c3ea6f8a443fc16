package multivae

import (
	"math/rand"
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

func TestAggregator_SumPools2D(t *testing.T) {
	backend := newTestBackend()
	agg, err := NewAggregator(3, ScoreSum, 0, backend, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	x, err := tensor.FromSlice[float32](
		[]float32{1, 2, 3, 4, 5, 6},
		tensor.Shape{2, 3},
		backend,
	)
	require.NoError(t, err)

	pooled, weights := agg.Forward(x)
	assert.Nil(t, weights, "sum mode has no attention weights")
	assert.Equal(t, tensor.Shape{3}, pooled.Shape())
	assert.Equal(t, []float32{5, 7, 9}, pooled.Data())
}

func TestAggregator_SumPools3D(t *testing.T) {
	backend := newTestBackend()
	agg, err := NewAggregator(2, ScoreSum, 0, backend, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	// Two bags of two instances each.
	x, err := tensor.FromSlice[float32](
		[]float32{1, 2, 3, 4, 10, 20, 30, 40},
		tensor.Shape{2, 2, 2},
		backend,
	)
	require.NoError(t, err)

	pooled, _ := agg.Forward(x)
	assert.Equal(t, tensor.Shape{2, 2}, pooled.Shape())
	assert.Equal(t, []float32{4, 6, 40, 60}, pooled.Data())
}

// Output width must equal the configured dim for every mode and any
// instance count, including a single instance.
func TestAggregator_OutputDim(t *testing.T) {
	backend := newTestBackend()
	rng := rand.New(rand.NewSource(2))

	for _, mode := range []ScoringMode{ScoreSum, ScoreAttn, ScoreGatedAttn} {
		for _, n := range []int{1, 3, 7} {
			agg, err := NewAggregator(5, mode, 4, backend, rng)
			require.NoError(t, err)

			x := tensor.Randn[float32](tensor.Shape{n, 5}, backend, rng)
			pooled, _ := agg.Forward(x)
			assert.Equal(t, tensor.Shape{5}, pooled.Shape(), "mode %v with %d instances", mode, n)
		}
	}
}

func TestAggregator_AttentionWeightsSumToOne(t *testing.T) {
	backend := newTestBackend()
	rng := rand.New(rand.NewSource(3))

	for _, mode := range []ScoringMode{ScoreAttn, ScoreGatedAttn} {
		agg, err := NewAggregator(4, mode, 8, backend, rng)
		require.NoError(t, err)

		x := tensor.Randn[float32](tensor.Shape{6, 4}, backend, rng)
		_, weights := agg.Forward(x)
		require.NotNil(t, weights)
		assert.Equal(t, tensor.Shape{1, 6}, weights.Shape())

		var sum float64
		for _, w := range weights.Data() {
			assert.GreaterOrEqual(t, w, float32(0), "mode %v", mode)
			sum += float64(w)
		}
		assert.InDelta(t, 1.0, sum, 1e-5, "mode %v", mode)
	}
}

func TestAggregator_BatchedAttention(t *testing.T) {
	backend := newTestBackend()
	rng := rand.New(rand.NewSource(4))
	agg, err := NewAggregator(3, ScoreAttn, 4, backend, rng)
	require.NoError(t, err)

	x := tensor.Randn[float32](tensor.Shape{2, 5, 3}, backend, rng)
	pooled, weights := agg.Forward(x)
	assert.Equal(t, tensor.Shape{2, 3}, pooled.Shape())
	require.Equal(t, tensor.Shape{2, 1, 5}, weights.Shape())

	// Each bag's weights are a separate softmax.
	data := weights.Data()
	for bag := 0; bag < 2; bag++ {
		var sum float64
		for i := 0; i < 5; i++ {
			sum += float64(data[bag*5+i])
		}
		assert.InDelta(t, 1.0, sum, 1e-5, "bag %d", bag)
	}
}

// A single instance gets weight 1, so attention pooling returns it
// unchanged.
func TestAggregator_SingleInstanceIdentity(t *testing.T) {
	backend := newTestBackend()
	rng := rand.New(rand.NewSource(5))
	agg, err := NewAggregator(3, ScoreAttn, 4, backend, rng)
	require.NoError(t, err)

	x, err := tensor.FromSlice[float32]([]float32{0.5, -1, 2}, tensor.Shape{1, 3}, backend)
	require.NoError(t, err)

	pooled, weights := agg.Forward(x)
	assert.InDelta(t, 1.0, float64(weights.Data()[0]), 1e-6)
	for i, v := range []float32{0.5, -1, 2} {
		assert.InDelta(t, float64(v), float64(pooled.Data()[i]), 1e-6, "element %d", i)
	}
}

func TestAggregator_UnknownModeFails(t *testing.T) {
	backend := newTestBackend()
	_, err := NewAggregator(3, ScoringMode(99), 4, backend, rand.New(rand.NewSource(1)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scoring mode")
}

func TestAggregator_ConfigErrors(t *testing.T) {
	backend := newTestBackend()
	rng := rand.New(rand.NewSource(1))

	_, err := NewAggregator(0, ScoreSum, 0, backend, rng)
	assert.Error(t, err, "non-positive dim")

	_, err = NewAggregator(3, ScoreAttn, 0, backend, rng)
	assert.Error(t, err, "attn without attn_dim")
}

func TestAggregator_StateDictRoundTrip(t *testing.T) {
	backend := newTestBackend()
	src, err := NewAggregator(4, ScoreGatedAttn, 6, backend, rand.New(rand.NewSource(6)))
	require.NoError(t, err)
	dst, err := NewAggregator(4, ScoreGatedAttn, 6, backend, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	require.NoError(t, dst.LoadStateDict(src.StateDict()))

	x := tensor.Randn[float32](tensor.Shape{5, 4}, backend, rand.New(rand.NewSource(8)))
	wantPooled, _ := src.Forward(x)
	gotPooled, _ := dst.Forward(x)
	for i := range wantPooled.Data() {
		assert.InDelta(t, float64(wantPooled.Data()[i]), float64(gotPooled.Data()[i]), 1e-6)
	}
}
