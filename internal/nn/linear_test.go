package nn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// loadedLinear builds a 2->3 layer with hand-set weights so forward
// values are exact.
func loadedLinear(t *testing.T, backend testBackend) *Linear[testBackend] {
	t.Helper()
	l := NewLinear(2, 3, backend, rand.New(rand.NewSource(1)))

	weight := fromSlice(t, backend, []float32{
		1, 0,
		0, 1,
		1, 1,
	}, tensor.Shape{3, 2})
	bias := fromSlice(t, backend, []float32{1, 2, 3}, tensor.Shape{3})

	require.NoError(t, l.LoadStateDict(map[string]*tensor.RawTensor{
		"weight": weight.Raw(),
		"bias":   bias.Raw(),
	}))
	return l
}

func TestLinear_Forward2D(t *testing.T) {
	backend := newTestBackend()
	l := loadedLinear(t, backend)

	x := fromSlice(t, backend, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	out := l.Forward(x)

	assert.Equal(t, tensor.Shape{2, 3}, out.Shape())
	assert.Equal(t, []float32{2, 4, 6, 4, 6, 10}, out.Data())
}

// A 3-D input must give the same values as the flattened 2-D input,
// restored to [batch, n, out].
func TestLinear_Forward3D(t *testing.T) {
	backend := newTestBackend()
	l := loadedLinear(t, backend)

	flat := fromSlice(t, backend, []float32{1, 2, 3, 4, 5, 6, 7, 8}, tensor.Shape{4, 2})
	nested := fromSlice(t, backend, []float32{1, 2, 3, 4, 5, 6, 7, 8}, tensor.Shape{2, 2, 2})

	want := l.Forward(flat)
	got := l.Forward(nested)

	assert.Equal(t, tensor.Shape{2, 2, 3}, got.Shape())
	assert.Equal(t, want.Data(), got.Data())
}

func TestLinear_NoBias(t *testing.T) {
	backend := newTestBackend()
	l := NewLinearNoBias(4, 2, backend, rand.New(rand.NewSource(1)))

	assert.Nil(t, l.Bias())
	assert.Len(t, l.Parameters(), 1)

	sd := l.StateDict()
	assert.Contains(t, sd, "weight")
	assert.NotContains(t, sd, "bias")
}

func TestLinear_ForwardPanics(t *testing.T) {
	backend := newTestBackend()
	l := NewLinear(3, 2, backend, rand.New(rand.NewSource(1)))

	assert.Panics(t, func() {
		l.Forward(tensor.Ones[float32](tensor.Shape{4}, backend))
	}, "1-D input")
	assert.Panics(t, func() {
		l.Forward(tensor.Ones[float32](tensor.Shape{2, 4}, backend))
	}, "wrong feature count")
}

func TestLinear_LoadStateDictErrors(t *testing.T) {
	backend := newTestBackend()
	l := NewLinear(2, 3, backend, rand.New(rand.NewSource(1)))

	err := l.LoadStateDict(map[string]*tensor.RawTensor{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing weight")

	badShape := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
	err = l.LoadStateDict(map[string]*tensor.RawTensor{"weight": badShape.Raw()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shape mismatch")

	goodWeight := tensor.Ones[float32](tensor.Shape{3, 2}, backend)
	err = l.LoadStateDict(map[string]*tensor.RawTensor{"weight": goodWeight.Raw()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing bias")
}

func TestLinear_StateDictRoundTrip(t *testing.T) {
	backend := newTestBackend()
	src := NewLinear(4, 3, backend, rand.New(rand.NewSource(7)))
	dst := NewLinear(4, 3, backend, rand.New(rand.NewSource(8)))

	require.NoError(t, dst.LoadStateDict(src.StateDict()))

	x := tensor.Randn[float32](tensor.Shape{5, 4}, backend, rand.New(rand.NewSource(9)))
	assert.Equal(t, src.Forward(x).Data(), dst.Forward(x).Data())
}

// Xavier draws stay inside the Glorot bound and are reproducible for a
// given seed.
func TestXavier_BoundAndDeterminism(t *testing.T) {
	backend := newTestBackend()
	const fanIn, fanOut = 20, 30
	bound := float32(math.Sqrt(6.0 / float64(fanIn+fanOut)))

	a := Xavier(fanIn, fanOut, tensor.Shape{fanOut, fanIn}, backend, rand.New(rand.NewSource(3)))
	b := Xavier(fanIn, fanOut, tensor.Shape{fanOut, fanIn}, backend, rand.New(rand.NewSource(3)))

	for _, v := range a.Data() {
		assert.LessOrEqual(t, v, bound)
		assert.GreaterOrEqual(t, v, -bound)
	}
	assert.Equal(t, a.Data(), b.Data())
}
