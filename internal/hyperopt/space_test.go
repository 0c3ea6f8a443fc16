package hyperopt

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSpace() Space {
	return Space{
		"kl_coef":    {Low: 1e-4, High: 1},
		"cycle_coef": {Low: 1e-2, High: 10},
	}
}

func TestSpace_Validate(t *testing.T) {
	require.NoError(t, testSpace().Validate())

	err := Space{}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")

	err = Space{"kl_coef": {Low: 0, High: 1}}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "low bound must be positive")

	err = Space{"kl_coef": {Low: 1, High: 0.1}}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "below low bound")
}

func TestSpace_SampleWithinBounds(t *testing.T) {
	space := testSpace()
	src := rand.NewPCG(1, 1)

	for i := 0; i < 200; i++ {
		params := space.Sample(src)
		require.Len(t, params, 2)
		for name, d := range space {
			v := params[name]
			assert.GreaterOrEqual(t, v, d.Low, "dimension %s draw %d", name, i)
			assert.LessOrEqual(t, v, d.High, "dimension %s draw %d", name, i)
		}
	}
}

func TestSpace_SampleDeterministic(t *testing.T) {
	space := testSpace()
	a := rand.NewPCG(42, 42)
	b := rand.NewPCG(42, 42)

	for i := 0; i < 10; i++ {
		assert.Equal(t, space.Sample(a), space.Sample(b), "draw %d", i)
	}
}

// Log-uniform sampling should put about half the mass below the
// geometric midpoint of the range, where plain uniform sampling would
// put almost none.
func TestSpace_SampleCoversLowDecades(t *testing.T) {
	space := Space{"kl_coef": {Low: 1e-4, High: 1}}
	src := rand.NewPCG(7, 7)

	below := 0
	const draws = 200
	for i := 0; i < draws; i++ {
		if space.Sample(src)["kl_coef"] < 1e-2 {
			below++
		}
	}
	assert.Greater(t, below, draws/4)
	assert.Less(t, below, 3*draws/4)
}
