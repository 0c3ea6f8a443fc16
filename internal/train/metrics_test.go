package train

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

func TestSilhouetteScore_SeparatedClusters(t *testing.T) {
	rows := [][]float64{{0, 0}, {0.1, 0}, {10, 10}, {10.1, 10}}
	labels := []int32{0, 0, 1, 1}

	s, err := SilhouetteScore(rows, labels)
	require.NoError(t, err)
	assert.Greater(t, s, 0.9)
	assert.LessOrEqual(t, s, 1.0)
}

func TestSilhouetteScore_IdenticalPoints(t *testing.T) {
	rows := [][]float64{{1, 1}, {1, 1}, {1, 1}, {1, 1}}
	labels := []int32{0, 0, 1, 1}

	s, err := SilhouetteScore(rows, labels)
	require.NoError(t, err)
	assert.Zero(t, s)
}

func TestSilhouetteScore_SingletonGroup(t *testing.T) {
	rows := [][]float64{{0, 0}, {1, 0}, {10, 0}}
	labels := []int32{0, 0, 1}

	s, err := SilhouetteScore(rows, labels)
	require.NoError(t, err)
	// s(0) = (10-1)/10, s(1) = (9-1)/9, the singleton contributes 0.
	assert.InDelta(t, (0.9+8.0/9.0)/3, s, 1e-9)
}

func TestSilhouetteScore_Errors(t *testing.T) {
	_, err := SilhouetteScore([][]float64{{0}}, []int32{0, 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 rows but 2 labels")

	_, err = SilhouetteScore([][]float64{{0}, {1}}, []int32{0, 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least two label groups")
}

func TestGraphConnectivity_SeparatedClusters(t *testing.T) {
	rows := [][]float64{{0, 0}, {0.1, 0}, {10, 0}, {10.1, 0}}
	labels := []int32{0, 0, 1, 1}

	conn, err := GraphConnectivity(rows, labels, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, conn)
}

// k larger than n-1 caps at n-1, so every other row is a neighbor.
func TestGraphConnectivity_KCapped(t *testing.T) {
	rows := [][]float64{{0, 0}, {0.1, 0}, {10, 0}, {10.1, 0}}
	labels := []int32{0, 0, 1, 1}

	conn, err := GraphConnectivity(rows, labels, 10)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3.0, conn, 1e-9)
}

func TestGraphConnectivity_Errors(t *testing.T) {
	rows := [][]float64{{0}, {1}}

	_, err := GraphConnectivity(rows, []int32{0}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 rows but 1 labels")

	_, err = GraphConnectivity(rows, []int32{0, 1}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neighbor count")

	_, err = GraphConnectivity([][]float64{{0}}, []int32{0}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least two rows")
}

func TestLatentRows(t *testing.T) {
	backend := newTestBackend()
	z, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)

	rows := LatentRows(z)
	require.Len(t, rows, 2)
	assert.Equal(t, []float64{1, 2, 3}, rows[0])
	assert.Equal(t, []float64{4, 5, 6}, rows[1])
}

// Random clusters drawn apart should score high on both metrics.
func TestMetrics_ConsistentOnSyntheticClusters(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	var rows [][]float64
	var labels []int32
	for c := 0; c < 3; c++ {
		center := float64(c) * 20
		for i := 0; i < 10; i++ {
			rows = append(rows, []float64{center + rng.Float64(), center + rng.Float64()})
			labels = append(labels, int32(c))
		}
	}

	s, err := SilhouetteScore(rows, labels)
	require.NoError(t, err)
	assert.Greater(t, s, 0.8)

	conn, err := GraphConnectivity(rows, labels, 5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, conn)
}
