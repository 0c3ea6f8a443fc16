package train

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

func TestCheckpointRoundTrip(t *testing.T) {
	backend := newTestBackend()
	path := filepath.Join(t.TempDir(), "run.scml")

	weight, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)
	moment, err := tensor.FromSlice([]float32{0.5, 0.25}, tensor.Shape{2}, backend)
	require.NoError(t, err)

	saved := &Checkpoint{
		ModelType: "MILClassifier",
		Epoch:     7,
		Step:      120,
		Loss:      3.25,
		Model:     map[string]*tensor.RawTensor{"classifier.weight": weight.Raw()},
		Optimizer: map[string]*tensor.RawTensor{"m.0": moment.Raw()},
	}
	require.NoError(t, SaveCheckpoint(path, saved))

	loaded, err := LoadCheckpoint(path, backend)
	require.NoError(t, err)
	assert.Equal(t, "MILClassifier", loaded.ModelType)
	assert.Equal(t, 7, loaded.Epoch)
	assert.Equal(t, int64(120), loaded.Step)
	assert.Equal(t, 3.25, loaded.Loss)

	require.Contains(t, loaded.Model, "classifier.weight")
	assert.Equal(t, []float32{1, 2, 3, 4}, loaded.Model["classifier.weight"].AsFloat32())
	require.Contains(t, loaded.Optimizer, "m.0")
	assert.Equal(t, []float32{0.5, 0.25}, loaded.Optimizer["m.0"].AsFloat32())
}

func TestLoadCheckpoint_MissingFile(t *testing.T) {
	backend := newTestBackend()
	_, err := LoadCheckpoint(filepath.Join(t.TempDir(), "absent.scml"), backend)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checkpoint")
}
