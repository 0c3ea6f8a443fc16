package cae

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

// pairedConfig declares rna and atac sharing the "tissue" pair group.
func pairedConfig() Config {
	return Config{
		Modalities:   []Modality{{Name: "rna", Dim: 5}, {Name: "atac", Dim: 4}},
		ZDim:         6,
		HDim:         8,
		Hidden:       []int{10},
		SharedHidden: []int{9},
		AdvHidden:    []int{7},
		Coefficients: Coefficients{Recon: 1, Cross: 1, Integ: 1, Cycle: 1},
		Adversarial:  true,
		PairGroups:   map[string][]string{"tissue": {"rna", "atac"}},
		Norm:         true,
		Seed:         5,
	}
}

// caeInputs builds 6 rna cells and 4 atac cells; the first two rows on
// each side are the paired cells.
func caeInputs(t *testing.T, backend testBackend) ([]*tensor.Tensor[float32, testBackend], [][]int32) {
	t.Helper()
	rng := rand.New(rand.NewSource(17))
	xs := []*tensor.Tensor[float32, testBackend]{
		tensor.Rand[float32](tensor.Shape{6, 5}, backend, rng),
		tensor.Rand[float32](tensor.Shape{4, 4}, backend, rng),
	}
	masks := [][]int32{
		{1, 1, 0, 0, 0, 0},
		{1, 1, 0, 0},
	}
	return xs, masks
}

func TestConfig_Validate(t *testing.T) {
	valid := pairedConfig()
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"one modality", func(c *Config) { c.Modalities = c.Modalities[:1] }, "at least two modalities"},
		{"duplicate name", func(c *Config) { c.Modalities[1].Name = "rna" }, "duplicate modality name"},
		{"zero dim", func(c *Config) { c.Modalities[0].Dim = 0 }, "dim must be positive"},
		{"zero z_dim", func(c *Config) { c.ZDim = 0 }, "z_dim must be positive"},
		{"zero h_dim", func(c *Config) { c.HDim = 0 }, "h_dim must be positive"},
		{"bad hidden", func(c *Config) { c.Hidden = []int{0} }, "hidden width"},
		{"zero recon coefficient", func(c *Config) { c.Coefficients.Recon = 0 }, "recon coefficient"},
		{"negative cycle coefficient", func(c *Config) { c.Coefficients.Cycle = -1 }, "non-negative"},
		{"dropout out of range", func(c *Config) { c.Dropout = 1 }, "dropout"},
		{"unknown group member", func(c *Config) {
			c.PairGroups = map[string][]string{"tissue": {"rna", "protein"}}
		}, `unknown modality "protein"`},
		{"single member group", func(c *Config) {
			c.PairGroups = map[string][]string{"tissue": {"rna"}}
		}, "at least two modalities"},
		{"modality in two groups", func(c *Config) {
			c.PairGroups = map[string][]string{"a": {"rna", "atac"}, "b": {"rna", "atac"}}
		}, "appears in pair groups"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := pairedConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNew_InvalidConfigFails(t *testing.T) {
	cfg := pairedConfig()
	cfg.ZDim = 0
	_, err := New(cfg, newTestBackend())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cae config")
}

func TestForwardShapes(t *testing.T) {
	backend := newTestBackend()
	m, err := New(pairedConfig(), backend)
	require.NoError(t, err)

	xs, _ := caeInputs(t, backend)
	out, err := m.Forward(xs)
	require.NoError(t, err)

	require.Len(t, out.Zs, 2)
	assert.Equal(t, tensor.Shape{6, 6}, out.Zs[0].Shape())
	assert.Equal(t, tensor.Shape{4, 6}, out.Zs[1].Shape())
	assert.Equal(t, tensor.Shape{6, 5}, out.Rs[0].Shape())
	assert.Equal(t, tensor.Shape{4, 4}, out.Rs[1].Shape())
}

func TestForward_InputErrors(t *testing.T) {
	backend := newTestBackend()
	m, err := New(pairedConfig(), backend)
	require.NoError(t, err)

	xs, _ := caeInputs(t, backend)
	_, err = m.Forward(xs[:1])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "modality blocks")

	bad := []*tensor.Tensor[float32, testBackend]{
		xs[0],
		tensor.Zeros[float32](tensor.Shape{4, 9}, backend),
	}
	_, err = m.Forward(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `modality "atac"`)
}

func TestEncodeDecode(t *testing.T) {
	backend := newTestBackend()
	m, err := New(pairedConfig(), backend)
	require.NoError(t, err)

	xs, _ := caeInputs(t, backend)
	z, err := m.Encode(xs[0], 0)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{6, 6}, z.Shape())

	// Cross-modal reconstruction: rna latents decoded as atac.
	x, err := m.Decode(z, 1)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{6, 4}, x.Shape())

	_, err = m.Encode(xs[0], 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "modality index 5")

	_, err = m.Encode(xs[1], 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `modality "rna"`)

	_, err = m.Decode(tensor.Zeros[float32](tensor.Shape{3, 2}, backend), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "latent shape")
}

func TestSetWarmup_RoundTrip(t *testing.T) {
	backend := newTestBackend()
	m, err := New(pairedConfig(), backend)
	require.NoError(t, err)

	base := m.Coefficients()
	m.SetWarmup(true)
	warm := m.Coefficients()
	assert.Equal(t, base.Recon, warm.Recon, "warmup keeps reconstruction")
	assert.Zero(t, warm.Cross)
	assert.Zero(t, warm.Integ)
	assert.Zero(t, warm.Cycle)

	m.SetWarmup(false)
	assert.Equal(t, base, m.Coefficients(), "restore must be exact")

	// Toggling twice is idempotent.
	m.SetWarmup(true)
	m.SetWarmup(true)
	m.SetWarmup(false)
	assert.Equal(t, base, m.Coefficients())
}

func TestParameterPartition(t *testing.T) {
	backend := newTestBackend()
	m, err := New(pairedConfig(), backend)
	require.NoError(t, err)

	nonAdv := m.NonAdversarialParams()
	adv := m.AdversarialParams()
	require.NotEmpty(t, nonAdv)
	require.NotEmpty(t, adv)
	assert.Len(t, m.Parameters(), len(nonAdv)+len(adv))

	seen := make(map[*tensor.RawTensor]bool)
	for _, p := range nonAdv {
		seen[p.Tensor().Raw()] = true
	}
	for _, p := range adv {
		assert.False(t, seen[p.Tensor().Raw()], "collections must be disjoint: %s", p.Name())
	}
}

func TestStateDictRoundTrip(t *testing.T) {
	backend := newTestBackend()
	src, err := New(pairedConfig(), backend)
	require.NoError(t, err)

	otherCfg := pairedConfig()
	otherCfg.Seed = 77
	dst, err := New(otherCfg, backend)
	require.NoError(t, err)

	sd := src.StateDict()
	assert.Contains(t, sd, "encoders.0.0.weight")
	assert.Contains(t, sd, "shared_encoder.0.weight")
	assert.Contains(t, sd, "discriminator.0.weight")

	require.NoError(t, dst.LoadStateDict(sd))
	got := dst.StateDict()
	require.Len(t, got, len(sd))
	for name, raw := range sd {
		require.Contains(t, got, name)
		assert.Equal(t, raw.AsFloat32(), got[name].AsFloat32(), "parameter %s", name)
	}

	err = dst.LoadStateDict(map[string]*tensor.RawTensor{})
	require.Error(t, err, "missing keys must fail the load")
}
