// Package cae implements an adversarial cross-modal autoencoder for
// unpaired and partially paired single-cell modalities.
//
// Each modality owns an encoder to a hidden representation and a
// decoder back from it; a shared encoder/decoder pair, conditioned on a
// one-hot modality vector, maps hidden representations to a common
// latent space. Training aligns the per-modality latent distributions
// either with an MMD penalty or adversarially, with a discriminator
// predicting the source modality from the latent.
package cae

import (
	"fmt"
	"math/rand"

	"github.com/scmulti-ml/scmulti/internal/nn"
	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// CAE is the cross-modal autoencoder model.
type CAE[B tensor.Backend] struct {
	cfg     Config
	backend B
	rng     *rand.Rand

	// groups holds each modality's pair group name, "" for ungrouped.
	groups []string

	// coeffs is the active weighting; base keeps the configured values
	// so leaving warmup restores them exactly.
	coeffs Coefficients
	base   Coefficients

	encoders      []*nn.MLP[B]
	decoders      []*nn.MLP[B]
	sharedEncoder *nn.MLP[B]
	sharedDecoder *nn.MLP[B]
	discriminator *nn.MLP[B]

	ce *nn.CrossEntropyLoss[B]
}

// Outputs holds one forward pass: per-modality latents and
// reconstructions, in modality declaration order.
type Outputs[B tensor.Backend] struct {
	Zs []*tensor.Tensor[float32, B]
	Rs []*tensor.Tensor[float32, B]
}

// New builds the model from a validated configuration.
func New[B tensor.Backend](cfg Config, backend B) (*CAE[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cae config: %w", err)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	n := len(cfg.Modalities)

	m := &CAE[B]{
		cfg:     cfg,
		backend: backend,
		rng:     rng,
		groups:  cfg.groupOf(),
		coeffs:  cfg.Coefficients,
		base:    cfg.Coefficients,
		ce:      nn.NewCrossEntropyLoss[B](backend),
	}

	m.encoders = make([]*nn.MLP[B], n)
	m.decoders = make([]*nn.MLP[B], n)
	for i, mod := range cfg.Modalities {
		m.encoders[i] = nn.NewMLP(mod.Dim, cfg.HDim, nn.MLPConfig[B]{
			Hidden:           cfg.Hidden,
			Norm:             cfg.Norm,
			Dropout:          cfg.Dropout,
			OutputActivation: nn.NewLeakyReLU[B](0.01),
			RegularizeLast:   true,
		}, backend, rng)
		m.decoders[i] = nn.NewMLP(cfg.HDim, mod.Dim, nn.MLPConfig[B]{
			Hidden:  reverseInts(cfg.Hidden),
			Norm:    cfg.Norm,
			Dropout: cfg.Dropout,
		}, backend, rng)
	}
	// The shared pair is conditioned on the one-hot modality vector, so
	// their inputs are n wider than the representation they map.
	m.sharedEncoder = nn.NewMLP(cfg.HDim+n, cfg.ZDim, nn.MLPConfig[B]{
		Hidden:  cfg.SharedHidden,
		Norm:    cfg.Norm,
		Dropout: cfg.Dropout,
	}, backend, rng)
	m.sharedDecoder = nn.NewMLP(cfg.ZDim+n, cfg.HDim, nn.MLPConfig[B]{
		Hidden:           reverseInts(cfg.SharedHidden),
		Norm:             cfg.Norm,
		Dropout:          cfg.Dropout,
		OutputActivation: nn.NewLeakyReLU[B](0.01),
		RegularizeLast:   true,
	}, backend, rng)
	m.discriminator = nn.NewMLP(cfg.ZDim, n, nn.MLPConfig[B]{
		Hidden:  cfg.AdvHidden,
		Norm:    cfg.Norm,
		Dropout: cfg.Dropout,
	}, backend, rng)
	return m, nil
}

// Config returns the model configuration.
func (m *CAE[B]) Config() Config { return m.cfg }

// Backend returns the backend the model computes on.
func (m *CAE[B]) Backend() B { return m.backend }

// Coefficients returns the active loss weighting, which differs from
// the configured one while warmup is on.
func (m *CAE[B]) Coefficients() Coefficients { return m.coeffs }

// SetWarmup toggles warmup mode. During warmup the cross, integration
// and cycle coefficients are forced to zero so the autoencoders settle
// before alignment pressure starts; leaving warmup restores the
// configured values exactly.
func (m *CAE[B]) SetWarmup(on bool) {
	if on {
		m.coeffs.Cross = 0
		m.coeffs.Integ = 0
		m.coeffs.Cycle = 0
		return
	}
	m.coeffs = m.base
}

// Encode maps one modality's cells into the shared latent space.
func (m *CAE[B]) Encode(x *tensor.Tensor[float32, B], modality int) (*tensor.Tensor[float32, B], error) {
	if err := m.checkModality(x, modality); err != nil {
		return nil, err
	}
	return m.encode(x, modality), nil
}

// Decode maps latent rows back into one modality's feature space.
func (m *CAE[B]) Decode(z *tensor.Tensor[float32, B], modality int) (*tensor.Tensor[float32, B], error) {
	if modality < 0 || modality >= len(m.cfg.Modalities) {
		return nil, fmt.Errorf("modality index %d outside [0, %d)", modality, len(m.cfg.Modalities))
	}
	shape := z.Shape()
	if len(shape) != 2 || shape[1] != m.cfg.ZDim {
		return nil, fmt.Errorf("latent shape %v, want [cells %d]", shape, m.cfg.ZDim)
	}
	return m.decode(z, modality), nil
}

// Forward encodes and reconstructs every modality.
func (m *CAE[B]) Forward(xs []*tensor.Tensor[float32, B]) (*Outputs[B], error) {
	if err := m.validateInputs(xs); err != nil {
		return nil, err
	}
	n := len(xs)
	out := &Outputs[B]{
		Zs: make([]*tensor.Tensor[float32, B], n),
		Rs: make([]*tensor.Tensor[float32, B], n),
	}
	for i, x := range xs {
		out.Zs[i] = m.encode(x, i)
		out.Rs[i] = m.decode(out.Zs[i], i)
	}
	return out, nil
}

func (m *CAE[B]) encode(x *tensor.Tensor[float32, B], i int) *tensor.Tensor[float32, B] {
	h := m.encoders[i].Forward(x)
	joined := tensor.Cat([]*tensor.Tensor[float32, B]{h, m.modalBlock(i, h.Shape()[0])}, 1)
	return m.sharedEncoder.Forward(joined)
}

func (m *CAE[B]) decode(z *tensor.Tensor[float32, B], i int) *tensor.Tensor[float32, B] {
	joined := tensor.Cat([]*tensor.Tensor[float32, B]{z, m.modalBlock(i, z.Shape()[0])}, 1)
	return m.decoders[i].Forward(m.sharedDecoder.Forward(joined))
}

// modalBlock builds the constant [rows, n] one-hot conditioning block
// for modality i.
func (m *CAE[B]) modalBlock(i, rows int) *tensor.Tensor[float32, B] {
	n := len(m.cfg.Modalities)
	data := make([]float32, rows*n)
	for r := 0; r < rows; r++ {
		data[r*n+i] = 1
	}
	t, err := tensor.FromSlice[float32](data, tensor.Shape{rows, n}, m.backend)
	if err != nil {
		panic(fmt.Sprintf("modality one-hot: %v", err))
	}
	return t
}

func (m *CAE[B]) checkModality(x *tensor.Tensor[float32, B], i int) error {
	if i < 0 || i >= len(m.cfg.Modalities) {
		return fmt.Errorf("modality index %d outside [0, %d)", i, len(m.cfg.Modalities))
	}
	shape := x.Shape()
	if len(shape) != 2 || shape[1] != m.cfg.Modalities[i].Dim {
		return fmt.Errorf("modality %q: feature shape %v, want [cells %d]", m.cfg.Modalities[i].Name, shape, m.cfg.Modalities[i].Dim)
	}
	if shape[0] == 0 {
		return fmt.Errorf("modality %q: empty batch", m.cfg.Modalities[i].Name)
	}
	return nil
}

func (m *CAE[B]) validateInputs(xs []*tensor.Tensor[float32, B]) error {
	if len(xs) != len(m.cfg.Modalities) {
		return fmt.Errorf("got %d modality blocks, want %d", len(xs), len(m.cfg.Modalities))
	}
	for i, x := range xs {
		if err := m.checkModality(x, i); err != nil {
			return err
		}
	}
	return nil
}

// SetTraining toggles dropout across all submodules.
func (m *CAE[B]) SetTraining(training bool) {
	for i := range m.encoders {
		m.encoders[i].SetTraining(training)
		m.decoders[i].SetTraining(training)
	}
	m.sharedEncoder.SetTraining(training)
	m.sharedDecoder.SetTraining(training)
	m.discriminator.SetTraining(training)
}

// NonAdversarialParams returns the autoencoder parameters: every
// encoder and decoder plus the shared pair. The main optimizer steps
// these.
func (m *CAE[B]) NonAdversarialParams() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	for _, enc := range m.encoders {
		params = append(params, enc.Parameters()...)
	}
	for _, dec := range m.decoders {
		params = append(params, dec.Parameters()...)
	}
	params = append(params, m.sharedEncoder.Parameters()...)
	return append(params, m.sharedDecoder.Parameters()...)
}

// AdversarialParams returns the discriminator parameters for the
// adversarial optimizer.
func (m *CAE[B]) AdversarialParams() []*nn.Parameter[B] {
	return m.discriminator.Parameters()
}

// Parameters returns all trainable parameters.
func (m *CAE[B]) Parameters() []*nn.Parameter[B] {
	return append(m.NonAdversarialParams(), m.AdversarialParams()...)
}

// StateDict returns all parameters under submodule prefixes.
func (m *CAE[B]) StateDict() map[string]*tensor.RawTensor {
	sd := make(map[string]*tensor.RawTensor)
	for i := range m.encoders {
		nn.MergeStateDict(sd, fmt.Sprintf("encoders.%d.", i), m.encoders[i].StateDict())
		nn.MergeStateDict(sd, fmt.Sprintf("decoders.%d.", i), m.decoders[i].StateDict())
	}
	nn.MergeStateDict(sd, "shared_encoder.", m.sharedEncoder.StateDict())
	nn.MergeStateDict(sd, "shared_decoder.", m.sharedDecoder.StateDict())
	nn.MergeStateDict(sd, "discriminator.", m.discriminator.StateDict())
	return sd
}

// LoadStateDict restores all parameters.
func (m *CAE[B]) LoadStateDict(sd map[string]*tensor.RawTensor) error {
	for i := range m.encoders {
		if err := m.encoders[i].LoadStateDict(nn.SubStateDict(sd, fmt.Sprintf("encoders.%d.", i))); err != nil {
			return fmt.Errorf("encoder %d: %w", i, err)
		}
		if err := m.decoders[i].LoadStateDict(nn.SubStateDict(sd, fmt.Sprintf("decoders.%d.", i))); err != nil {
			return fmt.Errorf("decoder %d: %w", i, err)
		}
	}
	if err := m.sharedEncoder.LoadStateDict(nn.SubStateDict(sd, "shared_encoder.")); err != nil {
		return fmt.Errorf("shared encoder: %w", err)
	}
	if err := m.sharedDecoder.LoadStateDict(nn.SubStateDict(sd, "shared_decoder.")); err != nil {
		return fmt.Errorf("shared decoder: %w", err)
	}
	if err := m.discriminator.LoadStateDict(nn.SubStateDict(sd, "discriminator.")); err != nil {
		return fmt.Errorf("discriminator: %w", err)
	}
	return nil
}

func reverseInts(xs []int) []int {
	out := make([]int, len(xs))
	for i, v := range xs {
		out[len(xs)-1-i] = v
	}
	return out
}
