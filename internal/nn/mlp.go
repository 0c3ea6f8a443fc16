package nn

import (
	"math/rand"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// MLPConfig controls the shape and regularization of an MLP.
type MLPConfig[B tensor.Backend] struct {
	// Hidden lists the widths of the hidden layers, outermost first.
	// An empty slice gives a single linear map from input to output.
	Hidden []int

	// Norm inserts a LayerNorm after each hidden linear layer.
	Norm bool

	// Dropout is the drop probability applied after each hidden
	// activation. Zero disables dropout entirely.
	Dropout float64

	// OutputActivation is applied to the final linear output. Nil
	// leaves the output linear (e.g. for logits or Gaussian means);
	// decoders pass Sigmoid or Exp here depending on their likelihood.
	OutputActivation Module[B]

	// RegularizeLast applies the norm/activation/dropout stack to the
	// final linear layer as well, before OutputActivation. Attention
	// aggregators regularize their projection heads this way.
	RegularizeLast bool
}

// MLP is a multilayer perceptron built from Linear, LayerNorm,
// LeakyReLU and Dropout blocks.
//
// Every encoder, decoder and classifier head in the models is an MLP
// with a different config, so this is the workhorse module of the
// package:
//
//	enc := nn.NewMLP(2000, 16, nn.MLPConfig[B]{
//	    Hidden:  []int{128, 128},
//	    Norm:    true,
//	    Dropout: 0.2,
//	}, backend, rng)
type MLP[B tensor.Backend] struct {
	seq *Sequential[B]
	in  int
	out int
}

const leakySlope = 0.01

// NewMLP creates an MLP mapping inFeatures to outFeatures through
// cfg.Hidden hidden layers.
//
// Each hidden block is Linear -> [LayerNorm] -> LeakyReLU -> [Dropout].
// The output block is Linear -> [regularization if RegularizeLast] ->
// [OutputActivation].
func NewMLP[B tensor.Backend](inFeatures, outFeatures int, cfg MLPConfig[B], backend B, rng *rand.Rand) *MLP[B] {
	seq := NewSequential[B]()

	regularize := func(width int) {
		if cfg.Norm {
			seq.Add(NewLayerNorm[B](width, 1e-5, backend))
		}
		seq.Add(NewLeakyReLU[B](leakySlope))
		if cfg.Dropout > 0 {
			seq.Add(NewDropout[B](cfg.Dropout, backend, rng))
		}
	}

	prev := inFeatures
	for _, width := range cfg.Hidden {
		seq.Add(NewLinear[B](prev, width, backend, rng))
		regularize(width)
		prev = width
	}

	seq.Add(NewLinear[B](prev, outFeatures, backend, rng))
	if cfg.RegularizeLast {
		regularize(outFeatures)
	}
	if cfg.OutputActivation != nil {
		seq.Add(cfg.OutputActivation)
	}

	return &MLP[B]{seq: seq, in: inFeatures, out: outFeatures}
}

// Forward applies the MLP. Input may be [batch, in] or [batch, n, in];
// the shape passes through the Linear layers unchanged except for the
// last dimension.
func (m *MLP[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return m.seq.Forward(input)
}

// Parameters returns all trainable parameters.
func (m *MLP[B]) Parameters() []*Parameter[B] {
	return m.seq.Parameters()
}

// InFeatures returns the input width.
func (m *MLP[B]) InFeatures() int {
	return m.in
}

// OutFeatures returns the output width.
func (m *MLP[B]) OutFeatures() int {
	return m.out
}

// SetTraining propagates the training/eval mode to the dropout layers.
func (m *MLP[B]) SetTraining(training bool) {
	m.seq.SetTraining(training)
}

// StateDict returns the underlying Sequential's state dict.
func (m *MLP[B]) StateDict() map[string]*tensor.RawTensor {
	return m.seq.StateDict()
}

// LoadStateDict restores parameters into the underlying Sequential.
func (m *MLP[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return m.seq.LoadStateDict(stateDict)
}
