// Package nn implements the neural network building blocks used by the
// multi-modal models in this repository.
//
// The package provides:
//   - Module interface: base interface for all NN components
//   - Parameter: trainable parameters with gradient slots
//   - Linear, Embedding, LayerNorm, Dropout, MLP: layers
//   - Tanh, Sigmoid, LeakyReLU: activations
//   - MSELoss, CrossEntropyLoss: loss functions
//   - Sequential: container for stacking layers
//
// Design inspired by PyTorch's nn.Module but adapted for Go generics.
package nn

import (
	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Every module must implement the forward computation, expose its
// trainable parameters, and support state dict round-trips so models
// compose into checkpointable trees:
//
//	model := nn.NewSequential[Backend](
//	    nn.NewLinear(128, 32, backend, rng),
//	    nn.NewLeakyReLU[Backend](0.01),
//	    nn.NewLinear(32, 8, backend, rng),
//	)
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	//
	// The input tensor should have the appropriate shape for this module.
	// For example, Linear expects [batch, in_features].
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module,
	// including nested module parameters. Returns an empty slice for
	// modules without trainable parameters (e.g. activations).
	Parameters() []*Parameter[B]

	// StateDict returns a map of parameter names to raw tensors.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict loads parameters from a state dictionary.
	// Shapes and dtypes are validated; values are copied in place.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}
