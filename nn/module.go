// Copyright 2025 scMulti ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/scmulti-ml/scmulti/internal/nn"
	"github.com/scmulti-ml/scmulti/internal/serialization"
	"github.com/scmulti-ml/scmulti/tensor"
)

// Module is the base interface for all neural network components.
//
// Every NN module must implement:
//   - Forward: Compute output from input
//   - Parameters: Return all trainable parameters
//   - StateDict: Export parameters for serialization
//   - LoadStateDict: Import parameters from serialization
//
// Modules can be composed to build complex architectures:
//
//	model := nn.NewSequential[B](
//	    nn.NewLinear(784, 128, backend, rng),
//	    nn.NewLeakyReLU[B](0.01),
//	    nn.NewLinear(128, 10, backend, rng),
//	)
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] = nn.Module[B]

// Save saves a module to a .scml file.
//
// This is a convenience function that exports the module's state dictionary
// and writes it to a file using the SCML native format.
//
// Parameters:
//   - module: The module to save
//   - path: File path to write to
//   - modelType: Type name of the model (e.g., "Sequential", "MultiVAE")
//   - metadata: Optional metadata (can be nil)
//
// Returns an error if saving fails.
//
// Example:
//
//	backend := cpu.New()
//	model := nn.NewLinear(784, 10, backend, rng)
//	err := nn.Save(model, "model.scml", "Linear", nil)
func Save[B tensor.Backend](module Module[B], path, modelType string, metadata map[string]string) error {
	// Get state dictionary
	stateDict := module.StateDict()

	// Create writer
	writer, err := serialization.NewScmlWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = writer.Close()
	}()

	// Write state dictionary
	return writer.WriteStateDict(stateDict, modelType, metadata)
}

// Load loads a module from a .scml file.
//
// This is a convenience function that reads a state dictionary from a file
// and loads it into the provided module.
//
// Parameters:
//   - path: File path to read from
//   - backend: Backend to use for tensors
//   - module: The module to load into (will be modified)
//
// Returns the header and an error if loading fails.
//
// Example:
//
//	backend := cpu.New()
//	model := nn.NewLinear(784, 10, backend, rng)
//	header, err := nn.Load("model.scml", backend, model)
func Load[B tensor.Backend](path string, backend B, module Module[B]) (serialization.Header, error) {
	// Create reader
	reader, err := serialization.NewScmlReader(path)
	if err != nil {
		return serialization.Header{}, err
	}
	defer func() {
		_ = reader.Close()
	}()

	// Read state dictionary
	stateDict, err := reader.ReadStateDict(backend)
	if err != nil {
		return serialization.Header{}, err
	}

	// Load into module
	if err := module.LoadStateDict(stateDict); err != nil {
		return serialization.Header{}, err
	}

	return reader.Header(), nil
}

// Checkpoints

// OptimizerState represents an optimizer that can save/load its state.
// Optimizers from the optim package implement it.
type OptimizerState = nn.OptimizerState

// Checkpoint represents a complete training state snapshot: model
// parameters, optimizer state, and the training position.
type Checkpoint[B tensor.Backend] = nn.Checkpoint[B]

// SaveCheckpoint saves a training checkpoint to a .scml file.
//
// Example:
//
//	err := nn.SaveCheckpoint("ckpt_epoch_10.scml", model, optimizer, 10, 5000, 0.123)
func SaveCheckpoint[B tensor.Backend](
	path string,
	model Module[B],
	optimizer OptimizerState,
	epoch int,
	step int64,
	loss float64,
) error {
	return nn.SaveCheckpoint(path, model, optimizer, epoch, step, loss)
}

// LoadCheckpoint loads a checkpoint from a .scml file into a
// pre-constructed model and optimizer.
//
// Example:
//
//	checkpoint, err := nn.LoadCheckpoint("ckpt.scml", backend, model, optimizer)
//	startEpoch := checkpoint.Epoch + 1
func LoadCheckpoint[B tensor.Backend](
	path string,
	backend B,
	model Module[B],
	optimizer OptimizerState,
) (*Checkpoint[B], error) {
	return nn.LoadCheckpoint(path, backend, model, optimizer)
}
