package nn

import (
	"fmt"
	"strings"
	"time"

	"github.com/scmulti-ml/scmulti/internal/serialization"
	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// OptimizerState represents an optimizer that can save/load its state.
//
// Checkpoints use this interface to serialize optimizer state without
// creating import cycles. Optimizers from the optim package implement it.
type OptimizerState interface {
	// StateDict returns the optimizer state for serialization.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict loads optimizer state from serialization.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error

	// LR returns the current learning rate.
	LR() float64
}

// Checkpoint represents a complete training state snapshot.
//
// A checkpoint includes:
//   - Model parameters (weights and biases)
//   - Optimizer state (momentum buffers, Adam moments, step count)
//   - Training metadata (epoch, step, loss)
//   - Custom metadata
//
// Checkpoints let a training run resume from a specific point, which
// matters for long runs that might be interrupted and for hyperparameter
// search where the best trial's model is reloaded afterwards.
//
// Example:
//
//	checkpoint := &nn.Checkpoint[B]{
//	    Model:     model,
//	    Optimizer: optimizer,
//	    Epoch:     10,
//	    Step:      5000,
//	    Loss:      0.123,
//	}
//	err := checkpoint.Save("checkpoint_epoch_10.scml")
//
// To resume training:
//
//	checkpoint, err := nn.LoadCheckpoint("checkpoint.scml", backend, model, optimizer)
//	startEpoch := checkpoint.Epoch + 1
type Checkpoint[B tensor.Backend] struct {
	Model     Module[B]      // The model being trained
	Optimizer OptimizerState // The optimizer with its state
	Epoch     int            // Training epoch number
	Step      int64          // Training step number
	Loss      float64        // Loss value at this checkpoint
	Metadata  map[string]any // Additional training metadata
	CreatedAt time.Time      // When the checkpoint was created
}

const optimizerPrefix = "optimizer."

// Save writes the checkpoint to a .scml file.
//
// Model parameters come from Module.StateDict, optimizer state from
// Optimizer.StateDict with an "optimizer." prefix, and the training
// position goes into the header's CheckpointMeta. The resulting file
// loads with LoadCheckpoint.
func (c *Checkpoint[B]) Save(path string) error {
	combinedStateDict := make(map[string]*tensor.RawTensor)
	for name, raw := range c.Model.StateDict() {
		combinedStateDict[name] = raw
	}
	for name, raw := range c.Optimizer.StateDict() {
		combinedStateDict[optimizerPrefix+name] = raw
	}

	checkpointMeta := &serialization.CheckpointMeta{
		IsCheckpoint:    true,
		Epoch:           c.Epoch,
		Step:            c.Step,
		Loss:            c.Loss,
		OptimizerType:   optimizerType(c.Optimizer),
		OptimizerConfig: map[string]any{"lr": c.Optimizer.LR()},
		TrainingMeta:    c.Metadata,
	}

	writer, err := serialization.NewScmlWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}
	defer func() {
		if closeErr := writer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	header := serialization.Header{
		ModelType:      "Checkpoint",
		CreatedAt:      c.CreatedAt,
		Metadata:       make(map[string]string),
		CheckpointMeta: checkpointMeta,
	}

	if err := writer.WriteStateDictWithHeader(combinedStateDict, header); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}

	return nil
}

// LoadCheckpoint loads a checkpoint from a .scml file.
//
// The model and optimizer must be pre-constructed with the same
// architecture and configuration as when the checkpoint was saved;
// their parameters are overwritten in place.
func LoadCheckpoint[B tensor.Backend](
	path string,
	backend B,
	model Module[B],
	optimizer OptimizerState,
) (*Checkpoint[B], error) {
	reader, err := serialization.NewScmlReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	defer func() {
		if closeErr := reader.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	header := reader.Header()
	if header.CheckpointMeta == nil || !header.CheckpointMeta.IsCheckpoint {
		return nil, fmt.Errorf("file is not a checkpoint")
	}

	stateDict, err := reader.ReadStateDict(backend)
	if err != nil {
		return nil, fmt.Errorf("failed to read state dict: %w", err)
	}

	modelStateDict := make(map[string]*tensor.RawTensor)
	optimizerStateDict := make(map[string]*tensor.RawTensor)
	for name, raw := range stateDict {
		if strings.HasPrefix(name, optimizerPrefix) {
			optimizerStateDict[strings.TrimPrefix(name, optimizerPrefix)] = raw
		} else {
			modelStateDict[name] = raw
		}
	}

	if err := model.LoadStateDict(modelStateDict); err != nil {
		return nil, fmt.Errorf("failed to load model state: %w", err)
	}
	if err := optimizer.LoadStateDict(optimizerStateDict); err != nil {
		return nil, fmt.Errorf("failed to load optimizer state: %w", err)
	}

	return &Checkpoint[B]{
		Model:     model,
		Optimizer: optimizer,
		Epoch:     header.CheckpointMeta.Epoch,
		Step:      header.CheckpointMeta.Step,
		Loss:      header.CheckpointMeta.Loss,
		Metadata:  header.CheckpointMeta.TrainingMeta,
		CreatedAt: header.CreatedAt,
	}, nil
}

// SaveCheckpoint saves a checkpoint with the common fields filled in.
//
// Equivalent to building a Checkpoint struct and calling Save.
func SaveCheckpoint[B tensor.Backend](
	path string,
	model Module[B],
	optimizer OptimizerState,
	epoch int,
	step int64,
	loss float64,
) error {
	checkpoint := &Checkpoint[B]{
		Model:     model,
		Optimizer: optimizer,
		Epoch:     epoch,
		Step:      step,
		Loss:      loss,
		CreatedAt: time.Now().UTC(),
	}
	return checkpoint.Save(path)
}

// optimizerType returns a string identifier for the optimizer type.
//
// Optimizers that expose a Name method report it; anything else is
// recorded generically.
func optimizerType(opt OptimizerState) string {
	if named, ok := opt.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "Optimizer"
}
