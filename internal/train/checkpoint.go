package train

import (
	"fmt"
	"path/filepath"

	"github.com/scmulti-ml/scmulti/internal/multivae"
	"github.com/scmulti-ml/scmulti/internal/nn"
	"github.com/scmulti-ml/scmulti/internal/serialization"
	"github.com/scmulti-ml/scmulti/internal/tensor"
)

const (
	modelPrefix     = "model."
	optimizerPrefix = "optimizer."
)

// Checkpoint bundles the state needed to resume a run: the model and
// optimizer state dicts plus the bookkeeping that lands in the file
// header.
type Checkpoint struct {
	ModelType string
	Epoch     int
	Step      int64
	Loss      float64
	Model     map[string]*tensor.RawTensor
	Optimizer map[string]*tensor.RawTensor
}

// SaveCheckpoint writes ckpt to path in the .scml format. Model and
// optimizer tensors share one state dict under "model." and
// "optimizer." prefixes.
func SaveCheckpoint(path string, ckpt *Checkpoint) error {
	merged := make(map[string]*tensor.RawTensor, len(ckpt.Model)+len(ckpt.Optimizer))
	nn.MergeStateDict(merged, modelPrefix, ckpt.Model)
	nn.MergeStateDict(merged, optimizerPrefix, ckpt.Optimizer)

	header := serialization.Header{
		ModelType: ckpt.ModelType,
		CheckpointMeta: &serialization.CheckpointMeta{
			IsCheckpoint:  true,
			Epoch:         ckpt.Epoch,
			Step:          ckpt.Step,
			Loss:          ckpt.Loss,
			OptimizerType: "Adam",
		},
	}

	writer, err := serialization.NewScmlWriter(path)
	if err != nil {
		return fmt.Errorf("train: checkpoint: %w", err)
	}
	if err := writer.WriteStateDictWithHeader(merged, header); err != nil {
		_ = writer.Close()
		return fmt.Errorf("train: checkpoint: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("train: checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint reads a checkpoint written by SaveCheckpoint.
func LoadCheckpoint(path string, backend tensor.Backend) (*Checkpoint, error) {
	reader, err := serialization.NewScmlReader(path)
	if err != nil {
		return nil, fmt.Errorf("train: checkpoint: %w", err)
	}
	defer reader.Close()

	sd, err := reader.ReadStateDict(backend)
	if err != nil {
		return nil, fmt.Errorf("train: checkpoint: %w", err)
	}

	header := reader.Header()
	ckpt := &Checkpoint{
		ModelType: header.ModelType,
		Model:     nn.SubStateDict(sd, modelPrefix),
		Optimizer: nn.SubStateDict(sd, optimizerPrefix),
	}
	if meta := header.CheckpointMeta; meta != nil {
		ckpt.Epoch = meta.Epoch
		ckpt.Step = meta.Step
		ckpt.Loss = meta.Loss
	}
	return ckpt, nil
}

func checkpointPath(dir string, epoch int) string {
	return filepath.Join(dir, fmt.Sprintf("checkpoint-epoch%03d.scml", epoch))
}

// saveCheckpoint writes the model and optimizer state into the output
// directory.
func (t *Trainer[B]) saveCheckpoint(epoch int, entry Epoch[multivae.LossRecord]) error {
	path := checkpointPath(t.cfg.OutputDir, epoch)
	err := SaveCheckpoint(path, &Checkpoint{
		ModelType: "MILClassifier",
		Epoch:     epoch,
		Step:      t.step,
		Loss:      entry.Train.Total,
		Model:     t.model.StateDict(),
		Optimizer: t.opt.StateDict(),
	})
	if err != nil {
		return err
	}
	t.log.Info().Int("epoch", epoch).Str("path", path).Msg("checkpoint saved")
	return nil
}

// Restore loads a checkpoint saved by this trainer so Fit continues
// from the stored model, optimizer and step state. Restoring the
// optimizer matters: Adam's bias correction depends on its timestep.
func (t *Trainer[B]) Restore(path string) error {
	ckpt, err := LoadCheckpoint(path, t.backend)
	if err != nil {
		return err
	}
	if err := t.model.LoadStateDict(ckpt.Model); err != nil {
		return fmt.Errorf("train: checkpoint: %w", err)
	}
	if err := t.opt.LoadStateDict(ckpt.Optimizer); err != nil {
		return fmt.Errorf("train: checkpoint: %w", err)
	}
	t.step = ckpt.Step
	return nil
}
