package train

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/scmulti-ml/scmulti/internal/autodiff"
	"github.com/scmulti-ml/scmulti/internal/cae"
	"github.com/scmulti-ml/scmulti/internal/nn"
	"github.com/scmulti-ml/scmulti/internal/optim"
	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// CAEBatch is one mini-batch for the cross-modal autoencoder: one
// feature block per modality plus the paired/unpaired masks the loss
// expects. Masks may be nil when no pair groups are configured.
type CAEBatch[B tensor.Backend] struct {
	Xs    []*tensor.Tensor[float32, B]
	Masks [][]int32
}

// AdversarialConfig configures the alternating training loop.
type AdversarialConfig struct {
	// Epochs is the number of passes over the training batches.
	Epochs int `json:"epochs"`
	// LR is the Adam learning rate for both optimizers.
	LR float64 `json:"lr"`
	// WarmupEpochs keeps the model in warmup mode for the first epochs:
	// alignment coefficients zeroed, the discriminator game paused.
	WarmupEpochs int `json:"warmup_epochs"`
	// OutputDir enables file output, as in Config.
	OutputDir string `json:"output_dir,omitempty"`
	// CheckpointEvery saves a checkpoint after every n-th epoch when
	// positive. Requires OutputDir.
	CheckpointEvery int `json:"checkpoint_every,omitempty"`
	// RunID names the run in logs and artifacts. Empty draws a fresh
	// uuid.
	RunID string `json:"run_id,omitempty"`
	// Logger receives per-epoch events. Nil means the global logger.
	Logger *zerolog.Logger `json:"-"`
}

// Validate reports the first configuration error, or nil.
func (c *AdversarialConfig) Validate() error {
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be positive, got %d", c.Epochs)
	}
	if c.LR <= 0 {
		return fmt.Errorf("lr must be positive, got %g", c.LR)
	}
	if c.WarmupEpochs < 0 {
		return fmt.Errorf("warmup_epochs must be non-negative, got %d", c.WarmupEpochs)
	}
	if c.CheckpointEvery < 0 {
		return fmt.Errorf("checkpoint_every must be non-negative, got %d", c.CheckpointEvery)
	}
	if c.CheckpointEvery > 0 && c.OutputDir == "" {
		return errors.New("checkpoint_every requires an output dir")
	}
	return nil
}

// AdversarialTrainer alternates two optimizers over the model's named
// parameter collections: the autoencoder side descends the main
// objective, the discriminator side its own classification loss.
type AdversarialTrainer[B autodiff.BackwardCapable] struct {
	cfg     AdversarialConfig
	model   *cae.CAE[B]
	backend B
	main    *optim.Adam[B]
	disc    *optim.Adam[B]
	history History[cae.Record]
	step    int64
	log     zerolog.Logger
}

// NewAdversarialTrainer builds a trainer over the model's own backend.
func NewAdversarialTrainer[B autodiff.BackwardCapable](model *cae.CAE[B], cfg AdversarialConfig) (*AdversarialTrainer[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("train config: %w", err)
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	backend := model.Backend()
	t := &AdversarialTrainer[B]{
		cfg:     cfg,
		model:   model,
		backend: backend,
		main:    optim.NewAdam(model.NonAdversarialParams(), optim.AdamConfig{LR: cfg.LR}, backend),
		disc:    optim.NewAdam(model.AdversarialParams(), optim.AdamConfig{LR: cfg.LR}, backend),
		log:     resolveLogger(cfg.Logger).With().Str("run_id", cfg.RunID).Logger(),
	}
	t.history.RunID = cfg.RunID
	return t, nil
}

// RunID returns the run identifier used in logs and artifacts.
func (t *AdversarialTrainer[B]) RunID() string { return t.cfg.RunID }

// History returns the per-epoch records collected so far.
func (t *AdversarialTrainer[B]) History() *History[cae.Record] { return &t.history }

// Fit runs the alternating loop. Warmup mode follows the epoch index;
// once the model trains adversarially, both optimizers step on every
// batch. A failed step aborts the run with the wrapped error.
func (t *AdversarialTrainer[B]) Fit(trainBatches, valBatches []*CAEBatch[B]) (*History[cae.Record], error) {
	if len(trainBatches) == 0 {
		return nil, errors.New("train: no training batches")
	}
	if t.cfg.OutputDir != "" {
		if err := t.writeConfigSnapshot(); err != nil {
			return nil, err
		}
	}

	t.model.SetTraining(true)
	defer t.model.SetTraining(false)

	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		t.model.SetWarmup(epoch < t.cfg.WarmupEpochs)

		records := make([]cae.Record, 0, len(trainBatches))
		for i, batch := range trainBatches {
			rec, err := t.trainStep(batch)
			if err != nil {
				return nil, fmt.Errorf("train: epoch %d batch %d: %w", epoch, i, err)
			}
			records = append(records, rec)
		}

		entry := Epoch[cae.Record]{Epoch: epoch, Train: meanCAERecord(records)}
		if len(valBatches) > 0 {
			val, err := t.evalLoss(valBatches)
			if err != nil {
				return nil, fmt.Errorf("train: epoch %d validation: %w", epoch, err)
			}
			entry.Val = &val
		}
		t.history.Epochs = append(t.history.Epochs, entry)

		event := t.log.Info().
			Int("epoch", epoch).
			Bool("warmup", epoch < t.cfg.WarmupEpochs).
			Float64("train_loss", entry.Train.Total).
			Float64("adv_loss", entry.Train.Adv)
		if entry.Val != nil {
			event = event.Float64("val_loss", entry.Val.Total)
		}
		event.Msg("epoch complete")

		if t.cfg.CheckpointEvery > 0 && (epoch+1)%t.cfg.CheckpointEvery == 0 {
			if err := t.saveCheckpoint(epoch, entry); err != nil {
				return nil, fmt.Errorf("train: epoch %d: %w", epoch, err)
			}
		}
	}
	return &t.history, nil
}

// trainStep runs one recorded forward pass and steps both optimizers.
// Both gradients come off the same recorded graph before either
// update, so neither backward pass sees half-updated weights.
func (t *AdversarialTrainer[B]) trainStep(batch *CAEBatch[B]) (cae.Record, error) {
	tape := t.backend.GetTape()
	tape.StartRecording()
	defer func() {
		tape.StopRecording()
		tape.Clear()
	}()

	t.main.ZeroGrad()
	t.disc.ZeroGrad()
	out, err := t.model.Forward(batch.Xs)
	if err != nil {
		return cae.Record{}, err
	}
	loss, err := t.model.Loss(batch.Xs, out, batch.Masks)
	if err != nil {
		return cae.Record{}, err
	}

	gradsMain := autodiff.Backward(loss.Main, t.backend)
	var gradsAdv map[*tensor.RawTensor]*tensor.RawTensor
	if t.model.Config().Adversarial {
		gradsAdv = autodiff.Backward(loss.Adv, t.backend)
	}
	if err := t.main.Step(gradsMain); err != nil {
		return cae.Record{}, err
	}
	if gradsAdv != nil {
		if err := t.disc.Step(gradsAdv); err != nil {
			return cae.Record{}, err
		}
	}
	t.step++
	return loss.Record, nil
}

// evalLoss scores the batches without recording or dropout, under the
// current warmup mode.
func (t *AdversarialTrainer[B]) evalLoss(batches []*CAEBatch[B]) (cae.Record, error) {
	tape := t.backend.GetTape()
	was := tape.IsRecording()
	tape.StopRecording()
	defer func() {
		if was {
			tape.StartRecording()
		}
	}()
	t.model.SetTraining(false)
	defer t.model.SetTraining(true)

	records := make([]cae.Record, 0, len(batches))
	for i, batch := range batches {
		out, err := t.model.Forward(batch.Xs)
		if err != nil {
			return cae.Record{}, fmt.Errorf("batch %d: %w", i, err)
		}
		loss, err := t.model.Loss(batch.Xs, out, batch.Masks)
		if err != nil {
			return cae.Record{}, fmt.Errorf("batch %d: %w", i, err)
		}
		records = append(records, loss.Record)
	}
	return meanCAERecord(records), nil
}

func (t *AdversarialTrainer[B]) writeConfigSnapshot() error {
	snap := struct {
		RunID   string            `json:"run_id"`
		Trainer AdversarialConfig `json:"trainer"`
		Model   cae.Config        `json:"model"`
	}{
		RunID:   t.cfg.RunID,
		Trainer: t.cfg,
		Model:   t.model.Config(),
	}
	return writeJSON(t.cfg.OutputDir, "config.json", snap)
}

func (t *AdversarialTrainer[B]) saveCheckpoint(epoch int, entry Epoch[cae.Record]) error {
	opt := make(map[string]*tensor.RawTensor)
	nn.MergeStateDict(opt, "main.", t.main.StateDict())
	nn.MergeStateDict(opt, "disc.", t.disc.StateDict())

	path := checkpointPath(t.cfg.OutputDir, epoch)
	err := SaveCheckpoint(path, &Checkpoint{
		ModelType: "MultiModalCAE",
		Epoch:     epoch,
		Step:      t.step,
		Loss:      entry.Train.Total,
		Model:     t.model.StateDict(),
		Optimizer: opt,
	})
	if err != nil {
		return err
	}
	t.log.Info().Int("epoch", epoch).Str("path", path).Msg("checkpoint saved")
	return nil
}

// Restore loads a checkpoint saved by this trainer so Fit continues
// from the stored model, optimizer and step state.
func (t *AdversarialTrainer[B]) Restore(path string) error {
	ckpt, err := LoadCheckpoint(path, t.backend)
	if err != nil {
		return err
	}
	if err := t.model.LoadStateDict(ckpt.Model); err != nil {
		return fmt.Errorf("train: checkpoint: %w", err)
	}
	if err := t.main.LoadStateDict(nn.SubStateDict(ckpt.Optimizer, "main.")); err != nil {
		return fmt.Errorf("train: checkpoint: %w", err)
	}
	if err := t.disc.LoadStateDict(nn.SubStateDict(ckpt.Optimizer, "disc.")); err != nil {
		return fmt.Errorf("train: checkpoint: %w", err)
	}
	t.step = ckpt.Step
	return nil
}

func meanCAERecord(records []cae.Record) cae.Record {
	var mean cae.Record
	if len(records) == 0 {
		return mean
	}
	for _, r := range records {
		mean.Total += r.Total
		mean.Recon += r.Recon
		mean.Cross += r.Cross
		mean.Integ += r.Integ
		mean.Cycle += r.Cycle
		mean.Adv += r.Adv
	}
	n := float64(len(records))
	mean.Total /= n
	mean.Recon /= n
	mean.Cross /= n
	mean.Integ /= n
	mean.Cycle /= n
	mean.Adv /= n
	return mean
}
