// Package train runs the training loops for the classification and
// cross-modal models: per-batch forward/backward/step over the
// gradient tape, per-epoch validation and coefficient scheduling,
// history collection, latent-space metrics, and checkpoint/metrics
// artifacts.
//
// The models themselves do no I/O. Everything a run writes to disk
// (the config snapshot, metrics.json, checkpoints) goes through this
// package, keyed by a uuid run ID.
package train

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/scmulti-ml/scmulti/internal/autodiff"
	"github.com/scmulti-ml/scmulti/internal/multivae"
	"github.com/scmulti-ml/scmulti/internal/optim"
)

// Config configures a classifier training run.
type Config struct {
	// Epochs is the number of passes over the training batches.
	Epochs int `json:"epochs"`
	// LR is the Adam learning rate.
	LR float64 `json:"lr"`
	// Coefficients weight the loss components for every epoch. Ignored
	// when Schedule is set.
	Coefficients multivae.Coefficients `json:"coefficients"`
	// Schedule overrides Coefficients per epoch when non-nil.
	Schedule CoefficientSchedule `json:"-"`
	// OutputDir enables file output: a config snapshot at the start of
	// the run, metrics.json after the final validation, checkpoints.
	// Empty keeps the run entirely in memory.
	OutputDir string `json:"output_dir,omitempty"`
	// CheckpointEvery saves a checkpoint after every n-th epoch when
	// positive. Requires OutputDir.
	CheckpointEvery int `json:"checkpoint_every,omitempty"`
	// Neighbors is the k of the graph connectivity metric. Zero means 15.
	Neighbors int `json:"neighbors,omitempty"`
	// RunID names the run in logs and artifacts. Empty draws a fresh
	// uuid.
	RunID string `json:"run_id,omitempty"`
	// Logger receives per-epoch events. Nil means the global logger.
	Logger *zerolog.Logger `json:"-"`
}

// Validate reports the first configuration error, or nil.
func (c *Config) Validate() error {
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be positive, got %d", c.Epochs)
	}
	if c.LR <= 0 {
		return fmt.Errorf("lr must be positive, got %g", c.LR)
	}
	if c.CheckpointEvery < 0 {
		return fmt.Errorf("checkpoint_every must be non-negative, got %d", c.CheckpointEvery)
	}
	if c.CheckpointEvery > 0 && c.OutputDir == "" {
		return errors.New("checkpoint_every requires an output dir")
	}
	if c.Neighbors < 0 {
		return fmt.Errorf("neighbors must be non-negative, got %d", c.Neighbors)
	}
	return nil
}

// Trainer drives a MILClassifier through the standard loop:
// per batch the tape records the forward pass, the loss differentiates
// backward from a ones seed, Adam updates in place, and the tape is
// cleared before the next batch.
type Trainer[B autodiff.BackwardCapable] struct {
	cfg      Config
	model    *multivae.MILClassifier[B]
	backend  B
	opt      *optim.Adam[B]
	schedule CoefficientSchedule
	history  History[multivae.LossRecord]
	step     int64
	log      zerolog.Logger
}

// NewTrainer builds a trainer over the model's own backend.
func NewTrainer[B autodiff.BackwardCapable](model *multivae.MILClassifier[B], cfg Config) (*Trainer[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("train config: %w", err)
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	backend := model.VAE().Backend()
	t := &Trainer[B]{
		cfg:     cfg,
		model:   model,
		backend: backend,
		opt:     optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: cfg.LR}, backend),
		log:     resolveLogger(cfg.Logger).With().Str("run_id", cfg.RunID).Logger(),
	}
	t.schedule = cfg.Schedule
	if t.schedule == nil {
		t.schedule = ConstantSchedule(cfg.Coefficients)
	}
	t.history.RunID = cfg.RunID
	return t, nil
}

// RunID returns the run identifier used in logs and artifacts.
func (t *Trainer[B]) RunID() string { return t.cfg.RunID }

// History returns the per-epoch records collected so far.
func (t *Trainer[B]) History() *History[multivae.LossRecord] { return &t.history }

// Fit runs the training loop. Every batch must hold complete bags:
// the bag grouping comes from each batch's final categorical column
// and bags never span batches. A non-empty validation set is scored
// after each epoch with recording stopped. A failed step aborts the
// run with the wrapped error.
func (t *Trainer[B]) Fit(trainBatches, valBatches []*multivae.Batch[B]) (*History[multivae.LossRecord], error) {
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
		coeffs := t.schedule(epoch)

		records := make([]multivae.LossRecord, 0, len(trainBatches))
		for i, batch := range trainBatches {
			rec, err := t.trainStep(batch, coeffs)
			if err != nil {
				return nil, fmt.Errorf("train: epoch %d batch %d: %w", epoch, i, err)
			}
			records = append(records, rec)
		}

		entry := Epoch[multivae.LossRecord]{Epoch: epoch, Train: meanLossRecord(records)}
		if len(valBatches) > 0 {
			val, err := t.evalLoss(valBatches, coeffs)
			if err != nil {
				return nil, fmt.Errorf("train: epoch %d validation: %w", epoch, err)
			}
			entry.Val = &val
		}
		t.history.Epochs = append(t.history.Epochs, entry)

		event := t.log.Info().
			Int("epoch", epoch).
			Float64("train_loss", entry.Train.Total).
			Float64("accuracy", entry.Train.Accuracy)
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

	if t.cfg.OutputDir != "" && len(valBatches) > 0 {
		if err := t.writeMetrics(valBatches); err != nil {
			return nil, err
		}
	}
	return &t.history, nil
}

// trainStep runs one recorded forward/backward/update cycle. The tape
// is cleared before the next batch so graphs never accumulate across
// steps.
func (t *Trainer[B]) trainStep(batch *multivae.Batch[B], coeffs multivae.Coefficients) (multivae.LossRecord, error) {
	tape := t.backend.GetTape()
	tape.StartRecording()
	defer func() {
		tape.StopRecording()
		tape.Clear()
	}()

	t.opt.ZeroGrad()
	outputs, gen, err := t.model.Forward(batch)
	if err != nil {
		return multivae.LossRecord{}, err
	}
	loss, err := t.model.Loss(batch, outputs, gen, coeffs)
	if err != nil {
		return multivae.LossRecord{}, err
	}
	grads := autodiff.Backward(loss.Total, t.backend)
	if err := t.opt.Step(grads); err != nil {
		return multivae.LossRecord{}, err
	}
	t.step++
	return loss.Record, nil
}

// evalLoss scores the batches without recording or dropout.
func (t *Trainer[B]) evalLoss(batches []*multivae.Batch[B], coeffs multivae.Coefficients) (multivae.LossRecord, error) {
	restore := t.stopRecording()
	defer restore()
	t.model.SetTraining(false)
	defer t.model.SetTraining(true)

	records := make([]multivae.LossRecord, 0, len(batches))
	for i, batch := range batches {
		outputs, gen, err := t.model.Forward(batch)
		if err != nil {
			return multivae.LossRecord{}, fmt.Errorf("batch %d: %w", i, err)
		}
		loss, err := t.model.Loss(batch, outputs, gen, coeffs)
		if err != nil {
			return multivae.LossRecord{}, fmt.Errorf("batch %d: %w", i, err)
		}
		records = append(records, loss.Record)
	}
	return meanLossRecord(records), nil
}

// stopRecording pauses the tape and returns the restore function.
func (t *Trainer[B]) stopRecording() func() {
	tape := t.backend.GetTape()
	was := tape.IsRecording()
	tape.StopRecording()
	return func() {
		if was {
			tape.StartRecording()
		}
	}
}

func meanLossRecord(records []multivae.LossRecord) multivae.LossRecord {
	var mean multivae.LossRecord
	if len(records) == 0 {
		return mean
	}
	for _, r := range records {
		mean.Total += r.Total
		mean.Recon += r.Recon
		mean.KL += r.KL
		mean.Integ += r.Integ
		mean.Cycle += r.Cycle
		mean.Class += r.Class
		mean.Accuracy += r.Accuracy
	}
	n := float64(len(records))
	mean.Total /= n
	mean.Recon /= n
	mean.KL /= n
	mean.Integ /= n
	mean.Cycle /= n
	mean.Class /= n
	mean.Accuracy /= n
	return mean
}

func resolveLogger(l *zerolog.Logger) zerolog.Logger {
	if l != nil {
		return *l
	}
	return log.Logger
}
