// Copyright 2025 scMulti ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package train provides training loops for the multivae and cae models.
//
// Trainer drives the MIL classifier with coefficient scheduling, epoch
// checkpoints and latent space metrics; AdversarialTrainer drives the
// cross-modal autoencoder with its alternating discriminator updates.
package train

import (
	"github.com/scmulti-ml/scmulti/internal/autodiff"
	"github.com/scmulti-ml/scmulti/internal/cae"
	"github.com/scmulti-ml/scmulti/internal/multivae"
	"github.com/scmulti-ml/scmulti/internal/tensor"
	"github.com/scmulti-ml/scmulti/internal/train"
)

// Histories

// Epoch holds one epoch of training and validation loss records.
type Epoch[R any] = train.Epoch[R]

// History accumulates per-epoch records over a training run.
type History[R any] = train.History[R]

// MIL training

// Config configures a Trainer.
type Config = train.Config

// CoefficientSchedule maps an epoch index to loss coefficients.
type CoefficientSchedule = train.CoefficientSchedule

// ConstantSchedule returns base for every epoch.
func ConstantSchedule(base multivae.Coefficients) CoefficientSchedule {
	return train.ConstantSchedule(base)
}

// WarmupSchedule zeroes the integration and cycle coefficients for the
// first warmupEpochs epochs and returns base unchanged afterwards.
func WarmupSchedule(warmupEpochs int, base multivae.Coefficients) CoefficientSchedule {
	return train.WarmupSchedule(warmupEpochs, base)
}

// Trainer trains a MIL classifier.
type Trainer[B autodiff.BackwardCapable] = train.Trainer[B]

// NewTrainer builds a trainer for the given model.
//
// Example:
//
//	trainer, err := train.NewTrainer(model, train.Config{
//	    Epochs:       50,
//	    LR:           1e-3,
//	    Coefficients: multivae.Coefficients{Recon: 1, KL: 1e-2, Class: 1},
//	    OutputDir:    "runs",
//	})
//	history, err := trainer.Fit(trainBatches, valBatches)
func NewTrainer[B autodiff.BackwardCapable](model *multivae.MILClassifier[B], cfg Config) (*Trainer[B], error) {
	return train.NewTrainer(model, cfg)
}

// Checkpoint is a saved training snapshot of model weights and position.
type Checkpoint = train.Checkpoint

// SaveCheckpoint writes a checkpoint to path.
func SaveCheckpoint(path string, ckpt *Checkpoint) error {
	return train.SaveCheckpoint(path, ckpt)
}

// LoadCheckpoint reads a checkpoint written by SaveCheckpoint.
func LoadCheckpoint(path string, backend tensor.Backend) (*Checkpoint, error) {
	return train.LoadCheckpoint(path, backend)
}

// Metrics

// Metrics reports latent space quality scores.
type Metrics = train.Metrics

// LatentRows converts a latent matrix to per-cell float64 rows for the
// metric functions.
func LatentRows[B tensor.Backend](z *tensor.Tensor[float32, B]) [][]float64 {
	return train.LatentRows(z)
}

// SilhouetteScore computes the average silhouette width of the labeled
// rows, rescaled to [0, 1].
func SilhouetteScore(rows [][]float64, labels []int32) (float64, error) {
	return train.SilhouetteScore(rows, labels)
}

// GraphConnectivity computes the label-wise connectivity of the
// k-nearest-neighbor graph, in [0, 1].
func GraphConnectivity(rows [][]float64, labels []int32, k int) (float64, error) {
	return train.GraphConnectivity(rows, labels, k)
}

// Adversarial training

// CAEBatch holds one minibatch of per-modality matrices with pair masks.
type CAEBatch[B tensor.Backend] = train.CAEBatch[B]

// AdversarialConfig configures an AdversarialTrainer.
type AdversarialConfig = train.AdversarialConfig

// AdversarialTrainer trains a cross-modal autoencoder with alternating
// generator and discriminator updates.
type AdversarialTrainer[B autodiff.BackwardCapable] = train.AdversarialTrainer[B]

// NewAdversarialTrainer builds a trainer for the given model.
//
// Example:
//
//	trainer, err := train.NewAdversarialTrainer(model, train.AdversarialConfig{
//	    Epochs:       100,
//	    WarmupEpochs: 10,
//	    LR:           1e-3,
//	})
func NewAdversarialTrainer[B autodiff.BackwardCapable](model *cae.CAE[B], cfg AdversarialConfig) (*AdversarialTrainer[B], error) {
	return train.NewAdversarialTrainer(model, cfg)
}
