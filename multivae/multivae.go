// Copyright 2025 scMulti ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package multivae provides multi-modal variational autoencoders for
// single-cell omics with an optional multiple-instance-learning
// classification head.
//
// The core model embeds cells from several concatenated modality blocks
// (gene expression, protein abundance, peak accessibility) into a shared
// latent space, conditioned on categorical and continuous covariates. The
// MIL head pools latent cell vectors into per-bag representations and
// classifies bags.
package multivae

import (
	"math/rand"

	"github.com/scmulti-ml/scmulti/internal/multivae"
	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// Configuration

// Likelihood selects the reconstruction loss family for one modality.
type Likelihood = multivae.Likelihood

// Reconstruction likelihoods.
const (
	// LikelihoodMSE scores reconstructions with squared error.
	LikelihoodMSE Likelihood = multivae.LikelihoodMSE
	// LikelihoodNB scores raw counts with the negative binomial log-likelihood.
	LikelihoodNB Likelihood = multivae.LikelihoodNB
	// LikelihoodBCE scores binarized data with binary cross-entropy.
	LikelihoodBCE Likelihood = multivae.LikelihoodBCE
)

// ParseLikelihood maps a likelihood name ("mse", "nb", "bce") to its value.
func ParseLikelihood(s string) (Likelihood, error) {
	return multivae.ParseLikelihood(s)
}

// ScoringMode selects how the MIL aggregator pools instance vectors.
type ScoringMode = multivae.ScoringMode

// Aggregator pooling modes.
const (
	// ScoreSum pools by element-wise sum.
	ScoreSum ScoringMode = multivae.ScoreSum
	// ScoreAttn pools by softmax attention.
	ScoreAttn ScoringMode = multivae.ScoreAttn
	// ScoreGatedAttn pools by gated softmax attention.
	ScoreGatedAttn ScoringMode = multivae.ScoreGatedAttn
)

// ParseScoringMode maps a scoring mode name ("sum", "attn", "gated-attn")
// to its value.
func ParseScoringMode(s string) (ScoringMode, error) {
	return multivae.ParseScoringMode(s)
}

// Coefficients weights the loss components of training objectives.
type Coefficients = multivae.Coefficients

// Modality declares one block of the concatenated feature matrix.
type Modality = multivae.Modality

// Sentinel column indexes.
const (
	// NoIntegration disables integration-loss grouping.
	NoIntegration = multivae.NoIntegration
	// NoPatient marks that no patient column exists.
	NoPatient = multivae.NoPatient
)

// VAEConfig configures the shared-latent VAE core.
type VAEConfig = multivae.VAEConfig

// MILConfig configures the MIL classification head.
type MILConfig = multivae.MILConfig

// Data

// Batch holds one minibatch of cells with covariates and labels.
type Batch[B tensor.Backend] = multivae.Batch[B]

// Bags groups cells into contiguous bags by label runs.
type Bags = multivae.Bags

// SplitByLabel builds bags from a per-cell label column. Cells sharing a
// label value must be contiguous.
func SplitByLabel(labels []int32) (*Bags, error) {
	return multivae.SplitByLabel(labels)
}

// Models

// MultiVAE is the multi-modal variational autoencoder core.
type MultiVAE[B tensor.Backend] = multivae.MultiVAE[B]

// InferenceOutputs holds the encoder-side tensors of one forward pass.
type InferenceOutputs[B tensor.Backend] = multivae.InferenceOutputs[B]

// GenerativeOutputs holds the decoder-side tensors of one forward pass.
type GenerativeOutputs[B tensor.Backend] = multivae.GenerativeOutputs[B]

// NewMultiVAE builds the VAE core from its configuration.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	model, err := multivae.NewMultiVAE(multivae.VAEConfig{
//	    Modalities: []multivae.Modality{
//	        {Name: "rna", Dim: 2000, Likelihood: multivae.LikelihoodMSE},
//	        {Name: "adt", Dim: 134, Likelihood: multivae.LikelihoodMSE},
//	    },
//	    ZDim:        16,
//	    Hidden:      []int{128},
//	    IntegrateOn: multivae.NoIntegration,
//	    Norm:        true,
//	    Seed:        42,
//	}, backend)
func NewMultiVAE[B tensor.Backend](cfg VAEConfig, backend B) (*MultiVAE[B], error) {
	return multivae.NewMultiVAE(cfg, backend)
}

// MILClassifier couples the VAE core with bag-level classification.
type MILClassifier[B tensor.Backend] = multivae.MILClassifier[B]

// MILOutputs holds the classifier tensors of one forward pass.
type MILOutputs[B tensor.Backend] = multivae.MILOutputs[B]

// LossRecord reports each loss component as a host-side float.
type LossRecord = multivae.LossRecord

// LossOutput pairs the differentiable total loss with its components.
type LossOutput[B tensor.Backend] = multivae.LossOutput[B]

// NewMILClassifier builds the MIL head on top of a VAE core.
//
// Example:
//
//	rng := rand.New(rand.NewSource(42))
//	model, err := multivae.NewMILClassifier(multivae.MILConfig{
//	    NumClasses:    2,
//	    Scoring:       multivae.ScoreGatedAttn,
//	    AttnDim:       16,
//	    PatientColumn: 0,
//	}, vae, rng)
func NewMILClassifier[B tensor.Backend](cfg MILConfig, vae *MultiVAE[B], rng *rand.Rand) (*MILClassifier[B], error) {
	return multivae.NewMILClassifier(cfg, vae, rng)
}

// Aggregator pools a set of instance vectors into one vector.
type Aggregator[B tensor.Backend] = multivae.Aggregator[B]

// NewAggregator builds a pooling module for dim-wide instance vectors.
func NewAggregator[B tensor.Backend](dim int, mode ScoringMode, attnDim int, backend B, rng *rand.Rand) (*Aggregator[B], error) {
	return multivae.NewAggregator(dim, mode, attnDim, backend, rng)
}

// Losses

// CalcKLLoss computes the KL divergence of the posterior against the
// standard normal prior, averaged over cells.
func CalcKLLoss[B tensor.Backend](mu, logvar *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return multivae.CalcKLLoss(mu, logvar)
}

// CalcIntegLoss computes the pairwise MMD between latent group means.
func CalcIntegLoss[B tensor.Backend](z *tensor.Tensor[float32, B], groups []int32) *tensor.Tensor[float32, B] {
	return multivae.CalcIntegLoss(z, groups)
}

// MMD computes the multi-scale RBF maximum mean discrepancy between two
// sample matrices.
func MMD[B tensor.Backend](a, b *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return multivae.MMD(a, b)
}
