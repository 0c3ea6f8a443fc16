// Copyright 2025 scMulti ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cae provides the adversarial cross-modal autoencoder.
//
// The model learns a shared latent space over two or more modalities
// measured on different cells, with optional partial pairing. Each
// modality has its own encoder and decoder around a shared core; an
// adversarial discriminator (or an MMD penalty) aligns the per-modality
// latent distributions, and cross-reconstruction losses tie paired cells
// together.
package cae

import (
	"github.com/scmulti-ml/scmulti/internal/cae"
	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// Modality declares one input block of the autoencoder.
type Modality = cae.Modality

// Coefficients weights the loss components.
type Coefficients = cae.Coefficients

// Config configures the cross-modal autoencoder.
type Config = cae.Config

// CAE is the adversarial cross-modal autoencoder.
type CAE[B tensor.Backend] = cae.CAE[B]

// Outputs holds the latent and reconstruction tensors of one forward pass.
type Outputs[B tensor.Backend] = cae.Outputs[B]

// Record reports each loss component as a host-side float.
type Record = cae.Record

// LossOutput pairs the differentiable objectives with their components.
type LossOutput[B tensor.Backend] = cae.LossOutput[B]

// New builds a cross-modal autoencoder from its configuration.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	model, err := cae.New(cae.Config{
//	    Modalities: []cae.Modality{
//	        {Name: "rna", Dim: 2000},
//	        {Name: "atac", Dim: 5000},
//	    },
//	    ZDim:        16,
//	    HDim:        32,
//	    Hidden:      []int{128},
//	    AdvHidden:   []int{32},
//	    Adversarial: true,
//	    PairGroups:  map[string][]string{"multiome": {"rna", "atac"}},
//	    Coefficients: cae.Coefficients{
//	        Recon: 1, Cross: 1, Integ: 0.1, Cycle: 0.1,
//	    },
//	    Seed: 42,
//	}, backend)
func New[B tensor.Backend](cfg Config, backend B) (*CAE[B], error) {
	return cae.New(cfg, backend)
}
