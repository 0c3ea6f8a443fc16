// Copyright 2025 scMulti ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides neural network layers and building blocks.
//
// # Overview
//
// This package contains:
//   - Layers: Linear, MLP, Embedding, LayerNorm, Dropout
//   - Activations: LeakyReLU, Sigmoid, Tanh, Exp
//   - Loss functions: CrossEntropyLoss, MSELoss
//   - Utilities: Sequential, Module interface, Parameter, Checkpoint
//   - Initialization: Xavier, Zeros, Ones, Randn
//
// # Basic Usage
//
//	import (
//	    "github.com/scmulti-ml/scmulti/nn"
//	    "github.com/scmulti-ml/scmulti/backend/cpu"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    rng := rand.New(rand.NewSource(42))
//
//	    // Build a simple MLP
//	    model := nn.NewSequential[*cpu.Backend](
//	        nn.NewLinear(784, 128, backend, rng),
//	        nn.NewLeakyReLU[*cpu.Backend](0.01),
//	        nn.NewLinear(128, 10, backend, rng),
//	    )
//
//	    // Forward pass
//	    output := model.Forward(input)
//	}
//
// # Layers
//
// Linear: Fully connected layer with Xavier initialization
//
//	layer := nn.NewLinear(inFeatures, outFeatures, backend, rng)
//
// MLP: Stack of Linear blocks with optional LayerNorm and Dropout
//
//	mlp := nn.NewMLP(inFeatures, outFeatures, nn.MLPConfig[B]{
//	    Hidden:  []int{128, 128},
//	    Norm:    true,
//	    Dropout: 0.2,
//	}, backend, rng)
//
// Embedding: Lookup table for categorical covariates
//
//	embed := nn.NewEmbedding(numCategories, dim, backend, rng)
//
// # Activations
//
// Common activation functions:
//
//	leaky := nn.NewLeakyReLU[B](0.01)
//	sigmoid := nn.NewSigmoid[B]()
//	tanh := nn.NewTanh[B]()
//
// # Loss Functions
//
// CrossEntropyLoss: For classification tasks (numerically stable)
//
//	criterion := nn.NewCrossEntropyLoss(backend)
//	loss := criterion.Forward(logits, labels)
//
// MSELoss: For regression tasks
//
//	criterion := nn.NewMSELoss[B]()
//	loss := criterion.Forward(predictions, targets)
//
// # Sequential Models
//
// Build models by composing layers:
//
//	model := nn.NewSequential[B](
//	    nn.NewLinear(2000, 256, backend, rng),
//	    nn.NewLeakyReLU[B](0.01),
//	    nn.NewLinear(256, 16, backend, rng),
//	)
//
// # Parameter Management
//
// Access model parameters for optimization:
//
//	params := model.Parameters()
//	for _, param := range params {
//	    fmt.Println(param.Name(), param.Tensor().Shape())
//	}
//
// # Checkpoints
//
// Save and resume full training state:
//
//	err := nn.SaveCheckpoint("ckpt.scml", model, optimizer, epoch, step, loss)
//	checkpoint, err := nn.LoadCheckpoint("ckpt.scml", backend, model, optimizer)
package nn
