// Copyright 2025 scMulti ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math/rand"

	"github.com/scmulti-ml/scmulti/internal/nn"
	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// Layers

// Linear represents a fully connected (dense) layer.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a new linear layer with Xavier initialization.
// A nil rng falls back to an unseeded source.
//
// Example:
//
//	backend := cpu.New()
//	rng := rand.New(rand.NewSource(42))
//	layer := nn.NewLinear(784, 128, backend, rng)
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B, rng *rand.Rand) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, backend, rng)
}

// NewLinearNoBias creates a linear layer without a bias term.
func NewLinearNoBias[B tensor.Backend](inFeatures, outFeatures int, backend B, rng *rand.Rand) *Linear[B] {
	return nn.NewLinearNoBias(inFeatures, outFeatures, backend, rng)
}

// MLP is a multilayer perceptron built from Linear, LayerNorm,
// LeakyReLU and Dropout blocks.
type MLP[B tensor.Backend] = nn.MLP[B]

// MLPConfig controls the shape and regularization of an MLP.
type MLPConfig[B tensor.Backend] = nn.MLPConfig[B]

// NewMLP creates an MLP mapping inFeatures to outFeatures through the
// configured hidden layers.
//
// Example:
//
//	backend := cpu.New()
//	enc := nn.NewMLP(2000, 16, nn.MLPConfig[B]{
//	    Hidden:  []int{128, 128},
//	    Norm:    true,
//	    Dropout: 0.2,
//	}, backend, rng)
func NewMLP[B tensor.Backend](inFeatures, outFeatures int, cfg MLPConfig[B], backend B, rng *rand.Rand) *MLP[B] {
	return nn.NewMLP(inFeatures, outFeatures, cfg, backend, rng)
}

// Activations

// Tanh represents the Tanh activation function.
type Tanh[B tensor.Backend] = nn.Tanh[B]

// NewTanh creates a new Tanh activation layer.
//
// Example:
//
//	tanh := nn.NewTanh[B]()
func NewTanh[B tensor.Backend]() *Tanh[B] {
	return nn.NewTanh[B]()
}

// Sigmoid represents the Sigmoid activation function.
type Sigmoid[B tensor.Backend] = nn.Sigmoid[B]

// NewSigmoid creates a new Sigmoid activation layer.
//
// Example:
//
//	sigmoid := nn.NewSigmoid[B]()
func NewSigmoid[B tensor.Backend]() *Sigmoid[B] {
	return nn.NewSigmoid[B]()
}

// LeakyReLU represents the leaky rectifier activation function.
type LeakyReLU[B tensor.Backend] = nn.LeakyReLU[B]

// NewLeakyReLU creates a new LeakyReLU activation layer with the given
// negative slope.
//
// Example:
//
//	act := nn.NewLeakyReLU[B](0.01)
func NewLeakyReLU[B tensor.Backend](negSlope float64) *LeakyReLU[B] {
	return nn.NewLeakyReLU[B](negSlope)
}

// Exp represents the element-wise exponential as a module, used as an
// output activation for strictly positive decoder means.
type Exp[B tensor.Backend] = nn.Exp[B]

// NewExp creates a new Exp activation layer.
func NewExp[B tensor.Backend]() *Exp[B] {
	return nn.NewExp[B]()
}

// Embedding and Normalization Layers

// Embedding represents a lookup table for embeddings.
type Embedding[B tensor.Backend] = nn.Embedding[B]

// NewEmbedding creates a new embedding layer.
//
// Example:
//
//	backend := cpu.New()
//	embed := nn.NewEmbedding[B](16, 10, backend, rng)  // 16 categories, dim 10
//	ids, _ := tensor.FromSlice([]int32{1, 5, 2}, tensor.Shape{3}, backend)
//	embeddings := embed.Forward(ids)  // [3, 10]
func NewEmbedding[B tensor.Backend](numEmbeddings, embeddingDim int, backend B, rng *rand.Rand) *Embedding[B] {
	return nn.NewEmbedding(numEmbeddings, embeddingDim, backend, rng)
}

// NewEmbeddingWithWeight creates an embedding layer over an existing
// weight tensor.
func NewEmbeddingWithWeight[B tensor.Backend](weight *tensor.Tensor[float32, B]) *Embedding[B] {
	return nn.NewEmbeddingWithWeight(weight)
}

// LayerNorm represents Layer Normalization.
type LayerNorm[B tensor.Backend] = nn.LayerNorm[B]

// NewLayerNorm creates a new LayerNorm layer.
//
// Example:
//
//	backend := cpu.New()
//	norm := nn.NewLayerNorm[B](128, 1e-5, backend)
//	output := norm.Forward(input)  // [..., 128] -> [..., 128]
func NewLayerNorm[B tensor.Backend](normalizedShape int, epsilon float32, backend B) *LayerNorm[B] {
	return nn.NewLayerNorm(normalizedShape, epsilon, backend)
}

// Dropout randomly zeroes activations during training.
type Dropout[B tensor.Backend] = nn.Dropout[B]

// NewDropout creates a new dropout layer with drop probability p.
//
// Example:
//
//	drop := nn.NewDropout[B](0.2, backend, rng)
//	drop.SetTraining(false) // identity in eval mode
func NewDropout[B tensor.Backend](p float64, backend B, rng *rand.Rand) *Dropout[B] {
	return nn.NewDropout(p, backend, rng)
}

// Loss Functions

// CrossEntropyLoss represents the cross-entropy loss for classification.
type CrossEntropyLoss[B tensor.Backend] = nn.CrossEntropyLoss[B]

// NewCrossEntropyLoss creates a new cross-entropy loss function.
//
// Example:
//
//	backend := cpu.New()
//	criterion := nn.NewCrossEntropyLoss(backend)
//	loss := criterion.Forward(logits, labels)
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return nn.NewCrossEntropyLoss(backend)
}

// MSELoss represents the mean squared error loss for regression.
type MSELoss[B tensor.Backend] = nn.MSELoss[B]

// NewMSELoss creates a new MSE loss function.
//
// Example:
//
//	criterion := nn.NewMSELoss[B]()
//	loss := criterion.Forward(predictions, targets)
func NewMSELoss[B tensor.Backend]() *MSELoss[B] {
	return nn.NewMSELoss[B]()
}

// Accuracy computes classification accuracy for a batch of logits
// against int32 targets. Runs on the host; nothing is recorded on the
// autodiff tape.
func Accuracy[B tensor.Backend](logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) float32 {
	return nn.Accuracy(logits, targets)
}

// Sequential

// Sequential represents a sequential container of modules.
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NewSequential creates a new sequential model.
//
// Example:
//
//	backend := cpu.New()
//	model := nn.NewSequential[B](
//	    nn.NewLinear(784, 128, backend, rng),
//	    nn.NewLeakyReLU[B](0.01),
//	    nn.NewLinear(128, 10, backend, rng),
//	)
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential(modules...)
}

// Initialization functions

// Xavier initializes a tensor using Xavier/Glorot initialization.
//
// Example:
//
//	backend := cpu.New()
//	weights := nn.Xavier(784, 128, tensor.Shape{128, 784}, backend, rng)
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, backend B, rng *rand.Rand) *tensor.Tensor[float32, B] {
	return nn.Xavier(fanIn, fanOut, shape, backend, rng)
}

// Zeros initializes a tensor with zeros (for biases).
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Zeros(shape, backend)
}

// Ones initializes a tensor with ones.
func Ones[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Ones(shape, backend)
}

// Randn initializes a tensor with random values from N(0, 1).
func Randn[B tensor.Backend](shape tensor.Shape, backend B, rng *rand.Rand) *tensor.Tensor[float32, B] {
	return nn.Randn(shape, backend, rng)
}

// State dict helpers

// MergeStateDict copies src into dst with every key prefixed.
func MergeStateDict(dst map[string]*tensor.RawTensor, prefix string, src map[string]*tensor.RawTensor) {
	nn.MergeStateDict(dst, prefix, src)
}

// SubStateDict extracts the entries under prefix with the prefix
// stripped.
func SubStateDict(sd map[string]*tensor.RawTensor, prefix string) map[string]*tensor.RawTensor {
	return nn.SubStateDict(sd, prefix)
}
