// Copyright 2025 scMulti ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/scmulti-ml/scmulti/internal/tensor"

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// The operation set is scoped to what the variational model family
// needs: dense linear algebra, the pointwise functions that appear in
// the losses, softmax attention pooling, and the index machinery for
// bags, modality blocks and embedding lookups.
//
// Implementations:
//   - backend/cpu: single-threaded pure Go loops
//
// Decorator backends for additional functionality:
//   - autodiff: automatic differentiation (wraps any backend)
//
// Example:
//
//	import (
//	    "github.com/scmulti-ml/scmulti/tensor"
//	    "github.com/scmulti-ml/scmulti/backend/cpu"
//	)
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	z := x.Add(y)  // Uses backend.Add under the hood
type Backend interface {
	// Element-wise binary operations (NumPy-style broadcasting).
	Add(a, b *RawTensor) *RawTensor // Element-wise addition.
	Sub(a, b *RawTensor) *RawTensor // Element-wise subtraction.
	Mul(a, b *RawTensor) *RawTensor // Element-wise multiplication.
	Div(a, b *RawTensor) *RawTensor // Element-wise division.

	// Scalar operations (element-wise with scalar).
	AddScalar(x *RawTensor, scalar float64) *RawTensor // Add scalar.
	MulScalar(x *RawTensor, scalar float64) *RawTensor // Multiply by scalar.

	// Math operations (element-wise).
	Exp(x *RawTensor) *RawTensor // Exponential.
	Log(x *RawTensor) *RawTensor // Natural logarithm.

	// Activation functions.
	Tanh(x *RawTensor) *RawTensor
	Sigmoid(x *RawTensor) *RawTensor
	LeakyReLU(x *RawTensor, negSlope float64) *RawTensor

	// Softmax normalizes along the last dimension.
	Softmax(x *RawTensor) *RawTensor

	// Matrix operations.
	MatMul(a, b *RawTensor) *RawTensor      // Matrix multiplication.
	BatchMatMul(a, b *RawTensor) *RawTensor // Batched matrix multiplication for 3D tensors.

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor // Reshape tensor.
	Transpose(t *RawTensor, axes ...int) *RawTensor  // Transpose dimensions.

	// Reduction operations.
	Sum(x *RawTensor) *RawTensor                            // Total sum (scalar result).
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor  // Sum along dimension.
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor // Mean along dimension.
	Argmax(x *RawTensor, dim int) *RawTensor                // Index of maximum value along dimension.

	// Manipulation operations.
	Cat(tensors []*RawTensor, dim int) *RawTensor               // Concatenate along dimension.
	SplitSizes(x *RawTensor, sizes []int, dim int) []*RawTensor // Split into declared-width pieces.

	// Indexing operations.
	IndexSelect(x *RawTensor, indices *RawTensor) *RawTensor // Select rows (dim 0) by int32 indices.
	Embedding(weight, indices *RawTensor) *RawTensor         // Lookup embeddings by indices.

	// CrossEntropy computes mean cross-entropy loss between logits
	// [batch, classes] and int32 class targets [batch].
	CrossEntropy(logits, targets *RawTensor) *RawTensor

	// Metadata.
	Name() string   // Backend name (e.g., "CPU").
	Device() Device // Device type.
}

// Compile-time check that internal Backend implements public Backend.
var _ Backend = tensor.Backend(nil)
