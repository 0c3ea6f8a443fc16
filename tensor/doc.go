// Copyright 2025 scMulti ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides type-safe tensor operations for the scMulti framework.
//
// # Overview
//
// Tensors are the fundamental data structure in scMulti. This package provides:
//   - Generic type-safe tensors (Tensor[T, B])
//   - NumPy-style broadcasting
//   - Zero-copy operations where possible
//   - Reference-counted buffers with copy-on-write
//
// # Basic Usage
//
//	import (
//	    "github.com/scmulti-ml/scmulti/tensor"
//	    "github.com/scmulti-ml/scmulti/backend/cpu"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    // Create tensors
//	    x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	    y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//
//	    // Tensor operations
//	    z := x.Add(y)
//	    result := x.MatMul(y.Transpose())
//	}
//
// # Supported Data Types
//
// The tensor package supports the following data types via the DType constraint:
//   - float32 (model math)
//   - float64 (extra precision where wanted)
//   - int32 (categorical indices and labels)
//
// # Broadcasting
//
// Element-wise operations follow NumPy broadcasting rules:
//
//	a := tensor.Zeros[float32](tensor.Shape{3, 1}, backend)     // (3, 1)
//	b := tensor.Ones[float32](tensor.Shape{3, 4}, backend)      // (3, 4)
//	c := a.Add(b)                                                // (3, 4)
//
// # Memory Management
//
// Tensors use zero-copy operations where possible. The underlying data is
// reference-counted and automatically freed when no longer needed.
//
// # Available Operations
//
// Scalar operations:
//
//	y := x.MulScalar(2.0)    // Multiply by scalar
//	y := x.AddScalar(1.0)    // Add scalar
//
// Math operations:
//
//	y := x.Exp()             // Exponential
//	y := x.Log()             // Natural logarithm
//	y := x.Log1p()           // log(1 + x), stable near zero
//
// Activations:
//
//	y := x.Tanh()            // Hyperbolic tangent
//	y := x.Sigmoid()         // Logistic sigmoid
//	y := x.LeakyReLU(0.01)   // Leaky rectifier
//	y := x.Softmax()         // Softmax over the last dimension
//
// Reductions:
//
//	s := x.Sum()                  // Total sum (scalar)
//	m := x.Mean()                 // Total mean (scalar)
//	y := x.SumDim(0, false)       // Sum along a dimension
//	y := x.MeanDim(1, true)       // Mean along a dimension, kept
//	idx := x.Argmax(-1)           // Index of maximum along a dimension
//
// Indexing and shape:
//
//	rows := x.IndexSelect(idx)        // Select rows by int32 indices
//	parts := x.SplitSizes([]int{6, 4}, 1)  // Split into declared widths
//	y := x.Unsqueeze(1)               // Add a size-1 dimension
//	y := x.Squeeze(1)                 // Remove a size-1 dimension
//
// See method documentation for the full list of operations.
package tensor
