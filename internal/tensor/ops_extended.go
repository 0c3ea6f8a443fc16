package tensor

// Extended tensor operations - typed wrappers for backend operations.
//
// This file provides type-safe wrappers at the Tensor[T, B] level for the
// scalar, pointwise, reduction and indexing operations of the backend.

// MulScalar multiplies each element of the tensor by a scalar value.
//
// Example:
//
//	x := tensor.Randn[float32](Shape{2, 3}, backend, nil)
//	y := x.MulScalar(2.5)  // multiply all elements by 2.5
func (t *Tensor[T, B]) MulScalar(scalar float64) *Tensor[T, B] {
	result := t.backend.MulScalar(t.raw, scalar)
	return New[T, B](result, t.backend)
}

// AddScalar adds a scalar value to each element of the tensor.
//
// Example:
//
//	x := tensor.Randn[float32](Shape{2, 3}, backend, nil)
//	y := x.AddScalar(1.0)  // add 1.0 to all elements
func (t *Tensor[T, B]) AddScalar(scalar float64) *Tensor[T, B] {
	result := t.backend.AddScalar(t.raw, scalar)
	return New[T, B](result, t.backend)
}

// Exp computes the exponential (e^x) of each element.
func (t *Tensor[T, B]) Exp() *Tensor[T, B] {
	result := t.backend.Exp(t.raw)
	return New[T, B](result, t.backend)
}

// Log computes the natural logarithm (ln(x)) of each element.
func (t *Tensor[T, B]) Log() *Tensor[T, B] {
	result := t.backend.Log(t.raw)
	return New[T, B](result, t.backend)
}

// Log1p computes ln(1+x) of each element.
// Used for variance-stabilizing transforms of continuous covariates.
func (t *Tensor[T, B]) Log1p() *Tensor[T, B] {
	return t.AddScalar(1.0).Log()
}

// Tanh computes the hyperbolic tangent of each element.
func (t *Tensor[T, B]) Tanh() *Tensor[T, B] {
	result := t.backend.Tanh(t.raw)
	return New[T, B](result, t.backend)
}

// Sigmoid computes the logistic function of each element.
func (t *Tensor[T, B]) Sigmoid() *Tensor[T, B] {
	result := t.backend.Sigmoid(t.raw)
	return New[T, B](result, t.backend)
}

// LeakyReLU computes max(x, negSlope*x) of each element.
func (t *Tensor[T, B]) LeakyReLU(negSlope float64) *Tensor[T, B] {
	result := t.backend.LeakyReLU(t.raw, negSlope)
	return New[T, B](result, t.backend)
}

// Softmax normalizes along the last dimension.
//
// Example:
//
//	logits := tensor.Randn[float32](Shape{2, 10}, backend, nil)
//	probs := logits.Softmax()  // rows sum to 1
func (t *Tensor[T, B]) Softmax() *Tensor[T, B] {
	result := t.backend.Softmax(t.raw)
	return New[T, B](result, t.backend)
}

// Sum computes the sum of all elements in the tensor, returning a scalar.
//
// Example:
//
//	x := tensor.Randn[float32](Shape{3, 4}, backend, nil)
//	total := x.Sum()  // sum of all 12 elements
func (t *Tensor[T, B]) Sum() *Tensor[T, B] {
	result := t.backend.Sum(t.raw)
	return New[T, B](result, t.backend)
}

// SumDim sums along the specified dimension.
// Supports negative dimension indexing (-1 = last dimension).
func (t *Tensor[T, B]) SumDim(dim int, keepDim bool) *Tensor[T, B] {
	result := t.backend.SumDim(t.raw, dim, keepDim)
	return New[T, B](result, t.backend)
}

// MeanDim averages along the specified dimension.
// Supports negative dimension indexing (-1 = last dimension).
func (t *Tensor[T, B]) MeanDim(dim int, keepDim bool) *Tensor[T, B] {
	result := t.backend.MeanDim(t.raw, dim, keepDim)
	return New[T, B](result, t.backend)
}

// Mean computes the mean of all elements, returning a scalar.
func (t *Tensor[T, B]) Mean() *Tensor[T, B] {
	n := t.NumElements()
	return t.Sum().MulScalar(1.0 / float64(n))
}

// Argmax returns the index of the maximum value along the specified dimension.
//
// Returns a tensor of type int32 with the same shape as the input except
// the specified dimension is removed. Supports negative dimension indexing.
//
// Example:
//
//	x := tensor.Randn[float32](Shape{3, 4}, backend, nil)
//	indices := x.Argmax(1)  // Shape: [3], index of max in each row
func (t *Tensor[T, B]) Argmax(dim int) *Tensor[int32, B] {
	result := t.backend.Argmax(t.raw, dim)
	return New[int32, B](result, t.backend)
}

// IndexSelect selects rows (dim 0) of the tensor by int32 indices.
//
// Example:
//
//	x := tensor.Randn[float32](Shape{5, 3}, backend, nil)
//	idx, _ := tensor.FromSlice([]int32{0, 2}, Shape{2}, backend)
//	y := x.IndexSelect(idx)  // Shape: [2, 3]
func (t *Tensor[T, B]) IndexSelect(indices *Tensor[int32, B]) *Tensor[T, B] {
	result := t.backend.IndexSelect(t.raw, indices.raw)
	return New[T, B](result, t.backend)
}

// Embedding treats the tensor as a lookup table [vocab, dim] and gathers
// rows for the given int32 indices. The result has shape
// [indices.Shape()..., dim]. Gradients scatter-add back to the table.
func (t *Tensor[T, B]) Embedding(indices *Tensor[int32, B]) *Tensor[T, B] {
	result := t.backend.Embedding(t.raw, indices.raw)
	return New[T, B](result, t.backend)
}

// CrossEntropy computes the mean cross-entropy loss between the tensor
// (logits, [batch, classes]) and int32 class targets [batch].
// Returns a scalar tensor.
func (t *Tensor[T, B]) CrossEntropy(targets *Tensor[int32, B]) *Tensor[T, B] {
	result := t.backend.CrossEntropy(t.raw, targets.raw)
	return New[T, B](result, t.backend)
}
