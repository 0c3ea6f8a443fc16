package tensor

// Cat concatenates tensors along the specified dimension.
//
// All tensors must have the same shape except along the concatenation dimension.
// Supports negative dim indexing (-1 = last dimension).
//
// Example:
//
//	a := tensor.Randn[float32](Shape{2, 3}, backend, nil)
//	b := tensor.Randn[float32](Shape{2, 5}, backend, nil)
//	c := tensor.Cat([]*Tensor[float32, B]{a, b}, 1) // Shape: [2, 8]
func Cat[T DType, B Backend](tensors []*Tensor[T, B], dim int) *Tensor[T, B] {
	if len(tensors) == 0 {
		panic("cat: at least one tensor required")
	}

	if len(tensors) == 1 {
		// Single tensor - return clone
		return tensors[0].Clone()
	}

	// Extract raw tensors and backend
	rawTensors := make([]*RawTensor, len(tensors))
	backend := tensors[0].backend
	for i, t := range tensors {
		rawTensors[i] = t.raw
	}

	result := backend.Cat(rawTensors, dim)
	return New[T, B](result, backend)
}

// SplitSizes splits the tensor into pieces of the declared sizes along the
// specified dimension. The sizes must sum to the dimension size.
// Supports negative dim indexing (-1 = last dimension).
//
// Example:
//
//	x := tensor.Randn[float32](Shape{4, 10}, backend, nil)
//	parts := x.SplitSizes([]int{6, 4}, 1) // shapes [4,6] and [4,4]
func (t *Tensor[T, B]) SplitSizes(sizes []int, dim int) []*Tensor[T, B] {
	rawParts := t.backend.SplitSizes(t.raw, sizes, dim)
	parts := make([]*Tensor[T, B], len(rawParts))
	for i, raw := range rawParts {
		parts[i] = New[T, B](raw, t.backend)
	}
	return parts
}

// Unsqueeze adds a dimension of size 1 at the specified position.
// Supports negative dim indexing. Implemented as a reshape, so the
// operation participates in gradient tracking.
//
// Example:
//
//	x := tensor.Randn[float32](Shape{2, 3}, backend, nil)
//	y := x.Unsqueeze(1)  // Shape: [2, 1, 3]
//	z := x.Unsqueeze(-1) // Shape: [2, 3, 1]
func (t *Tensor[T, B]) Unsqueeze(dim int) *Tensor[T, B] {
	shape := t.Shape()
	if dim < 0 {
		dim = len(shape) + 1 + dim
	}
	newShape := make(Shape, 0, len(shape)+1)
	newShape = append(newShape, shape[:dim]...)
	newShape = append(newShape, 1)
	newShape = append(newShape, shape[dim:]...)
	result := t.backend.Reshape(t.raw, newShape)
	return New[T, B](result, t.backend)
}

// Squeeze removes a dimension of size 1 at the specified position.
// Panics if the dimension size is not 1. Supports negative dim indexing.
//
// Example:
//
//	x := tensor.Randn[float32](Shape{2, 1, 3}, backend, nil)
//	y := x.Squeeze(1)  // Shape: [2, 3]
func (t *Tensor[T, B]) Squeeze(dim int) *Tensor[T, B] {
	shape := t.Shape()
	if dim < 0 {
		dim = len(shape) + dim
	}
	if shape[dim] != 1 {
		panic("squeeze: dimension size is not 1")
	}
	newShape := make(Shape, 0, len(shape)-1)
	newShape = append(newShape, shape[:dim]...)
	newShape = append(newShape, shape[dim+1:]...)
	result := t.backend.Reshape(t.raw, newShape)
	return New[T, B](result, t.backend)
}
