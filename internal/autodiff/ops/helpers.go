package ops

import (
	"fmt"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// reduceBroadcast reduces a gradient tensor to match the target shape.
// This is necessary when broadcasting was used in the forward pass.
//
// Example:
//
//	Forward: a[3,1] + b[3,4] -> c[3,4]  (a was broadcast along dim 1)
//	Backward: grad_c[3,4] -> grad_a[3,1] (sum along dim 1)
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	gradShape := grad.Shape()

	// If shapes already match, clone to avoid aliasing issues
	// (prevents inplace operations from modifying shared gradients)
	if gradShape.Equal(targetShape) {
		return grad.Clone()
	}

	// NumPy broadcasting aligns shapes from the right.
	gradDims := len(gradShape)
	targetDims := len(targetShape)

	// If target has fewer dimensions, sum leading dimensions away first.
	if targetDims < gradDims {
		result := grad
		for i := 0; i < gradDims-targetDims; i++ {
			summed := sumAlongDimension(result, 0)
			// Drop the leading size-1 dimension left by the sum.
			newShape := summed.Shape()[1:]
			if len(newShape) == 0 {
				newShape = tensor.Shape{1}
			}
			result = backend.Reshape(summed, newShape.Clone())
		}
		grad = result
		gradShape = grad.Shape()
	}

	// Sum along dimensions where the target is 1 but the gradient is larger.
	result := grad
	for i := 0; i < targetDims && i < len(result.Shape()); i++ {
		if targetShape[i] == 1 && result.Shape()[i] > 1 {
			result = sumAlongDimension(result, i)
		}
	}

	if !result.Shape().Equal(targetShape) {
		result = backend.Reshape(result, targetShape)
	}

	return result
}

// sumAlongDimension sums a tensor along the specified dimension,
// keeping the dimension with size 1.
func sumAlongDimension(t *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := t.Shape()
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("sumAlongDimension: invalid dimension %d for shape %v", dim, shape))
	}

	outShape := shape.Clone()
	outShape[dim] = 1

	result, err := tensor.NewRaw(outShape, t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("sumAlongDimension: failed to create result: %v", err))
	}

	outer := 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	dimSize := shape[dim]
	inner := 1
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}

	switch t.DType() {
	case tensor.Float32:
		src := t.AsFloat32()
		dst := result.AsFloat32()
		for i := range dst {
			dst[i] = 0
		}
		for o := 0; o < outer; o++ {
			for d := 0; d < dimSize; d++ {
				base := o*dimSize*inner + d*inner
				for in := 0; in < inner; in++ {
					dst[o*inner+in] += src[base+in]
				}
			}
		}
	case tensor.Float64:
		src := t.AsFloat64()
		dst := result.AsFloat64()
		for i := range dst {
			dst[i] = 0
		}
		for o := 0; o < outer; o++ {
			for d := 0; d < dimSize; d++ {
				base := o*dimSize*inner + d*inner
				for in := 0; in < inner; in++ {
					dst[o*inner+in] += src[base+in]
				}
			}
		}
	default:
		panic(fmt.Sprintf("sumAlongDimension: unsupported dtype %s", t.DType()))
	}

	return result
}

// negateGradient returns -grad.
func negateGradient(grad *tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	return backend.MulScalar(grad, -1)
}

// unsqueezeDim reinserts a reduced dimension of size 1 at position dim,
// so the gradient of a keepDim=false reduction broadcasts against the
// original input shape.
func unsqueezeDim(t *tensor.RawTensor, dim int, inputShape tensor.Shape) *tensor.RawTensor {
	ndim := len(inputShape)
	if dim < 0 {
		dim = ndim + dim
	}

	newShape := inputShape.Clone()
	newShape[dim] = 1

	result, err := tensor.NewRaw(newShape, t.DType(), t.Device())
	if err != nil {
		panic("unsqueezeDim: failed to create result tensor")
	}

	switch t.DType() {
	case tensor.Float32:
		copy(result.AsFloat32(), t.AsFloat32())
	case tensor.Float64:
		copy(result.AsFloat64(), t.AsFloat64())
	default:
		panic(fmt.Sprintf("unsqueezeDim: unsupported dtype %s", t.DType()))
	}

	return result
}

// broadcastTo broadcasts a tensor to match the target shape.
func broadcastTo(t *tensor.RawTensor, targetShape tensor.Shape) *tensor.RawTensor {
	if t.Shape().Equal(targetShape) {
		return t.Clone()
	}

	result, err := tensor.NewRaw(targetShape, t.DType(), t.Device())
	if err != nil {
		panic("broadcastTo: failed to create result tensor")
	}

	switch t.DType() {
	case tensor.Float32:
		broadcastFloat32(t.AsFloat32(), result.AsFloat32(), t.Shape(), targetShape)
	case tensor.Float64:
		broadcastFloat64(t.AsFloat64(), result.AsFloat64(), t.Shape(), targetShape)
	default:
		panic(fmt.Sprintf("broadcastTo: unsupported dtype %s", t.DType()))
	}

	return result
}

// broadcastFloat32 broadcasts float32 data to the target shape.
func broadcastFloat32(src, dst []float32, srcShape, dstShape tensor.Shape) {
	srcStrides := srcShape.ComputeStrides()
	dstStrides := dstShape.ComputeStrides()
	numElements := dstShape.NumElements()

	for i := 0; i < numElements; i++ {
		srcIdx := 0
		temp := i
		for d := 0; d < len(dstShape); d++ {
			coord := temp / dstStrides[d]
			temp %= dstStrides[d]

			// Shapes align from the right; size-1 source dims pin to 0.
			srcDim := d - (len(dstShape) - len(srcShape))
			if srcDim >= 0 && srcDim < len(srcShape) {
				if srcShape[srcDim] == 1 {
					coord = 0
				}
				srcIdx += coord * srcStrides[srcDim]
			}
		}

		dst[i] = src[srcIdx]
	}
}

// broadcastFloat64 broadcasts float64 data to the target shape.
func broadcastFloat64(src, dst []float64, srcShape, dstShape tensor.Shape) {
	srcStrides := srcShape.ComputeStrides()
	dstStrides := dstShape.ComputeStrides()
	numElements := dstShape.NumElements()

	for i := 0; i < numElements; i++ {
		srcIdx := 0
		temp := i
		for d := 0; d < len(dstShape); d++ {
			coord := temp / dstStrides[d]
			temp %= dstStrides[d]

			srcDim := d - (len(dstShape) - len(srcShape))
			if srcDim >= 0 && srcDim < len(srcShape) {
				if srcShape[srcDim] == 1 {
					coord = 0
				}
				srcIdx += coord * srcStrides[srcDim]
			}
		}

		dst[i] = src[srcIdx]
	}
}
