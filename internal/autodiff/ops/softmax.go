package ops

import (
	"fmt"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// SoftmaxOp represents the softmax operation along the last dimension.
//
// Forward (for each row):
//
//	softmax(x)_i = exp(x_i - max(x)) / Σ_j exp(x_j - max(x))
//
// Backward:
//
//	The Jacobian contracts against the output gradient as:
//	∂L/∂x_j = softmax_j * (∂L/∂softmax_j - Σ_i (∂L/∂softmax_i * softmax_i))
//
// Works for any rank >= 1: all leading dimensions are treated as rows,
// matching the forward normalization. Attention weights over bag instances
// use the 3D case.
type SoftmaxOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor // Cached softmax output for backward pass
}

// NewSoftmaxOp creates a new softmax operation.
func NewSoftmaxOp(input, output *tensor.RawTensor) *SoftmaxOp {
	return &SoftmaxOp{
		input:  input,
		output: output,
	}
}

// Inputs returns the input tensors.
func (op *SoftmaxOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *SoftmaxOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward computes the gradient with respect to input.
//
// Per row:
//
//	∂L/∂x[r,j] = softmax[r,j] * (∂L/∂softmax[r,j] - dot(∂L/∂softmax[r,:], softmax[r,:]))
func (op *SoftmaxOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.input.Shape()
	rowSize := shape[len(shape)-1]
	numRows := shape.NumElements() / rowSize

	inputGrad, err := tensor.NewRaw(shape, op.input.DType(), op.input.Device())
	if err != nil {
		panic(err)
	}

	switch op.input.DType() {
	case tensor.Float32:
		softmaxData := op.output.AsFloat32()
		outGradData := outputGrad.AsFloat32()
		inGradData := inputGrad.AsFloat32()

		for r := 0; r < numRows; r++ {
			offset := r * rowSize

			dotProduct := float32(0.0)
			for j := 0; j < rowSize; j++ {
				dotProduct += outGradData[offset+j] * softmaxData[offset+j]
			}

			for j := 0; j < rowSize; j++ {
				idx := offset + j
				inGradData[idx] = softmaxData[idx] * (outGradData[idx] - dotProduct)
			}
		}

	case tensor.Float64:
		softmaxData := op.output.AsFloat64()
		outGradData := outputGrad.AsFloat64()
		inGradData := inputGrad.AsFloat64()

		for r := 0; r < numRows; r++ {
			offset := r * rowSize

			dotProduct := 0.0
			for j := 0; j < rowSize; j++ {
				dotProduct += outGradData[offset+j] * softmaxData[offset+j]
			}

			for j := 0; j < rowSize; j++ {
				idx := offset + j
				inGradData[idx] = softmaxData[idx] * (outGradData[idx] - dotProduct)
			}
		}

	default:
		panic(fmt.Sprintf("softmax backward: unsupported dtype %s", op.input.DType()))
	}

	return []*tensor.RawTensor{inputGrad}
}
