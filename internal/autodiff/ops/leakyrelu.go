package ops

import (
	"fmt"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// LeakyReLUOp represents the leaky rectified linear activation:
// y = x for x > 0, y = negSlope * x otherwise.
//
// Backward pass:
//   - d(y)/dx = 1 for x > 0, negSlope otherwise
type LeakyReLUOp struct {
	input    *tensor.RawTensor
	output   *tensor.RawTensor
	negSlope float64
}

// NewLeakyReLUOp creates a new leaky ReLU operation.
func NewLeakyReLUOp(input, output *tensor.RawTensor, negSlope float64) *LeakyReLUOp {
	return &LeakyReLUOp{
		input:    input,
		output:   output,
		negSlope: negSlope,
	}
}

// Inputs returns the input tensors.
func (op *LeakyReLUOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *LeakyReLUOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward routes the gradient by the sign of the forward input.
// At x = 0 the negative-side slope applies.
func (op *LeakyReLUOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	x := op.input

	gradInput, err := tensor.NewRaw(x.Shape(), x.DType(), backend.Device())
	if err != nil {
		panic(err)
	}

	switch x.DType() {
	case tensor.Float32:
		xData := x.AsFloat32()
		gradData := outputGrad.AsFloat32()
		out := gradInput.AsFloat32()
		slope := float32(op.negSlope)
		for i, v := range xData {
			if v > 0 {
				out[i] = gradData[i]
			} else {
				out[i] = slope * gradData[i]
			}
		}
	case tensor.Float64:
		xData := x.AsFloat64()
		gradData := outputGrad.AsFloat64()
		out := gradInput.AsFloat64()
		for i, v := range xData {
			if v > 0 {
				out[i] = gradData[i]
			} else {
				out[i] = op.negSlope * gradData[i]
			}
		}
	default:
		panic(fmt.Sprintf("leakyrelu backward: unsupported dtype %s", x.DType()))
	}

	return []*tensor.RawTensor{gradInput}
}
