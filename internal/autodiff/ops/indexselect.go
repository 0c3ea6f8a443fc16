package ops

import (
	"fmt"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// IndexSelectOp represents a row-selection operation along dimension 0.
//
// Forward: output[i] = x[indices[i]]
//
// Backward:
//
//	For each selected row i, accumulate grad_output[i] into grad_x[indices[i]].
//	Rows selected multiple times sum their gradients; unselected rows get zero.
type IndexSelectOp struct {
	input   *tensor.RawTensor // Source tensor [numRows, ...]
	indices *tensor.RawTensor // Row indices (int32, 1D)
	output  *tensor.RawTensor // Selected rows
}

// NewIndexSelectOp creates a new index-select operation.
func NewIndexSelectOp(input, indices, output *tensor.RawTensor) *IndexSelectOp {
	return &IndexSelectOp{
		input:   input,
		indices: indices,
		output:  output,
	}
}

// Inputs returns the differentiable input tensors.
// Indices are integer positions and receive no gradient.
func (op *IndexSelectOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *IndexSelectOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward scatter-adds row gradients back to the source rows.
func (op *IndexSelectOp) Backward(gradOutput *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inputShape := op.input.Shape()
	numRows := inputShape[0]
	rowSize := 1
	for i := 1; i < len(inputShape); i++ {
		rowSize *= inputShape[i]
	}

	gradInput, err := tensor.NewRaw(inputShape, op.input.DType(), backend.Device())
	if err != nil {
		panic(err)
	}

	indicesData := op.indices.AsInt32()

	switch op.input.DType() {
	case tensor.Float32:
		src := gradOutput.AsFloat32()
		dst := gradInput.AsFloat32()
		for i := range dst {
			dst[i] = 0
		}
		for i, row := range indicesData {
			if row < 0 || int(row) >= numRows {
				panic(fmt.Sprintf("indexselect backward: index %d out of range [0, %d)", row, numRows))
			}
			base := int(row) * rowSize
			for j := 0; j < rowSize; j++ {
				dst[base+j] += src[i*rowSize+j]
			}
		}
	case tensor.Float64:
		src := gradOutput.AsFloat64()
		dst := gradInput.AsFloat64()
		for i := range dst {
			dst[i] = 0
		}
		for i, row := range indicesData {
			if row < 0 || int(row) >= numRows {
				panic(fmt.Sprintf("indexselect backward: index %d out of range [0, %d)", row, numRows))
			}
			base := int(row) * rowSize
			for j := 0; j < rowSize; j++ {
				dst[base+j] += src[i*rowSize+j]
			}
		}
	default:
		panic(fmt.Sprintf("indexselect backward: unsupported dtype %s", op.input.DType()))
	}

	return []*tensor.RawTensor{gradInput}
}
