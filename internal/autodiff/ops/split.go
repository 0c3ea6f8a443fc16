package ops

import (
	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// SplitSizesOp represents a split of one tensor into parts with declared widths.
//
// Forward: outputs = SplitSizes(input, sizes, dim)
//
// Backward:
//
//	Concatenate all output gradients back together along dim:
//	gradInput = Cat([gradOutput1, gradOutput2, ...], dim)
//
// Parts whose gradient never materialized contribute zeros; the tape fills
// those in before calling BackwardMulti.
type SplitSizesOp struct {
	input   *tensor.RawTensor   // Input tensor that was split
	sizes   []int               // Declared widths along dim
	dim     int                 // Dimension along which the split happened
	outputs []*tensor.RawTensor // Output part tensors
}

// NewSplitSizesOp creates a new split operation.
func NewSplitSizesOp(input *tensor.RawTensor, sizes []int, dim int, outputs []*tensor.RawTensor) *SplitSizesOp {
	return &SplitSizesOp{
		input:   input,
		sizes:   sizes,
		dim:     dim,
		outputs: outputs,
	}
}

// Inputs returns the input tensor.
func (op *SplitSizesOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the first output tensor.
// SplitSizesOp has multiple outputs; the tape detects MultiOutputOperation
// and routes through BackwardMulti instead.
func (op *SplitSizesOp) Output() *tensor.RawTensor {
	return op.outputs[0]
}

// Outputs returns all output tensors (implements MultiOutputOperation).
func (op *SplitSizesOp) Outputs() []*tensor.RawTensor {
	return op.outputs
}

// Backward is unreachable for multi-output operations.
func (op *SplitSizesOp) Backward(_ *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	panic("SplitSizesOp.Backward: multi-output operations require BackwardMulti")
}

// BackwardMulti concatenates all part gradients back into the input gradient.
func (op *SplitSizesOp) BackwardMulti(gradOutputs []*tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	if len(gradOutputs) != len(op.sizes) {
		panic("SplitSizesOp.BackwardMulti: expected one gradient per output part")
	}

	gradInput := backend.Cat(gradOutputs, op.dim)

	return []*tensor.RawTensor{gradInput}
}
