package ops

import "github.com/scmulti-ml/scmulti/internal/tensor"

// BatchMatMulOp represents a batched matrix multiplication: output = a @ b.
//
// Backward pass (per batch):
//   - d(A@B)/dA = outputGrad @ B^T
//   - d(A@B)/dB = A^T @ outputGrad
//
// Where ^T swaps the last two dimensions, leaving batch dimensions alone.
type BatchMatMulOp struct {
	inputs []*tensor.RawTensor // [a, b]
	output *tensor.RawTensor   // a @ b
}

// NewBatchMatMulOp creates a new BatchMatMulOp.
func NewBatchMatMulOp(a, b, output *tensor.RawTensor) *BatchMatMulOp {
	return &BatchMatMulOp{
		inputs: []*tensor.RawTensor{a, b},
		output: output,
	}
}

// Backward computes gradients for batch matmul.
func (op *BatchMatMulOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]

	// Transpose axes swapping the last two dims, batch dims fixed.
	ndim := len(a.Shape())
	axes := make([]int, ndim)
	for i := 0; i < ndim-2; i++ {
		axes[i] = i
	}
	axes[ndim-2] = ndim - 1
	axes[ndim-1] = ndim - 2

	bT := backend.Transpose(b, axes...)
	aT := backend.Transpose(a, axes...)

	gradA := backend.BatchMatMul(grad, bT)
	gradB := backend.BatchMatMul(aT, grad)

	return []*tensor.RawTensor{gradA, gradB}
}

// Inputs returns the input tensors [a, b].
func (op *BatchMatMulOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor a @ b.
func (op *BatchMatMulOp) Output() *tensor.RawTensor {
	return op.output
}
