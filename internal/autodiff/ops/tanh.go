package ops

import "github.com/scmulti-ml/scmulti/internal/tensor"

// TanhOp represents the hyperbolic tangent activation.
//
// Backward pass:
//   - d(tanh(x))/dx = 1 - tanh²(x)
//   - grad_input = grad_output * (1 - output²)
type TanhOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewTanhOp creates a new tanh operation.
func NewTanhOp(input, output *tensor.RawTensor) *TanhOp {
	return &TanhOp{
		input:  input,
		output: output,
	}
}

// Inputs returns the input tensors.
func (op *TanhOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *TanhOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward computes the gradient for tanh using the cached output:
// grad_input = grad_output * (1 - output²).
func (op *TanhOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	y := op.output

	// 1 - y²
	ySquared := backend.Mul(y, y)
	derivative := backend.AddScalar(backend.MulScalar(ySquared, -1), 1)

	inputGrad := backend.Mul(outputGrad, derivative)

	return []*tensor.RawTensor{inputGrad}
}
