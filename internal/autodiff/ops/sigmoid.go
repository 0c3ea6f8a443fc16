package ops

import "github.com/scmulti-ml/scmulti/internal/tensor"

// SigmoidOp represents the sigmoid activation: σ(x) = 1 / (1 + exp(-x)).
//
// Backward pass:
//   - d(σ(x))/dx = σ(x) * (1 - σ(x))
//   - grad_input = grad_output * output * (1 - output)
type SigmoidOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSigmoidOp creates a new sigmoid operation.
func NewSigmoidOp(input, output *tensor.RawTensor) *SigmoidOp {
	return &SigmoidOp{
		input:  input,
		output: output,
	}
}

// Inputs returns the input tensors.
func (op *SigmoidOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *SigmoidOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward computes the gradient for sigmoid using the cached output:
// grad_input = grad_output * output * (1 - output).
func (op *SigmoidOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	y := op.output

	// y * (1 - y)
	oneMinusY := backend.AddScalar(backend.MulScalar(y, -1), 1)
	derivative := backend.Mul(y, oneMinusY)

	inputGrad := backend.Mul(outputGrad, derivative)

	return []*tensor.RawTensor{inputGrad}
}
