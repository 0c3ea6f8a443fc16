package ops

import "github.com/scmulti-ml/scmulti/internal/tensor"

// LogOp represents the natural logarithm: y = log(x).
//
// Backward pass:
//   - d(log(x))/dx = 1/x
//   - grad_input = grad_output / x
type LogOp struct {
	input  *tensor.RawTensor // x
	output *tensor.RawTensor // log(x)
}

// NewLogOp creates a new LogOp.
func NewLogOp(input, output *tensor.RawTensor) *LogOp {
	return &LogOp{
		input:  input,
		output: output,
	}
}

// Backward computes input gradient for log.
func (op *LogOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	gradInput := backend.Div(outputGrad, op.input)
	return []*tensor.RawTensor{gradInput}
}

// Inputs returns the input tensor [x].
func (op *LogOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor log(x).
func (op *LogOp) Output() *tensor.RawTensor {
	return op.output
}
