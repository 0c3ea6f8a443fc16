package nn

import (
	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// MSELoss computes Mean Squared Error loss.
//
// Loss = mean((predictions - targets)^2)
//
// Gaussian reconstruction terms and the paired translation penalty both
// reduce to MSE. The whole computation runs through tensor ops so the
// autodiff tape can differentiate it.
//
// Example:
//
//	mse := nn.NewMSELoss[Backend]()
//	loss := mse.Forward(predictions, targets) // shape [1]
type MSELoss[B tensor.Backend] struct{}

// NewMSELoss creates a new MSE loss function.
func NewMSELoss[B tensor.Backend]() *MSELoss[B] {
	return &MSELoss[B]{}
}

// Forward computes the MSE loss as a scalar tensor of shape [1].
//
// Panics if predictions and targets disagree on shape.
func (m *MSELoss[B]) Forward(predictions, targets *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !predictions.Shape().Equal(targets.Shape()) {
		panic("MSELoss: predictions and targets must have the same shape")
	}

	diff := predictions.Sub(targets)
	return diff.Mul(diff).Mean()
}

// Parameters returns an empty slice (loss functions have no trainable parameters).
func (m *MSELoss[B]) Parameters() []*Parameter[B] {
	return nil
}
