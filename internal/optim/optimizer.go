// Package optim implements the optimization algorithms used to train
// the models: SGD with optional momentum and Adam.
//
// Optimizers consume the gradient map produced by autodiff.Backward and
// update parameters in place:
//
//	optimizer := optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 1e-3}, backend)
//
//	for epoch := range epochs {
//	    optimizer.ZeroGrad()
//	    loss := model.Loss(batch)
//	    grads := autodiff.Backward(loss, backend)
//	    if err := optimizer.Step(grads); err != nil {
//	        return err
//	    }
//	}
//
// Both optimizers expose StateDict/LoadStateDict so checkpoints can
// capture moment and velocity buffers alongside model weights, and both
// satisfy nn.OptimizerState.
package optim

import (
	"github.com/scmulti-ml/scmulti/internal/nn"
	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// Optimizer is the interface shared by all optimization algorithms.
type Optimizer interface {
	// Step applies one gradient update to all parameters, in place.
	//
	// grads is the RawTensor -> gradient map from autodiff.Backward.
	// Parameters with no entry in the map are skipped. Returns an
	// error if a gradient's shape does not match its parameter.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor) error

	// ZeroGrad clears all parameter gradients. Call it before each
	// backward pass so gradients do not accumulate across steps.
	ZeroGrad()

	// LR returns the current learning rate.
	LR() float64
}

// Config is the base configuration shared by all optimizers.
type Config struct {
	LR float64 // Learning rate
}

// getGradient retrieves the gradient for a parameter, or nil if the
// parameter was not part of the recorded computation.
func getGradient[B tensor.Backend](param *nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) *tensor.RawTensor {
	if param == nil {
		return nil
	}
	return grads[param.Tensor().Raw()]
}
