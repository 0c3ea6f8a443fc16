// Copyright 2025 scMulti ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides optimization algorithms for training neural networks.
//
// # Overview
//
// This package contains:
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation with bias correction
//   - Optimizer interface for custom optimizers
//
// # Basic Usage
//
//	import (
//	    "github.com/scmulti-ml/scmulti/autodiff"
//	    "github.com/scmulti-ml/scmulti/backend/cpu"
//	    "github.com/scmulti-ml/scmulti/nn"
//	    "github.com/scmulti-ml/scmulti/optim"
//	)
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//	    model := nn.NewLinear(784, 10, backend, rng)
//
//	    // Create optimizer
//	    optimizer := optim.NewAdam(
//	        model.Parameters(),
//	        optim.AdamConfig{
//	            LR:    0.001,
//	            Betas: [2]float64{0.9, 0.999},
//	        },
//	        backend,
//	    )
//
//	    // Training loop
//	    for epoch := range 10 {
//	        // Record and forward
//	        optimizer.ZeroGrad()
//	        backend.Tape().StartRecording()
//	        loss := criterion.Forward(model.Forward(x), y)
//
//	        // Backward pass
//	        grads := autodiff.Backward(loss, backend)
//	        optimizer.Step(grads)
//	        backend.Tape().Clear()
//	    }
//	}
//
// # Optimizers
//
// SGD (Stochastic Gradient Descent):
//
//	optimizer := optim.NewSGD(
//	    model.Parameters(),
//	    optim.SGDConfig{
//	        LR:       0.01,
//	        Momentum: 0.9,
//	    },
//	    backend,
//	)
//
// Adam (Adaptive Moment Estimation):
//
//	optimizer := optim.NewAdam(
//	    model.Parameters(),
//	    optim.AdamConfig{
//	        LR:    0.001,
//	        Betas: [2]float64{0.9, 0.999},
//	        Eps:   1e-8,
//	    },
//	    backend,
//	)
//
// # Training Loop Pattern
//
//	for epoch := range numEpochs {
//	    for batch := range dataLoader {
//	        // 1. Zero gradients and start recording
//	        optimizer.ZeroGrad()
//	        backend.Tape().StartRecording()
//
//	        // 2. Forward pass
//	        output := model.Forward(batch.Input)
//	        loss := criterion.Forward(output, batch.Target)
//
//	        // 3. Backward pass
//	        grads := autodiff.Backward(loss, backend)
//
//	        // 4. Update parameters
//	        optimizer.Step(grads)
//	        backend.Tape().Clear()
//	    }
//	}
package optim
