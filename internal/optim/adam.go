package optim

import (
	"fmt"
	"math"

	"github.com/scmulti-ml/scmulti/internal/nn"
	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// Adam implements the Adam optimizer (Kingma & Ba, 2014).
//
// Adam keeps exponential moving averages of gradients and squared
// gradients and corrects the zero-initialization bias:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient^2
//	m_hat = m_t / (1 - beta1^t)
//	v_hat = v_t / (1 - beta2^t)
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)
type Adam[B tensor.Backend] struct {
	params  []*nn.Parameter[B]
	lr      float64
	beta1   float32
	beta2   float32
	eps     float32
	t       int // timestep for bias correction
	m       map[*nn.Parameter[B]]*tensor.Tensor[float32, B]
	v       map[*nn.Parameter[B]]*tensor.Tensor[float32, B]
	backend B
}

// AdamConfig holds configuration for the Adam optimizer.
type AdamConfig struct {
	LR    float64    // Learning rate (default: 0.001)
	Betas [2]float64 // Moving average coefficients (default: [0.9, 0.999])
	Eps   float64    // Numerical stability term (default: 1e-8)
}

// NewAdam creates an Adam optimizer over the given parameters. Zero
// config fields fall back to the standard defaults.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig, backend B) *Adam[B] {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	return &Adam[B]{
		params:  params,
		lr:      config.LR,
		beta1:   float32(config.Betas[0]),
		beta2:   float32(config.Betas[1]),
		eps:     float32(config.Eps),
		t:       0,
		m:       make(map[*nn.Parameter[B]]*tensor.Tensor[float32, B]),
		v:       make(map[*nn.Parameter[B]]*tensor.Tensor[float32, B]),
		backend: backend,
	}
}

// Step performs one Adam update on all parameters. Parameters with no
// gradient in the map are skipped; the timestep still advances once
// per call.
func (a *Adam[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) error {
	a.t++

	biasCorrection1 := float32(1.0 - math.Pow(float64(a.beta1), float64(a.t)))
	biasCorrection2 := float32(1.0 - math.Pow(float64(a.beta2), float64(a.t)))

	for i, param := range a.params {
		grad := getGradient(param, grads)
		if grad == nil {
			continue
		}
		if !grad.Shape().Equal(param.Tensor().Shape()) {
			return fmt.Errorf("adam: gradient shape %v does not match parameter %d shape %v",
				grad.Shape(), i, param.Tensor().Shape())
		}

		m, ok := a.m[param]
		if !ok {
			m = tensor.Zeros[float32](param.Tensor().Shape(), a.backend)
			a.m[param] = m
		}
		v, ok := a.v[param]
		if !ok {
			v = tensor.Zeros[float32](param.Tensor().Shape(), a.backend)
			a.v[param] = v
		}

		a.updateParameter(param, grad, m, v, biasCorrection1, biasCorrection2)
	}
	return nil
}

// updateParameter applies the Adam update for a single parameter.
func (a *Adam[B]) updateParameter(
	param *nn.Parameter[B],
	grad *tensor.RawTensor,
	m, v *tensor.Tensor[float32, B],
	biasCorrection1, biasCorrection2 float32,
) {
	gradData := grad.AsFloat32()
	mData := m.Raw().AsFloat32()
	vData := v.Raw().AsFloat32()
	paramData := param.Tensor().Raw().AsFloat32()
	lr := float32(a.lr)

	for i := range paramData {
		g := gradData[i]

		mData[i] = a.beta1*mData[i] + (1.0-a.beta1)*g
		vData[i] = a.beta2*vData[i] + (1.0-a.beta2)*g*g

		mHat := mData[i] / biasCorrection1
		vHat := vData[i] / biasCorrection2

		paramData[i] -= lr * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
	}
}

// ZeroGrad clears gradients for all parameters.
func (a *Adam[B]) ZeroGrad() {
	for _, param := range a.params {
		param.ZeroGrad()
	}
}

// LR returns the current learning rate.
func (a *Adam[B]) LR() float64 {
	return a.lr
}

// SetLR updates the learning rate, for scheduling during training.
func (a *Adam[B]) SetLR(lr float64) {
	a.lr = lr
}

// Name identifies the optimizer type in checkpoint metadata.
func (a *Adam[B]) Name() string {
	return "Adam"
}

// Timestep returns the number of steps taken so far.
func (a *Adam[B]) Timestep() int {
	return a.t
}

// StateDict exports moment buffers under "m.{param_index}" and
// "v.{param_index}" keys plus the timestep under "step".
func (a *Adam[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)

	step := tensor.Full[float32](tensor.Shape{1}, float32(a.t), a.backend)
	stateDict["step"] = step.Raw()

	for i, param := range a.params {
		if m, ok := a.m[param]; ok {
			stateDict[fmt.Sprintf("m.%d", i)] = m.Raw()
		}
		if v, ok := a.v[param]; ok {
			stateDict[fmt.Sprintf("v.%d", i)] = v.Raw()
		}
	}
	return stateDict
}

// LoadStateDict restores moment buffers and the timestep saved by
// StateDict. The timestep matters: bias correction depends on it, so a
// resumed run must not restart it from zero.
func (a *Adam[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if step, ok := stateDict["step"]; ok {
		a.t = int(step.AsFloat32()[0])
	}

	a.m = make(map[*nn.Parameter[B]]*tensor.Tensor[float32, B])
	a.v = make(map[*nn.Parameter[B]]*tensor.Tensor[float32, B])

	for i, param := range a.params {
		if raw, ok := stateDict[fmt.Sprintf("m.%d", i)]; ok {
			if !raw.Shape().Equal(param.Tensor().Shape()) {
				return fmt.Errorf("adam: first moment shape mismatch for parameter %d: expected %v, got %v",
					i, param.Tensor().Shape(), raw.Shape())
			}
			a.m[param] = tensor.New[float32, B](raw, a.backend)
		}
		if raw, ok := stateDict[fmt.Sprintf("v.%d", i)]; ok {
			if !raw.Shape().Equal(param.Tensor().Shape()) {
				return fmt.Errorf("adam: second moment shape mismatch for parameter %d: expected %v, got %v",
					i, param.Tensor().Shape(), raw.Shape())
			}
			a.v[param] = tensor.New[float32, B](raw, a.backend)
		}
	}
	return nil
}
