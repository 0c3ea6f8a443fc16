package nn

import (
	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// Activations are stateless modules. They satisfy Module[B] so they can
// live inside Sequential chains; their state dicts are empty.

// Tanh is a hyperbolic tangent activation module.
//
// Squashes values to (-1, 1). The attention scorers use it on the
// projected instance representations before scoring.
type Tanh[B tensor.Backend] struct{}

// NewTanh creates a new Tanh activation module.
func NewTanh[B tensor.Backend]() *Tanh[B] {
	return &Tanh[B]{}
}

// Forward applies tanh element-wise.
func (t *Tanh[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.Tanh()
}

// Parameters returns an empty slice (Tanh has no trainable parameters).
func (t *Tanh[B]) Parameters() []*Parameter[B] {
	return nil
}

// StateDict returns an empty map.
func (t *Tanh[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

// LoadStateDict is a no-op for parameter-free modules.
func (t *Tanh[B]) LoadStateDict(map[string]*tensor.RawTensor) error {
	return nil
}

// Sigmoid is a logistic activation module.
//
// Squashes values to (0, 1). Decoders with a binary likelihood use it as
// their output activation; the gated attention scorer uses it as the gate.
type Sigmoid[B tensor.Backend] struct{}

// NewSigmoid creates a new Sigmoid activation module.
func NewSigmoid[B tensor.Backend]() *Sigmoid[B] {
	return &Sigmoid[B]{}
}

// Forward applies the logistic function element-wise.
func (s *Sigmoid[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.Sigmoid()
}

// Parameters returns an empty slice (Sigmoid has no trainable parameters).
func (s *Sigmoid[B]) Parameters() []*Parameter[B] {
	return nil
}

// StateDict returns an empty map.
func (s *Sigmoid[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

// LoadStateDict is a no-op for parameter-free modules.
func (s *Sigmoid[B]) LoadStateDict(map[string]*tensor.RawTensor) error {
	return nil
}

// LeakyReLU applies f(x) = max(x, negSlope*x) element-wise.
//
// The hidden layers of every MLP in the models use this activation.
type LeakyReLU[B tensor.Backend] struct {
	negSlope float64
}

// NewLeakyReLU creates a new LeakyReLU activation module.
//
// A negSlope of 0.01 matches the usual default.
func NewLeakyReLU[B tensor.Backend](negSlope float64) *LeakyReLU[B] {
	return &LeakyReLU[B]{negSlope: negSlope}
}

// Forward applies the leaky rectifier element-wise.
func (l *LeakyReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.LeakyReLU(l.negSlope)
}

// Parameters returns an empty slice (LeakyReLU has no trainable parameters).
func (l *LeakyReLU[B]) Parameters() []*Parameter[B] {
	return nil
}

// StateDict returns an empty map.
func (l *LeakyReLU[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

// LoadStateDict is a no-op for parameter-free modules.
func (l *LeakyReLU[B]) LoadStateDict(map[string]*tensor.RawTensor) error {
	return nil
}

// Exp applies f(x) = e^x element-wise.
//
// Decoders with a count likelihood use it as their output activation so
// the predicted means stay positive.
type Exp[B tensor.Backend] struct{}

// NewExp creates a new Exp activation module.
func NewExp[B tensor.Backend]() *Exp[B] {
	return &Exp[B]{}
}

// Forward applies exp element-wise.
func (e *Exp[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input.Exp()
}

// Parameters returns an empty slice (Exp has no trainable parameters).
func (e *Exp[B]) Parameters() []*Parameter[B] {
	return nil
}

// StateDict returns an empty map.
func (e *Exp[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

// LoadStateDict is a no-op for parameter-free modules.
func (e *Exp[B]) LoadStateDict(map[string]*tensor.RawTensor) error {
	return nil
}
