package nn

import (
	"fmt"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// LayerNorm applies Layer Normalization over the last dimension.
//
// Formula: Y = gamma * (X - mean(X)) / sqrt(var(X) + eps) + beta
//
// Where:
//   - gamma is the learnable scale parameter [features]
//   - beta is the learnable shift parameter [features]
//   - mean and variance are computed along the last dimension
//   - eps is a small value to avoid division by zero
//
// The encoder and decoder MLPs normalize their hidden activations this
// way, which keeps training stable across modalities with very different
// feature scales (counts vs. binarized accessibility).
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	norm := nn.NewLayerNorm[AutodiffBackend](128, 1e-5, backend)
//	output := norm.Forward(hidden) // [..., 128] -> [..., 128]
type LayerNorm[B tensor.Backend] struct {
	Gamma   *Parameter[B] // learnable scale [features]
	Beta    *Parameter[B] // learnable shift [features]
	Epsilon float32       // numerical stability constant
	backend B
}

// NewLayerNorm creates a new LayerNorm layer.
//
// normalizedShape is the size of the last (feature) dimension. epsilon is
// typically 1e-5. Gamma starts at ones, beta at zeros, so the layer is
// initially an identity up to normalization.
func NewLayerNorm[B tensor.Backend](normalizedShape int, epsilon float32, backend B) *LayerNorm[B] {
	gamma := tensor.Ones[float32](tensor.Shape{normalizedShape}, backend)
	beta := tensor.Zeros[float32](tensor.Shape{normalizedShape}, backend)

	return &LayerNorm[B]{
		Gamma:   NewParameter("gamma", gamma),
		Beta:    NewParameter("beta", beta),
		Epsilon: epsilon,
		backend: backend,
	}
}

// Forward applies LayerNorm to the input tensor.
//
// Shapes:
//   - input: [..., features]
//   - output: [..., features]
//
// Algorithm:
//  1. mean = mean(x) along last dimension (keepdim=true)
//  2. x_centered = x - mean
//  3. variance = mean(x_centered^2) along last dimension
//  4. x_norm = x_centered / sqrt(variance + epsilon)
//  5. output = gamma * x_norm + beta
func (l *LayerNorm[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	mean := x.MeanDim(-1, true)
	xCentered := x.Sub(mean)
	variance := xCentered.Mul(xCentered).MeanDim(-1, true)

	// sqrt(v) computed as exp(0.5 * log(v)); variance + eps is strictly
	// positive so the log is safe.
	std := variance.AddScalar(float64(l.Epsilon)).Log().MulScalar(0.5).Exp()
	xNorm := xCentered.Div(std)

	// gamma and beta are [features]; unsqueeze leading dims so the
	// element-wise ops broadcast against [..., features].
	gamma := l.Gamma.Tensor()
	beta := l.Beta.Tensor()
	for i := 0; i < len(x.Shape())-1; i++ {
		gamma = gamma.Unsqueeze(0)
		beta = beta.Unsqueeze(0)
	}

	return xNorm.Mul(gamma).Add(beta)
}

// Parameters returns the learnable parameters (gamma and beta).
func (l *LayerNorm[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.Gamma, l.Beta}
}

// StateDict returns gamma and beta keyed by parameter name.
func (l *LayerNorm[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{
		"gamma": l.Gamma.Tensor().Raw(),
		"beta":  l.Beta.Tensor().Raw(),
	}
}

// LoadStateDict restores gamma and beta from a state dict.
func (l *LayerNorm[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	for _, entry := range []struct {
		name  string
		param *Parameter[B]
	}{
		{"gamma", l.Gamma},
		{"beta", l.Beta},
	} {
		raw, ok := stateDict[entry.name]
		if !ok {
			return fmt.Errorf("layernorm: missing %q in state dict", entry.name)
		}
		if !raw.Shape().Equal(entry.param.Tensor().Shape()) {
			return fmt.Errorf("layernorm: %s shape mismatch: expected %v, got %v",
				entry.name, entry.param.Tensor().Shape(), raw.Shape())
		}
		if raw.DType() != tensor.Float32 {
			return fmt.Errorf("layernorm: %s dtype mismatch: expected float32, got %v",
				entry.name, raw.DType())
		}
		copy(entry.param.Tensor().Data(), raw.AsFloat32())
	}
	return nil
}
