package nn

import (
	"fmt"
	"math/rand"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// Dropout randomly zeroes elements of the input during training.
//
// Each element is dropped independently with probability P and the
// survivors are scaled by 1/(1-P), so the expected activation is
// unchanged and no rescaling is needed at inference time (inverted
// dropout). In eval mode Forward is the identity.
//
// The mask is sampled on the host and multiplied in as a constant, so
// the backward pass through the multiply zeroes exactly the gradients
// of the dropped elements.
type Dropout[B tensor.Backend] struct {
	P        float64 // drop probability in [0, 1)
	backend  B
	rng      *rand.Rand
	training bool
}

// NewDropout creates a Dropout layer with drop probability p.
//
// A nil rng falls back to the global source. The layer starts in
// training mode.
func NewDropout[B tensor.Backend](p float64, backend B, rng *rand.Rand) *Dropout[B] {
	if p < 0 || p >= 1 {
		panic(fmt.Sprintf("dropout probability must be in [0, 1), got %v", p))
	}
	return &Dropout[B]{
		P:        p,
		backend:  backend,
		rng:      rng,
		training: true,
	}
}

// SetTraining switches between training (masking) and eval (identity) mode.
func (d *Dropout[B]) SetTraining(training bool) {
	d.training = training
}

// Training reports whether the layer is in training mode.
func (d *Dropout[B]) Training() bool {
	return d.training
}

// Forward applies the dropout mask in training mode and is the identity
// otherwise.
func (d *Dropout[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !d.training || d.P == 0 {
		return input
	}

	next := rand.Float64
	if d.rng != nil {
		next = d.rng.Float64
	}

	scale := float32(1.0 / (1.0 - d.P))
	maskData := make([]float32, input.Shape().NumElements())
	for i := range maskData {
		if next() >= d.P {
			maskData[i] = scale
		}
	}

	mask, err := tensor.FromSlice[float32, B](maskData, input.Shape(), d.backend)
	if err != nil {
		panic(fmt.Sprintf("failed to create dropout mask: %v", err))
	}
	return input.Mul(mask)
}

// Parameters returns an empty slice (Dropout has no trainable parameters).
func (d *Dropout[B]) Parameters() []*Parameter[B] {
	return nil
}

// StateDict returns an empty map.
func (d *Dropout[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

// LoadStateDict is a no-op for parameter-free modules.
func (d *Dropout[B]) LoadStateDict(map[string]*tensor.RawTensor) error {
	return nil
}
