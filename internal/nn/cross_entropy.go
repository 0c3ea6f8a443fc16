package nn

import (
	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// CrossEntropyLoss computes cross-entropy loss for multi-class
// classification.
//
// Mathematical formulation:
//
//	Loss = mean_b(-log_probs[b, target_b])
//	where log_probs = LogSoftmax(logits)
//
// Gradient:
//
//	dL/dlogits = (Softmax(logits) - y_one_hot) / batch
//
// The backend computes the fused LogSoftmax + NLL with the log-sum-exp
// trick, so the loss stays finite for logits beyond the float32 exp
// range, and records the op on the autodiff tape.
//
// Usage:
//
//	criterion := nn.NewCrossEntropyLoss[Backend](backend)
//	logits := model.Forward(input)              // [batch, classes]
//	loss := criterion.Forward(logits, targets)  // targets: [batch] class indices
type CrossEntropyLoss[B tensor.Backend] struct {
	backend B
}

// NewCrossEntropyLoss creates a new cross-entropy loss function.
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return &CrossEntropyLoss[B]{
		backend: backend,
	}
}

// Forward computes the mean cross-entropy over the batch.
//
// logits must be [batch, classes]; targets must be [batch] with values
// in [0, classes). Returns a scalar tensor of shape [1].
func (c *CrossEntropyLoss[B]) Forward(
	logits *tensor.Tensor[float32, B],
	targets *tensor.Tensor[int32, B],
) *tensor.Tensor[float32, B] {
	if len(logits.Shape()) != 2 {
		panic("CrossEntropyLoss: logits must be 2D [batch, classes]")
	}
	if targets.Shape().NumElements() != logits.Shape()[0] {
		panic("CrossEntropyLoss: targets must have shape [batch]")
	}
	return logits.CrossEntropy(targets)
}

// Parameters returns an empty slice (loss functions have no trainable parameters).
func (c *CrossEntropyLoss[B]) Parameters() []*Parameter[B] {
	return nil
}

// argmax returns the index of the maximum value in the slice.
func argmax(z []float32) int {
	maxIdx := 0
	maxVal := z[0]
	for i := 1; i < len(z); i++ {
		if z[i] > maxVal {
			maxVal = z[i]
			maxIdx = i
		}
	}
	return maxIdx
}

// Accuracy computes classification accuracy for a batch.
//
// logits is [batch, classes], targets is [batch]. Returns the fraction
// of rows whose argmax equals the target, in [0, 1]. Runs on the host;
// nothing is recorded on the tape.
func Accuracy[B tensor.Backend](
	logits *tensor.Tensor[float32, B],
	targets *tensor.Tensor[int32, B],
) float32 {
	shape := logits.Shape()
	batchSize := shape[0]
	numClasses := shape[1]

	logitsData := logits.Raw().AsFloat32()
	targetsData := targets.Raw().AsInt32()

	correct := 0
	for b := 0; b < batchSize; b++ {
		sampleLogits := logitsData[b*numClasses : (b+1)*numClasses]
		if argmax(sampleLogits) == int(targetsData[b]) {
			correct++
		}
	}

	return float32(correct) / float32(batchSize)
}
