package ops

import (
	"math"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// CrossEntropyOp represents the fused softmax cross-entropy loss.
//
// Forward (computed by the backend):
//
//	Loss = mean(-log_softmax(logits)[targets])
//
// Backward:
//
//	∂L/∂logits = (softmax(logits) - y_one_hot) / batch_size
//
// The fusion is what keeps the gradient this simple; computing softmax and
// NLL as separate recorded ops loses the cancellation.
//
// Assumptions:
//   - Logits shape: [batch_size, num_classes] (2D)
//   - Targets shape: [batch_size] (1D, int32 class indices)
//   - Output: single-element loss (mean over batch)
type CrossEntropyOp struct {
	logits  *tensor.RawTensor // Input logits [batch_size, num_classes]
	targets *tensor.RawTensor // Target class indices [batch_size]
	output  *tensor.RawTensor // Loss output
}

// NewCrossEntropyOp creates a new cross-entropy operation.
func NewCrossEntropyOp(logits, targets, output *tensor.RawTensor) *CrossEntropyOp {
	return &CrossEntropyOp{
		logits:  logits,
		targets: targets,
		output:  output,
	}
}

// Inputs returns the differentiable input tensors.
// Targets are class indices and receive no gradient.
func (op *CrossEntropyOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.logits}
}

// Output returns the output tensor.
func (op *CrossEntropyOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward computes the gradient with respect to logits:
//
//	∂L/∂logits[b,i] = gradScale * (softmax(logits[b])[i] - 1{i == targets[b]}) / batch_size
func (op *CrossEntropyOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	logitsShape := op.logits.Shape()
	batchSize := logitsShape[0]
	numClasses := logitsShape[1]

	logitsGrad, err := tensor.NewRaw(logitsShape, op.logits.DType(), op.logits.Device())
	if err != nil {
		panic(err)
	}

	switch op.logits.DType() {
	case tensor.Float32:
		logitsData := op.logits.AsFloat32()
		targetsData := op.targets.AsInt32()
		gradData := logitsGrad.AsFloat32()
		gradScale := outputGrad.AsFloat32()[0]

		for b := 0; b < batchSize; b++ {
			probs := softmaxRowFloat32(logitsData[b*numClasses : (b+1)*numClasses])
			target := int(targetsData[b])
			for i := 0; i < numClasses; i++ {
				grad := probs[i]
				if i == target {
					grad -= 1.0
				}
				gradData[b*numClasses+i] = gradScale * grad / float32(batchSize)
			}
		}

	case tensor.Float64:
		logitsData := op.logits.AsFloat64()
		targetsData := op.targets.AsInt32()
		gradData := logitsGrad.AsFloat64()
		gradScale := outputGrad.AsFloat64()[0]

		for b := 0; b < batchSize; b++ {
			probs := softmaxRowFloat64(logitsData[b*numClasses : (b+1)*numClasses])
			target := int(targetsData[b])
			for i := 0; i < numClasses; i++ {
				grad := probs[i]
				if i == target {
					grad -= 1.0
				}
				gradData[b*numClasses+i] = gradScale * grad / float64(batchSize)
			}
		}

	default:
		panic("cross-entropy backward: only supports float32 and float64")
	}

	return []*tensor.RawTensor{logitsGrad}
}

// softmaxRowFloat32 computes a numerically stable softmax for one row.
func softmaxRowFloat32(logits []float32) []float32 {
	n := len(logits)
	probs := make([]float32, n)

	maxVal := logits[0]
	for i := 1; i < n; i++ {
		if logits[i] > maxVal {
			maxVal = logits[i]
		}
	}

	sumExp := float32(0.0)
	for i := 0; i < n; i++ {
		probs[i] = float32(math.Exp(float64(logits[i] - maxVal)))
		sumExp += probs[i]
	}

	for i := 0; i < n; i++ {
		probs[i] /= sumExp
	}

	return probs
}

// softmaxRowFloat64 computes a numerically stable softmax for one row.
func softmaxRowFloat64(logits []float64) []float64 {
	n := len(logits)
	probs := make([]float64, n)

	maxVal := logits[0]
	for i := 1; i < n; i++ {
		if logits[i] > maxVal {
			maxVal = logits[i]
		}
	}

	sumExp := 0.0
	for i := 0; i < n; i++ {
		probs[i] = math.Exp(logits[i] - maxVal)
		sumExp += probs[i]
	}

	for i := 0; i < n; i++ {
		probs[i] /= sumExp
	}

	return probs
}
