package cpu

import (
	"fmt"
	"math"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// CrossEntropy computes the mean cross-entropy loss between logits and
// integer class targets.
//
// Parameters:
//   - logits: raw scores with shape [batch, numClasses]
//   - targets: int32 class indices with shape [batch]
//
// The softmax is fused into the loss for numerical stability (max-subtracted
// log-sum-exp). Returns a single-element tensor.
func (cpu *CPUBackend) CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	if len(logits.Shape()) != 2 {
		panic(fmt.Sprintf("crossentropy: logits must be 2D [batch, classes], got %dD", len(logits.Shape())))
	}
	if targets.DType() != tensor.Int32 {
		panic(fmt.Sprintf("crossentropy: targets must be int32, got %s", targets.DType()))
	}
	batch := logits.Shape()[0]
	numClasses := logits.Shape()[1]
	if targets.NumElements() != batch {
		panic(fmt.Sprintf("crossentropy: batch mismatch: %d logits rows vs %d targets", batch, targets.NumElements()))
	}

	result := cpu.newResult(tensor.Shape{1}, logits.DType(), "crossentropy")

	switch logits.DType() {
	case tensor.Float32:
		result.AsFloat32()[0] = crossEntropyFloat32(logits.AsFloat32(), targets.AsInt32(), batch, numClasses)
	case tensor.Float64:
		result.AsFloat64()[0] = crossEntropyFloat64(logits.AsFloat64(), targets.AsInt32(), batch, numClasses)
	default:
		panic(fmt.Sprintf("crossentropy: unsupported dtype %s (only float32/float64 supported)", logits.DType()))
	}

	return result
}

func crossEntropyFloat32(logits []float32, targets []int32, batch, numClasses int) float32 {
	var total float64
	for b := 0; b < batch; b++ {
		row := logits[b*numClasses : (b+1)*numClasses]
		target := targets[b]
		if target < 0 || int(target) >= numClasses {
			panic(fmt.Sprintf("crossentropy: target %d out of range [0, %d)", target, numClasses))
		}

		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}
		var sumExp float64
		for _, v := range row {
			sumExp += math.Exp(float64(v - maxVal))
		}
		// -log softmax(row)[target] = log(sumExp) - (row[target] - max)
		total += math.Log(sumExp) - float64(row[target]-maxVal)
	}
	return float32(total / float64(batch))
}

func crossEntropyFloat64(logits []float64, targets []int32, batch, numClasses int) float64 {
	var total float64
	for b := 0; b < batch; b++ {
		row := logits[b*numClasses : (b+1)*numClasses]
		target := targets[b]
		if target < 0 || int(target) >= numClasses {
			panic(fmt.Sprintf("crossentropy: target %d out of range [0, %d)", target, numClasses))
		}

		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}
		var sumExp float64
		for _, v := range row {
			sumExp += math.Exp(v - maxVal)
		}
		total += math.Log(sumExp) - (row[target] - maxVal)
	}
	return total / float64(batch)
}
