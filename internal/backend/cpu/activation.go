package cpu

import (
	"fmt"
	"math"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// Softmax computes softmax along the last dimension.
// Softmax(x_i) = exp(x_i) / sum(exp(x_j)) over the last dimension.
//
// Uses max-subtraction for numerical stability.
func (cpu *CPUBackend) Softmax(x *tensor.RawTensor) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) < 1 {
		panic("softmax: tensor must have at least 1 dimension")
	}

	result := cpu.newResult(shape, x.DType(), "softmax")

	rowSize := shape[len(shape)-1]
	numRows := x.NumElements() / rowSize

	switch x.DType() {
	case tensor.Float32:
		softmaxFloat32(result.AsFloat32(), x.AsFloat32(), numRows, rowSize)
	case tensor.Float64:
		softmaxFloat64(result.AsFloat64(), x.AsFloat64(), numRows, rowSize)
	default:
		panic(fmt.Sprintf("softmax: unsupported dtype %s (only float32/float64 supported)", x.DType()))
	}

	return result
}

// The last dimension is contiguous in memory, so each softmax row is a
// plain slice.
func softmaxFloat32(dst, src []float32, numRows, rowSize int) {
	for row := 0; row < numRows; row++ {
		off := row * rowSize

		// Find max for numerical stability
		maxVal := float32(math.Inf(-1))
		for i := 0; i < rowSize; i++ {
			if src[off+i] > maxVal {
				maxVal = src[off+i]
			}
		}

		// Compute exp(x - max) and sum
		var sum float32
		for i := 0; i < rowSize; i++ {
			expVal := float32(math.Exp(float64(src[off+i] - maxVal)))
			dst[off+i] = expVal
			sum += expVal
		}

		// Normalize
		for i := 0; i < rowSize; i++ {
			dst[off+i] /= sum
		}
	}
}

func softmaxFloat64(dst, src []float64, numRows, rowSize int) {
	for row := 0; row < numRows; row++ {
		off := row * rowSize

		maxVal := math.Inf(-1)
		for i := 0; i < rowSize; i++ {
			if src[off+i] > maxVal {
				maxVal = src[off+i]
			}
		}

		var sum float64
		for i := 0; i < rowSize; i++ {
			expVal := math.Exp(src[off+i] - maxVal)
			dst[off+i] = expVal
			sum += expVal
		}

		for i := 0; i < rowSize; i++ {
			dst[off+i] /= sum
		}
	}
}

// Tanh computes element-wise hyperbolic tangent.
func (cpu *CPUBackend) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	result := cpu.newResult(x.Shape(), x.DType(), "tanh")

	switch x.DType() {
	case tensor.Float32:
		src := x.AsFloat32()
		dst := result.AsFloat32()
		for i, v := range src {
			dst[i] = float32(math.Tanh(float64(v)))
		}
	case tensor.Float64:
		src := x.AsFloat64()
		dst := result.AsFloat64()
		for i, v := range src {
			dst[i] = math.Tanh(v)
		}
	default:
		panic(fmt.Sprintf("tanh: unsupported dtype %s (only float32/float64 supported)", x.DType()))
	}

	return result
}

// Sigmoid computes the element-wise logistic function: 1 / (1 + exp(-x)).
func (cpu *CPUBackend) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	result := cpu.newResult(x.Shape(), x.DType(), "sigmoid")

	switch x.DType() {
	case tensor.Float32:
		src := x.AsFloat32()
		dst := result.AsFloat32()
		for i, v := range src {
			dst[i] = float32(1.0 / (1.0 + math.Exp(float64(-v))))
		}
	case tensor.Float64:
		src := x.AsFloat64()
		dst := result.AsFloat64()
		for i, v := range src {
			dst[i] = 1.0 / (1.0 + math.Exp(-v))
		}
	default:
		panic(fmt.Sprintf("sigmoid: unsupported dtype %s (only float32/float64 supported)", x.DType()))
	}

	return result
}

// LeakyReLU computes element-wise max(x, negSlope*x).
func (cpu *CPUBackend) LeakyReLU(x *tensor.RawTensor, negSlope float64) *tensor.RawTensor {
	result := cpu.newResult(x.Shape(), x.DType(), "leakyrelu")

	switch x.DType() {
	case tensor.Float32:
		src := x.AsFloat32()
		dst := result.AsFloat32()
		slope := float32(negSlope)
		for i, v := range src {
			if v >= 0 {
				dst[i] = v
			} else {
				dst[i] = slope * v
			}
		}
	case tensor.Float64:
		src := x.AsFloat64()
		dst := result.AsFloat64()
		for i, v := range src {
			if v >= 0 {
				dst[i] = v
			} else {
				dst[i] = negSlope * v
			}
		}
	default:
		panic(fmt.Sprintf("leakyrelu: unsupported dtype %s (only float32/float64 supported)", x.DType()))
	}

	return result
}
