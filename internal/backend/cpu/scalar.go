package cpu

import (
	"fmt"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// Scalar operations - element-wise operations with a scalar value.
// The scalar is float64 and is narrowed to the tensor's dtype.

// MulScalar multiplies each element of the tensor by a scalar value.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	result := cpu.newResult(x.Shape(), x.DType(), "mulscalar")

	switch x.DType() {
	case tensor.Float32:
		src := x.AsFloat32()
		dst := result.AsFloat32()
		s := float32(scalar)
		for i, v := range src {
			dst[i] = v * s
		}
	case tensor.Float64:
		src := x.AsFloat64()
		dst := result.AsFloat64()
		for i, v := range src {
			dst[i] = v * scalar
		}
	case tensor.Int32:
		src := x.AsInt32()
		dst := result.AsInt32()
		s := int32(scalar)
		for i, v := range src {
			dst[i] = v * s
		}
	default:
		panic(fmt.Sprintf("mulscalar: unsupported dtype %v", x.DType()))
	}

	return result
}

// AddScalar adds a scalar value to each element of the tensor.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	result := cpu.newResult(x.Shape(), x.DType(), "addscalar")

	switch x.DType() {
	case tensor.Float32:
		src := x.AsFloat32()
		dst := result.AsFloat32()
		s := float32(scalar)
		for i, v := range src {
			dst[i] = v + s
		}
	case tensor.Float64:
		src := x.AsFloat64()
		dst := result.AsFloat64()
		for i, v := range src {
			dst[i] = v + scalar
		}
	case tensor.Int32:
		src := x.AsInt32()
		dst := result.AsInt32()
		s := int32(scalar)
		for i, v := range src {
			dst[i] = v + s
		}
	default:
		panic(fmt.Sprintf("addscalar: unsupported dtype %v", x.DType()))
	}

	return result
}
