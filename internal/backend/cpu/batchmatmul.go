package cpu

import (
	"fmt"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// BatchMatMul performs batched matrix multiplication.
//
// For 3D: [B, M, K] @ [B, K, N] -> [B, M, N]
//
// The last two dimensions are treated as matrix dimensions.
// All leading dimensions must match (batch dimensions).
func (cpu *CPUBackend) BatchMatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()
	ndim := len(aShape)

	if ndim < 3 {
		panic(fmt.Sprintf("batchmatmul: inputs must be at least 3D, got %dD", ndim))
	}
	if len(bShape) != ndim {
		panic(fmt.Sprintf("batchmatmul: dimension mismatch, got %dD and %dD", ndim, len(bShape)))
	}

	// Validate batch dimensions match
	for i := 0; i < ndim-2; i++ {
		if aShape[i] != bShape[i] {
			panic(fmt.Sprintf("batchmatmul: batch dimension mismatch at dim %d: %d vs %d", i, aShape[i], bShape[i]))
		}
	}

	m := aShape[ndim-2]
	k1 := aShape[ndim-1]
	k2 := bShape[ndim-2]
	n := bShape[ndim-1]

	if k1 != k2 {
		panic(fmt.Sprintf("batchmatmul: inner dimension mismatch: %d vs %d", k1, k2))
	}

	// Batch size is the product of all leading dims
	batchSize := 1
	for i := 0; i < ndim-2; i++ {
		batchSize *= aShape[i]
	}

	outShape := make(tensor.Shape, ndim)
	copy(outShape, aShape[:ndim-2])
	outShape[ndim-2] = m
	outShape[ndim-1] = n

	result := cpu.newResult(outShape, a.DType(), "batchmatmul")

	switch a.DType() {
	case tensor.Float32:
		batchMatmulFloat32(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), batchSize, m, k1, n)
	case tensor.Float64:
		batchMatmulFloat64(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), batchSize, m, k1, n)
	default:
		panic(fmt.Sprintf("batchmatmul: unsupported dtype %s", a.DType()))
	}

	return result
}

func batchMatmulFloat32(c, a, b []float32, batchSize, m, k, n int) {
	for batch := 0; batch < batchSize; batch++ {
		aOff := batch * m * k
		bOff := batch * k * n
		cOff := batch * m * n

		for i := 0; i < m; i++ {
			for j := 0; j < n; j++ {
				sum := float32(0)
				for kIdx := 0; kIdx < k; kIdx++ {
					sum += a[aOff+i*k+kIdx] * b[bOff+kIdx*n+j]
				}
				c[cOff+i*n+j] = sum
			}
		}
	}
}

func batchMatmulFloat64(c, a, b []float64, batchSize, m, k, n int) {
	for batch := 0; batch < batchSize; batch++ {
		aOff := batch * m * k
		bOff := batch * k * n
		cOff := batch * m * n

		for i := 0; i < m; i++ {
			for j := 0; j < n; j++ {
				sum := float64(0)
				for kIdx := 0; kIdx < k; kIdx++ {
					sum += a[aOff+i*k+kIdx] * b[bOff+kIdx*n+j]
				}
				c[cOff+i*n+j] = sum
			}
		}
	}
}
