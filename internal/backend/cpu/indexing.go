package cpu

import (
	"fmt"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// IndexSelect gathers rows of x (along dimension 0) at the given indices.
// The indices tensor must be 1-D int32; the result has shape
// [len(indices), x.Shape()[1:]...].
func (cpu *CPUBackend) IndexSelect(x, indices *tensor.RawTensor) *tensor.RawTensor {
	if indices.DType() != tensor.Int32 {
		panic(fmt.Sprintf("indexselect: indices must be int32, got %s", indices.DType()))
	}
	if len(indices.Shape()) != 1 {
		panic(fmt.Sprintf("indexselect: indices must be 1D, got %dD", len(indices.Shape())))
	}
	if len(x.Shape()) < 1 {
		panic("indexselect: input must have at least 1 dimension")
	}

	numRows := x.Shape()[0]
	rowSize := 1
	for i := 1; i < len(x.Shape()); i++ {
		rowSize *= x.Shape()[i]
	}

	idx := indices.AsInt32()
	outShape := x.Shape().Clone()
	outShape[0] = len(idx)
	result := cpu.newResult(outShape, x.DType(), "indexselect")

	switch x.DType() {
	case tensor.Float32:
		src := x.AsFloat32()
		dst := result.AsFloat32()
		for i, row := range idx {
			if row < 0 || int(row) >= numRows {
				panic(fmt.Sprintf("indexselect: index %d out of range [0, %d)", row, numRows))
			}
			copy(dst[i*rowSize:(i+1)*rowSize], src[int(row)*rowSize:(int(row)+1)*rowSize])
		}
	case tensor.Float64:
		src := x.AsFloat64()
		dst := result.AsFloat64()
		for i, row := range idx {
			if row < 0 || int(row) >= numRows {
				panic(fmt.Sprintf("indexselect: index %d out of range [0, %d)", row, numRows))
			}
			copy(dst[i*rowSize:(i+1)*rowSize], src[int(row)*rowSize:(int(row)+1)*rowSize])
		}
	case tensor.Int32:
		src := x.AsInt32()
		dst := result.AsInt32()
		for i, row := range idx {
			if row < 0 || int(row) >= numRows {
				panic(fmt.Sprintf("indexselect: index %d out of range [0, %d)", row, numRows))
			}
			copy(dst[i*rowSize:(i+1)*rowSize], src[int(row)*rowSize:(int(row)+1)*rowSize])
		}
	default:
		panic(fmt.Sprintf("indexselect: unsupported dtype %s", x.DType()))
	}

	return result
}

// Embedding looks up embedding vectors for the given indices.
//
// Parameters:
//   - weight: embedding table with shape [vocabSize, embeddingDim]
//   - indices: int32 tensor of arbitrary shape containing table indices
//
// Returns a tensor with shape [indices.Shape()..., embeddingDim].
func (cpu *CPUBackend) Embedding(weight, indices *tensor.RawTensor) *tensor.RawTensor {
	if len(weight.Shape()) != 2 {
		panic(fmt.Sprintf("embedding: weight must be 2D [vocab, dim], got %dD", len(weight.Shape())))
	}
	if indices.DType() != tensor.Int32 {
		panic(fmt.Sprintf("embedding: indices must be int32, got %s", indices.DType()))
	}

	vocabSize := weight.Shape()[0]
	embeddingDim := weight.Shape()[1]

	indicesShape := indices.Shape()
	outShape := make(tensor.Shape, len(indicesShape)+1)
	copy(outShape, indicesShape)
	outShape[len(outShape)-1] = embeddingDim

	result := cpu.newResult(outShape, weight.DType(), "embedding")

	switch weight.DType() {
	case tensor.Float32:
		embeddingFloat32(weight.AsFloat32(), indices.AsInt32(), result.AsFloat32(), vocabSize, embeddingDim)
	case tensor.Float64:
		embeddingFloat64(weight.AsFloat64(), indices.AsInt32(), result.AsFloat64(), vocabSize, embeddingDim)
	default:
		panic(fmt.Sprintf("embedding: unsupported dtype %s (only float32/float64 supported)", weight.DType()))
	}

	return result
}

func embeddingFloat32(weight []float32, indices []int32, result []float32, vocabSize, embeddingDim int) {
	for i, idx := range indices {
		if idx < 0 || int(idx) >= vocabSize {
			panic(fmt.Sprintf("embedding: index %d out of range [0, %d)", idx, vocabSize))
		}
		copy(result[i*embeddingDim:(i+1)*embeddingDim], weight[int(idx)*embeddingDim:(int(idx)+1)*embeddingDim])
	}
}

func embeddingFloat64(weight []float64, indices []int32, result []float64, vocabSize, embeddingDim int) {
	for i, idx := range indices {
		if idx < 0 || int(idx) >= vocabSize {
			panic(fmt.Sprintf("embedding: index %d out of range [0, %d)", idx, vocabSize))
		}
		copy(result[i*embeddingDim:(i+1)*embeddingDim], weight[int(idx)*embeddingDim:(int(idx)+1)*embeddingDim])
	}
}
