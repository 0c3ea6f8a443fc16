package ops

import (
	"fmt"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// EmbeddingOp represents an embedding lookup operation.
//
// Forward: output[i] = weight[indices[i]]
//
// Backward:
//
//	For each index i, accumulate grad_output[i] into grad_weight[indices[i]].
//	Gradients for repeated indices are summed.
type EmbeddingOp struct {
	weight  *tensor.RawTensor // Embedding weight [numEmbeddings, embeddingDim]
	indices *tensor.RawTensor // Index tensor (int32)
	output  *tensor.RawTensor // Output embeddings
}

// NewEmbeddingOp creates a new embedding operation.
func NewEmbeddingOp(weight, indices, output *tensor.RawTensor) *EmbeddingOp {
	return &EmbeddingOp{
		weight:  weight,
		indices: indices,
		output:  output,
	}
}

// Inputs returns the differentiable input tensors.
// Only the weight needs a gradient; indices are integer positions.
func (op *EmbeddingOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.weight}
}

// Output returns the output tensor.
func (op *EmbeddingOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward scatter-adds output gradients into the selected weight rows.
func (op *EmbeddingOp) Backward(gradOutput *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	weightShape := op.weight.Shape()
	numEmbeddings := weightShape[0]
	embeddingDim := weightShape[1]

	gradWeight, err := tensor.NewRaw(weightShape, op.weight.DType(), backend.Device())
	if err != nil {
		panic(err)
	}

	indicesData := op.indices.AsInt32()
	numIndices := op.indices.NumElements()

	switch op.weight.DType() {
	case tensor.Float32:
		src := gradOutput.AsFloat32()
		dst := gradWeight.AsFloat32()
		for i := range dst {
			dst[i] = 0
		}
		for i := 0; i < numIndices; i++ {
			idx := int(indicesData[i])
			if idx < 0 || idx >= numEmbeddings {
				panic(fmt.Sprintf("embedding backward: index %d out of range [0, %d)", idx, numEmbeddings))
			}
			for j := 0; j < embeddingDim; j++ {
				dst[idx*embeddingDim+j] += src[i*embeddingDim+j]
			}
		}
	case tensor.Float64:
		src := gradOutput.AsFloat64()
		dst := gradWeight.AsFloat64()
		for i := range dst {
			dst[i] = 0
		}
		for i := 0; i < numIndices; i++ {
			idx := int(indicesData[i])
			if idx < 0 || idx >= numEmbeddings {
				panic(fmt.Sprintf("embedding backward: index %d out of range [0, %d)", idx, numEmbeddings))
			}
			for j := 0; j < embeddingDim; j++ {
				dst[idx*embeddingDim+j] += src[i*embeddingDim+j]
			}
		}
	default:
		panic(fmt.Sprintf("embedding backward: unsupported dtype %s", op.weight.DType()))
	}

	return []*tensor.RawTensor{gradWeight}
}
