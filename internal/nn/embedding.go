package nn

import (
	"fmt"
	"math/rand"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// Embedding is a lookup table that maps discrete indices to dense vectors.
//
// Categorical covariates (batch, donor, condition labels encoded as
// integer codes) enter the models through this layer. The embedding
// vectors are learnable parameters.
//
// Architecture:
//   - Weight: [NumEmbed, EmbedDim] learnable parameter
//   - Forward: indices [n] -> embeddings [n, EmbedDim]
//   - Backward: gradients scatter-add to weight rows
//
// Example:
//
//	// 12 batches embedded into 8 dimensions
//	embed := nn.NewEmbedding[B](12, 8, backend, rng)
//	codes, _ := tensor.FromSlice([]int32{0, 3, 3, 7}, tensor.Shape{4}, backend)
//	vectors := embed.Forward(codes) // [4, 8]
type Embedding[B tensor.Backend] struct {
	Weight   *Parameter[B] // Embedding weight matrix [NumEmbed, EmbedDim]
	NumEmbed int           // Number of distinct indices
	EmbedDim int           // Embedding dimension
}

// NewEmbedding creates a new Embedding layer.
//
// The weights are initialized from a standard normal distribution drawn
// from rng; a nil rng falls back to the global source. For custom
// initialization pass a prebuilt tensor to NewEmbeddingWithWeight.
func NewEmbedding[B tensor.Backend](numEmbeddings, embeddingDim int, backend B, rng *rand.Rand) *Embedding[B] {
	normFloat := rand.NormFloat64
	if rng != nil {
		normFloat = rng.NormFloat64
	}

	weightData := make([]float32, numEmbeddings*embeddingDim)
	for i := range weightData {
		weightData[i] = float32(normFloat())
	}

	weight, err := tensor.FromSlice[float32, B](weightData, tensor.Shape{numEmbeddings, embeddingDim}, backend)
	if err != nil {
		panic(fmt.Sprintf("failed to create embedding weight: %v", err))
	}

	return &Embedding[B]{
		Weight:   NewParameter[B]("weight", weight),
		NumEmbed: numEmbeddings,
		EmbedDim: embeddingDim,
	}
}

// NewEmbeddingWithWeight creates an Embedding layer with pre-initialized weights.
func NewEmbeddingWithWeight[B tensor.Backend](weight *tensor.Tensor[float32, B]) *Embedding[B] {
	shape := weight.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("embedding weight must be 2D, got shape %v", shape))
	}

	return &Embedding[B]{
		Weight:   NewParameter[B]("weight", weight),
		NumEmbed: shape[0],
		EmbedDim: shape[1],
	}
}

// Forward performs embedding lookup.
//
// Maps each index to its corresponding embedding vector. The operation
// is differentiable; gradients flow back to the weight rows that were
// selected.
//
// Panics if any index is out of bounds [0, NumEmbed).
func (e *Embedding[B]) Forward(indices *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	return e.Weight.Tensor().Embedding(indices)
}

// Parameters returns the list of trainable parameters.
func (e *Embedding[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{e.Weight}
}

// StateDict returns the embedding weight keyed as "weight".
func (e *Embedding[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{
		"weight": e.Weight.Tensor().Raw(),
	}
}

// LoadStateDict restores the embedding weight from a state dict.
func (e *Embedding[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	raw, ok := stateDict["weight"]
	if !ok {
		return fmt.Errorf("embedding: missing weight in state dict")
	}
	expected := tensor.Shape{e.NumEmbed, e.EmbedDim}
	if !raw.Shape().Equal(expected) {
		return fmt.Errorf("embedding: weight shape mismatch: expected %v, got %v", expected, raw.Shape())
	}
	if raw.DType() != tensor.Float32 {
		return fmt.Errorf("embedding: weight dtype mismatch: expected float32, got %v", raw.DType())
	}
	copy(e.Weight.Tensor().Data(), raw.AsFloat32())
	return nil
}
