package tensor

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// The operation set is scoped to what the variational model family needs:
// dense linear algebra, the pointwise functions that appear in the losses,
// softmax attention pooling, and the index machinery for bags, modality
// blocks and embedding lookups.
//
// Implementations:
//   - cpu.CPUBackend: single-threaded pure Go loops
//   - autodiff.AutodiffBackend: decorator recording operations on a tape
type Backend interface {
	// Element-wise binary operations (NumPy-style broadcasting)
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Scalar operations (element-wise with a scalar)
	AddScalar(x *RawTensor, scalar float64) *RawTensor
	MulScalar(x *RawTensor, scalar float64) *RawTensor

	// Math operations (element-wise)
	Exp(x *RawTensor) *RawTensor
	Log(x *RawTensor) *RawTensor

	// Activation functions
	Tanh(x *RawTensor) *RawTensor
	Sigmoid(x *RawTensor) *RawTensor
	LeakyReLU(x *RawTensor, negSlope float64) *RawTensor

	// Softmax normalizes along the last dimension.
	// Supports any rank >= 1; rows are all leading dimensions flattened.
	Softmax(x *RawTensor) *RawTensor

	// Matrix operations
	MatMul(a, b *RawTensor) *RawTensor

	// BatchMatMul performs batched matrix multiplication for 3D tensors:
	// [B, M, K] @ [B, K, N] -> [B, M, N]
	BatchMatMul(a, b *RawTensor) *RawTensor

	// Shape operations
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// Reduction operations
	Sum(x *RawTensor) *RawTensor                            // total sum (scalar result)
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor  // sum along dimension
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor // mean along dimension
	Argmax(x *RawTensor, dim int) *RawTensor                // index of maximum along dimension (not differentiated)

	// Manipulation operations
	Cat(tensors []*RawTensor, dim int) *RawTensor                // concatenate along dimension
	SplitSizes(x *RawTensor, sizes []int, dim int) []*RawTensor  // split into declared-width pieces
	IndexSelect(x *RawTensor, indices *RawTensor) *RawTensor     // select rows (dim 0) by int32 indices
	Embedding(weight, indices *RawTensor) *RawTensor             // lookup embedding rows by indices

	// CrossEntropy computes mean cross-entropy loss between logits
	// [batch, classes] and int32 class targets [batch] (scalar result).
	CrossEntropy(logits, targets *RawTensor) *RawTensor

	// Metadata
	Name() string
	Device() Device
}
