package tensor

import (
	"fmt"
	"math"
)

// Verify that MockBackend implements Backend.
var _ Backend = (*MockBackend)(nil)

// MockBackend is a simple backend for testing.
// It implements all operations naively for correctness verification.
type MockBackend struct{}

// NewMockBackend creates a new MockBackend.
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// Name returns the backend name.
func (m *MockBackend) Name() string {
	return "mock"
}

// Device returns the device type.
func (m *MockBackend) Device() Device {
	return CPU
}

// Add performs element-wise addition with broadcasting.
func (m *MockBackend) Add(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (m *MockBackend) Sub(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (m *MockBackend) Mul(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (m *MockBackend) Div(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x / y })
}

// AddScalar adds a scalar to each element.
func (m *MockBackend) AddScalar(x *RawTensor, scalar float64) *RawTensor {
	return m.unary(x, func(v float64) float64 { return v + scalar })
}

// MulScalar multiplies each element by a scalar.
func (m *MockBackend) MulScalar(x *RawTensor, scalar float64) *RawTensor {
	return m.unary(x, func(v float64) float64 { return v * scalar })
}

// Exp computes e^x element-wise.
func (m *MockBackend) Exp(x *RawTensor) *RawTensor {
	return m.unary(x, math.Exp)
}

// Log computes ln(x) element-wise.
func (m *MockBackend) Log(x *RawTensor) *RawTensor {
	return m.unary(x, math.Log)
}

// Tanh computes tanh(x) element-wise.
func (m *MockBackend) Tanh(x *RawTensor) *RawTensor {
	return m.unary(x, math.Tanh)
}

// Sigmoid computes 1/(1+e^-x) element-wise.
func (m *MockBackend) Sigmoid(x *RawTensor) *RawTensor {
	return m.unary(x, func(v float64) float64 { return 1.0 / (1.0 + math.Exp(-v)) })
}

// LeakyReLU computes max(x, negSlope*x) element-wise.
func (m *MockBackend) LeakyReLU(x *RawTensor, negSlope float64) *RawTensor {
	return m.unary(x, func(v float64) float64 {
		if v >= 0 {
			return v
		}
		return negSlope * v
	})
}

// Softmax normalizes along the last dimension.
func (m *MockBackend) Softmax(x *RawTensor) *RawTensor {
	shape := x.Shape()
	if len(shape) < 1 {
		panic("softmax requires at least 1 dimension")
	}

	result, err := NewRaw(shape, x.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	rowSize := shape[len(shape)-1]
	numRows := x.NumElements() / rowSize

	xData := m.toFloat64Slice(x)
	resultData := m.toFloat64Slice(result)

	for r := 0; r < numRows; r++ {
		row := xData[r*rowSize : (r+1)*rowSize]

		// Max-subtraction for numerical stability
		maxVal := row[0]
		for _, v := range row {
			if v > maxVal {
				maxVal = v
			}
		}

		sum := 0.0
		for i, v := range row {
			e := math.Exp(v - maxVal)
			resultData[r*rowSize+i] = e
			sum += e
		}
		for i := 0; i < rowSize; i++ {
			resultData[r*rowSize+i] /= sum
		}
	}

	m.fromFloat64Slice(resultData, result)
	return result
}

// MatMul performs 2D matrix multiplication.
func (m *MockBackend) MatMul(a, b *RawTensor) *RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()

	if len(aShape) != 2 || len(bShape) != 2 {
		panic("MatMul only supports 2D tensors in mock backend")
	}

	if aShape[1] != bShape[0] {
		panic(fmt.Sprintf("incompatible shapes for MatMul: %v @ %v", aShape, bShape))
	}

	M, K := aShape[0], aShape[1]
	N := bShape[1]

	result, err := NewRaw(Shape{M, N}, a.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	aData := m.toFloat64Slice(a)
	bData := m.toFloat64Slice(b)
	resultData := m.toFloat64Slice(result)

	// Naive matrix multiplication
	for i := 0; i < M; i++ {
		for j := 0; j < N; j++ {
			sum := 0.0
			for k := 0; k < K; k++ {
				sum += aData[i*K+k] * bData[k*N+j]
			}
			resultData[i*N+j] = sum
		}
	}

	m.fromFloat64Slice(resultData, result)
	return result
}

// BatchMatMul performs batched 3D matrix multiplication.
func (m *MockBackend) BatchMatMul(a, b *RawTensor) *RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()

	if len(aShape) != 3 || len(bShape) != 3 {
		panic("BatchMatMul requires 3D tensors [batch, rows, cols]")
	}
	if aShape[0] != bShape[0] {
		panic(fmt.Sprintf("BatchMatMul: batch sizes differ: %d vs %d", aShape[0], bShape[0]))
	}
	if aShape[2] != bShape[1] {
		panic(fmt.Sprintf("incompatible shapes for BatchMatMul: %v @ %v", aShape, bShape))
	}

	batch, M, K := aShape[0], aShape[1], aShape[2]
	N := bShape[2]

	result, err := NewRaw(Shape{batch, M, N}, a.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	aData := m.toFloat64Slice(a)
	bData := m.toFloat64Slice(b)
	resultData := m.toFloat64Slice(result)

	for bi := 0; bi < batch; bi++ {
		aOff := bi * M * K
		bOff := bi * K * N
		outOff := bi * M * N
		for i := 0; i < M; i++ {
			for j := 0; j < N; j++ {
				sum := 0.0
				for k := 0; k < K; k++ {
					sum += aData[aOff+i*K+k] * bData[bOff+k*N+j]
				}
				resultData[outOff+i*N+j] = sum
			}
		}
	}

	m.fromFloat64Slice(resultData, result)
	return result
}

// Reshape changes tensor shape.
func (m *MockBackend) Reshape(t *RawTensor, newShape Shape) *RawTensor {
	if err := newShape.Validate(); err != nil {
		panic(err)
	}

	if t.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("cannot reshape tensor with %d elements to shape %v (%d elements)",
			t.NumElements(), newShape, newShape.NumElements()))
	}

	result, err := NewRaw(newShape, t.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	copy(result.Data(), t.Data())
	return result
}

// Transpose transposes tensor dimensions.
func (m *MockBackend) Transpose(t *RawTensor, axes ...int) *RawTensor {
	shape := t.Shape()

	// Default: reverse all dimensions
	if len(axes) == 0 {
		axes = make([]int, len(shape))
		for i := range axes {
			axes[i] = len(shape) - 1 - i
		}
	}

	if len(axes) != len(shape) {
		panic(fmt.Sprintf("axes length %d doesn't match tensor dimensions %d", len(axes), len(shape)))
	}

	newShape := make(Shape, len(shape))
	for i, axis := range axes {
		if axis < 0 || axis >= len(shape) {
			panic(fmt.Sprintf("axis %d out of bounds for tensor with %d dimensions", axis, len(shape)))
		}
		newShape[i] = shape[axis]
	}

	result, err := NewRaw(newShape, t.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	tData := m.toFloat64Slice(t)
	resultData := m.toFloat64Slice(result)

	oldStrides := shape.ComputeStrides()
	newStrides := newShape.ComputeStrides()

	for i := 0; i < t.NumElements(); i++ {
		// Convert flat index to multi-dimensional indices
		indices := make([]int, len(shape))
		temp := i
		for j := 0; j < len(shape); j++ {
			indices[j] = temp / oldStrides[j]
			temp %= oldStrides[j]
		}

		// Permute indices
		newIdx := 0
		for j, axis := range axes {
			newIdx += indices[axis] * newStrides[j]
		}

		resultData[newIdx] = tData[i]
	}

	m.fromFloat64Slice(resultData, result)
	return result
}

// Sum computes the total sum, returning a scalar tensor of shape [1].
func (m *MockBackend) Sum(x *RawTensor) *RawTensor {
	result, err := NewRaw(Shape{1}, x.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	sum := 0.0
	for _, v := range m.toFloat64Slice(x) {
		sum += v
	}
	m.fromFloat64Slice([]float64{sum}, result)
	return result
}

// SumDim sums along a dimension.
func (m *MockBackend) SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor {
	return m.reduceDim(x, dim, keepDim, false)
}

// MeanDim averages along a dimension.
func (m *MockBackend) MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor {
	return m.reduceDim(x, dim, keepDim, true)
}

func (m *MockBackend) reduceDim(x *RawTensor, dim int, keepDim, mean bool) *RawTensor {
	shape := x.Shape()
	dim = normalizeDim(dim, len(shape))

	outShape := make(Shape, 0, len(shape))
	for i, s := range shape {
		if i == dim {
			if keepDim {
				outShape = append(outShape, 1)
			}
			continue
		}
		outShape = append(outShape, s)
	}
	if len(outShape) == 0 {
		outShape = Shape{1}
	}

	result, err := NewRaw(outShape, x.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	// Walk the input as [outer, dim, inner]
	outer := 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	dimSize := shape[dim]
	inner := 1
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}

	xData := m.toFloat64Slice(x)
	resultData := m.toFloat64Slice(result)

	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			sum := 0.0
			for d := 0; d < dimSize; d++ {
				sum += xData[o*dimSize*inner+d*inner+in]
			}
			if mean {
				sum /= float64(dimSize)
			}
			resultData[o*inner+in] = sum
		}
	}

	m.fromFloat64Slice(resultData, result)
	return result
}

// Argmax returns int32 indices of the maximum along a dimension.
func (m *MockBackend) Argmax(x *RawTensor, dim int) *RawTensor {
	shape := x.Shape()
	dim = normalizeDim(dim, len(shape))

	outShape := make(Shape, 0, len(shape))
	for i, s := range shape {
		if i == dim {
			continue
		}
		outShape = append(outShape, s)
	}
	if len(outShape) == 0 {
		outShape = Shape{1}
	}

	result, err := NewRaw(outShape, Int32, m.Device())
	if err != nil {
		panic(err)
	}

	outer := 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	dimSize := shape[dim]
	inner := 1
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}

	xData := m.toFloat64Slice(x)
	out := result.AsInt32()

	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			best := 0
			bestVal := xData[o*dimSize*inner+in]
			for d := 1; d < dimSize; d++ {
				v := xData[o*dimSize*inner+d*inner+in]
				if v > bestVal {
					bestVal = v
					best = d
				}
			}
			out[o*inner+in] = int32(best)
		}
	}

	return result
}

// Cat concatenates tensors along a dimension.
func (m *MockBackend) Cat(tensors []*RawTensor, dim int) *RawTensor {
	if len(tensors) == 0 {
		panic("cat: at least one tensor required")
	}

	first := tensors[0]
	shape := first.Shape()
	dim = normalizeDim(dim, len(shape))

	total := 0
	for _, t := range tensors {
		tShape := t.Shape()
		if len(tShape) != len(shape) {
			panic("cat: all tensors must have the same number of dimensions")
		}
		for i, s := range tShape {
			if i != dim && s != shape[i] {
				panic(fmt.Sprintf("cat: shape mismatch along dim %d: %v vs %v", i, shape, tShape))
			}
		}
		total += tShape[dim]
	}

	outShape := shape.Clone()
	outShape[dim] = total

	result, err := NewRaw(outShape, first.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	outer := 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	inner := 1
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}

	resultData := m.toFloat64Slice(result)
	offset := 0
	for _, t := range tensors {
		tData := m.toFloat64Slice(t)
		tDim := t.Shape()[dim]
		for o := 0; o < outer; o++ {
			src := tData[o*tDim*inner : (o+1)*tDim*inner]
			dst := resultData[o*total*inner+offset*inner:]
			copy(dst[:tDim*inner], src)
		}
		offset += tDim
	}

	m.fromFloat64Slice(resultData, result)
	return result
}

// SplitSizes splits into pieces of the declared sizes along a dimension.
func (m *MockBackend) SplitSizes(x *RawTensor, sizes []int, dim int) []*RawTensor {
	shape := x.Shape()
	dim = normalizeDim(dim, len(shape))

	total := 0
	for _, s := range sizes {
		if s <= 0 {
			panic("split: sizes must be positive")
		}
		total += s
	}
	if total != shape[dim] {
		panic(fmt.Sprintf("split: sizes sum to %d, dimension %d has size %d", total, dim, shape[dim]))
	}

	outer := 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	inner := 1
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}

	xData := m.toFloat64Slice(x)
	results := make([]*RawTensor, len(sizes))

	offset := 0
	for si, size := range sizes {
		outShape := shape.Clone()
		outShape[dim] = size

		result, err := NewRaw(outShape, x.DType(), m.Device())
		if err != nil {
			panic(err)
		}

		resultData := m.toFloat64Slice(result)
		for o := 0; o < outer; o++ {
			src := xData[o*shape[dim]*inner+offset*inner:]
			copy(resultData[o*size*inner:(o+1)*size*inner], src[:size*inner])
		}
		m.fromFloat64Slice(resultData, result)
		results[si] = result
		offset += size
	}

	return results
}

// IndexSelect selects rows (dim 0) by int32 indices.
func (m *MockBackend) IndexSelect(x *RawTensor, indices *RawTensor) *RawTensor {
	shape := x.Shape()
	if indices.DType() != Int32 {
		panic("IndexSelect: indices must be int32")
	}

	idx := indices.AsInt32()
	rowSize := x.NumElements() / shape[0]

	outShape := shape.Clone()
	outShape[0] = len(idx)

	result, err := NewRaw(outShape, x.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	xData := m.toFloat64Slice(x)
	resultData := m.toFloat64Slice(result)

	for i, row := range idx {
		if int(row) < 0 || int(row) >= shape[0] {
			panic(fmt.Sprintf("IndexSelect: index %d out of range [0, %d)", row, shape[0]))
		}
		copy(resultData[i*rowSize:(i+1)*rowSize], xData[int(row)*rowSize:(int(row)+1)*rowSize])
	}

	m.fromFloat64Slice(resultData, result)
	return result
}

// Embedding looks up embedding rows by indices.
// Output shape is the indices shape with the embedding width appended.
func (m *MockBackend) Embedding(weight, indices *RawTensor) *RawTensor {
	wShape := weight.Shape()
	if len(wShape) != 2 {
		panic("Embedding: weight must be 2D [vocab, dim]")
	}
	if indices.DType() != Int32 {
		panic("Embedding: indices must be int32")
	}

	vocab, embDim := wShape[0], wShape[1]
	idx := indices.AsInt32()

	outShape := append(indices.Shape().Clone(), embDim)
	result, err := NewRaw(outShape, weight.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	wData := m.toFloat64Slice(weight)
	resultData := m.toFloat64Slice(result)

	for i, row := range idx {
		if int(row) < 0 || int(row) >= vocab {
			panic(fmt.Sprintf("Embedding: index %d out of range [0, %d)", row, vocab))
		}
		copy(resultData[i*embDim:(i+1)*embDim], wData[int(row)*embDim:(int(row)+1)*embDim])
	}

	m.fromFloat64Slice(resultData, result)
	return result
}

// CrossEntropy computes mean cross-entropy between logits and int32 targets.
func (m *MockBackend) CrossEntropy(logits, targets *RawTensor) *RawTensor {
	lShape := logits.Shape()
	if len(lShape) != 2 {
		panic("CrossEntropy: logits must be 2D [batch, classes]")
	}
	if targets.DType() != Int32 {
		panic("CrossEntropy: targets must be int32")
	}

	batch, classes := lShape[0], lShape[1]
	tgt := targets.AsInt32()
	if len(tgt) != batch {
		panic(fmt.Sprintf("CrossEntropy: %d targets for batch of %d", len(tgt), batch))
	}

	probs := m.Softmax(logits)
	pData := m.toFloat64Slice(probs)

	loss := 0.0
	for i := 0; i < batch; i++ {
		c := int(tgt[i])
		if c < 0 || c >= classes {
			panic(fmt.Sprintf("CrossEntropy: target %d out of range [0, %d)", c, classes))
		}
		loss -= math.Log(pData[i*classes+c] + 1e-12)
	}
	loss /= float64(batch)

	result, err := NewRaw(Shape{1}, logits.DType(), m.Device())
	if err != nil {
		panic(err)
	}
	m.fromFloat64Slice([]float64{loss}, result)
	return result
}

// elementWise performs element-wise operations with broadcasting.
func (m *MockBackend) elementWise(a, b *RawTensor, op func(float64, float64) float64) *RawTensor {
	outShape, _, err := BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(err)
	}

	result, err := NewRaw(outShape, a.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	numElements := outShape.NumElements()

	aData := m.toFloat64Slice(a)
	bData := m.toFloat64Slice(b)
	resultData := m.toFloat64Slice(result)

	for i := 0; i < numElements; i++ {
		aIdx := m.broadcastIndex(i, outShape, a.Shape())
		bIdx := m.broadcastIndex(i, outShape, b.Shape())
		resultData[i] = op(aData[aIdx], bData[bIdx])
	}

	m.fromFloat64Slice(resultData, result)
	return result
}

func (m *MockBackend) unary(x *RawTensor, op func(float64) float64) *RawTensor {
	result, err := NewRaw(x.Shape(), x.DType(), m.Device())
	if err != nil {
		panic(err)
	}

	xData := m.toFloat64Slice(x)
	resultData := m.toFloat64Slice(result)
	for i, v := range xData {
		resultData[i] = op(v)
	}

	m.fromFloat64Slice(resultData, result)
	return result
}

// Helper functions

func (m *MockBackend) toFloat64Slice(t *RawTensor) []float64 {
	switch t.DType() {
	case Float32:
		src := t.AsFloat32()
		dst := make([]float64, len(src))
		for i, v := range src {
			dst[i] = float64(v)
		}
		return dst
	case Float64:
		return t.AsFloat64()
	case Int32:
		src := t.AsInt32()
		dst := make([]float64, len(src))
		for i, v := range src {
			dst[i] = float64(v)
		}
		return dst
	default:
		panic(fmt.Sprintf("unsupported dtype: %s", t.DType()))
	}
}

func (m *MockBackend) fromFloat64Slice(src []float64, t *RawTensor) {
	switch t.DType() {
	case Float32:
		dst := t.AsFloat32()
		for i, v := range src {
			dst[i] = float32(v)
		}
	case Float64:
		copy(t.AsFloat64(), src)
	case Int32:
		dst := t.AsInt32()
		for i, v := range src {
			dst[i] = int32(v)
		}
	}
}

func (m *MockBackend) broadcastIndex(flatIdx int, outShape, inShape Shape) int {
	// Convert flat index to multi-dimensional indices in output shape
	outStrides := outShape.ComputeStrides()
	indices := make([]int, len(outShape))

	temp := flatIdx
	for i := 0; i < len(outShape); i++ {
		indices[i] = temp / outStrides[i]
		temp %= outStrides[i]
	}

	// Map to input shape (accounting for broadcasting)
	inStrides := inShape.ComputeStrides()
	offset := len(outShape) - len(inShape)

	inIdx := 0
	for i := 0; i < len(inShape); i++ {
		idx := indices[i+offset]
		if inShape[i] == 1 {
			idx = 0
		}
		inIdx += idx * inStrides[i]
	}

	return inIdx
}

// normalizeDim resolves negative dimension indices and bounds-checks.
func normalizeDim(dim, ndim int) int {
	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("dimension %d out of range for %dD tensor", dim, ndim))
	}
	return dim
}
