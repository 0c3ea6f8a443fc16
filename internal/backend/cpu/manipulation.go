package cpu

import (
	"fmt"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// Cat concatenates tensors along the specified dimension.
// All tensors must have the same dtype and identical shapes except along dim.
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: empty tensor list")
	}

	first := tensors[0]
	ndim := len(first.Shape())
	dim = normalizeDim("cat", dim, ndim)

	totalDim := 0
	for i, t := range tensors {
		if t.DType() != first.DType() {
			panic(fmt.Sprintf("cat: dtype mismatch at tensor %d: %s vs %s", i, t.DType(), first.DType()))
		}
		if len(t.Shape()) != ndim {
			panic(fmt.Sprintf("cat: rank mismatch at tensor %d: %d vs %d", i, len(t.Shape()), ndim))
		}
		for d := 0; d < ndim; d++ {
			if d != dim && t.Shape()[d] != first.Shape()[d] {
				panic(fmt.Sprintf("cat: shape mismatch at tensor %d, dimension %d: %d vs %d",
					i, d, t.Shape()[d], first.Shape()[d]))
			}
		}
		totalDim += t.Shape()[dim]
	}

	outShape := first.Shape().Clone()
	outShape[dim] = totalDim
	result := cpu.newResult(outShape, first.DType(), "cat")

	switch first.DType() {
	case tensor.Float32:
		catFloat32(tensors, result, dim)
	case tensor.Float64:
		catFloat64(tensors, result, dim)
	case tensor.Int32:
		catInt32(tensors, result, dim)
	default:
		panic(fmt.Sprintf("cat: unsupported dtype %s", first.DType()))
	}

	return result
}

// catFloat32 copies tensor blocks into the output. Each input contributes
// contiguous runs of size t.Shape()[dim]*inner, repeated outer times.
func catFloat32(tensors []*tensor.RawTensor, result *tensor.RawTensor, dim int) {
	shape := tensors[0].Shape()
	outer := 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	inner := 1
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}

	dst := result.AsFloat32()
	outDimSize := result.Shape()[dim]

	offset := 0
	for _, t := range tensors {
		src := t.AsFloat32()
		dimSize := t.Shape()[dim]
		blockSize := dimSize * inner
		for o := 0; o < outer; o++ {
			srcStart := o * blockSize
			dstStart := o*outDimSize*inner + offset*inner
			copy(dst[dstStart:dstStart+blockSize], src[srcStart:srcStart+blockSize])
		}
		offset += dimSize
	}
}

func catFloat64(tensors []*tensor.RawTensor, result *tensor.RawTensor, dim int) {
	shape := tensors[0].Shape()
	outer := 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	inner := 1
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}

	dst := result.AsFloat64()
	outDimSize := result.Shape()[dim]

	offset := 0
	for _, t := range tensors {
		src := t.AsFloat64()
		dimSize := t.Shape()[dim]
		blockSize := dimSize * inner
		for o := 0; o < outer; o++ {
			srcStart := o * blockSize
			dstStart := o*outDimSize*inner + offset*inner
			copy(dst[dstStart:dstStart+blockSize], src[srcStart:srcStart+blockSize])
		}
		offset += dimSize
	}
}

func catInt32(tensors []*tensor.RawTensor, result *tensor.RawTensor, dim int) {
	shape := tensors[0].Shape()
	outer := 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	inner := 1
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}

	dst := result.AsInt32()
	outDimSize := result.Shape()[dim]

	offset := 0
	for _, t := range tensors {
		src := t.AsInt32()
		dimSize := t.Shape()[dim]
		blockSize := dimSize * inner
		for o := 0; o < outer; o++ {
			srcStart := o * blockSize
			dstStart := o*outDimSize*inner + offset*inner
			copy(dst[dstStart:dstStart+blockSize], src[srcStart:srcStart+blockSize])
		}
		offset += dimSize
	}
}

// SplitSizes splits a tensor along dim into parts with the given sizes.
// The sizes must sum to the dimension size. Inverse of Cat.
func (cpu *CPUBackend) SplitSizes(x *tensor.RawTensor, sizes []int, dim int) []*tensor.RawTensor {
	shape := x.Shape()
	dim = normalizeDim("split", dim, len(shape))

	total := 0
	for i, s := range sizes {
		if s <= 0 {
			panic(fmt.Sprintf("split: size %d at index %d must be positive", s, i))
		}
		total += s
	}
	if total != shape[dim] {
		panic(fmt.Sprintf("split: sizes sum to %d but dimension %d has size %d", total, dim, shape[dim]))
	}

	outer := 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	inner := 1
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}

	parts := make([]*tensor.RawTensor, len(sizes))
	offset := 0
	for p, size := range sizes {
		outShape := shape.Clone()
		outShape[dim] = size
		part := cpu.newResult(outShape, x.DType(), "split")

		blockSize := size * inner
		switch x.DType() {
		case tensor.Float32:
			src := x.AsFloat32()
			dst := part.AsFloat32()
			for o := 0; o < outer; o++ {
				srcStart := o*shape[dim]*inner + offset*inner
				copy(dst[o*blockSize:(o+1)*blockSize], src[srcStart:srcStart+blockSize])
			}
		case tensor.Float64:
			src := x.AsFloat64()
			dst := part.AsFloat64()
			for o := 0; o < outer; o++ {
				srcStart := o*shape[dim]*inner + offset*inner
				copy(dst[o*blockSize:(o+1)*blockSize], src[srcStart:srcStart+blockSize])
			}
		case tensor.Int32:
			src := x.AsInt32()
			dst := part.AsInt32()
			for o := 0; o < outer; o++ {
				srcStart := o*shape[dim]*inner + offset*inner
				copy(dst[o*blockSize:(o+1)*blockSize], src[srcStart:srcStart+blockSize])
			}
		default:
			panic(fmt.Sprintf("split: unsupported dtype %s", x.DType()))
		}

		parts[p] = part
		offset += size
	}

	return parts
}
