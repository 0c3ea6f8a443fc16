package cpu

import (
	"testing"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

func TestCPUBackend_IndexSelect(t *testing.T) {
	backend := newTestBackend()

	t.Run("SelectRows", func(t *testing.T) {
		x := rawFromFloat32(t, tensor.Shape{4, 2}, []float32{
			1, 2,
			3, 4,
			5, 6,
			7, 8,
		})
		indices := rawFromInt32(t, tensor.Shape{3}, []int32{3, 0, 3})

		result := backend.IndexSelect(x, indices)

		if !result.Shape().Equal(tensor.Shape{3, 2}) {
			t.Fatalf("Expected shape [3 2], got %v", result.Shape())
		}
		expected := []float32{7, 8, 1, 2, 7, 8}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("IndexSelect failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("OutOfRange", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic for out-of-range index")
			}
		}()
		x := rawFromFloat32(t, tensor.Shape{2, 2}, make([]float32, 4))
		indices := rawFromInt32(t, tensor.Shape{1}, []int32{5})
		backend.IndexSelect(x, indices)
	})
}

func TestCPUBackend_Embedding(t *testing.T) {
	backend := newTestBackend()

	t.Run("Lookup1D", func(t *testing.T) {
		weight := rawFromFloat32(t, tensor.Shape{3, 2}, []float32{
			0.1, 0.2,
			0.3, 0.4,
			0.5, 0.6,
		})
		indices := rawFromInt32(t, tensor.Shape{2}, []int32{2, 0})

		result := backend.Embedding(weight, indices)

		if !result.Shape().Equal(tensor.Shape{2, 2}) {
			t.Fatalf("Expected shape [2 2], got %v", result.Shape())
		}
		expected := []float32{0.5, 0.6, 0.1, 0.2}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Embedding failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("Lookup2D", func(t *testing.T) {
		// Batched categorical covariates: [2,2] indices -> [2,2,embDim].
		weight := rawFromFloat32(t, tensor.Shape{4, 3}, []float32{
			1, 1, 1,
			2, 2, 2,
			3, 3, 3,
			4, 4, 4,
		})
		indices := rawFromInt32(t, tensor.Shape{2, 2}, []int32{0, 1, 2, 3})

		result := backend.Embedding(weight, indices)

		if !result.Shape().Equal(tensor.Shape{2, 2, 3}) {
			t.Fatalf("Expected shape [2 2 3], got %v", result.Shape())
		}
		expected := []float32{1, 1, 1, 2, 2, 2, 3, 3, 3, 4, 4, 4}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Embedding failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("IndexOutOfRange", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic for out-of-vocab index")
			}
		}()
		weight := rawFromFloat32(t, tensor.Shape{2, 2}, make([]float32, 4))
		indices := rawFromInt32(t, tensor.Shape{1}, []int32{2})
		backend.Embedding(weight, indices)
	})
}
