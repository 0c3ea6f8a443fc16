package cpu

import (
	"testing"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

func TestCPUBackend_MatMul(t *testing.T) {
	backend := newTestBackend()

	t.Run("Square2x2", func(t *testing.T) {
		a := rawFromFloat32(t, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
		b := rawFromFloat32(t, tensor.Shape{2, 2}, []float32{5, 6, 7, 8})

		result := backend.MatMul(a, b)

		expected := []float32{19, 22, 43, 50}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("MatMul failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("Rectangular", func(t *testing.T) {
		// [2,3] @ [3,2] -> [2,2]
		a := rawFromFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
		b := rawFromFloat32(t, tensor.Shape{3, 2}, []float32{7, 8, 9, 10, 11, 12})

		result := backend.MatMul(a, b)

		if !result.Shape().Equal(tensor.Shape{2, 2}) {
			t.Fatalf("Expected shape [2 2], got %v", result.Shape())
		}
		expected := []float32{58, 64, 139, 154}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("MatMul failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("ShapeMismatch", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic for inner dimension mismatch")
			}
		}()
		a := rawFromFloat32(t, tensor.Shape{2, 3}, make([]float32, 6))
		b := rawFromFloat32(t, tensor.Shape{2, 2}, make([]float32, 4))
		backend.MatMul(a, b)
	})
}

func TestCPUBackend_BatchMatMul(t *testing.T) {
	backend := newTestBackend()

	t.Run("TwoBatches", func(t *testing.T) {
		// Batch 0 multiplies by identity, batch 1 scales by 2.
		a := rawFromFloat32(t, tensor.Shape{2, 2, 2}, []float32{
			1, 2, 3, 4,
			1, 2, 3, 4,
		})
		b := rawFromFloat32(t, tensor.Shape{2, 2, 2}, []float32{
			1, 0, 0, 1,
			2, 0, 0, 2,
		})

		result := backend.BatchMatMul(a, b)

		if !result.Shape().Equal(tensor.Shape{2, 2, 2}) {
			t.Fatalf("Expected shape [2 2 2], got %v", result.Shape())
		}
		expected := []float32{
			1, 2, 3, 4,
			2, 4, 6, 8,
		}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("BatchMatMul failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("AttentionShapes", func(t *testing.T) {
		// [1,2,3] @ [1,3,1] -> [1,2,1], the score @ value pattern.
		scores := rawFromFloat32(t, tensor.Shape{1, 2, 3}, []float32{1, 0, 0, 0, 1, 0})
		values := rawFromFloat32(t, tensor.Shape{1, 3, 1}, []float32{10, 20, 30})

		result := backend.BatchMatMul(scores, values)

		if !result.Shape().Equal(tensor.Shape{1, 2, 1}) {
			t.Fatalf("Expected shape [1 2 1], got %v", result.Shape())
		}
		expected := []float32{10, 20}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("BatchMatMul failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("BatchDimMismatch", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic for batch dimension mismatch")
			}
		}()
		a := rawFromFloat32(t, tensor.Shape{2, 2, 2}, make([]float32, 8))
		b := rawFromFloat32(t, tensor.Shape{3, 2, 2}, make([]float32, 12))
		backend.BatchMatMul(a, b)
	})
}
