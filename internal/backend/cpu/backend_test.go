package cpu

import (
	"testing"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// Helper to create test backend.
func newTestBackend() *CPUBackend {
	return New()
}

// Helper to check float32 slices are equal within epsilon.
func float32SliceEqual(a, b []float32) bool {
	const epsilon = 1e-5
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		diff := a[i] - b[i]
		if diff < 0 {
			diff = -diff
		}
		if diff > epsilon {
			return false
		}
	}
	return true
}

// Helper to build a float32 raw tensor from literal data.
func rawFromFloat32(t *testing.T, shape tensor.Shape, data []float32) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}
	copy(raw.AsFloat32(), data)
	return raw
}

// Helper to build an int32 raw tensor from literal data.
func rawFromInt32(t *testing.T, shape tensor.Shape, data []int32) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Int32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}
	copy(raw.AsInt32(), data)
	return raw
}

func TestCPUBackend_New(t *testing.T) {
	backend := New()
	if backend == nil {
		t.Fatal("New() returned nil")
	}
	if backend.Name() != "CPU" {
		t.Errorf("Expected name 'CPU', got '%s'", backend.Name())
	}
	if backend.Device() != tensor.CPU {
		t.Errorf("Expected device CPU, got %v", backend.Device())
	}
}

func TestCPUBackend_Add(t *testing.T) {
	backend := newTestBackend()

	t.Run("SameShape", func(t *testing.T) {
		a := rawFromFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
		b := rawFromFloat32(t, tensor.Shape{2, 3}, []float32{10, 11, 12, 13, 14, 15})

		result := backend.Add(a, b)

		expected := []float32{11, 13, 15, 17, 19, 21}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Add failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("InplaceWhenUnique", func(t *testing.T) {
		a := rawFromFloat32(t, tensor.Shape{3}, []float32{1, 2, 3})
		b := rawFromFloat32(t, tensor.Shape{3}, []float32{10, 20, 30})

		result := backend.Add(a, b)

		// A unique lhs with matching shapes is reused as the result buffer.
		if result != a {
			t.Error("Expected inplace result to alias the lhs tensor")
		}
		expected := []float32{11, 22, 33}
		if !float32SliceEqual(a.AsFloat32(), expected) {
			t.Errorf("Inplace add failed: got %v, expected %v", a.AsFloat32(), expected)
		}
	})

	t.Run("NoInplaceWhenShared", func(t *testing.T) {
		a := rawFromFloat32(t, tensor.Shape{3}, []float32{1, 2, 3})
		b := rawFromFloat32(t, tensor.Shape{3}, []float32{10, 20, 30})

		restore := a.ForceNonUnique()
		result := backend.Add(a, b)
		restore()

		if result == a {
			t.Error("Expected a fresh result tensor when lhs is shared")
		}
		if !float32SliceEqual(a.AsFloat32(), []float32{1, 2, 3}) {
			t.Errorf("Shared lhs was mutated: got %v", a.AsFloat32())
		}
		if !float32SliceEqual(result.AsFloat32(), []float32{11, 22, 33}) {
			t.Errorf("Add failed: got %v", result.AsFloat32())
		}
	})

	t.Run("BroadcastBias", func(t *testing.T) {
		// [2,3] + [1,3] broadcasts the bias row across the batch.
		a := rawFromFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
		b := rawFromFloat32(t, tensor.Shape{1, 3}, []float32{10, 20, 30})

		result := backend.Add(a, b)

		if !result.Shape().Equal(tensor.Shape{2, 3}) {
			t.Fatalf("Expected shape [2 3], got %v", result.Shape())
		}
		expected := []float32{11, 22, 33, 14, 25, 36}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Broadcast add failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("BroadcastBothSides", func(t *testing.T) {
		// [2,1] + [1,3] -> [2,3]
		a := rawFromFloat32(t, tensor.Shape{2, 1}, []float32{1, 2})
		b := rawFromFloat32(t, tensor.Shape{1, 3}, []float32{10, 20, 30})

		result := backend.Add(a, b)

		if !result.Shape().Equal(tensor.Shape{2, 3}) {
			t.Fatalf("Expected shape [2 3], got %v", result.Shape())
		}
		expected := []float32{11, 21, 31, 12, 22, 32}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Broadcast add failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("Int32", func(t *testing.T) {
		a := rawFromInt32(t, tensor.Shape{3}, []int32{1, 2, 3})
		b := rawFromInt32(t, tensor.Shape{3}, []int32{10, 20, 30})

		result := backend.Add(a, b)

		got := result.AsInt32()
		expected := []int32{11, 22, 33}
		for i := range expected {
			if got[i] != expected[i] {
				t.Errorf("Int32 add failed at %d: got %d, expected %d", i, got[i], expected[i])
			}
		}
	})
}

func TestCPUBackend_Sub(t *testing.T) {
	backend := newTestBackend()

	a := rawFromFloat32(t, tensor.Shape{4}, []float32{10, 20, 30, 40})
	b := rawFromFloat32(t, tensor.Shape{4}, []float32{1, 2, 3, 4})

	result := backend.Sub(a, b)

	expected := []float32{9, 18, 27, 36}
	if !float32SliceEqual(result.AsFloat32(), expected) {
		t.Errorf("Sub failed: got %v, expected %v", result.AsFloat32(), expected)
	}
}

func TestCPUBackend_Mul(t *testing.T) {
	backend := newTestBackend()

	t.Run("SameShape", func(t *testing.T) {
		a := rawFromFloat32(t, tensor.Shape{4}, []float32{1, 2, 3, 4})
		b := rawFromFloat32(t, tensor.Shape{4}, []float32{2, 3, 4, 5})

		result := backend.Mul(a, b)

		expected := []float32{2, 6, 12, 20}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Mul failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("BroadcastMask", func(t *testing.T) {
		// Row mask [2,1] zeroes the second sample of a [2,3] batch.
		x := rawFromFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
		mask := rawFromFloat32(t, tensor.Shape{2, 1}, []float32{1, 0})

		result := backend.Mul(x, mask)

		expected := []float32{1, 2, 3, 0, 0, 0}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Masked mul failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})
}

func TestCPUBackend_Div(t *testing.T) {
	backend := newTestBackend()

	a := rawFromFloat32(t, tensor.Shape{4}, []float32{10, 20, 30, 40})
	b := rawFromFloat32(t, tensor.Shape{4}, []float32{2, 4, 5, 8})

	result := backend.Div(a, b)

	expected := []float32{5, 5, 6, 5}
	if !float32SliceEqual(result.AsFloat32(), expected) {
		t.Errorf("Div failed: got %v, expected %v", result.AsFloat32(), expected)
	}
}

func TestCPUBackend_Reshape(t *testing.T) {
	backend := newTestBackend()

	t.Run("Valid", func(t *testing.T) {
		a := rawFromFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

		result := backend.Reshape(a, tensor.Shape{3, 2})

		if !result.Shape().Equal(tensor.Shape{3, 2}) {
			t.Fatalf("Expected shape [3 2], got %v", result.Shape())
		}
		if !float32SliceEqual(result.AsFloat32(), []float32{1, 2, 3, 4, 5, 6}) {
			t.Errorf("Reshape changed data: got %v", result.AsFloat32())
		}
	})

	t.Run("ElementCountMismatch", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic for element count mismatch")
			}
		}()
		a := rawFromFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
		backend.Reshape(a, tensor.Shape{4, 2})
	})
}

func TestCPUBackend_Transpose(t *testing.T) {
	backend := newTestBackend()

	t.Run("Default2D", func(t *testing.T) {
		a := rawFromFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

		result := backend.Transpose(a)

		if !result.Shape().Equal(tensor.Shape{3, 2}) {
			t.Fatalf("Expected shape [3 2], got %v", result.Shape())
		}
		expected := []float32{1, 4, 2, 5, 3, 6}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Transpose failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("SwapLastTwo3D", func(t *testing.T) {
		a := rawFromFloat32(t, tensor.Shape{2, 2, 3}, []float32{
			1, 2, 3, 4, 5, 6,
			7, 8, 9, 10, 11, 12,
		})

		result := backend.Transpose(a, 0, 2, 1)

		if !result.Shape().Equal(tensor.Shape{2, 3, 2}) {
			t.Fatalf("Expected shape [2 3 2], got %v", result.Shape())
		}
		expected := []float32{
			1, 4, 2, 5, 3, 6,
			7, 10, 8, 11, 9, 12,
		}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Transpose failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("InvalidAxes", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected panic for repeated axes")
			}
		}()
		a := rawFromFloat32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
		backend.Transpose(a, 0, 0)
	})
}

func TestCPUBackend_Scalar(t *testing.T) {
	backend := newTestBackend()

	t.Run("MulScalar", func(t *testing.T) {
		a := rawFromFloat32(t, tensor.Shape{3}, []float32{1, 2, 3})

		result := backend.MulScalar(a, 2.5)

		expected := []float32{2.5, 5, 7.5}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("MulScalar failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("AddScalar", func(t *testing.T) {
		a := rawFromFloat32(t, tensor.Shape{3}, []float32{1, 2, 3})

		result := backend.AddScalar(a, -1)

		expected := []float32{0, 1, 2}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("AddScalar failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("Int32Scalar", func(t *testing.T) {
		a := rawFromInt32(t, tensor.Shape{3}, []int32{1, 2, 3})

		result := backend.MulScalar(a, 3)

		got := result.AsInt32()
		expected := []int32{3, 6, 9}
		for i := range expected {
			if got[i] != expected[i] {
				t.Errorf("Int32 MulScalar failed at %d: got %d, expected %d", i, got[i], expected[i])
			}
		}
	})
}
