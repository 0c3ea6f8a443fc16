package tensor

import (
	"testing"
)

func mustFromSlice[T DType, B Backend](t *testing.T, data []T, shape Shape, backend B) *Tensor[T, B] {
	t.Helper()
	tensor, err := FromSlice(data, shape, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}
	return tensor
}

func TestCat(t *testing.T) {
	backend := NewMockBackend()

	t.Run("concat 2 tensors along dim 0", func(t *testing.T) {
		a := mustFromSlice(t, []float32{1, 2, 3}, Shape{1, 3}, backend)
		b := mustFromSlice(t, []float32{4, 5, 6}, Shape{1, 3}, backend)

		result := Cat([]*Tensor[float32, *MockBackend]{a, b}, 0)

		expected := Shape{2, 3}
		if !result.Shape().Equal(expected) {
			t.Errorf("expected shape %v, got %v", expected, result.Shape())
		}

		wantData := []float32{1, 2, 3, 4, 5, 6}
		got := result.Data()
		if !sliceEqual(got, wantData) {
			t.Errorf("expected data %v, got %v", wantData, got)
		}
	})

	t.Run("concat 2 tensors along dim 1", func(t *testing.T) {
		a := mustFromSlice(t, []float32{1, 2, 3, 4}, Shape{2, 2}, backend)
		b := mustFromSlice(t, []float32{5, 6, 7, 8}, Shape{2, 2}, backend)

		result := Cat([]*Tensor[float32, *MockBackend]{a, b}, 1)

		expected := Shape{2, 4}
		if !result.Shape().Equal(expected) {
			t.Errorf("expected shape %v, got %v", expected, result.Shape())
		}

		wantData := []float32{1, 2, 5, 6, 3, 4, 7, 8}
		got := result.Data()
		if !sliceEqual(got, wantData) {
			t.Errorf("expected data %v, got %v", wantData, got)
		}
	})

	t.Run("concat 3 tensors along dim -1", func(t *testing.T) {
		a := mustFromSlice(t, []float32{1, 2}, Shape{2, 1}, backend)
		b := mustFromSlice(t, []float32{3, 4}, Shape{2, 1}, backend)
		c := mustFromSlice(t, []float32{5, 6}, Shape{2, 1}, backend)

		result := Cat([]*Tensor[float32, *MockBackend]{a, b, c}, -1)

		expected := Shape{2, 3}
		if !result.Shape().Equal(expected) {
			t.Errorf("expected shape %v, got %v", expected, result.Shape())
		}

		wantData := []float32{1, 3, 5, 2, 4, 6}
		got := result.Data()
		if !sliceEqual(got, wantData) {
			t.Errorf("expected data %v, got %v", wantData, got)
		}
	})

	t.Run("single tensor returns clone", func(t *testing.T) {
		a := mustFromSlice(t, []float32{1, 2, 3}, Shape{3}, backend)

		result := Cat([]*Tensor[float32, *MockBackend]{a}, 0)

		if !result.Shape().Equal(a.Shape()) {
			t.Errorf("expected shape %v, got %v", a.Shape(), result.Shape())
		}
	})
}

func TestCatPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Cat with no tensors should panic")
		}
	}()

	Cat([]*Tensor[float32, *MockBackend]{}, 0)
}

func TestSplitSizes(t *testing.T) {
	backend := NewMockBackend()

	t.Run("split columns", func(t *testing.T) {
		// Two rows of 5, split into widths 3 and 2
		x := mustFromSlice(t, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, Shape{2, 5}, backend)

		parts := x.SplitSizes([]int{3, 2}, 1)

		if len(parts) != 2 {
			t.Fatalf("expected 2 parts, got %d", len(parts))
		}

		if !parts[0].Shape().Equal(Shape{2, 3}) {
			t.Errorf("part 0 shape = %v, want [2 3]", parts[0].Shape())
		}
		if !parts[1].Shape().Equal(Shape{2, 2}) {
			t.Errorf("part 1 shape = %v, want [2 2]", parts[1].Shape())
		}

		if !sliceEqual(parts[0].Data(), []float32{1, 2, 3, 6, 7, 8}) {
			t.Errorf("part 0 data = %v", parts[0].Data())
		}
		if !sliceEqual(parts[1].Data(), []float32{4, 5, 9, 10}) {
			t.Errorf("part 1 data = %v", parts[1].Data())
		}
	})

	t.Run("split rows", func(t *testing.T) {
		x := mustFromSlice(t, []float32{1, 2, 3, 4, 5, 6}, Shape{3, 2}, backend)

		parts := x.SplitSizes([]int{1, 2}, 0)

		if !sliceEqual(parts[0].Data(), []float32{1, 2}) {
			t.Errorf("part 0 data = %v", parts[0].Data())
		}
		if !sliceEqual(parts[1].Data(), []float32{3, 4, 5, 6}) {
			t.Errorf("part 1 data = %v", parts[1].Data())
		}
	})

	t.Run("sizes must sum to dim", func(t *testing.T) {
		x := mustFromSlice(t, []float32{1, 2, 3, 4}, Shape{4}, backend)

		defer func() {
			if r := recover(); r == nil {
				t.Error("mismatched split sizes should panic")
			}
		}()
		x.SplitSizes([]int{1, 2}, 0)
	})
}

func TestCatSplitRoundtrip(t *testing.T) {
	backend := NewMockBackend()

	original := mustFromSlice(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, Shape{2, 4}, backend)

	parts := original.SplitSizes([]int{1, 3}, 1)
	recombined := Cat(parts, 1)

	if !recombined.Shape().Equal(original.Shape()) {
		t.Errorf("roundtrip shape = %v, want %v", recombined.Shape(), original.Shape())
	}
	if !sliceEqual(recombined.Data(), original.Data()) {
		t.Errorf("roundtrip data = %v, want %v", recombined.Data(), original.Data())
	}
}

func TestUnsqueeze(t *testing.T) {
	backend := NewMockBackend()

	tests := []struct {
		dim      int
		expected Shape
	}{
		{0, Shape{1, 2, 3}},
		{1, Shape{2, 1, 3}},
		{2, Shape{2, 3, 1}},
		{-1, Shape{2, 3, 1}},
	}

	for _, tt := range tests {
		x := mustFromSlice(t, []float32{1, 2, 3, 4, 5, 6}, Shape{2, 3}, backend)
		result := x.Unsqueeze(tt.dim)
		if !result.Shape().Equal(tt.expected) {
			t.Errorf("Unsqueeze(%d) shape = %v, want %v", tt.dim, result.Shape(), tt.expected)
		}
	}
}

func TestSqueeze(t *testing.T) {
	backend := NewMockBackend()

	x := mustFromSlice(t, []float32{1, 2, 3, 4, 5, 6}, Shape{2, 1, 3}, backend)

	result := x.Squeeze(1)
	if !result.Shape().Equal(Shape{2, 3}) {
		t.Errorf("Squeeze(1) shape = %v, want [2 3]", result.Shape())
	}

	resultNeg := mustFromSlice(t, []float32{1, 2}, Shape{2, 1}, backend).Squeeze(-1)
	if !resultNeg.Shape().Equal(Shape{2}) {
		t.Errorf("Squeeze(-1) shape = %v, want [2]", resultNeg.Shape())
	}
}

func TestSqueezePanics(t *testing.T) {
	backend := NewMockBackend()
	x := mustFromSlice(t, []float32{1, 2, 3, 4}, Shape{2, 2}, backend)

	defer func() {
		if r := recover(); r == nil {
			t.Error("Squeeze on a non-1 dimension should panic")
		}
	}()
	x.Squeeze(0)
}

func TestUnsqueezeSqueezeRoundtrip(t *testing.T) {
	backend := NewMockBackend()

	original := mustFromSlice(t, []float32{1, 2, 3, 4}, Shape{2, 2}, backend)
	result := original.Unsqueeze(1).Squeeze(1)

	if !result.Shape().Equal(original.Shape()) {
		t.Errorf("roundtrip shape = %v, want %v", result.Shape(), original.Shape())
	}
	if !sliceEqual(result.Data(), original.Data()) {
		t.Errorf("roundtrip data = %v, want %v", result.Data(), original.Data())
	}
}

func TestManipulationDTypes(t *testing.T) {
	backend := NewMockBackend()

	t.Run("float64 cat", func(t *testing.T) {
		a := mustFromSlice(t, []float64{1.1, 2.2}, Shape{2}, backend)
		b := mustFromSlice(t, []float64{3.3, 4.4}, Shape{2}, backend)
		result := Cat([]*Tensor[float64, *MockBackend]{a, b}, 0)

		expected := []float64{1.1, 2.2, 3.3, 4.4}
		got := result.Data()

		for i := range expected {
			if got[i] != expected[i] {
				t.Errorf("index %d: expected %f, got %f", i, expected[i], got[i])
			}
		}
	})

	t.Run("int32 split", func(t *testing.T) {
		input := mustFromSlice(t, []int32{1, 2, 3, 4, 5, 6}, Shape{6}, backend)
		parts := input.SplitSizes([]int{2, 2, 2}, 0)

		if len(parts) != 3 {
			t.Errorf("expected 3 parts, got %d", len(parts))
		}

		expected := [][]int32{{1, 2}, {3, 4}, {5, 6}}
		for i, part := range parts {
			got := part.Data()
			for j := range expected[i] {
				if got[j] != expected[i][j] {
					t.Errorf("part %d: index %d: expected %d, got %d", i, j, expected[i][j], got[j])
				}
			}
		}
	})
}

// Helper function to compare float32 slices.
func sliceEqual(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
