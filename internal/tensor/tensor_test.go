package tensor

import (
	"math"
	"strings"
	"testing"
)

// Test helpers

func assertEqualFloat32(t *testing.T, expected, actual float32, msg string) {
	t.Helper()
	if math.Abs(float64(expected-actual)) > 1e-5 {
		t.Errorf("%s: expected %v, got %v", msg, expected, actual)
	}
}

func assertEqualShape(t *testing.T, expected, actual Shape, msg string) {
	t.Helper()
	if !expected.Equal(actual) {
		t.Errorf("%s: expected shape %v, got %v", msg, expected, actual)
	}
}

// DType Tests

func TestDataTypeSize(t *testing.T) {
	tests := []struct {
		dtype DataType
		size  int
	}{
		{Float32, 4},
		{Float64, 8},
		{Int32, 4},
	}

	for _, tt := range tests {
		if got := tt.dtype.Size(); got != tt.size {
			t.Errorf("%s.Size() = %d, want %d", tt.dtype, got, tt.size)
		}
	}
}

func TestDataTypeString(t *testing.T) {
	tests := []struct {
		dtype DataType
		str   string
	}{
		{Float32, "float32"},
		{Float64, "float64"},
		{Int32, "int32"},
	}

	for _, tt := range tests {
		if got := tt.dtype.String(); got != tt.str {
			t.Errorf("%s.String() = %q, want %q", tt.dtype, got, tt.str)
		}
	}
}

func TestInferDataType(t *testing.T) {
	if dt := inferDataType(float32(0)); dt != Float32 {
		t.Errorf("inferDataType(float32) = %v, want Float32", dt)
	}
	if dt := inferDataType(float64(0)); dt != Float64 {
		t.Errorf("inferDataType(float64) = %v, want Float64", dt)
	}
	if dt := inferDataType(int32(0)); dt != Int32 {
		t.Errorf("inferDataType(int32) = %v, want Int32", dt)
	}
}

// Shape Tests

func TestShapeNumElements(t *testing.T) {
	tests := []struct {
		shape    Shape
		expected int
	}{
		{Shape{}, 1},         // Scalar
		{Shape{5}, 5},        // 1D
		{Shape{3, 4}, 12},    // 2D
		{Shape{2, 3, 4}, 24}, // 3D
		{Shape{1, 1, 1}, 1},  // Ones
	}

	for _, tt := range tests {
		if got := tt.shape.NumElements(); got != tt.expected {
			t.Errorf("Shape%v.NumElements() = %d, want %d", tt.shape, got, tt.expected)
		}
	}
}

func TestShapeValidation(t *testing.T) {
	validShapes := []Shape{
		{1},
		{3, 4},
		{2, 3, 4},
	}

	for _, s := range validShapes {
		if err := s.Validate(); err != nil {
			t.Errorf("Shape%v.Validate() failed: %v", s, err)
		}
	}

	invalidShapes := []Shape{
		{0},
		{3, 0},
		{-1},
		{3, -4},
	}

	for _, s := range invalidShapes {
		if err := s.Validate(); err == nil {
			t.Errorf("Shape%v.Validate() should fail but didn't", s)
		}
	}
}

func TestShapeEqual(t *testing.T) {
	tests := []struct {
		a, b  Shape
		equal bool
	}{
		{Shape{3, 4}, Shape{3, 4}, true},
		{Shape{3, 4}, Shape{4, 3}, false},
		{Shape{3}, Shape{3, 1}, false},
		{Shape{}, Shape{}, true},
	}

	for _, tt := range tests {
		if got := tt.a.Equal(tt.b); got != tt.equal {
			t.Errorf("Shape%v.Equal(%v) = %v, want %v", tt.a, tt.b, got, tt.equal)
		}
	}
}

func TestComputeStrides(t *testing.T) {
	tests := []struct {
		shape    Shape
		expected []int
	}{
		{Shape{4}, []int{1}},
		{Shape{3, 4}, []int{4, 1}},
		{Shape{2, 3, 4}, []int{12, 4, 1}},
	}

	for _, tt := range tests {
		got := tt.shape.ComputeStrides()
		if len(got) != len(tt.expected) {
			t.Fatalf("Shape%v.ComputeStrides() length = %d, want %d", tt.shape, len(got), len(tt.expected))
		}
		for i := range got {
			if got[i] != tt.expected[i] {
				t.Errorf("Shape%v.ComputeStrides()[%d] = %d, want %d", tt.shape, i, got[i], tt.expected[i])
			}
		}
	}
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		a, b      Shape
		expected  Shape
		shouldErr bool
	}{
		// Compatible shapes
		{Shape{3, 1}, Shape{3, 5}, Shape{3, 5}, false},
		{Shape{1, 5}, Shape{3, 5}, Shape{3, 5}, false},
		{Shape{3, 4}, Shape{3, 4}, Shape{3, 4}, false},
		{Shape{1}, Shape{3, 4}, Shape{3, 4}, false},
		{Shape{3, 4}, Shape{1}, Shape{3, 4}, false},

		// Incompatible shapes
		{Shape{3, 4}, Shape{3, 5}, nil, true},
		{Shape{2, 3}, Shape{3, 3}, nil, true},
	}

	for _, tt := range tests {
		got, _, err := BroadcastShapes(tt.a, tt.b)
		if tt.shouldErr {
			if err == nil {
				t.Errorf("BroadcastShapes(%v, %v) should fail but didn't", tt.a, tt.b)
			}
		} else {
			if err != nil {
				t.Errorf("BroadcastShapes(%v, %v) failed: %v", tt.a, tt.b, err)
			}
			if !got.Equal(tt.expected) {
				t.Errorf("BroadcastShapes(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		}
	}
}

// Tensor Tests

func TestFromSlice(t *testing.T) {
	backend := NewMockBackend()

	data := []float32{1, 2, 3, 4, 5, 6}
	tensor, err := FromSlice(data, Shape{2, 3}, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}

	assertEqualShape(t, Shape{2, 3}, tensor.Shape(), "FromSlice shape")

	if tensor.DType() != Float32 {
		t.Errorf("DType = %v, want Float32", tensor.DType())
	}

	got := tensor.Data()
	for i, want := range data {
		if got[i] != want {
			t.Errorf("Data()[%d] = %v, want %v", i, got[i], want)
		}
	}
}

func TestFromSliceSizeMismatch(t *testing.T) {
	backend := NewMockBackend()

	_, err := FromSlice([]float32{1, 2, 3}, Shape{2, 2}, backend)
	if err == nil {
		t.Error("FromSlice with mismatched size should fail")
	}
}

func TestTensorAtSet(t *testing.T) {
	backend := NewMockBackend()

	tensor := Zeros[float32](Shape{2, 3}, backend)
	tensor.Set(42, 1, 2)

	if got := tensor.At(1, 2); got != 42 {
		t.Errorf("At(1, 2) = %v, want 42", got)
	}
	if got := tensor.At(0, 0); got != 0 {
		t.Errorf("At(0, 0) = %v, want 0", got)
	}
}

func TestTensorItem(t *testing.T) {
	backend := NewMockBackend()

	scalar, _ := FromSlice([]float32{3.5}, Shape{1}, backend)
	if got := scalar.Item(); got != 3.5 {
		t.Errorf("Item() = %v, want 3.5", got)
	}
}

func TestTensorClone(t *testing.T) {
	backend := NewMockBackend()

	original, _ := FromSlice([]float32{1, 2, 3, 4}, Shape{2, 2}, backend)
	clone := original.Clone()

	assertEqualShape(t, original.Shape(), clone.Shape(), "Clone shape")

	// Same data through the shared buffer
	if clone.At(0, 1) != 2 {
		t.Errorf("Clone At(0, 1) = %v, want 2", clone.At(0, 1))
	}
}

func TestTensorGrad(t *testing.T) {
	backend := NewMockBackend()

	tensor, _ := FromSlice([]float32{1, 2}, Shape{2}, backend)

	if tensor.Grad() != nil {
		t.Error("fresh tensor should have nil grad")
	}

	grad := Zeros[float32](Shape{2}, backend)
	tensor.SetGrad(grad)

	if tensor.Grad() != grad {
		t.Error("Grad() should return what SetGrad stored")
	}

	tensor.SetGrad(nil)
	if tensor.Grad() != nil {
		t.Error("SetGrad(nil) should clear the gradient")
	}
}

func TestTensorString(t *testing.T) {
	backend := NewMockBackend()

	tensor := Zeros[float32](Shape{2, 3}, backend)
	s := tensor.String()

	if !strings.Contains(s, "2, 3") && !strings.Contains(s, "[2 3]") {
		t.Errorf("String() = %q, should mention the shape", s)
	}
	if !strings.Contains(s, "float32") {
		t.Errorf("String() = %q, should mention the dtype", s)
	}
}

func TestTensorDataInt32(t *testing.T) {
	backend := NewMockBackend()

	tensor, _ := FromSlice([]int32{7, 8, 9}, Shape{3}, backend)
	got := tensor.Data()

	want := []int32{7, 8, 9}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Data()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestTensorDataFloat64(t *testing.T) {
	backend := NewMockBackend()

	tensor, _ := FromSlice([]float64{1.5, 2.5}, Shape{2}, backend)
	got := tensor.Data()

	if got[0] != 1.5 || got[1] != 2.5 {
		t.Errorf("Data() = %v, want [1.5 2.5]", got)
	}
}
