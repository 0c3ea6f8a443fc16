package tensor

import "testing"

func TestNewRawAllTypes(t *testing.T) {
	types := []DataType{Float32, Float64, Int32}

	for _, dtype := range types {
		raw, err := NewRaw(Shape{2, 3}, dtype, CPU)
		if err != nil {
			t.Fatalf("NewRaw(%s) failed: %v", dtype, err)
		}
		if raw.DType() != dtype {
			t.Errorf("DType = %v, want %v", raw.DType(), dtype)
		}
		if raw.ByteSize() != 6*dtype.Size() {
			t.Errorf("%s ByteSize = %d, want %d", dtype, raw.ByteSize(), 6*dtype.Size())
		}
	}
}

func TestNewRawInvalidShape(t *testing.T) {
	invalid := []Shape{
		{0},
		{2, -1},
	}

	for _, shape := range invalid {
		if _, err := NewRaw(shape, Float32, CPU); err == nil {
			t.Errorf("NewRaw(%v) should fail", shape)
		}
	}
}

func TestRawTensorCloneIsShared(t *testing.T) {
	raw, _ := NewRaw(Shape{4}, Float32, CPU)
	raw.AsFloat32()[0] = 5

	clone := raw.Clone()

	// Clone shares the buffer through reference counting
	if clone.AsFloat32()[0] != 5 {
		t.Error("clone should see the original's data")
	}

	clone.AsFloat32()[1] = 7
	if raw.AsFloat32()[1] != 7 {
		t.Error("writes through the clone should be visible to the original")
	}
}

func TestRawTensorReferenceCounting(t *testing.T) {
	raw, _ := NewRaw(Shape{2}, Float32, CPU)

	if !raw.IsUnique() {
		t.Error("fresh tensor should be unique")
	}

	clone := raw.Clone()
	if raw.IsUnique() {
		t.Error("tensor with a live clone should not be unique")
	}

	clone.Release()
	if !raw.IsUnique() {
		t.Error("tensor should be unique again after the clone is released")
	}
}

func TestRawTensorForceNonUnique(t *testing.T) {
	raw, _ := NewRaw(Shape{2}, Float32, CPU)

	restore := raw.ForceNonUnique()
	if raw.IsUnique() {
		t.Error("ForceNonUnique should suppress uniqueness")
	}

	restore()
	if !raw.IsUnique() {
		t.Error("restore should bring uniqueness back")
	}
}

func TestRawTensorAsWrongTypePanics(t *testing.T) {
	raw, _ := NewRaw(Shape{2}, Float32, CPU)

	defer func() {
		if r := recover(); r == nil {
			t.Error("AsInt32 on a float32 tensor should panic")
		}
	}()
	raw.AsInt32()
}

func TestRawTensorAsFloat64WrongTypePanics(t *testing.T) {
	raw, _ := NewRaw(Shape{2}, Int32, CPU)

	defer func() {
		if r := recover(); r == nil {
			t.Error("AsFloat64 on an int32 tensor should panic")
		}
	}()
	raw.AsFloat64()
}

func TestRawTensorScalar(t *testing.T) {
	raw, err := NewRaw(Shape{1}, Float32, CPU)
	if err != nil {
		t.Fatalf("NewRaw scalar failed: %v", err)
	}

	if raw.NumElements() != 1 {
		t.Errorf("NumElements = %d, want 1", raw.NumElements())
	}
}
