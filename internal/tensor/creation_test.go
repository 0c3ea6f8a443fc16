package tensor

import (
	"math"
	"math/rand"
	"testing"
)

func TestZeros(t *testing.T) {
	backend := NewMockBackend()

	tensor := Zeros[float32](Shape{2, 3}, backend)

	assertEqualShape(t, Shape{2, 3}, tensor.Shape(), "Zeros shape")
	for i, v := range tensor.Data() {
		if v != 0 {
			t.Errorf("Zeros[%d] = %v, want 0", i, v)
		}
	}
}

func TestOnes(t *testing.T) {
	backend := NewMockBackend()

	tensor := Ones[float64](Shape{4}, backend)

	for i, v := range tensor.Data() {
		if v != 1 {
			t.Errorf("Ones[%d] = %v, want 1", i, v)
		}
	}
}

func TestFull(t *testing.T) {
	backend := NewMockBackend()

	tensor := Full[float32](Shape{2, 2}, 3.25, backend)

	for i, v := range tensor.Data() {
		if v != 3.25 {
			t.Errorf("Full[%d] = %v, want 3.25", i, v)
		}
	}
}

func TestFullInt32(t *testing.T) {
	backend := NewMockBackend()

	tensor := Full[int32](Shape{3}, 7, backend)

	for i, v := range tensor.Data() {
		if v != 7 {
			t.Errorf("Full[%d] = %d, want 7", i, v)
		}
	}
}

func TestRandnDeterministic(t *testing.T) {
	backend := NewMockBackend()

	a := Randn[float32](Shape{3, 4}, backend, rand.New(rand.NewSource(42)))
	b := Randn[float32](Shape{3, 4}, backend, rand.New(rand.NewSource(42)))

	aData := a.Data()
	bData := b.Data()
	for i := range aData {
		if aData[i] != bData[i] {
			t.Fatalf("same seed should produce same values: index %d: %v vs %v", i, aData[i], bData[i])
		}
	}
}

func TestRandnDistribution(t *testing.T) {
	backend := NewMockBackend()

	tensor := Randn[float64](Shape{10000}, backend, rand.New(rand.NewSource(1)))

	sum := 0.0
	for _, v := range tensor.Data() {
		sum += v
	}
	mean := sum / 10000

	// Standard normal sample mean should be near 0
	if math.Abs(mean) > 0.1 {
		t.Errorf("Randn sample mean = %v, want near 0", mean)
	}
}

func TestRandnNilRNG(t *testing.T) {
	backend := NewMockBackend()

	// nil rng falls back to the package-level source
	tensor := Randn[float32](Shape{5}, backend, nil)
	assertEqualShape(t, Shape{5}, tensor.Shape(), "Randn shape")
}

func TestRandRange(t *testing.T) {
	backend := NewMockBackend()

	tensor := Rand[float32](Shape{100}, backend, rand.New(rand.NewSource(7)))

	for i, v := range tensor.Data() {
		if v < 0 || v >= 1 {
			t.Errorf("Rand[%d] = %v, want in [0, 1)", i, v)
		}
	}
}

func TestArangeFloat(t *testing.T) {
	backend := NewMockBackend()

	tensor := Arange[float32](0, 5, backend)

	want := []float32{0, 1, 2, 3, 4}
	got := tensor.Data()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Arange[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestArangeInt32(t *testing.T) {
	backend := NewMockBackend()

	tensor := Arange[int32](0, 4, backend)

	want := []int32{0, 1, 2, 3}
	got := tensor.Data()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Arange[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestEye(t *testing.T) {
	backend := NewMockBackend()

	tensor := Eye[float32](3, backend)

	assertEqualShape(t, Shape{3, 3}, tensor.Shape(), "Eye shape")
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := float32(0)
			if i == j {
				want = 1
			}
			if got := tensor.At(i, j); got != want {
				t.Errorf("Eye At(%d, %d) = %v, want %v", i, j, got, want)
			}
		}
	}
}
