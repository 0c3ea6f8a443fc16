package cpu

import (
	"math"
	"testing"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

func TestCPUBackend_Exp(t *testing.T) {
	backend := newTestBackend()

	x := rawFromFloat32(t, tensor.Shape{3}, []float32{0, 1, -1})

	result := backend.Exp(x)

	expected := []float32{1, float32(math.E), float32(1 / math.E)}
	if !float32SliceEqual(result.AsFloat32(), expected) {
		t.Errorf("Exp failed: got %v, expected %v", result.AsFloat32(), expected)
	}
}

func TestCPUBackend_Log(t *testing.T) {
	backend := newTestBackend()

	t.Run("Positive", func(t *testing.T) {
		x := rawFromFloat32(t, tensor.Shape{3}, []float32{1, float32(math.E), 10})

		result := backend.Log(x)

		expected := []float32{0, 1, float32(math.Log(10))}
		if !float32SliceEqual(result.AsFloat32(), expected) {
			t.Errorf("Log failed: got %v, expected %v", result.AsFloat32(), expected)
		}
	})

	t.Run("ZeroGivesNegInf", func(t *testing.T) {
		x := rawFromFloat32(t, tensor.Shape{1}, []float32{0})

		result := backend.Log(x)

		if !math.IsInf(float64(result.AsFloat32()[0]), -1) {
			t.Errorf("Log(0) = %v, expected -Inf", result.AsFloat32()[0])
		}
	})
}

func TestCPUBackend_ExpLogRoundtrip(t *testing.T) {
	backend := newTestBackend()

	x := rawFromFloat32(t, tensor.Shape{4}, []float32{0.5, 1, 2, 4})

	result := backend.Exp(backend.Log(x))

	if !float32SliceEqual(result.AsFloat32(), []float32{0.5, 1, 2, 4}) {
		t.Errorf("Exp(Log(x)) != x: got %v", result.AsFloat32())
	}
}

func TestCPUBackend_Float64Math(t *testing.T) {
	backend := newTestBackend()

	raw, err := tensor.NewRaw(tensor.Shape{2}, tensor.Float64, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}
	copy(raw.AsFloat64(), []float64{1, math.E})

	result := backend.Log(raw)

	data := result.AsFloat64()
	if math.Abs(data[0]) > 1e-12 || math.Abs(data[1]-1) > 1e-12 {
		t.Errorf("Float64 log failed: got %v", data)
	}
}
