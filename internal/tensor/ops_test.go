package tensor

import (
	"math"
	"testing"
)

func fromValues(t *testing.T, shape Shape, data []float64) *Dense {
	t.Helper()
	x, err := FromSlice(shape, data)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	return x
}

// TestMatMul_KnownValues tests the three multiply variants on one pair.
func TestMatMul_KnownValues(t *testing.T) {
	a := fromValues(t, Shape{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	b := fromValues(t, Shape{3, 2}, []float64{7, 8, 9, 10, 11, 12})

	// a·b = [[58, 64], [139, 154]]
	ab := MatMul(a, b)
	expected := []float64{58, 64, 139, 154}
	for i, exp := range expected {
		if ab.Data()[i] != exp {
			t.Errorf("MatMul[%d]: expected %v, got %v", i, exp, ab.Data()[i])
		}
	}

	// a·aᵀ = [[14, 32], [32, 77]]
	aat := MatMulT(a, a)
	expected = []float64{14, 32, 32, 77}
	for i, exp := range expected {
		if aat.Data()[i] != exp {
			t.Errorf("MatMulT[%d]: expected %v, got %v", i, exp, aat.Data()[i])
		}
	}

	// aᵀ·a is (3,3); check the diagonal 1+16, 4+25, 9+36.
	ata := TMatMul(a, a)
	diag := []float64{17, 29, 45}
	for i, exp := range diag {
		if got := ata.Data()[i*3+i]; got != exp {
			t.Errorf("TMatMul diag[%d]: expected %v, got %v", i, exp, got)
		}
	}
}

// TestElementwise tests Add, Sub, MulElem and Scale.
func TestElementwise(t *testing.T) {
	a := fromValues(t, Shape{2, 2}, []float64{1, 2, 3, 4})
	b := fromValues(t, Shape{2, 2}, []float64{5, 6, 7, 8})

	if got := Add(a, b).Data()[3]; got != 12 {
		t.Errorf("Add: expected 12, got %v", got)
	}
	if got := Sub(b, a).Data()[0]; got != 4 {
		t.Errorf("Sub: expected 4, got %v", got)
	}
	if got := MulElem(a, b).Data()[2]; got != 21 {
		t.Errorf("MulElem: expected 21, got %v", got)
	}
	if got := Scale(0.5, a).Data()[1]; got != 1 {
		t.Errorf("Scale: expected 1, got %v", got)
	}
	// Inputs must be untouched.
	if a.Data()[0] != 1 || b.Data()[0] != 5 {
		t.Error("Elementwise ops mutated their inputs")
	}
}

// TestAddRowVec tests broadcasting a bias row over a batch.
func TestAddRowVec(t *testing.T) {
	a := New(3, 2)
	v := fromValues(t, Shape{2}, []float64{1, -1})

	out := AddRowVec(a, v)
	for i := 0; i < 3; i++ {
		row := out.Row(i)
		if row[0] != 1 || row[1] != -1 {
			t.Errorf("Row %d: expected [1 -1], got %v", i, row)
		}
	}
}

// TestSumAxis0 tests the column-sum reduction.
func TestSumAxis0(t *testing.T) {
	a := fromValues(t, Shape{3, 2}, []float64{1, 2, 3, 4, 5, 6})

	out := SumAxis0(a)
	if out.Data()[0] != 9 || out.Data()[1] != 12 {
		t.Errorf("Expected [9 12], got %v", out.Data())
	}
}

// TestMeanVarAxis0 tests per-column mean and population variance.
func TestMeanVarAxis0(t *testing.T) {
	// Column 0: {1, 3} -> mean 2, var 1. Column 1: {2, 2} -> mean 2, var 0.
	a := fromValues(t, Shape{2, 2}, []float64{1, 2, 3, 2})

	mean, variance := MeanVarAxis0(a)
	if mean.Data()[0] != 2 || mean.Data()[1] != 2 {
		t.Errorf("Mean: expected [2 2], got %v", mean.Data())
	}
	if variance.Data()[0] != 1 || variance.Data()[1] != 0 {
		t.Errorf("Variance: expected [1 0], got %v", variance.Data())
	}
}

// TestSafeExp_LargeInputs tests that row-max subtraction avoids overflow.
func TestSafeExp_LargeInputs(t *testing.T) {
	a := fromValues(t, Shape{1, 3}, []float64{1000, 1001, 1002})

	out := SafeExp(a)
	for i, v := range out.Data() {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			t.Fatalf("Output[%d] overflowed: %v", i, v)
		}
	}
	// The row max exponentiates to exactly 1.
	if out.Data()[2] != 1 {
		t.Errorf("Max entry: expected 1, got %v", out.Data()[2])
	}
	if out.Data()[1] >= out.Data()[2] || out.Data()[0] >= out.Data()[1] {
		t.Error("Ordering not preserved by SafeExp")
	}
}

// TestArgmaxRows tests the per-row argmax.
func TestArgmaxRows(t *testing.T) {
	a := fromValues(t, Shape{2, 3}, []float64{0, 1, 0, 0.5, 0.2, 0.9})

	idx := ArgmaxRows(a)
	if idx[0] != 1 || idx[1] != 2 {
		t.Errorf("Expected [1 2], got %v", idx)
	}
}
