package tensor

import "testing"

// TestPad4_Roundtrip tests that Unpad4 inverts Pad4 and borders are zero.
func TestPad4_Roundtrip(t *testing.T) {
	x := New(1, 2, 3, 3)
	for i := range x.Data() {
		x.Data()[i] = float64(i + 1)
	}

	padded := Pad4(x, 2)
	if padded.Dim(2) != 7 || padded.Dim(3) != 7 {
		t.Fatalf("Padded shape: expected [1 2 7 7], got %v", padded.Shape())
	}
	if padded.At4(0, 0, 0, 0) != 0 || padded.At4(0, 1, 6, 6) != 0 {
		t.Error("Padding border is not zero")
	}
	if padded.At4(0, 0, 2, 2) != 1 {
		t.Errorf("Interior corner: expected 1, got %v", padded.At4(0, 0, 2, 2))
	}

	back := Unpad4(padded, 2)
	for i, v := range back.Data() {
		if v != x.Data()[i] {
			t.Fatalf("Roundtrip[%d]: expected %v, got %v", i, x.Data()[i], v)
		}
	}

	// p == 0 must be the identity, same buffer.
	if &Pad4(x, 0).Data()[0] != &x.Data()[0] {
		t.Error("Pad4 with p=0 should return the input unchanged")
	}
}

// TestIm2Col6_KnownValues tests the column expansion on a 1x1x3x3 input
// with a 2x2 kernel, stride 1.
func TestIm2Col6_KnownValues(t *testing.T) {
	// Input:
	// [[1,2,3],
	//  [4,5,6],
	//  [7,8,9]]
	x := New(1, 1, 3, 3)
	for i := range x.Data() {
		x.Data()[i] = float64(i + 1)
	}

	cols := Im2Col6(x, 2, 2, 2, 2, 1)
	if cols.Dim(0) != 4 || cols.Dim(1) != 4 {
		t.Fatalf("Cols shape: expected [4 4], got %v", cols.Shape())
	}

	// Row order is (channel, kernel-row, kernel-col); column order is
	// (batch, out-row, out-col).
	expected := [][]float64{
		{1, 2, 4, 5}, // kernel offset (0,0)
		{2, 3, 5, 6}, // kernel offset (0,1)
		{4, 5, 7, 8}, // kernel offset (1,0)
		{5, 6, 8, 9}, // kernel offset (1,1)
	}
	for r, exp := range expected {
		row := cols.Row(r)
		for c, e := range exp {
			if row[c] != e {
				t.Errorf("Cols[%d][%d]: expected %v, got %v", r, c, e, row[c])
			}
		}
	}
}

// TestCol2Im6_AccumulatesOverlap tests that overlapping windows add.
func TestCol2Im6_AccumulatesOverlap(t *testing.T) {
	// 2x2 kernel over 3x3 input, stride 1: the center element sits in all
	// four windows. A cols matrix of ones must scatter back a count of how
	// many windows cover each input position.
	cols := Ones(4, 4)

	out := Col2Im6(cols, 1, 1, 3, 3, 2, 2, 0, 1)
	// Coverage counts:
	// [[1,2,1],
	//  [2,4,2],
	//  [1,2,1]]
	expected := []float64{1, 2, 1, 2, 4, 2, 1, 2, 1}
	for i, exp := range expected {
		if out.Data()[i] != exp {
			t.Errorf("Out[%d]: expected %v, got %v", i, exp, out.Data()[i])
		}
	}
}

// TestIm2Col6_Col2Im6_GradientMass tests that scattering preserves the
// total mass of the column matrix.
func TestIm2Col6_Col2Im6_GradientMass(t *testing.T) {
	x := New(2, 3, 5, 5)
	for i := range x.Data() {
		x.Data()[i] = float64(i % 7)
	}
	padded := Pad4(x, 1)
	cols := Im2Col6(padded, 3, 3, 5, 5, 1)

	out := Col2Im6(cols, 2, 3, 5, 5, 3, 3, 1, 1)
	if !out.Shape().Equal(x.Shape()) {
		t.Fatalf("Shape: expected %v, got %v", x.Shape(), out.Shape())
	}
	// With padding 1 part of the mass lands on the stripped border, so the
	// scattered sum can only be <= the column sum.
	if Sum(out) > Sum(cols) {
		t.Errorf("Scattered mass %v exceeds column mass %v", Sum(out), Sum(cols))
	}
}

// TestTranspose01 tests swapping batch and channel axes.
func TestTranspose01(t *testing.T) {
	x := New(2, 3, 1, 2)
	for i := range x.Data() {
		x.Data()[i] = float64(i)
	}

	out := Transpose01(x)
	if out.Dim(0) != 3 || out.Dim(1) != 2 {
		t.Fatalf("Shape: expected [3 2 1 2], got %v", out.Shape())
	}
	for a := 0; a < 2; a++ {
		for b := 0; b < 3; b++ {
			if out.At4(b, a, 0, 1) != x.At4(a, b, 0, 1) {
				t.Errorf("Element (%d,%d) not transposed", a, b)
			}
		}
	}
}

// TestNCHWToRows_Roundtrip tests the channel-row rearrangement.
func TestNCHWToRows_Roundtrip(t *testing.T) {
	x := New(2, 3, 2, 2)
	for i := range x.Data() {
		x.Data()[i] = float64(i)
	}

	rows := NCHWToRows(x)
	if rows.Dim(0) != 8 || rows.Dim(1) != 3 {
		t.Fatalf("Rows shape: expected [8 3], got %v", rows.Shape())
	}
	// Row 0 is spatial position (0,0,0) across channels: x[0,c,0,0].
	for c := 0; c < 3; c++ {
		if rows.Row(0)[c] != x.At4(0, c, 0, 0) {
			t.Errorf("Row 0 channel %d mismatch", c)
		}
	}

	back := RowsToNCHW(rows, 2, 3, 2, 2)
	for i, v := range back.Data() {
		if v != x.Data()[i] {
			t.Fatalf("Roundtrip[%d]: expected %v, got %v", i, x.Data()[i], v)
		}
	}
}
