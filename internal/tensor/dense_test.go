package tensor

import "testing"

// TestNew_ZeroFilled tests that New allocates a zeroed buffer.
func TestNew_ZeroFilled(t *testing.T) {
	x := New(2, 3)

	if x.NumElements() != 6 {
		t.Fatalf("Expected 6 elements, got %d", x.NumElements())
	}
	for i, v := range x.Data() {
		if v != 0 {
			t.Errorf("Data[%d]: expected 0, got %v", i, v)
		}
	}
}

// TestNew_PanicsOnBadShape tests that invalid dimensions are rejected.
func TestNew_PanicsOnBadShape(t *testing.T) {
	tests := [][]int{
		{0},
		{-1, 2},
		{3, 0, 4},
	}

	for _, shape := range tests {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("New(%v): expected panic, got none", shape)
				}
			}()
			New(shape...)
		}()
	}
}

// TestFromSlice_CountMismatch tests the element-count check.
func TestFromSlice_CountMismatch(t *testing.T) {
	_, err := FromSlice(Shape{2, 2}, []float64{1, 2, 3})
	if err == nil {
		t.Fatal("Expected error for 3 elements in a 2x2 shape, got nil")
	}

	x, err := FromSlice(Shape{2, 2}, []float64{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if x.Dim(0) != 2 || x.Dim(1) != 2 {
		t.Errorf("Shape: expected [2 2], got %v", x.Shape())
	}
}

// TestReshape_SharesBuffer tests that reshaped views alias the original.
func TestReshape_SharesBuffer(t *testing.T) {
	x := New(2, 6)
	v := x.Reshape(3, 4)

	v.Data()[5] = 7
	if x.Data()[5] != 7 {
		t.Error("Reshape view does not share the underlying buffer")
	}

	defer func() {
		if recover() == nil {
			t.Error("Expected panic reshaping 12 elements to 2x5")
		}
	}()
	x.Reshape(2, 5)
}

// TestFlattenRows tests the (batch, rest) view.
func TestFlattenRows(t *testing.T) {
	x := New(2, 3, 4, 4)
	f := x.FlattenRows()

	if f.Dim(0) != 2 || f.Dim(1) != 48 {
		t.Errorf("Expected shape [2 48], got %v", f.Shape())
	}
}

// TestRow4_Indexing tests 4-D row access against flat indexing.
func TestRow4_Indexing(t *testing.T) {
	x := New(2, 3, 4, 5)
	for i := range x.Data() {
		x.Data()[i] = float64(i)
	}

	row := x.Row4(1, 2, 3)
	if len(row) != 5 {
		t.Fatalf("Expected row length 5, got %d", len(row))
	}
	// Flat offset of (1, 2, 3, 0) = ((1*3+2)*4+3)*5 = 115.
	if row[0] != 115 {
		t.Errorf("Row start: expected 115, got %v", row[0])
	}
	if x.At4(1, 2, 3, 4) != 119 {
		t.Errorf("At4: expected 119, got %v", x.At4(1, 2, 3, 4))
	}

	x.Set4(0, 1, 2, 3, -1)
	if x.At4(0, 1, 2, 3) != -1 {
		t.Error("Set4/At4 disagree")
	}
}

// TestClone_Independent tests that clones do not alias.
func TestClone_Independent(t *testing.T) {
	x := Ones(2, 2)
	y := x.Clone()
	y.Data()[0] = 5

	if x.Data()[0] != 1 {
		t.Error("Clone shares the underlying buffer")
	}
}
