package tensor

import "testing"

// TestShape_ComputeStrides tests row-major stride derivation against the
// flat offsets At4 computes.
func TestShape_ComputeStrides(t *testing.T) {
	tests := []struct {
		shape   Shape
		strides []int
	}{
		{Shape{2, 3, 4, 5}, []int{60, 20, 5, 1}},
		{Shape{3, 7}, []int{7, 1}},
		{Shape{4}, []int{1}},
	}
	for _, tt := range tests {
		got := tt.shape.ComputeStrides()
		if len(got) != len(tt.strides) {
			t.Fatalf("Strides of %v: expected %v, got %v", tt.shape, tt.strides, got)
		}
		for i := range got {
			if got[i] != tt.strides[i] {
				t.Errorf("Strides of %v: expected %v, got %v", tt.shape, tt.strides, got)
			}
		}
	}

	x := New(2, 3, 4, 5)
	for i := range x.Data() {
		x.Data()[i] = float64(i)
	}
	st := x.Shape().ComputeStrides()
	if got := x.At4(1, 2, 3, 4); got != float64(st[0]+2*st[1]+3*st[2]+4*st[3]) {
		t.Errorf("At4(1,2,3,4): expected %v, got %v", st[0]+2*st[1]+3*st[2]+4*st[3], got)
	}
}
