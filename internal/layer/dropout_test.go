package layer

import (
	"errors"
	"math"
	"testing"

	"github.com/strand-ml/strand/internal/tensor"
)

// TestDropout_ProbabilityBounds tests the [0, 1) build check.
func TestDropout_ProbabilityBounds(t *testing.T) {
	shape := Shape{In: []int{4}, Out: []int{4}}

	for _, p := range []float64{0, 0.5, 0.99} {
		if _, err := NewDropout(shape, DropConfig{Prob: p}); err != nil {
			t.Errorf("Prob %v: unexpected error %v", p, err)
		}
	}
	for _, p := range []float64{-0.1, 1, 1.5} {
		_, err := NewDropout(shape, DropConfig{Prob: p})
		if err == nil {
			t.Errorf("Prob %v: expected BuildError, got nil", p)
			continue
		}
		var be *BuildError
		if !errors.As(err, &be) {
			t.Errorf("Prob %v: expected *BuildError, got %T", p, err)
		}
	}
}

// TestDropout_ZeroProbIsIdentity tests that p=0 keeps every feature with
// scale 1.
func TestDropout_ZeroProbIsIdentity(t *testing.T) {
	d, err := NewDropout(Shape{In: []int{3}, Out: []int{3}}, DropConfig{Prob: 0})
	if err != nil {
		t.Fatalf("NewDropout: %v", err)
	}

	x := fromValues(t, tensor.Shape{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	y := d.Activate(x, nil, nil, false)
	for i, v := range y.Data() {
		if v != x.Data()[i] {
			t.Errorf("Output[%d]: expected %v, got %v", i, x.Data()[i], v)
		}
	}
}

// TestDropout_PredictIsIdentity tests that prediction never masks.
func TestDropout_PredictIsIdentity(t *testing.T) {
	d, err := NewDropout(Shape{In: []int{3}, Out: []int{3}}, DropConfig{Prob: 0.9, Seed: 1})
	if err != nil {
		t.Fatalf("NewDropout: %v", err)
	}

	x := fromValues(t, tensor.Shape{1, 3}, []float64{1, 2, 3})
	y := d.Activate(x, nil, nil, true)
	for i, v := range y.Data() {
		if v != x.Data()[i] {
			t.Errorf("Output[%d]: expected %v, got %v", i, x.Data()[i], v)
		}
	}
}

// TestDropout_MaskSharedAcrossBatch tests that one keep decision covers a
// whole feature column.
func TestDropout_MaskSharedAcrossBatch(t *testing.T) {
	d, err := NewDropout(Shape{In: []int{8}, Out: []int{8}}, DropConfig{Prob: 0.5, Seed: 42})
	if err != nil {
		t.Fatalf("NewDropout: %v", err)
	}

	x := tensor.Ones(16, 8)
	y := d.Activate(x, nil, nil, false)
	for j := 0; j < 8; j++ {
		first := y.Row(0)[j]
		if first != 0 && math.Abs(first-2) > 1e-12 {
			t.Fatalf("Column %d: expected 0 or 1/(1-p)=2, got %v", j, first)
		}
		for i := 1; i < 16; i++ {
			if y.Row(i)[j] != first {
				t.Fatalf("Column %d not uniform across the batch: row 0 %v, row %d %v", j, first, i, y.Row(i)[j])
			}
		}
	}
}

// TestDropout_DerivativeScalesOnly tests that the backward pass applies the
// 1/(1-p) rescale without the forward mask.
func TestDropout_DerivativeScalesOnly(t *testing.T) {
	d, err := NewDropout(Shape{In: []int{4}, Out: []int{4}}, DropConfig{Prob: 0.75, Seed: 2})
	if err != nil {
		t.Fatalf("NewDropout: %v", err)
	}
	d.Activate(tensor.Ones(2, 4), nil, nil, false)

	delta := fromValues(t, tensor.Shape{2, 4}, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	out := d.Derivative(nil, delta)
	for i, v := range delta.Data() {
		if math.Abs(out.Data()[i]-4*v) > 1e-12 {
			t.Errorf("Derivative[%d]: expected %v, got %v", i, 4*v, out.Data()[i])
		}
	}
}
