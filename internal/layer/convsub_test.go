package layer

import (
	"math"
	"math/rand"
	"testing"

	"github.com/strand-ml/strand/internal/tensor"
)

// TestConvDrop_MasksChannels tests that spatial dropout keeps or drops
// whole channels per row batch and is the identity at prediction time.
func TestConvDrop_MasksChannels(t *testing.T) {
	cs, err := NewConvDrop(Shape{In: []int{4, 3, 3}, Out: []int{4, 3, 3}}, DropConfig{Prob: 0.5, Seed: 21})
	if err != nil {
		t.Fatalf("NewConvDrop: %v", err)
	}
	if cs.Name() != "ConvDrop" {
		t.Errorf("Name: expected ConvDrop, got %q", cs.Name())
	}

	x := tensor.Ones(2, 4, 3, 3)
	y := cs.Activate(x, nil, nil, false)
	if !y.Shape().Equal(x.Shape()) {
		t.Fatalf("Shape: expected %v, got %v", x.Shape(), y.Shape())
	}
	for i, v := range y.Data() {
		if v != 0 && math.Abs(v-2) > 1e-12 {
			t.Fatalf("Output[%d]: expected 0 or 2, got %v", i, v)
		}
	}

	yp := cs.Activate(x, nil, nil, true)
	for i, v := range yp.Data() {
		if v != 1 {
			t.Fatalf("Predict output[%d]: expected 1, got %v", i, v)
		}
	}
}

// TestConvNorm_StandardizesChannels tests per-channel statistics over batch
// and spatial positions.
func TestConvNorm_StandardizesChannels(t *testing.T) {
	cs, err := NewConvNorm(Shape{In: []int{2, 4, 4}, Out: []int{2, 4, 4}}, DefaultNormConfig())
	if err != nil {
		t.Fatalf("NewConvNorm: %v", err)
	}
	if cs.Name() != "ConvNorm" {
		t.Errorf("Name: expected ConvNorm, got %q", cs.Name())
	}

	rng := rand.New(rand.NewSource(17))
	x := tensor.New(4, 2, 4, 4)
	for i := range x.Data() {
		x.Data()[i] = 3 + 2*rng.NormFloat64()
	}

	y := cs.Activate(x, nil, nil, false)
	rows := tensor.NCHWToRows(y)
	mean, variance := tensor.MeanVarAxis0(rows)
	for ch := 0; ch < 2; ch++ {
		if math.Abs(mean.Data()[ch]) > 1e-10 {
			t.Errorf("Channel %d mean: expected 0, got %v", ch, mean.Data()[ch])
		}
		if math.Abs(variance.Data()[ch]-1) > 1e-3 {
			t.Errorf("Channel %d variance: expected 1, got %v", ch, variance.Data()[ch])
		}
	}
}

// TestConvSub_DerivativePreservesShape tests the rows roundtrip on the
// backward pass.
func TestConvSub_DerivativePreservesShape(t *testing.T) {
	cs, err := NewConvDrop(Shape{In: []int{3, 2, 2}, Out: []int{3, 2, 2}}, DropConfig{Prob: 0.5, Seed: 4})
	if err != nil {
		t.Fatalf("NewConvDrop: %v", err)
	}
	cs.Activate(tensor.Ones(2, 3, 2, 2), nil, nil, false)

	delta := tensor.Ones(2, 3, 2, 2)
	out := cs.Derivative(nil, delta)
	if !out.Shape().Equal(delta.Shape()) {
		t.Fatalf("Shape: expected %v, got %v", delta.Shape(), out.Shape())
	}
	// Dropout backward is a pure 1/(1-p) rescale.
	for i, v := range out.Data() {
		if math.Abs(v-2) > 1e-12 {
			t.Errorf("Derivative[%d]: expected 2, got %v", i, v)
		}
	}
}

// TestConvSub_RejectsFlatInput tests the spatial-shape build check.
func TestConvSub_RejectsFlatInput(t *testing.T) {
	if _, err := NewConvDrop(Shape{In: []int{8}, Out: []int{8}}, DefaultDropConfig()); err == nil {
		t.Error("Expected BuildError for non-spatial input, got nil")
	}
	if _, err := NewConvNorm(Shape{In: []int{8}, Out: []int{8}}, DefaultNormConfig()); err == nil {
		t.Error("Expected BuildError for non-spatial input, got nil")
	}
}
