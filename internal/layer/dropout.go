package layer

import (
	"math/rand"

	"github.com/strand-ml/strand/internal/tensor"
)

// DropConfig holds the configuration of a dropout sub-layer.
type DropConfig struct {
	Prob float64 // Probability of dropping a feature (default: 0.5)
	Seed int64   // Mask RNG seed; 0 keeps the unseeded source
}

// DefaultDropConfig returns the default dropout configuration.
func DefaultDropConfig() DropConfig {
	return DropConfig{Prob: 0.5}
}

// Dropout is an inverted-dropout sub-layer. During training it draws one
// Bernoulli keep decision per feature column, shared across the batch, and
// scales kept features by 1/(1-p); during prediction it is the identity.
//
// The backward pass applies only the 1/(1-p) scale, not the forward mask.
type Dropout struct {
	Base
	prob    float64
	probInv float64
	rng     *rand.Rand
}

// NewDropout creates a dropout sub-layer. The probability must lie in
// [0, 1); 1 would zero every feature and divide by zero on the rescale.
func NewDropout(shape Shape, cfg DropConfig) (*Dropout, error) {
	if cfg.Prob < 0 || cfg.Prob >= 1 {
		return nil, buildErrorf("layer: dropout probability should be a number between 0 and 1, got %v", cfg.Prob)
	}
	var rng *rand.Rand
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewSource(cfg.Seed))
	} else {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Dropout{
		Base:    newBase(shape, true),
		prob:    cfg.Prob,
		probInv: 1 / (1 - cfg.Prob),
		rng:     rng,
	}, nil
}

// Name returns "Dropout".
func (d *Dropout) Name() string { return "Dropout" }

// Params returns the construction parameters.
func (d *Dropout) Params() []any { return []any{d.shape, d.prob} }

// Prob returns the drop probability.
func (d *Dropout) Prob() float64 { return d.prob }

// Activate masks feature columns in training mode and passes x through
// untouched in prediction mode.
func (d *Dropout) Activate(x, _, bias *tensor.Dense, predict bool) *tensor.Dense {
	if bias != nil {
		x = tensor.AddRowVec(x, bias)
	}
	if predict {
		return x
	}
	n, w := x.Dim(0), x.Dim(1)
	mask := make([]float64, w)
	for j := range mask {
		if d.rng.Float64() >= d.prob {
			mask[j] = d.probInv
		}
	}
	out := x.Clone()
	for i := 0; i < n; i++ {
		row := out.Row(i)
		for j := range row {
			row[j] *= mask[j]
		}
	}
	return out
}

// Backprop dispatches through the shared sub-layer rules.
func (d *Dropout) Backprop(y, w, prevDelta *tensor.Dense) *BackpropResult {
	return &BackpropResult{Delta: d.propagate(d, y, w, prevDelta)}
}

// Derivative rescales the incoming delta by 1/(1-p).
func (d *Dropout) Derivative(_, delta *tensor.Dense) *tensor.Dense {
	return tensor.Scale(d.probInv, delta)
}
