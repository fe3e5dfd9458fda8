package optim

import (
	"math"

	"github.com/strand-ml/strand/internal/tensor"
)

// RMSProp implements root-mean-square propagation.
//
// Increment rule:
//
//	cache = decay * cache + (1-decay) * gradient²
//	increment = lr * gradient / (sqrt(cache) + eps)
type RMSProp struct {
	lr    float64
	decay float64
	eps   float64
	t     int
	vars  []*tensor.Dense
	cache [][]float64
}

// RMSPropConfig holds configuration for the RMSProp optimizer.
type RMSPropConfig struct {
	LR    float64 // Learning rate (default: 0.001)
	Decay float64 // Squared-gradient decay rate (default: 0.9)
	Eps   float64 // Numerical stability term (default: 1e-8)
}

// NewRMSProp creates a new RMSProp optimizer, filling in defaults for zero
// fields.
func NewRMSProp(config RMSPropConfig) *RMSProp {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Decay == 0 {
		config.Decay = 0.9
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &RMSProp{lr: config.LR, decay: config.Decay, eps: config.Eps}
}

// Name returns "RMSProp".
func (r *RMSProp) Name() string { return "RMSProp" }

// FeedVariables registers the tracked parameter tensors.
func (r *RMSProp) FeedVariables(vars []*tensor.Dense) { r.vars = vars }

// Run computes the RMSProp increment for variable i.
func (r *RMSProp) Run(i int, grad *tensor.Dense) *tensor.Dense {
	g := grad.Data()
	cache := slot(&r.cache, i, len(g))
	out := grad.Clone()
	data := out.Data()
	for j, gj := range g {
		cache[j] = r.decay*cache[j] + (1-r.decay)*gj*gj
		data[j] = r.lr * gj / (math.Sqrt(cache[j]) + r.eps)
	}
	return out
}

// Update advances the step counter.
func (r *RMSProp) Update() { r.t++ }

// LR returns the learning rate.
func (r *RMSProp) LR() float64 { return r.lr }
