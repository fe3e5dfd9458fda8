package optim

import (
	"github.com/strand-ml/strand/internal/tensor"
)

// SGD implements stochastic gradient descent with optional momentum.
//
// Increment rule:
//
//	velocity = momentum * velocity + gradient
//	increment = lr * velocity
//
// With Momentum == 0 the velocity buffer degenerates to the raw gradient and
// the increment is plain lr * gradient.
type SGD struct {
	lr       float64
	momentum float64
	t        int
	vars     []*tensor.Dense
	velocity [][]float64
}

// SGDConfig holds configuration for the SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum factor (default: 0, plain SGD)
}

// NewSGD creates a new SGD optimizer, filling in defaults for zero fields.
func NewSGD(config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{lr: config.LR, momentum: config.Momentum}
}

// Name returns "SGD".
func (s *SGD) Name() string { return "SGD" }

// FeedVariables registers the tracked parameter tensors.
func (s *SGD) FeedVariables(vars []*tensor.Dense) { s.vars = vars }

// Run computes the SGD increment for variable i.
func (s *SGD) Run(i int, grad *tensor.Dense) *tensor.Dense {
	g := grad.Data()
	out := grad.Clone()
	data := out.Data()
	if s.momentum == 0 {
		for j := range data {
			data[j] = s.lr * g[j]
		}
		return out
	}
	vel := slot(&s.velocity, i, len(g))
	for j, gj := range g {
		vel[j] = s.momentum*vel[j] + gj
		data[j] = s.lr * vel[j]
	}
	return out
}

// Update advances the step counter.
func (s *SGD) Update() { s.t++ }

// LR returns the learning rate.
func (s *SGD) LR() float64 { return s.lr }
