package optim

import (
	"math"

	"github.com/strand-ml/strand/internal/tensor"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Adam combines ideas from RMSProp and momentum:
//   - Maintains exponential moving averages of gradients (first moment)
//   - Maintains exponential moving averages of squared gradients (second moment)
//   - Applies bias correction to compensate for initialization at zero
//
// Increment rule, for step t starting at 1:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²
//	m_hat = m_t / (1 - beta1^t)
//	v_hat = v_t / (1 - beta2^t)
//	increment = lr * m_hat / (sqrt(v_hat) + eps)
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014).
type Adam struct {
	lr    float64
	beta1 float64
	beta2 float64
	eps   float64
	t     int
	vars  []*tensor.Dense
	m     [][]float64
	v     [][]float64
}

// AdamConfig holds configuration for the Adam optimizer.
type AdamConfig struct {
	LR    float64    // Learning rate (default: 0.001)
	Betas [2]float64 // Moving-average coefficients (default: [0.9, 0.999])
	Eps   float64    // Numerical stability term (default: 1e-8)
}

// NewAdam creates a new Adam optimizer, filling in defaults for zero fields.
func NewAdam(config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &Adam{
		lr:    config.LR,
		beta1: config.Betas[0],
		beta2: config.Betas[1],
		eps:   config.Eps,
	}
}

// Name returns "Adam".
func (a *Adam) Name() string { return "Adam" }

// FeedVariables registers the tracked parameter tensors.
func (a *Adam) FeedVariables(vars []*tensor.Dense) { a.vars = vars }

// Run computes the Adam increment for variable i. Moment buffers are sized
// from the gradient on first use. The step used for bias correction is the
// one following the last Update call.
func (a *Adam) Run(i int, grad *tensor.Dense) *tensor.Dense {
	g := grad.Data()
	m := slot(&a.m, i, len(g))
	v := slot(&a.v, i, len(g))

	t := float64(a.t + 1)
	bc1 := 1 - math.Pow(a.beta1, t)
	bc2 := 1 - math.Pow(a.beta2, t)

	out := grad.Clone()
	data := out.Data()
	for j, gj := range g {
		m[j] = a.beta1*m[j] + (1-a.beta1)*gj
		v[j] = a.beta2*v[j] + (1-a.beta2)*gj*gj
		mHat := m[j] / bc1
		vHat := v[j] / bc2
		data[j] = a.lr * mHat / (math.Sqrt(vHat) + a.eps)
	}
	return out
}

// Update advances the timestep used for bias correction.
func (a *Adam) Update() { a.t++ }

// LR returns the learning rate.
func (a *Adam) LR() float64 { return a.lr }
