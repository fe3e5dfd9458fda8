package layer

import (
	"math"

	"github.com/strand-ml/strand/internal/tensor"
)

// Activation is the strategy implemented by every nonlinearity. Derivatives
// are expressed in terms of the forward output y, not the pre-activation
// input, so the engine never has to retain pre-activation tensors.
type Activation interface {
	Name() string
	Activate(x *tensor.Dense, predict bool) *tensor.Dense
	Derivative(y *tensor.Dense) *tensor.Dense
}

// Tanh is the hyperbolic tangent activation; derivative 1 - y².
type Tanh struct{}

func (Tanh) Name() string { return "Tanh" }

func (Tanh) Activate(x *tensor.Dense, _ bool) *tensor.Dense {
	return tensor.Apply(x, math.Tanh)
}

func (Tanh) Derivative(y *tensor.Dense) *tensor.Dense {
	return tensor.Apply(y, func(v float64) float64 { return 1 - v*v })
}

// Sigmoid is the logistic activation; derivative y(1 - y).
type Sigmoid struct{}

func (Sigmoid) Name() string { return "Sigmoid" }

func (Sigmoid) Activate(x *tensor.Dense, _ bool) *tensor.Dense {
	return tensor.Apply(x, func(v float64) float64 { return 1 / (1 + math.Exp(-v)) })
}

func (Sigmoid) Derivative(y *tensor.Dense) *tensor.Dense {
	return tensor.Apply(y, func(v float64) float64 { return v * (1 - v) })
}

// ELU is the exponential linear unit: x for x ≥ 0, exp(x) - 1 below.
// The derivative at output y is y + 1 for y < 0, otherwise 1.
type ELU struct{}

func (ELU) Name() string { return "ELU" }

func (ELU) Activate(x *tensor.Dense, _ bool) *tensor.Dense {
	return tensor.Apply(x, func(v float64) float64 {
		if v < 0 {
			return math.Exp(v) - 1
		}
		return v
	})
}

func (ELU) Derivative(y *tensor.Dense) *tensor.Dense {
	return tensor.Apply(y, func(v float64) float64 {
		if v < 0 {
			return v + 1
		}
		return 1
	})
}

// ReLU is the rectifier; the derivative is the indicator y > 0.
type ReLU struct{}

func (ReLU) Name() string { return "ReLU" }

func (ReLU) Activate(x *tensor.Dense, _ bool) *tensor.Dense {
	return tensor.Apply(x, func(v float64) float64 { return math.Max(0, v) })
}

func (ReLU) Derivative(y *tensor.Dense) *tensor.Dense {
	return tensor.Apply(y, func(v float64) float64 {
		if v > 0 {
			return 1
		}
		return 0
	})
}

// Softplus is log(1 + exp(x)); derivative 1 / (1 + 1/(exp(y) - 1)).
type Softplus struct{}

func (Softplus) Name() string { return "Softplus" }

func (Softplus) Activate(x *tensor.Dense, _ bool) *tensor.Dense {
	return tensor.Apply(x, func(v float64) float64 { return math.Log1p(math.Exp(v)) })
}

func (Softplus) Derivative(y *tensor.Dense) *tensor.Dense {
	return tensor.Apply(y, func(v float64) float64 { return 1 / (1 + 1/(math.Exp(v)-1)) })
}

// Identical is the identity activation with a constant derivative of 1.
type Identical struct{}

func (Identical) Name() string { return "Identical" }

func (Identical) Activate(x *tensor.Dense, _ bool) *tensor.Dense {
	return x.Clone()
}

func (Identical) Derivative(y *tensor.Dense) *tensor.Dense {
	return tensor.Ones(y.Shape()...)
}

// Softmax normalizes each feature row to a probability distribution using
// the row-max-subtracted exponential. On 4-D input the distribution is
// taken across channels at every spatial position. Its derivative uses the
// same y(1 - y) diagonal form as Sigmoid; the cost layer's combined
// gradient absorbs the off-diagonal terms.
type Softmax struct{}

func (Softmax) Name() string { return "Softmax" }

func (Softmax) Activate(x *tensor.Dense, _ bool) *tensor.Dense {
	if len(x.Shape()) == 4 {
		n, c, h, w := x.Dim(0), x.Dim(1), x.Dim(2), x.Dim(3)
		rows := softmaxRows(tensor.NCHWToRows(x))
		return tensor.RowsToNCHW(rows, n, c, h, w)
	}
	return softmaxRows(x)
}

func softmaxRows(x *tensor.Dense) *tensor.Dense {
	out := tensor.SafeExp(x)
	for i := 0; i < out.Dim(0); i++ {
		row := out.Row(i)
		sum := 0.0
		for _, v := range row {
			sum += v
		}
		for j := range row {
			row[j] /= sum
		}
	}
	return out
}

func (Softmax) Derivative(y *tensor.Dense) *tensor.Dense {
	return tensor.Apply(y, func(v float64) float64 { return v * (1 - v) })
}

// Act is a root layer: x·w (+bias) followed by an activation. The weight
// and bias are owned by the caller and supplied on every call.
type Act struct {
	Base
	fn Activation
}

// NewAct creates a root layer around fn with the given (in, out) widths.
func NewAct(shape Shape, fn Activation) *Act {
	return &Act{Base: newBase(shape, false), fn: fn}
}

// Name returns the wrapped activation's name.
func (a *Act) Name() string { return a.fn.Name() }

// Params returns the construction parameters.
func (a *Act) Params() []any { return []any{a.shape} }

// Activate computes fn(x·w + bias), flattening x first when the layer sits
// behind a flatten boundary.
func (a *Act) Activate(x, w, bias *tensor.Dense, predict bool) *tensor.Dense {
	if a.fc {
		x = x.FlattenRows()
	}
	z := tensor.MatMul(x, w)
	if bias != nil {
		z = tensor.AddRowVec(z, bias)
	}
	return a.fn.Activate(z, predict)
}

// Backprop propagates the delta through the weight transpose and the local
// derivative, or passes it through when a sub-layer child already absorbed
// the derivative.
func (a *Act) Backprop(y, w, prevDelta *tensor.Dense) *BackpropResult {
	return &BackpropResult{Delta: a.propagate(a, y, w, prevDelta)}
}

// Derivative evaluates the activation derivative at y; the delta argument
// is ignored for root activations.
func (a *Act) Derivative(y, _ *tensor.Dense) *tensor.Dense {
	return a.fn.Derivative(y)
}
