package layer

import (
	"math"

	"github.com/strand-ml/strand/internal/tensor"
)

// Loss names accepted by NewCost and SetCostFunction.
const (
	LossMSE           = "MSE"
	LossSVM           = "SVM"
	LossCrossEntropy  = "Cross Entropy"
	LossLogLikelihood = "Log Likelihood"
)

// lossFunc evaluates either the gradient (diff true) or the scalar loss of
// one objective.
type lossFunc func(y, yPred *tensor.Dense, diff bool) (*tensor.Dense, float64)

// Cost is the terminal sub-layer of a chain. Its forward pass is the
// identity; its purpose is BPFirst, which seeds the backward walk with the
// loss gradient, and Calculate, which reports the scalar loss.
type Cost struct {
	Base
	lossName string
	loss     lossFunc
}

// NewCost creates a cost sub-layer with the named loss. Unknown names fail
// with a BuildError.
func NewCost(shape Shape, name string) (*Cost, error) {
	fn, ok := lossByName(name)
	if !ok {
		return nil, buildErrorf("layer: cost function '%s' not implemented", name)
	}
	return &Cost{Base: newBase(shape, true), lossName: name, loss: fn}, nil
}

func lossByName(name string) (lossFunc, bool) {
	switch name {
	case LossMSE:
		return mseLoss, true
	case LossSVM:
		return svmLoss, true
	case LossCrossEntropy:
		return crossEntropyLoss, true
	case LossLogLikelihood:
		return logLikelihoodLoss, true
	}
	return nil, false
}

// Name returns the selected loss-function name.
func (c *Cost) Name() string { return c.lossName }

// Params returns the construction parameters.
func (c *Cost) Params() []any { return []any{c.shape, c.lossName} }

// SetCostFunction swaps the selected loss. Unknown names are reported as a
// ComputationError and leave the current loss in place.
func (c *Cost) SetCostFunction(name string) error {
	fn, ok := lossByName(name)
	if !ok {
		return computationErrorf("layer: '%s' is not implemented", name)
	}
	c.lossName = name
	c.loss = fn
	return nil
}

// Activate is the identity; the cost layer transforms nothing on the
// forward pass.
func (c *Cost) Activate(x, _, bias *tensor.Dense, _ bool) *tensor.Dense {
	if bias != nil {
		return tensor.AddRowVec(x, bias)
	}
	return x
}

// Backprop dispatches through the shared sub-layer rules.
func (c *Cost) Backprop(y, w, prevDelta *tensor.Dense) *BackpropResult {
	return &BackpropResult{Delta: c.propagate(c, y, w, prevDelta)}
}

// Derivative must never run on a cost layer; the backward walk is seeded by
// BPFirst instead. Calling it is a wiring defect.
func (c *Cost) Derivative(_, _ *tensor.Dense) *tensor.Dense {
	panic(computationErrorf("layer: derivative function should not be called on a cost layer"))
}

// Calculate returns the scalar loss of predictions yPred against targets y.
func (c *Cost) Calculate(y, yPred *tensor.Dense) float64 {
	_, v := c.loss(y, yPred, false)
	return v
}

// BPFirst seeds the backward walk with the negated loss gradient folded
// through the root activation's derivative. Two pairings collapse to closed
// forms: Sigmoid with cross entropy, whose product telescopes, and log
// likelihood, which pairs with Softmax and uses a fixed 1/4 damping.
func (c *Cost) BPFirst(y, yPred *tensor.Dense) *tensor.Dense {
	root := c.Root()
	if root.Name() == "Sigmoid" && c.lossName == LossCrossEntropy {
		out := y.Clone()
		data, yd, pd := out.Data(), y.Data(), yPred.Data()
		for i := range data {
			data[i] = yd[i]*(1-pd[i]) - (1-yd[i])*pd[i]
		}
		return out
	}
	grad, _ := c.loss(y, yPred, true)
	if c.lossName == LossLogLikelihood {
		return tensor.Scale(-0.25, grad)
	}
	return tensor.MulElem(tensor.Scale(-1, grad), root.Derivative(yPred, nil))
}

func mseLoss(y, yPred *tensor.Dense, diff bool) (*tensor.Dense, float64) {
	if diff {
		return tensor.Sub(yPred, y), 0
	}
	sum := 0.0
	yd, pd := y.Data(), yPred.Data()
	for i := range yd {
		d := yd[i] - pd[i]
		sum += d * d
	}
	return nil, 0.5 * sum / float64(len(yd))
}

// svmLoss is the multiclass hinge loss. The margin at the correct class is
// forced to zero, and the correct-class gradient entry absorbs the count of
// positive margins in its row.
func svmLoss(y, yPred *tensor.Dense, diff bool) (*tensor.Dense, float64) {
	n := yPred.Dim(0)
	labels := tensor.ArgmaxRows(y)
	loss := 0.0
	var dx *tensor.Dense
	if diff {
		dx = tensor.New(yPred.Shape()...)
	}
	for i := 0; i < n; i++ {
		row := yPred.Row(i)
		correct := row[labels[i]]
		numPos := 0
		for j, v := range row {
			if j == labels[i] {
				continue
			}
			margin := v - correct + 1
			if margin > 0 {
				loss += margin
				numPos++
				if diff {
					dx.Row(i)[j] = 1
				}
			}
		}
		if diff {
			dx.Row(i)[labels[i]] = -float64(numPos)
		}
	}
	if !diff {
		return nil, loss / float64(n)
	}
	return tensor.Scale(1/float64(n), dx), 0
}

func crossEntropyLoss(y, yPred *tensor.Dense, diff bool) (*tensor.Dense, float64) {
	yd, pd := y.Data(), yPred.Data()
	if diff {
		out := y.Clone()
		data := out.Data()
		for i := range data {
			data[i] = -yd[i]/pd[i] + (1-yd[i])/(1-pd[i])
		}
		return out, 0
	}
	sum := 0.0
	for i := range yd {
		sum += -yd[i]*math.Log(pd[i]) - (1-yd[i])*math.Log(1-pd[i])
	}
	return nil, sum / float64(len(yd))
}

func logLikelihoodLoss(y, yPred *tensor.Dense, diff bool) (*tensor.Dense, float64) {
	const eps = 1e-8
	n := yPred.Dim(0)
	labels := tensor.ArgmaxRows(y)
	if diff {
		out := yPred.Clone()
		for i := 0; i < n; i++ {
			out.Row(i)[labels[i]] -= 1
		}
		return out, 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += -math.Log(yPred.Row(i)[labels[i]] + eps)
	}
	return nil, sum / float64(n)
}
