package layer

import (
	"github.com/strand-ml/strand/internal/tensor"
)

// subTransform is the slice of the layer contract a spatial adapter needs
// from the feature-row sub-layer it wraps.
type subTransform interface {
	Activate(x, w, bias *tensor.Dense, predict bool) *tensor.Dense
	Derivative(y, delta *tensor.Dense) *tensor.Dense
}

// ConvSub adapts a feature-row sub-layer to spatial input. It reinterprets
// a (batch, channels, h, w) tensor as (batch·h·w, channels) rows, runs the
// wrapped transform across channels, and folds the result back. Weights and
// bias are ignored on both passes.
type ConvSub struct {
	Base
	name     string
	inner    subTransform
	channels int
	spatialH int
	spatialW int
}

func newConvSub(name string, shape Shape, inner subTransform) (*ConvSub, error) {
	if len(shape.In) != 3 {
		return nil, buildErrorf("layer: %s wants spatial input (c,h,w), got %v", name, shape.In)
	}
	return &ConvSub{
		Base:     newBase(shape, true),
		name:     name,
		inner:    inner,
		channels: shape.In[0],
		spatialH: shape.In[1],
		spatialW: shape.In[2],
	}, nil
}

// NewConvDrop creates a dropout sub-layer for spatial input: one keep
// decision per channel for each batch of rows.
func NewConvDrop(shape Shape, cfg DropConfig) (*ConvSub, error) {
	inner, err := NewDropout(Shape{In: shape.In, Out: shape.In}, cfg)
	if err != nil {
		return nil, err
	}
	return newConvSub("ConvDrop", shape, inner)
}

// NewConvNorm creates a batch-normalization sub-layer for spatial input,
// standardizing each channel over batch and spatial positions.
func NewConvNorm(shape Shape, cfg NormConfig) (*ConvSub, error) {
	inner, err := NewNorm(Shape{In: shape.In, Out: shape.In}, cfg)
	if err != nil {
		return nil, err
	}
	return newConvSub("ConvNorm", shape, inner)
}

// Name returns "ConvDrop" or "ConvNorm".
func (cs *ConvSub) Name() string { return cs.name }

// Params returns the construction parameters.
func (cs *ConvSub) Params() []any { return []any{cs.shape} }

// OutDims returns the unchanged spatial descriptor (channels, h, w).
func (cs *ConvSub) OutDims() []int { return []int{cs.channels, cs.spatialH, cs.spatialW} }

// Inner returns the wrapped feature-row sub-layer.
func (cs *ConvSub) Inner() subTransform { return cs.inner }

// Activate runs the wrapped transform across channels at every spatial
// position. w and bias are ignored.
func (cs *ConvSub) Activate(x, _, _ *tensor.Dense, predict bool) *tensor.Dense {
	n := x.Dim(0)
	rows := tensor.NCHWToRows(x)
	rows = cs.inner.Activate(rows, nil, nil, predict)
	return tensor.RowsToNCHW(rows, n, cs.channels, cs.spatialH, cs.spatialW)
}

// Backprop pushes the delta through the wrapped transform's derivative. The
// spatial adapter never applies a root activation derivative; the layer it
// wraps handles its own.
func (cs *ConvSub) Backprop(y, w, prevDelta *tensor.Dense) *BackpropResult {
	delta := prevDelta
	if cs.fcBase {
		delta = tensor.MatMulT(prevDelta, w).Reshape(y.Shape()...)
	}
	return &BackpropResult{Delta: cs.Derivative(y, delta)}
}

// Derivative folds the delta to channel rows, applies the wrapped
// transform's derivative, and folds back.
func (cs *ConvSub) Derivative(_, delta *tensor.Dense) *tensor.Dense {
	n := delta.Dim(0)
	rows := tensor.NCHWToRows(delta)
	rows = cs.inner.Derivative(nil, rows)
	return tensor.RowsToNCHW(rows, n, cs.channels, cs.spatialH, cs.spatialW)
}
