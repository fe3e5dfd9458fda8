// Package layer implements the layer-computation engine: a chain of
// differentiable transformations, each exposing a forward (Activate) and a
// backward (Backprop) operation, driven by an external training loop.
//
// The engine distinguishes root layers, which multiply by a caller-owned
// weight matrix before applying their nonlinearity, from sub-layers, which
// wrap exactly one parent and transform its output without a weight multiply
// (Dropout, Normalize, the cost layer). All nodes of one network live in a
// Chain, an arena that owns the parent/child links; nodes refer to each
// other by index.
//
// Caller obligations: weights and biases are supplied on every Activate and
// Backprop call and are never stored beyond the per-batch caches; a Backprop
// call must be immediately preceded, on the same node, by the Activate call
// whose caches it consumes. Forward/backward cycles on one chain must not
// overlap; violating this produces silently incorrect gradients, not a
// crash.
package layer

import (
	"fmt"

	"github.com/strand-ml/strand/internal/tensor"
)

// Shape is a layer's (input descriptor, output descriptor) pair. For fully
// connected nodes each descriptor is a single width. For convolutional
// nodes In is (channels, height, width) and Out is the weight descriptor
// (filters, channels, kernelH, kernelW); for pooling nodes Out is the
// window (poolH, poolW).
type Shape struct {
	In  []int
	Out []int
}

func width(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

// BackpropResult carries the outputs of one backward step. Delta is the
// gradient signal propagated to the previous node. Weight and Bias are the
// parameter gradients and are nil for layers without their own parameters
// (everything except convolutions).
type BackpropResult struct {
	Delta  *tensor.Dense
	Weight *tensor.Dense
	Bias   *tensor.Dense
}

// Layer is a unit of computation in a chain.
type Layer interface {
	// Name returns the layer's registered name (for cost layers, the
	// selected loss-function identifier).
	Name() string

	// Shape returns the layer's (input, output) descriptor pair.
	Shape() Shape

	// Params returns the values sufficient to reconstruct the layer.
	// The serialization built on top of it is an external concern.
	Params() []any

	// OutDims describes the per-sample output: a single width for fully
	// connected nodes, (channels, height, width) for spatial nodes.
	OutDims() []int

	// Parent, Child, Root and LastSubLayer resolve the chain links.
	// Root walks parent links to the node with no parent; it is derived,
	// never stored. All four return nil when the link does not exist.
	Parent() Layer
	Child() Layer
	Root() Layer
	LastSubLayer() Layer

	// IsFC reports whether input is flattened to (batch, features) before
	// use; IsFCBase marks the node sitting directly before a flattening
	// boundary, which must reshape incoming deltas. IsLastRoot marks the
	// chain's final root layer. IsSubLayer is fixed per layer kind.
	IsFC() bool
	SetFC(bool)
	IsFCBase() bool
	SetFCBase(bool)
	IsLastRoot() bool
	SetLastRoot(bool)
	IsSubLayer() bool

	// Activate computes the forward pass. Root layers compute x·w (+bias)
	// then their transform; sub-layers transform x (+bias) directly.
	// predict selects inference behavior: deterministic, and never
	// mutating running statistics.
	Activate(x, w, bias *tensor.Dense, predict bool) *tensor.Dense

	// Backprop computes the backward pass from the layer's own forward
	// output y, the next layer's weight w, and the delta propagated from
	// the next layer. Its caches must come from the immediately preceding
	// Activate call.
	Backprop(y, w, prevDelta *tensor.Dense) *BackpropResult

	// Derivative evaluates the layer's local derivative at forward output
	// y. Sub-layers consume the incoming delta; root activations ignore
	// it.
	Derivative(y, delta *tensor.Dense) *tensor.Dense

	base() *Base
}

// Base carries the chain wiring and flags shared by every layer kind.
// The zero value is an unattached node; Chain.Add and Chain.AddTo attach it.
type Base struct {
	chain    *Chain
	index    int
	parentIx int
	childIx  int
	shape    Shape
	fc       bool
	fcBase   bool
	lastRoot bool
	sub      bool
}

func newBase(shape Shape, sub bool) Base {
	return Base{index: -1, parentIx: -1, childIx: -1, shape: shape, sub: sub}
}

func (b *Base) base() *Base { return b }

// Shape returns the layer's descriptor pair.
func (b *Base) Shape() Shape { return b.shape }

// OutDims returns the output width; spatial layers override this.
func (b *Base) OutDims() []int { return []int{width(b.shape.Out)} }

// Parent returns the wrapped layer, or nil for root layers.
func (b *Base) Parent() Layer {
	if b.chain == nil || b.parentIx < 0 {
		return nil
	}
	return b.chain.nodes[b.parentIx]
}

// Child returns the sub-layer wrapping this one, or nil.
func (b *Base) Child() Layer {
	if b.chain == nil || b.childIx < 0 {
		return nil
	}
	return b.chain.nodes[b.childIx]
}

// Root walks parent links to the chain's originating root layer.
func (b *Base) Root() Layer {
	if b.chain == nil {
		return nil
	}
	ix := b.index
	for b.chain.nodes[ix].base().parentIx >= 0 {
		ix = b.chain.nodes[ix].base().parentIx
	}
	return b.chain.nodes[ix]
}

// LastSubLayer walks child links to the tail of this node's sub-layer
// chain, or nil when it has no child.
func (b *Base) LastSubLayer() Layer {
	child := b.Child()
	if child == nil {
		return nil
	}
	for child.Child() != nil {
		child = child.Child()
	}
	return child
}

// IsFC reports whether input is flattened before use.
func (b *Base) IsFC() bool { return b.fc }

// SetFC marks the layer as flattening its input.
func (b *Base) SetFC(v bool) { b.fc = v }

// IsFCBase reports whether the layer sits directly before a flatten
// boundary.
func (b *Base) IsFCBase() bool { return b.fcBase }

// SetFCBase marks the layer as sitting before a flatten boundary.
func (b *Base) SetFCBase(v bool) { b.fcBase = v }

// IsLastRoot reports whether this is the chain's final root layer.
func (b *Base) IsLastRoot() bool { return b.lastRoot }

// SetLastRoot marks the chain's final root layer.
func (b *Base) SetLastRoot(v bool) { b.lastRoot = v }

// IsSubLayer reports whether the layer wraps a parent instead of applying a
// weight multiply.
func (b *Base) IsSubLayer() bool { return b.sub }

// propagate applies the backward dispatch shared by the non-spatial layers:
//
//  1. A root layer whose child is a sub-layer passes the delta through
//     unchanged; the sub-layer ahead already absorbed the activation
//     derivative.
//  2. A sub-layer whose child is also a sub-layer applies only its own
//     derivative to the incoming delta.
//  3. A sub-layer otherwise chains through the weight transpose and the
//     root activation's derivative before its own.
//  4. A plain root layer multiplies the backpropagated signal by its local
//     derivative.
func (b *Base) propagate(l Layer, y, w, prevDelta *tensor.Dense) *tensor.Dense {
	if child := b.Child(); child != nil && child.IsSubLayer() {
		if !b.sub {
			return prevDelta
		}
		return l.Derivative(y, prevDelta)
	}
	if b.sub {
		signal := tensor.MulElem(tensor.MatMulT(prevDelta, w), b.Root().Derivative(y, nil))
		return l.Derivative(y, signal)
	}
	return tensor.MulElem(tensor.MatMulT(prevDelta, w), l.Derivative(y, nil))
}

// Chain is the arena owning all nodes of one network, in build order.
type Chain struct {
	nodes []Layer
}

// NewChain creates an empty chain.
func NewChain() *Chain {
	return &Chain{}
}

// Add appends a root layer with no parent link.
func (c *Chain) Add(l Layer) error {
	b := l.base()
	if b.chain != nil {
		return buildErrorf("layer: %s already belongs to a chain", l.Name())
	}
	if l.IsSubLayer() {
		return buildErrorf("layer: sub-layer %s needs a parent; use AddTo", l.Name())
	}
	b.chain = c
	b.index = len(c.nodes)
	c.nodes = append(c.nodes, l)
	return nil
}

// AddTo appends a sub-layer wrapping parent. A parent's child link, once
// set, is immutable for the rest of that node's life.
func (c *Chain) AddTo(parent, l Layer) error {
	pb := parent.base()
	if pb.chain != c {
		return buildErrorf("layer: parent %s does not belong to this chain", parent.Name())
	}
	if pb.childIx >= 0 {
		return buildErrorf("layer: %s already has a child", parent.Name())
	}
	b := l.base()
	if b.chain != nil {
		return buildErrorf("layer: %s already belongs to a chain", l.Name())
	}
	if !l.IsSubLayer() {
		return buildErrorf("layer: %s is not a sub-layer; use Add", l.Name())
	}
	b.chain = c
	b.index = len(c.nodes)
	b.parentIx = pb.index
	c.nodes = append(c.nodes, l)
	pb.childIx = b.index
	return nil
}

// Len returns the number of nodes.
func (c *Chain) Len() int { return len(c.nodes) }

// At returns the i-th node in build order.
func (c *Chain) At(i int) Layer { return c.nodes[i] }

// Layers returns the nodes in build order. The slice is shared; do not
// modify it.
func (c *Chain) Layers() []Layer { return c.nodes }

// String lists the chain's layer names.
func (c *Chain) String() string {
	names := make([]string, len(c.nodes))
	for i, l := range c.nodes {
		names[i] = l.Name()
	}
	return fmt.Sprintf("Chain%v", names)
}
