package layer

import (
	"github.com/strand-ml/strand/internal/tensor"
)

// ConvConfig holds the optional geometry of a convolutional node.
type ConvConfig struct {
	Stride  int  // Window step (default: 1)
	Padding int  // Zero padding on each spatial border (default: 0)
	NaiveBP bool // Use the explicit scatter-add input-gradient loop instead of col2im
}

func (cfg ConvConfig) withDefaults() ConvConfig {
	if cfg.Stride == 0 {
		cfg.Stride = 1
	}
	return cfg
}

// Conv is a convolutional root layer composed with an activation strategy.
//
// Shape.In is the input descriptor (channels, height, width); Shape.Out is
// the weight descriptor (filters, channels, kernelH, kernelW). The weight
// and per-filter bias are owned by the caller and supplied on every call.
//
// The forward pass expands the padded input into a six-axis column matrix
// (cached for backward) and computes the convolution as a single matrix
// multiply. The backward pass recovers the pre-activation delta, derives
// the weight gradient from the column cache, sums the bias gradient over
// batch and spatial axes, and scatter-adds the input gradient back through
// the windows, accumulated rather than overwritten since windows overlap
// whenever stride < kernel size.
type Conv struct {
	Base
	stride   int
	padding  int
	naiveBP  bool
	channels int
	filters  int
	kernelH  int
	kernelW  int
	inH, inW int
	outH     int
	outW     int
	fn       Activation

	xCache   *tensor.Dense
	colCache *tensor.Dense
	wCache   *tensor.Dense
}

// NewConv creates a convolutional layer. Construction fails with a
// BuildError when the kernel does not step evenly across the padded input:
// (H + 2p − kh) and (W + 2p − kw) must both be divisible by the stride.
func NewConv(shape Shape, fn Activation, cfg ConvConfig) (*Conv, error) {
	cfg = cfg.withDefaults()
	if len(shape.In) != 3 || len(shape.Out) != 4 {
		return nil, buildErrorf("layer: conv wants shape (c,h,w) -> (f,c,kh,kw), got %v -> %v", shape.In, shape.Out)
	}
	c, h, w := shape.In[0], shape.In[1], shape.In[2]
	f, wc, kh, kw := shape.Out[0], shape.Out[1], shape.Out[2], shape.Out[3]
	if wc != c {
		return nil, buildErrorf("layer: conv weight channels %d do not match input channels %d", wc, c)
	}
	p, s := cfg.Padding, cfg.Stride
	if (h+2*p-kh)%s != 0 || (w+2*p-kw)%s != 0 {
		return nil, buildErrorf(
			"layer: conv weight shape does not work, kernel %dx%d - stride %d - padding %d not compatible with %dx%d",
			kh, kw, s, p, h, w)
	}
	return &Conv{
		Base:     newBase(shape, false),
		stride:   s,
		padding:  p,
		naiveBP:  cfg.NaiveBP,
		channels: c,
		filters:  f,
		kernelH:  kh,
		kernelW:  kw,
		inH:      h,
		inW:      w,
		outH:     (h+2*p-kh)/s + 1,
		outW:     (w+2*p-kw)/s + 1,
		fn:       fn,
	}, nil
}

// Name returns "Conv" plus the activation's name.
func (c *Conv) Name() string { return "Conv" + c.fn.Name() }

// Params returns the construction parameters.
func (c *Conv) Params() []any { return []any{c.shape, c.stride, c.padding} }

// OutDims returns (filters, outH, outW).
func (c *Conv) OutDims() []int { return []int{c.filters, c.outH, c.outW} }

// Stride returns the window step.
func (c *Conv) Stride() int { return c.stride }

// Padding returns the spatial zero padding.
func (c *Conv) Padding() int { return c.padding }

// OutputSize returns the computed spatial output (outH, outW).
func (c *Conv) OutputSize() (int, int) { return c.outH, c.outW }

// Activate convolves x with w, adds the per-filter bias, and applies the
// activation. x is (batch, channels, h, w); w is (filters, channels, kh,
// kw); bias, when present, has one entry per filter. The input, weight and
// column expansion are cached for the next Backprop call.
func (c *Conv) Activate(x, w, bias *tensor.Dense, predict bool) *tensor.Dense {
	c.xCache, c.wCache = x, w
	n := x.Dim(0)

	padded := tensor.Pad4(x, c.padding)
	cols := tensor.Im2Col6(padded, c.kernelH, c.kernelW, c.outH, c.outW, c.stride)
	c.colCache = cols

	wFlat := w.Reshape(c.filters, c.channels*c.kernelH*c.kernelW)
	res := tensor.MatMul(wFlat, cols) // (filters, n*outH*outW)
	if bias != nil {
		bv := bias.Data()
		for f := 0; f < c.filters; f++ {
			row := res.Row(f)
			for i := range row {
				row[i] += bv[f]
			}
		}
	}
	out := tensor.Transpose01(res.Reshape(c.filters, n, c.outH, c.outW))
	return c.fn.Activate(out, predict)
}

// Backprop recovers the pre-activation delta and returns the input, weight
// and bias gradients. When the layer sits before a flatten boundary the
// upstream signal arrives flattened and is pushed back through the fully
// connected weight first.
func (c *Conv) Backprop(y, w, prevDelta *tensor.Dense) *BackpropResult {
	n := y.Dim(0)

	var delta *tensor.Dense
	if c.fcBase {
		up := tensor.MatMulT(prevDelta, w).Reshape(y.Shape()...)
		delta = tensor.MulElem(c.fn.Derivative(y), up)
	} else {
		delta = tensor.MulElem(c.fn.Derivative(y), prevDelta)
	}

	deltaFlat := tensor.Transpose01(delta).Reshape(c.filters, n*c.outH*c.outW)
	dw := tensor.MatMulT(deltaFlat, c.colCache).Reshape(c.wCache.Shape()...)
	db := tensor.New(c.filters)
	for f := 0; f < c.filters; f++ {
		sum := 0.0
		for _, v := range deltaFlat.Row(f) {
			sum += v
		}
		db.Data()[f] = sum
	}

	var dx *tensor.Dense
	if c.naiveBP {
		dx = c.naiveInputGrad(delta, n)
	} else {
		wFlat := c.wCache.Reshape(c.filters, c.channels*c.kernelH*c.kernelW)
		dxCols := tensor.TMatMul(wFlat, deltaFlat)
		dx = tensor.Col2Im6(dxCols, n, c.channels, c.inH, c.inW, c.kernelH, c.kernelW, c.padding, c.stride)
	}
	return &BackpropResult{Delta: dx, Weight: dw, Bias: db}
}

// naiveInputGrad accumulates weight[f] * delta[i,f,j,k] into every padded
// input window. Overlapping windows must add, never overwrite.
func (c *Conv) naiveInputGrad(delta *tensor.Dense, n int) *tensor.Dense {
	p, s := c.padding, c.stride
	hp, wp := c.inH+2*p, c.inW+2*p
	padded := tensor.New(n, c.channels, hp, wp)
	wData := c.wCache.Data()
	for i := 0; i < n; i++ {
		for f := 0; f < c.filters; f++ {
			wf := wData[f*c.channels*c.kernelH*c.kernelW:]
			for j := 0; j < c.outH; j++ {
				for k := 0; k < c.outW; k++ {
					dv := delta.At4(i, f, j, k)
					if dv == 0 {
						continue
					}
					for ci := 0; ci < c.channels; ci++ {
						for ki := 0; ki < c.kernelH; ki++ {
							for kj := 0; kj < c.kernelW; kj++ {
								wv := wf[(ci*c.kernelH+ki)*c.kernelW+kj]
								padded.Data()[((i*c.channels+ci)*hp+j*s+ki)*wp+k*s+kj] += wv * dv
							}
						}
					}
				}
			}
		}
	}
	return tensor.Unpad4(padded, p)
}

// Derivative evaluates the activation derivative at y.
func (c *Conv) Derivative(y, _ *tensor.Dense) *tensor.Dense {
	return c.fn.Derivative(y)
}
