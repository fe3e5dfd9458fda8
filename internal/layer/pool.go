package layer

import (
	"math"

	"github.com/strand-ml/strand/internal/tensor"
)

// PoolConfig holds the optional geometry of a max-pooling node.
type PoolConfig struct {
	Stride int // Window step (default: 1)
}

func (cfg PoolConfig) withDefaults() PoolConfig {
	if cfg.Stride == 0 {
		cfg.Stride = 1
	}
	return cfg
}

// poolPath records which forward algorithm produced the caches, so the
// backward pass can consume them consistently.
type poolPath int

const (
	pathNone poolPath = iota
	pathReshape
	pathNaive
)

// MaxPool is a spatial max-pooling root layer. It owns no weights: the w
// and bias arguments to Activate are ignored, and Backprop reports only an
// input gradient.
//
// When the window is square, the stride equals the window side and the
// window tiles the input exactly, the forward pass runs as a single blocked
// reduction; otherwise it falls back to an explicit window scan. The two
// paths route gradients differently on ties: the blocked path splits the
// gradient evenly across tied maxima, the scan path replays each window
// whole, handing every tied position the full value and zeroing the rest.
type MaxPool struct {
	Base
	poolH    int
	poolW    int
	stride   int
	channels int
	inH, inW int
	outH     int
	outW     int

	path   poolPath
	xCache *tensor.Dense
	yCache *tensor.Dense
}

// NewMaxPool creates a max-pooling layer. Shape.In is (channels, height,
// width); Shape.Out is the window (poolH, poolW). Construction fails with a
// BuildError when the window does not step evenly across the input.
func NewMaxPool(shape Shape, cfg PoolConfig) (*MaxPool, error) {
	cfg = cfg.withDefaults()
	if len(shape.In) != 3 || len(shape.Out) != 2 {
		return nil, buildErrorf("layer: max pool wants shape (c,h,w) -> (ph,pw), got %v -> %v", shape.In, shape.Out)
	}
	c, h, w := shape.In[0], shape.In[1], shape.In[2]
	ph, pw := shape.Out[0], shape.Out[1]
	s := cfg.Stride
	if (h-ph)%s != 0 || (w-pw)%s != 0 {
		return nil, buildErrorf(
			"layer: max pool window does not work, window %dx%d - stride %d not compatible with %dx%d",
			ph, pw, s, h, w)
	}
	return &MaxPool{
		Base:     newBase(shape, false),
		poolH:    ph,
		poolW:    pw,
		stride:   s,
		channels: c,
		inH:      h,
		inW:      w,
		outH:     (h-ph)/s + 1,
		outW:     (w-pw)/s + 1,
	}, nil
}

// Name returns "MaxPool".
func (m *MaxPool) Name() string { return "MaxPool" }

// Params returns the construction parameters.
func (m *MaxPool) Params() []any { return []any{m.shape, m.stride} }

// OutDims returns (channels, outH, outW).
func (m *MaxPool) OutDims() []int { return []int{m.channels, m.outH, m.outW} }

// Stride returns the window step.
func (m *MaxPool) Stride() int { return m.stride }

// OutputSize returns the computed spatial output (outH, outW).
func (m *MaxPool) OutputSize() (int, int) { return m.outH, m.outW }

func (m *MaxPool) fastPath() bool {
	return m.poolH == m.poolW && m.poolH == m.stride &&
		m.inH%m.poolH == 0 && m.inW%m.poolW == 0
}

// Activate pools x over its spatial axes. The input and pooled output are
// cached, together with which path produced them, for the next Backprop
// call. w and bias are ignored.
func (m *MaxPool) Activate(x, _, _ *tensor.Dense, _ bool) *tensor.Dense {
	m.xCache = x
	n := x.Dim(0)
	out := tensor.New(n, m.channels, m.outH, m.outW)
	if m.fastPath() {
		m.path = pathReshape
		m.poolBlocked(x, out, n)
	} else {
		m.path = pathNaive
		m.poolScan(x, out, n)
	}
	m.yCache = out
	return out
}

func (m *MaxPool) poolBlocked(x, out *tensor.Dense, n int) {
	s := m.stride
	for i := 0; i < n; i++ {
		for c := 0; c < m.channels; c++ {
			for oh := 0; oh < m.outH; oh++ {
				for ow := 0; ow < m.outW; ow++ {
					best := math.Inf(-1)
					for r := 0; r < m.poolH; r++ {
						row := x.Row4(i, c, oh*s+r)[ow*s : ow*s+m.poolW]
						for _, v := range row {
							if v > best {
								best = v
							}
						}
					}
					out.Set4(i, c, oh, ow, best)
				}
			}
		}
	}
}

func (m *MaxPool) poolScan(x, out *tensor.Dense, n int) {
	s := m.stride
	for i := 0; i < n; i++ {
		for c := 0; c < m.channels; c++ {
			for oh := 0; oh < m.outH; oh++ {
				for ow := 0; ow < m.outW; ow++ {
					best := math.Inf(-1)
					for r := 0; r < m.poolH; r++ {
						for q := 0; q < m.poolW; q++ {
							if v := x.At4(i, c, oh*s+r, ow*s+q); v > best {
								best = v
							}
						}
					}
					out.Set4(i, c, oh, ow, best)
				}
			}
		}
	}
}

// Backprop routes the upstream delta to the window maxima recorded by the
// preceding Activate call. Calling it with no recorded forward path is a
// wiring defect and panics with a ComputationError.
func (m *MaxPool) Backprop(y, w, prevDelta *tensor.Dense) *BackpropResult {
	delta := prevDelta
	if m.fcBase {
		delta = tensor.MatMulT(prevDelta, w).Reshape(y.Shape()...)
	}
	n := y.Dim(0)
	dx := tensor.New(m.xCache.Shape()...)
	switch m.path {
	case pathReshape:
		m.routeDivided(delta, dx, n)
	case pathNaive:
		m.routeAssigned(delta, dx, n)
	default:
		panic(computationErrorf("layer: max pool backward called before any forward pass"))
	}
	return &BackpropResult{Delta: dx}
}

// routeDivided splits each window's gradient evenly across tied maxima.
func (m *MaxPool) routeDivided(delta, dx *tensor.Dense, n int) {
	s := m.stride
	for i := 0; i < n; i++ {
		for c := 0; c < m.channels; c++ {
			for oh := 0; oh < m.outH; oh++ {
				for ow := 0; ow < m.outW; ow++ {
					best := m.yCache.At4(i, c, oh, ow)
					ties := 0
					for r := 0; r < m.poolH; r++ {
						for q := 0; q < m.poolW; q++ {
							if m.xCache.At4(i, c, oh*s+r, ow*s+q) == best {
								ties++
							}
						}
					}
					share := delta.At4(i, c, oh, ow) / float64(ties)
					for r := 0; r < m.poolH; r++ {
						for q := 0; q < m.poolW; q++ {
							if m.xCache.At4(i, c, oh*s+r, ow*s+q) == best {
								dx.Set4(i, c, oh*s+r, ow*s+q, dx.At4(i, c, oh*s+r, ow*s+q)+share)
							}
						}
					}
				}
			}
		}
	}
}

// routeAssigned replays each window whole: the full gradient at every tied
// maximum, zero everywhere else. Overlapping windows overwrite earlier
// contributions across the entire slice, zeros included.
func (m *MaxPool) routeAssigned(delta, dx *tensor.Dense, n int) {
	s := m.stride
	for i := 0; i < n; i++ {
		for c := 0; c < m.channels; c++ {
			for oh := 0; oh < m.outH; oh++ {
				for ow := 0; ow < m.outW; ow++ {
					best := m.yCache.At4(i, c, oh, ow)
					dv := delta.At4(i, c, oh, ow)
					for r := 0; r < m.poolH; r++ {
						for q := 0; q < m.poolW; q++ {
							v := 0.0
							if m.xCache.At4(i, c, oh*s+r, ow*s+q) == best {
								v = dv
							}
							dx.Set4(i, c, oh*s+r, ow*s+q, v)
						}
					}
				}
			}
		}
	}
}

// Derivative is constant 1; pooling has no pointwise nonlinearity.
func (m *MaxPool) Derivative(y, _ *tensor.Dense) *tensor.Dense {
	return tensor.Ones(y.Shape()...)
}
