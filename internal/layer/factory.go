package layer

import "strings"

// Config collects the optional knobs consumed by the name-based factory.
// Zero fields fall back to each layer kind's own defaults.
type Config struct {
	Input   []int  // Spatial input (channels, h, w) when there is no previous layer
	Filters int    // Convolution filter count
	Kernel  [2]int // Convolution kernel (kh, kw)
	Pool    [2]int // Max-pooling window (ph, pw)
	Stride  int    // Convolution / pooling stride (default: 1)
	Padding int    // Convolution zero padding
	NaiveBP bool   // Convolution input-gradient path selector

	Drop DropConfig // Dropout / ConvDrop settings
	Norm NormConfig // Normalize / ConvNorm settings
}

// DefaultConfig returns the factory defaults.
func DefaultConfig() Config {
	return Config{Drop: DefaultDropConfig(), Norm: DefaultNormConfig()}
}

var rootActivations = map[string]Activation{
	"Tanh":      Tanh{},
	"Sigmoid":   Sigmoid{},
	"ELU":       ELU{},
	"ReLU":      ReLU{},
	"Softplus":  Softplus{},
	"Softmax":   Softmax{},
	"Identical": Identical{},
}

// IsCostName reports whether name selects a loss function.
func IsCostName(name string) bool {
	_, ok := lossByName(name)
	return ok
}

// IsSubLayerName reports whether name selects a sub-layer kind, cost names
// included.
func IsSubLayerName(name string) bool {
	switch name {
	case "Dropout", "Normalize", "ConvDrop", "ConvNorm":
		return true
	}
	return IsCostName(name)
}

// New builds the named layer, attaches it to the chain, and returns it
// together with the (input, output) descriptor pair used to size it.
//
// Root names are the seven fully connected activations, their Conv-prefixed
// spatial forms, and MaxPool. Sub-layer names are Dropout, Normalize,
// ConvDrop, ConvNorm and the four loss functions; those wrap prev as their
// parent. width is the output width of fully connected nodes and is ignored
// by spatial ones. The spatial input of a conv or pooling node comes from
// prev's output descriptor, or from cfg.Input for the first node of a
// chain. Unknown names fail with a BuildError.
func (c *Chain) New(name string, prev Layer, width int, cfg Config) (Layer, Shape, error) {
	var l Layer
	var err error
	if IsSubLayerName(name) {
		l, err = c.newSub(name, prev, width, cfg)
		if err != nil {
			return nil, Shape{}, err
		}
		return l, l.Shape(), nil
	}
	l, err = c.newRoot(name, prev, width, cfg)
	if err != nil {
		return nil, Shape{}, err
	}
	if err := c.Add(l); err != nil {
		return nil, Shape{}, err
	}
	return l, l.Shape(), nil
}

func (c *Chain) newRoot(name string, prev Layer, width int, cfg Config) (Layer, error) {
	if fn, ok := rootActivations[name]; ok {
		in := cfg.Input
		if prev != nil {
			in = prev.OutDims()
		}
		if in == nil {
			return nil, buildErrorf("layer: %s needs a previous layer or an input descriptor", name)
		}
		return NewAct(Shape{In: in, Out: []int{width}}, fn), nil
	}

	spatialIn := func() ([]int, error) {
		in := cfg.Input
		if prev != nil {
			in = prev.OutDims()
		}
		if len(in) != 3 {
			return nil, buildErrorf("layer: %s needs spatial input (c,h,w), got %v", name, in)
		}
		return in, nil
	}

	if act, ok := strings.CutPrefix(name, "Conv"); ok {
		fn, ok := rootActivations[act]
		if !ok {
			return nil, buildErrorf("layer: undefined layer '%s' found", name)
		}
		in, err := spatialIn()
		if err != nil {
			return nil, err
		}
		if cfg.Filters <= 0 || cfg.Kernel[0] <= 0 || cfg.Kernel[1] <= 0 {
			return nil, buildErrorf("layer: %s needs filter and kernel settings", name)
		}
		shape := Shape{In: in, Out: []int{cfg.Filters, in[0], cfg.Kernel[0], cfg.Kernel[1]}}
		return NewConv(shape, fn, ConvConfig{Stride: cfg.Stride, Padding: cfg.Padding, NaiveBP: cfg.NaiveBP})
	}

	if name == "MaxPool" {
		in, err := spatialIn()
		if err != nil {
			return nil, err
		}
		if cfg.Pool[0] <= 0 || cfg.Pool[1] <= 0 {
			return nil, buildErrorf("layer: MaxPool needs a window setting")
		}
		return NewMaxPool(Shape{In: in, Out: []int{cfg.Pool[0], cfg.Pool[1]}}, PoolConfig{Stride: cfg.Stride})
	}

	return nil, buildErrorf("layer: undefined layer '%s' found", name)
}

func (c *Chain) newSub(name string, parent Layer, width int, cfg Config) (Layer, error) {
	if parent == nil {
		return nil, buildErrorf("layer: sub-layer %s needs a parent", name)
	}
	in := parent.OutDims()
	shape := Shape{In: in, Out: in}

	var l Layer
	var err error
	switch {
	case name == "Dropout":
		l, err = NewDropout(shape, cfg.Drop)
	case name == "Normalize":
		l, err = NewNorm(shape, cfg.Norm)
	case name == "ConvDrop":
		l, err = NewConvDrop(shape, cfg.Drop)
	case name == "ConvNorm":
		nc := cfg.Norm
		if nc.LR == 0 {
			nc.LR = 0.001
		}
		l, err = NewConvNorm(shape, nc)
	case IsCostName(name):
		l, err = NewCost(Shape{In: in, Out: []int{width}}, name)
	default:
		err = buildErrorf("layer: undefined layer '%s' found", name)
	}
	if err != nil {
		return nil, err
	}
	if err := c.AddTo(parent, l); err != nil {
		return nil, err
	}
	return l, nil
}
