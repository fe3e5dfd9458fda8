package layer

import (
	"math"

	"github.com/strand-ml/strand/internal/optim"
	"github.com/strand-ml/strand/internal/tensor"
)

// NormConfig holds the configuration of a batch-normalization sub-layer.
type NormConfig struct {
	Momentum  float64 // Running-statistics momentum (default: 0.9)
	Eps       float64 // Numerical stability term (default: 1e-8)
	LR        float64 // Learning rate for the scale/shift optimizers (default: 0.01)
	Optimizer string  // Optimizer name for scale and shift (default: "Adam")
}

// DefaultNormConfig returns the default batch-normalization configuration.
func DefaultNormConfig() NormConfig {
	return NormConfig{Momentum: 0.9, Eps: 1e-8, LR: 0.01, Optimizer: "Adam"}
}

func (cfg NormConfig) withDefaults() NormConfig {
	def := DefaultNormConfig()
	if cfg.Momentum == 0 {
		cfg.Momentum = def.Momentum
	}
	if cfg.Eps == 0 {
		cfg.Eps = def.Eps
	}
	if cfg.LR == 0 {
		cfg.LR = def.LR
	}
	if cfg.Optimizer == "" {
		cfg.Optimizer = def.Optimizer
	}
	return cfg
}

// Norm is a batch-normalization sub-layer. It standardizes each feature
// column over the batch, rescales with a learned scale and shift, and keeps
// exponential running statistics for inference. Unlike every other layer it
// owns parameters: the scale and shift update themselves through two
// internal optimizers during the backward pass instead of reporting
// gradients to the caller.
//
// During prediction the running statistics are used and never mutated.
type Norm struct {
	Base
	momentum float64
	eps      float64

	gamma       *tensor.Dense
	beta        *tensor.Dense
	runningMean *tensor.Dense
	runningVar  *tensor.Dense
	gammaOpt    optim.Optimizer
	betaOpt     optim.Optimizer

	xmu    *tensor.Dense // x - batch mean
	stdInv []float64     // per-column 1 / sqrt(var + eps)
	xnorm  *tensor.Dense
	batchN int
}

// NewNorm creates a batch-normalization sub-layer. Scale, shift and running
// statistics are sized lazily on the first forward pass. Construction fails
// with a BuildError when the optimizer name is unknown.
func NewNorm(shape Shape, cfg NormConfig) (*Norm, error) {
	cfg = cfg.withDefaults()
	gOpt, err := optim.ByName(cfg.Optimizer, cfg.LR)
	if err != nil {
		return nil, buildErrorf("layer: normalize: %v", err)
	}
	bOpt, _ := optim.ByName(cfg.Optimizer, cfg.LR)
	return &Norm{
		Base:     newBase(shape, true),
		momentum: cfg.Momentum,
		eps:      cfg.Eps,
		gammaOpt: gOpt,
		betaOpt:  bOpt,
	}, nil
}

// Name returns "Normalize".
func (nm *Norm) Name() string { return "Normalize" }

// Params returns the construction parameters.
func (nm *Norm) Params() []any { return []any{nm.shape, nm.momentum, nm.eps} }

// Gamma returns the learned per-column scale, nil before the first forward
// pass.
func (nm *Norm) Gamma() *tensor.Dense { return nm.gamma }

// Beta returns the learned per-column shift, nil before the first forward
// pass.
func (nm *Norm) Beta() *tensor.Dense { return nm.beta }

// RunningMean returns the exponential running mean used at prediction time.
func (nm *Norm) RunningMean() *tensor.Dense { return nm.runningMean }

// RunningVar returns the exponential running variance used at prediction
// time.
func (nm *Norm) RunningVar() *tensor.Dense { return nm.runningVar }

func (nm *Norm) ensureSized(d int) {
	if nm.gamma != nil {
		return
	}
	nm.gamma = tensor.Ones(1, d)
	nm.beta = tensor.New(1, d)
	nm.runningMean = tensor.New(1, d)
	nm.runningVar = tensor.New(1, d)
	nm.gammaOpt.FeedVariables([]*tensor.Dense{nm.gamma})
	nm.betaOpt.FeedVariables([]*tensor.Dense{nm.beta})
}

// Activate standardizes x over the batch axis. In training mode the batch
// statistics are used and folded into the running statistics; in prediction
// mode the running statistics are used unchanged.
func (nm *Norm) Activate(x, _, bias *tensor.Dense, predict bool) *tensor.Dense {
	if bias != nil {
		x = tensor.AddRowVec(x, bias)
	}
	n, d := x.Dim(0), x.Dim(1)
	nm.ensureSized(d)

	if predict {
		out := x.Clone()
		g, b := nm.gamma.Data(), nm.beta.Data()
		rm, rv := nm.runningMean.Data(), nm.runningVar.Data()
		for i := 0; i < n; i++ {
			row := out.Row(i)
			for j := range row {
				row[j] = g[j]*(row[j]-rm[j])/math.Sqrt(rv[j]+nm.eps) + b[j]
			}
		}
		return out
	}

	meanT, varT := tensor.MeanVarAxis0(x)
	mean, variance := meanT.Data(), varT.Data()
	nm.batchN = n
	nm.xmu = x.Clone()
	nm.stdInv = make([]float64, d)
	for j := 0; j < d; j++ {
		nm.stdInv[j] = 1 / math.Sqrt(variance[j]+nm.eps)
	}
	for i := 0; i < n; i++ {
		row := nm.xmu.Row(i)
		for j := range row {
			row[j] -= mean[j]
		}
	}
	nm.xnorm = nm.xmu.Clone()
	out := tensor.New(n, d)
	g, b := nm.gamma.Data(), nm.beta.Data()
	for i := 0; i < n; i++ {
		xn, o := nm.xnorm.Row(i), out.Row(i)
		for j := range xn {
			xn[j] *= nm.stdInv[j]
			o[j] = g[j]*xn[j] + b[j]
		}
	}
	rm, rv := nm.runningMean.Data(), nm.runningVar.Data()
	for j := 0; j < d; j++ {
		rm[j] = nm.momentum*rm[j] + (1-nm.momentum)*mean[j]
		rv[j] = nm.momentum*rv[j] + (1-nm.momentum)*variance[j]
	}
	return out
}

// Backprop dispatches through the shared sub-layer rules.
func (nm *Norm) Backprop(y, w, prevDelta *tensor.Dense) *BackpropResult {
	return &BackpropResult{Delta: nm.propagate(nm, y, w, prevDelta)}
}

// Derivative consumes the incoming delta, updates scale and shift through
// the internal optimizers, and returns delta minus the input gradient of
// the normalization. Uses the caches of the last training-mode forward
// pass.
func (nm *Norm) Derivative(_, delta *tensor.Dense) *tensor.Dense {
	n, d := delta.Dim(0), delta.Dim(1)
	fn := float64(nm.batchN)
	g := nm.gamma.Data()

	// dxNorm = delta * gamma, column statistics accumulated alongside.
	dxNorm := tensor.New(n, d)
	dVar := make([]float64, d)
	dMean := make([]float64, d)
	xmuMean := make([]float64, d)
	dGamma := tensor.New(1, d)
	dBeta := tensor.New(1, d)
	dg, db := dGamma.Data(), dBeta.Data()
	for i := 0; i < n; i++ {
		dRow, xnRow, xmRow, dxRow := delta.Row(i), nm.xnorm.Row(i), nm.xmu.Row(i), dxNorm.Row(i)
		for j := 0; j < d; j++ {
			dxRow[j] = dRow[j] * g[j]
			dVar[j] += dxRow[j] * xmRow[j]
			dMean[j] += dxRow[j] * nm.stdInv[j]
			xmuMean[j] += xmRow[j]
			dg[j] -= dRow[j] * xnRow[j]
			db[j] -= dRow[j]
		}
	}
	for j := 0; j < d; j++ {
		si := nm.stdInv[j]
		dVar[j] *= -0.5 * si * si * si
		xmuMean[j] /= fn
		dMean[j] = -dMean[j] - 2*dVar[j]*xmuMean[j]
	}

	dx := tensor.New(n, d)
	for i := 0; i < n; i++ {
		dxRow, dnRow, xmRow := dx.Row(i), dxNorm.Row(i), nm.xmu.Row(i)
		for j := 0; j < d; j++ {
			dxRow[j] = dnRow[j]*nm.stdInv[j] + 2/fn*dVar[j]*xmRow[j] + dMean[j]/fn
		}
	}

	tensor.AddInPlace(nm.gamma, nm.gammaOpt.Run(0, dGamma))
	nm.gammaOpt.Update()
	tensor.AddInPlace(nm.beta, nm.betaOpt.Run(0, dBeta))
	nm.betaOpt.Update()

	return tensor.Sub(delta, dx)
}
