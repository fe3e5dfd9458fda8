// Copyright 2026 Strand ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/strand-ml/strand/internal/layer"
)

// Layer is a unit of computation in a chain.
type Layer = layer.Layer

// Chain is the arena owning all nodes of one network.
type Chain = layer.Chain

// Shape is a layer's (input descriptor, output descriptor) pair.
type Shape = layer.Shape

// BackpropResult carries the outputs of one backward step.
type BackpropResult = layer.BackpropResult

// Config collects the optional knobs consumed by the name-based factory.
type Config = layer.Config

// BuildError reports an invalid construction request.
type BuildError = layer.BuildError

// ComputationError reports a wiring defect detected during a pass.
type ComputationError = layer.ComputationError

// Layer kinds, for callers that construct directly instead of by name.

// Act is a fully connected root layer around an activation.
type Act = layer.Act

// Conv is a convolutional root layer.
type Conv = layer.Conv

// ConvConfig holds the optional geometry of a convolutional node.
type ConvConfig = layer.ConvConfig

// MaxPool is a spatial max-pooling root layer.
type MaxPool = layer.MaxPool

// PoolConfig holds the optional geometry of a max-pooling node.
type PoolConfig = layer.PoolConfig

// Dropout is an inverted-dropout sub-layer.
type Dropout = layer.Dropout

// DropConfig holds the configuration of a dropout sub-layer.
type DropConfig = layer.DropConfig

// Norm is a batch-normalization sub-layer.
type Norm = layer.Norm

// NormConfig holds the configuration of a batch-normalization sub-layer.
type NormConfig = layer.NormConfig

// Cost is the terminal sub-layer seeding the backward walk.
type Cost = layer.Cost

// Loss names accepted by the factory and Cost.SetCostFunction.
const (
	LossMSE           = layer.LossMSE
	LossSVM           = layer.LossSVM
	LossCrossEntropy  = layer.LossCrossEntropy
	LossLogLikelihood = layer.LossLogLikelihood
)

// NewChain creates an empty chain.
func NewChain() *Chain {
	return layer.NewChain()
}

// DefaultConfig returns the factory defaults.
func DefaultConfig() Config {
	return layer.DefaultConfig()
}

// DefaultDropConfig returns the default dropout configuration.
func DefaultDropConfig() DropConfig {
	return layer.DefaultDropConfig()
}

// DefaultNormConfig returns the default batch-normalization configuration.
func DefaultNormConfig() NormConfig {
	return layer.DefaultNormConfig()
}

// IsCostName reports whether name selects a loss function.
func IsCostName(name string) bool {
	return layer.IsCostName(name)
}

// IsSubLayerName reports whether name selects a sub-layer kind.
func IsSubLayerName(name string) bool {
	return layer.IsSubLayerName(name)
}
