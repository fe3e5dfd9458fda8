// Copyright 2026 Strand ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the public layer API for the Strand engine.
//
// A network is a Chain of layers built by name through the factory. Root
// layers (activations, convolutions, pooling) multiply caller-owned weights;
// sub-layers (Dropout, Normalize, the cost layer) wrap a parent and
// transform its output directly. The chain computes; the caller owns the
// weights and drives the training loop.
//
// Example:
//
//	chain := nn.NewChain()
//	cfg := nn.DefaultConfig()
//	cfg.Input = []int{784}
//	h, _, _ := chain.New("ReLU", nil, 128, cfg)
//	d, _, _ := chain.New("Dropout", h, 128, nn.DefaultConfig())
//	out, _, _ := chain.New("Softmax", d, 10, nn.DefaultConfig())
//	cost, _, _ := chain.New("Cross Entropy", out, 10, nn.DefaultConfig())
//	_ = cost
//
// Forward with Activate per layer, seed the backward walk with the cost
// layer's BPFirst, then walk Backprop in reverse and apply the parameter
// gradients with an optimizer from the optim package.
package nn
