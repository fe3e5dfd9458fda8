// Copyright 2026 Strand ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the public optimizer API for the Strand engine.
//
// Optimizers turn gradients into update increments; they never touch the
// parameters themselves. Feed the tracked variables once, then per batch
// call Run for each variable's gradient, add the increments, and call
// Update to advance the step counter.
//
// Example:
//
//	opt := optim.NewAdam(optim.AdamConfig{LR: 0.001})
//	opt.FeedVariables(weights)
//	inc := opt.Run(0, grad)
//	// add inc to weights[0], then:
//	opt.Update()
package optim
