// Copyright 2026 Strand ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public tensor API for the Strand engine.
//
// A Dense is a flat row-major float64 buffer plus a shape. Reshape returns
// views sharing the buffer; arithmetic helpers allocate fresh results.
//
// Example:
//
//	x := tensor.New(32, 784)            // zero-filled batch
//	w, err := tensor.FromSlice(tensor.Shape{784, 10}, data)
//	y := tensor.MatMul(x, w)            // (32, 10)
package tensor
