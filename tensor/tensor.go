// Copyright 2026 Strand ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/strand-ml/strand/internal/tensor"
)

// Dense is a dense row-major float64 tensor.
type Dense = tensor.Dense

// Shape describes tensor dimensions.
type Shape = tensor.Shape

// New creates a zero-filled tensor with the given shape.
func New(shape ...int) *Dense {
	return tensor.New(shape...)
}

// FromSlice creates a tensor wrapping data without copying.
func FromSlice(shape Shape, data []float64) (*Dense, error) {
	return tensor.FromSlice(shape, data)
}

// Full creates a tensor with every element set to v.
func Full(v float64, shape ...int) *Dense {
	return tensor.Full(v, shape...)
}

// Ones creates a tensor filled with 1.
func Ones(shape ...int) *Dense {
	return tensor.Ones(shape...)
}

// MatMul computes a·b for 2-D tensors.
func MatMul(a, b *Dense) *Dense {
	return tensor.MatMul(a, b)
}

// MatMulT computes a·bᵀ for 2-D tensors.
func MatMulT(a, b *Dense) *Dense {
	return tensor.MatMulT(a, b)
}

// TMatMul computes aᵀ·b for 2-D tensors.
func TMatMul(a, b *Dense) *Dense {
	return tensor.TMatMul(a, b)
}

// SumAxis0 sums a 2-D tensor over its first axis.
func SumAxis0(a *Dense) *Dense {
	return tensor.SumAxis0(a)
}

// Add returns a + b elementwise.
func Add(a, b *Dense) *Dense {
	return tensor.Add(a, b)
}

// Sub returns a - b elementwise.
func Sub(a, b *Dense) *Dense {
	return tensor.Sub(a, b)
}

// MulElem returns a * b elementwise.
func MulElem(a, b *Dense) *Dense {
	return tensor.MulElem(a, b)
}

// Scale returns s * a.
func Scale(s float64, a *Dense) *Dense {
	return tensor.Scale(s, a)
}

// Sum returns the sum of all elements.
func Sum(a *Dense) float64 {
	return tensor.Sum(a)
}
