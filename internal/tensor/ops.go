package tensor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// asMatrix wraps a 2-D tensor as a gonum matrix without copying.
func asMatrix(t *Dense) *mat.Dense {
	if len(t.shape) != 2 {
		panic(fmt.Sprintf("tensor: expected 2-D tensor, got shape %v", t.shape))
	}
	return mat.NewDense(t.shape[0], t.shape[1], t.data)
}

// MatMul computes a·b for 2-D tensors (m,k)·(k,n) -> (m,n).
func MatMul(a, b *Dense) *Dense {
	am, bm := asMatrix(a), asMatrix(b)
	out := New(a.shape[0], b.shape[1])
	asMatrix(out).Mul(am, bm)
	return out
}

// MatMulT computes a·bᵀ for 2-D tensors (m,k)·(n,k)ᵀ -> (m,n).
func MatMulT(a, b *Dense) *Dense {
	am, bm := asMatrix(a), asMatrix(b)
	out := New(a.shape[0], b.shape[0])
	asMatrix(out).Mul(am, bm.T())
	return out
}

// TMatMul computes aᵀ·b for 2-D tensors (k,m)ᵀ·(k,n) -> (m,n).
func TMatMul(a, b *Dense) *Dense {
	am, bm := asMatrix(a), asMatrix(b)
	out := New(a.shape[1], b.shape[1])
	asMatrix(out).Mul(am.T(), bm)
	return out
}

func sameShape(op string, a, b *Dense) {
	if !a.shape.Equal(b.shape) {
		panic(fmt.Sprintf("tensor: %s shape mismatch %v vs %v", op, a.shape, b.shape))
	}
}

// Add returns a + b elementwise.
func Add(a, b *Dense) *Dense {
	sameShape("add", a, b)
	out := a.Clone()
	floats.Add(out.data, b.data)
	return out
}

// Sub returns a - b elementwise.
func Sub(a, b *Dense) *Dense {
	sameShape("sub", a, b)
	out := a.Clone()
	floats.Sub(out.data, b.data)
	return out
}

// AddInPlace adds b into a elementwise.
func AddInPlace(a, b *Dense) {
	sameShape("add", a, b)
	floats.Add(a.data, b.data)
}

// MulElem returns a * b elementwise.
func MulElem(a, b *Dense) *Dense {
	sameShape("mul", a, b)
	out := a.Clone()
	floats.Mul(out.data, b.data)
	return out
}

// Scale returns s * a.
func Scale(s float64, a *Dense) *Dense {
	out := a.Clone()
	floats.Scale(s, out.data)
	return out
}

// AddRowVec adds a length-w vector to every row of a 2-D (n,w) tensor.
func AddRowVec(a, v *Dense) *Dense {
	if len(a.shape) != 2 || a.shape[1] != v.NumElements() {
		panic(fmt.Sprintf("tensor: row-vector add mismatch %v vs %v", a.shape, v.shape))
	}
	out := a.Clone()
	for i := 0; i < out.shape[0]; i++ {
		floats.Add(out.Row(i), v.data)
	}
	return out
}

// Sum returns the sum of all elements.
func Sum(a *Dense) float64 {
	return floats.Sum(a.data)
}

// SumAxis0 sums a 2-D (n,w) tensor over its first axis, returning a
// length-w vector.
func SumAxis0(a *Dense) *Dense {
	n, w := a.shape[0], a.shape[1]
	out := New(w)
	for i := 0; i < n; i++ {
		floats.Add(out.data, a.Row(i))
	}
	return out
}

// MeanVarAxis0 computes the per-column mean and population variance of a
// 2-D (n,w) tensor over the batch axis.
func MeanVarAxis0(a *Dense) (mean, variance *Dense) {
	n, w := a.shape[0], a.shape[1]
	mean, variance = New(w), New(w)
	col := make([]float64, n)
	for j := 0; j < w; j++ {
		for i := 0; i < n; i++ {
			col[i] = a.data[i*w+j]
		}
		m := stat.Mean(col, nil)
		mean.data[j] = m
		variance.data[j] = stat.Moment(2, col, nil)
	}
	return mean, variance
}

// SafeExp exponentiates a 2-D tensor after subtracting each row's maximum,
// avoiding overflow for large inputs.
func SafeExp(a *Dense) *Dense {
	out := a.Clone()
	for i := 0; i < out.shape[0]; i++ {
		row := out.Row(i)
		m := floats.Max(row)
		for j, v := range row {
			row[j] = math.Exp(v - m)
		}
	}
	return out
}

// ArgmaxRows returns the index of the maximum element in each row of a 2-D
// tensor.
func ArgmaxRows(a *Dense) []int {
	n := a.shape[0]
	idx := make([]int, n)
	for i := 0; i < n; i++ {
		idx[i] = floats.MaxIdx(a.Row(i))
	}
	return idx
}

// Apply returns f mapped over every element.
func Apply(a *Dense, f func(float64) float64) *Dense {
	out := a.Clone()
	for i, v := range out.data {
		out.data[i] = f(v)
	}
	return out
}
