package tensor

import (
	"fmt"

	"github.com/strand-ml/strand/internal/parallel"
)

// par is the worker configuration shared by the batch-parallel kernels.
// Parallelism here is an internal optimization; results are identical to the
// sequential order because workers never share output elements.
var par = parallel.DefaultConfig()

// Pad4 zero-pads the two spatial axes of a 4-D (n,c,h,w) tensor by p on
// every side. p == 0 returns the input unchanged.
func Pad4(x *Dense, p int) *Dense {
	if p == 0 {
		return x
	}
	n, c, h, w := x.shape[0], x.shape[1], x.shape[2], x.shape[3]
	out := New(n, c, h+2*p, w+2*p)
	wp := w + 2*p
	for i := 0; i < n; i++ {
		for j := 0; j < c; j++ {
			src := x.data[(i*c+j)*h*w:]
			dst := out.data[(i*c+j)*(h+2*p)*wp:]
			for r := 0; r < h; r++ {
				copy(dst[(r+p)*wp+p:(r+p)*wp+p+w], src[r*w:(r+1)*w])
			}
		}
	}
	return out
}

// Unpad4 strips p rows/columns from every spatial border of a 4-D tensor.
func Unpad4(x *Dense, p int) *Dense {
	if p == 0 {
		return x
	}
	n, c, hp, wp := x.shape[0], x.shape[1], x.shape[2], x.shape[3]
	h, w := hp-2*p, wp-2*p
	out := New(n, c, h, w)
	for i := 0; i < n; i++ {
		for j := 0; j < c; j++ {
			src := x.data[(i*c+j)*hp*wp:]
			dst := out.data[(i*c+j)*h*w:]
			for r := 0; r < h; r++ {
				copy(dst[r*w:(r+1)*w], src[(r+p)*wp+p:(r+p)*wp+p+w])
			}
		}
	}
	return out
}

// Im2Col6 materializes the six-axis sliding-window view of a padded 4-D
// input (n,c,hp,wp) as a (c*kh*kw, n*outH*outW) column matrix. The axis
// order is (channel, kernel-row, kernel-col, batch, out-row, out-col),
// matching the layout the conv backward pass multiplies against. Elements
// are located by stride arithmetic over the padded buffer rather than by
// window copies.
func Im2Col6(xPadded *Dense, kh, kw, outH, outW, stride int) *Dense {
	n, c, hp, wp := xPadded.shape[0], xPadded.shape[1], xPadded.shape[2], xPadded.shape[3]
	if (hp-kh)%stride != 0 || (wp-kw)%stride != 0 {
		panic(fmt.Sprintf("tensor: im2col window %dx%d stride %d does not cover %dx%d", kh, kw, stride, hp, wp))
	}
	rows := c * kh * kw
	cols := n * outH * outW
	out := New(rows, cols)

	// The padded buffer's row-major strides give the six virtual axes their
	// steps.
	st := xPadded.shape.ComputeStrides()
	batchStride, chStride, rowStride := st[0], st[1], st[2]

	parallel.For(rows, par, func(r int) {
		ci := r / (kh * kw)
		ki := (r / kw) % kh
		kj := r % kw
		base := ci*chStride + ki*rowStride + kj
		dst := out.data[r*cols : (r+1)*cols]
		idx := 0
		for ni := 0; ni < n; ni++ {
			nb := base + ni*batchStride
			for oi := 0; oi < outH; oi++ {
				src := nb + oi*stride*rowStride
				for oj := 0; oj < outW; oj++ {
					dst[idx] = xPadded.data[src+oj*stride]
					idx++
				}
			}
		}
	})
	return out
}

// Col2Im6 scatters a six-axis column gradient back onto the input it was
// expanded from, accumulating where windows overlap, and strips the padding.
// cols carries (c,kh,kw,n,outH,outW) flattened to (c*kh*kw, n*outH*outW);
// h and w are the unpadded spatial sizes.
func Col2Im6(cols *Dense, n, c, h, w, kh, kw, padding, stride int) *Dense {
	hp, wp := h+2*padding, w+2*padding
	outH := (hp-kh)/stride + 1
	outW := (wp-kw)/stride + 1
	nCols := n * outH * outW
	if !cols.shape.Equal(Shape{c * kh * kw, nCols}) {
		panic(fmt.Sprintf("tensor: col2im expects shape %v, got %v", Shape{c * kh * kw, nCols}, cols.shape))
	}
	padded := New(n, c, hp, wp)

	// Each worker owns one sample, so the += below never races.
	parallel.For(n, par, func(ni int) {
		for ci := 0; ci < c; ci++ {
			for ki := 0; ki < kh; ki++ {
				for kj := 0; kj < kw; kj++ {
					row := ((ci*kh+ki)*kw + kj)
					src := cols.data[row*nCols:]
					for oi := 0; oi < outH; oi++ {
						for oj := 0; oj < outW; oj++ {
							v := src[(ni*outH+oi)*outW+oj]
							padded.data[((ni*c+ci)*hp+oi*stride+ki)*wp+oj*stride+kj] += v
						}
					}
				}
			}
		}
	})
	return Unpad4(padded, padding)
}

// Transpose01 swaps the first two axes of a 4-D tensor.
func Transpose01(x *Dense) *Dense {
	a, b, h, w := x.shape[0], x.shape[1], x.shape[2], x.shape[3]
	out := New(b, a, h, w)
	plane := h * w
	for i := 0; i < a; i++ {
		for j := 0; j < b; j++ {
			copy(out.data[(j*a+i)*plane:(j*a+i+1)*plane], x.data[(i*b+j)*plane:(i*b+j+1)*plane])
		}
	}
	return out
}

// NCHWToRows rearranges a 4-D (n,c,h,w) tensor into a (n*h*w, c) matrix,
// one row per spatial position, so per-channel sub-layer transforms can be
// applied with 2-D code.
func NCHWToRows(x *Dense) *Dense {
	n, c, h, w := x.shape[0], x.shape[1], x.shape[2], x.shape[3]
	out := New(n*h*w, c)
	plane := h * w
	for i := 0; i < n; i++ {
		for j := 0; j < c; j++ {
			src := x.data[(i*c+j)*plane:]
			for p := 0; p < plane; p++ {
				out.data[(i*plane+p)*c+j] = src[p]
			}
		}
	}
	return out
}

// RowsToNCHW is the inverse of NCHWToRows.
func RowsToNCHW(rows *Dense, n, c, h, w int) *Dense {
	if !rows.shape.Equal(Shape{n * h * w, c}) {
		panic(fmt.Sprintf("tensor: rows shape %v does not match (%d,%d,%d,%d)", rows.shape, n, c, h, w))
	}
	out := New(n, c, h, w)
	plane := h * w
	for i := 0; i < n; i++ {
		for j := 0; j < c; j++ {
			dst := out.data[(i*c+j)*plane:]
			for p := 0; p < plane; p++ {
				dst[p] = rows.data[(i*plane+p)*c+j]
			}
		}
	}
	return out
}
