// Package tensor implements the dense float64 tensors the layer engine
// computes on.
//
// A Dense is a flat row-major buffer plus a Shape. Views returned by Reshape
// share the underlying buffer; everything else allocates. The package also
// carries the convolution plumbing (zero padding, six-axis column expansion,
// col2im accumulation) and the numerically safe exponential used by Softmax.
package tensor

import "fmt"

// Dense is a dense row-major float64 tensor.
type Dense struct {
	shape Shape
	data  []float64
}

// New creates a zero-filled tensor with the given shape.
// Panics on a non-positive dimension; shapes are engine-internal and a bad
// one is a wiring defect, not a runtime condition.
func New(shape ...int) *Dense {
	s := Shape(shape)
	if err := s.Validate(); err != nil {
		panic(fmt.Sprintf("tensor: %v", err))
	}
	return &Dense{shape: s.Clone(), data: make([]float64, s.NumElements())}
}

// FromSlice creates a tensor wrapping data. The slice is used directly, not
// copied. Returns an error if the element count does not match the shape.
func FromSlice(shape Shape, data []float64) (*Dense, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("tensor: %w", err)
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("tensor: shape %v wants %d elements, got %d",
			shape, shape.NumElements(), len(data))
	}
	return &Dense{shape: shape.Clone(), data: data}, nil
}

// Full creates a tensor with every element set to v.
func Full(v float64, shape ...int) *Dense {
	t := New(shape...)
	for i := range t.data {
		t.data[i] = v
	}
	return t
}

// Ones creates a tensor filled with 1.
func Ones(shape ...int) *Dense {
	return Full(1, shape...)
}

// Shape returns the tensor's shape.
func (t *Dense) Shape() Shape {
	return t.shape
}

// Data returns the underlying buffer. Mutations are visible to all views.
func (t *Dense) Data() []float64 {
	return t.data
}

// Dim returns the size of axis i.
func (t *Dense) Dim(i int) int {
	return t.shape[i]
}

// NumElements returns the total element count.
func (t *Dense) NumElements() int {
	return len(t.data)
}

// Clone returns a deep copy.
func (t *Dense) Clone() *Dense {
	data := make([]float64, len(t.data))
	copy(data, t.data)
	return &Dense{shape: t.shape.Clone(), data: data}
}

// Reshape returns a view with a new shape sharing this tensor's buffer.
// Panics if the element counts differ.
func (t *Dense) Reshape(shape ...int) *Dense {
	s := Shape(shape)
	if s.NumElements() != len(t.data) {
		panic(fmt.Sprintf("tensor: cannot reshape %v to %v", t.shape, s))
	}
	return &Dense{shape: s.Clone(), data: t.data}
}

// FlattenRows returns a 2-D view (batch, rest) of a tensor whose first axis
// is the batch axis.
func (t *Dense) FlattenRows() *Dense {
	n := t.shape[0]
	return t.Reshape(n, len(t.data)/n)
}

// Row returns the i-th row of a 2-D tensor as a slice into the buffer.
func (t *Dense) Row(i int) []float64 {
	if len(t.shape) != 2 {
		panic(fmt.Sprintf("tensor: Row on %d-D tensor", len(t.shape)))
	}
	w := t.shape[1]
	return t.data[i*w : (i+1)*w]
}

// Row4 returns row (n, c, h) of a 4-D tensor as a slice into the buffer.
func (t *Dense) Row4(n, c, h int) []float64 {
	d1, d2, d3 := t.shape[1], t.shape[2], t.shape[3]
	off := ((n*d1+c)*d2 + h) * d3
	return t.data[off : off+d3]
}

// At4 reads element (n, c, h, w) of a 4-D tensor.
func (t *Dense) At4(n, c, h, w int) float64 {
	d1, d2, d3 := t.shape[1], t.shape[2], t.shape[3]
	return t.data[((n*d1+c)*d2+h)*d3+w]
}

// Set4 writes element (n, c, h, w) of a 4-D tensor.
func (t *Dense) Set4(n, c, h, w int, v float64) {
	d1, d2, d3 := t.shape[1], t.shape[2], t.shape[3]
	t.data[((n*d1+c)*d2+h)*d3+w] = v
}
