package layer

import "fmt"

// BuildError reports an invalid construction request: incompatible
// shape/stride/padding geometry, an out-of-range dropout probability, or an
// unrecognized layer or loss name. Build errors are fatal to construction
// and never retried.
type BuildError struct {
	msg string
}

func (e *BuildError) Error() string { return e.msg }

func buildErrorf(format string, args ...any) error {
	return &BuildError{msg: fmt.Sprintf(format, args...)}
}

// ComputationError reports a wiring defect detected during a forward or
// backward pass: a derivative invoked on a layer that has none, or a pooling
// backward with no recorded forward path. These signal programming errors,
// not recoverable runtime conditions, and are raised as panics from the hot
// path.
type ComputationError struct {
	msg string
}

func (e *ComputationError) Error() string { return e.msg }

func computationErrorf(format string, args ...any) error {
	return &ComputationError{msg: fmt.Sprintf(format, args...)}
}
