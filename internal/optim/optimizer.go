// Package optim implements the optimizer collaborators of the layer engine.
//
// This package provides:
//   - Optimizer interface: gradient in, update increment out
//   - SGD: stochastic gradient descent with optional momentum
//   - Adam: adaptive moment estimation
//   - RMSProp: root-mean-square propagation
//
// Optimizers do not own or mutate parameters. Run returns the increment for
// one tracked variable and the caller adds it; the engine's gradients carry
// a negated sign convention, so adding the increment descends the loss.
// Update advances the shared step counter once per batch, after every
// variable's Run call for that batch.
package optim

import (
	"fmt"

	"github.com/strand-ml/strand/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Name returns the registered optimizer identifier.
	Name() string

	// FeedVariables registers the parameter tensors this optimizer tracks.
	// Variable i in later Run calls refers to vars[i].
	FeedVariables(vars []*tensor.Dense)

	// Run computes the update increment for variable i from its gradient.
	// The caller adds the returned tensor to the parameter.
	Run(i int, grad *tensor.Dense) *tensor.Dense

	// Update advances the internal step counter.
	Update()

	// LR returns the current learning rate.
	LR() float64
}

// ByName constructs an optimizer from its registered identifier.
// Known names: "Adam", "SGD", "RMSProp". Unknown names fail.
func ByName(name string, lr float64) (Optimizer, error) {
	switch name {
	case "Adam":
		return NewAdam(AdamConfig{LR: lr}), nil
	case "SGD":
		return NewSGD(SGDConfig{LR: lr}), nil
	case "RMSProp":
		return NewRMSProp(RMSPropConfig{LR: lr}), nil
	default:
		return nil, fmt.Errorf("optim: undefined optimizer %q", name)
	}
}

// slot lazily fetches the i-th moment buffer, allocating it to match the
// gradient on first use.
func slot(buffers *[][]float64, i, size int) []float64 {
	for len(*buffers) <= i {
		*buffers = append(*buffers, nil)
	}
	if (*buffers)[i] == nil {
		(*buffers)[i] = make([]float64, size)
	}
	return (*buffers)[i]
}
