package nn

import (
	"fmt"

	"github.com/born-ml/gradstate/internal/tensor"
)

// Parameter represents a trainable parameter owned by a layer.
//
// Values are kept in a flat row-major []float32 whose length always equals
// Shape().NumElements(). The name is unique within the owning layer
// (e.g., "W", "b") and is the key updater state is tracked under.
//
// Example:
//
//	w := nn.NewParameter("W", tensor.Shape{100, 1, 3, 3}, nil)
//	w.Size() // 900
type Parameter struct {
	name  string       // Parameter name (e.g., "W", "b")
	shape tensor.Shape // Logical shape
	data  []float32    // Parameter values
	grad  []float32    // Gradient (nil until set by the caller)
}

// NewParameter creates a new trainable parameter.
//
// If data is nil a zero-filled buffer of the right size is allocated.
// Panics if the shape is invalid or data has the wrong length.
func NewParameter(name string, shape tensor.Shape, data []float32) *Parameter {
	if err := shape.Validate(); err != nil {
		panic(fmt.Sprintf("parameter %q: %v", name, err))
	}
	n := shape.NumElements()
	if data == nil {
		data = make([]float32, n)
	}
	if len(data) != n {
		panic(fmt.Sprintf("parameter %q: data length %d does not match shape %v", name, len(data), shape))
	}

	return &Parameter{
		name:  name,
		shape: shape.Clone(),
		data:  data,
	}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Shape returns a copy of the parameter shape.
func (p *Parameter) Shape() tensor.Shape {
	return p.shape.Clone()
}

// Size returns the number of scalar elements.
func (p *Parameter) Size() int {
	return len(p.data)
}

// Data returns the live parameter values.
//
// Updaters write into this slice in place.
func (p *Parameter) Data() []float32 {
	return p.data
}

// Grad returns the gradient, or nil if none has been set.
func (p *Parameter) Grad() []float32 {
	return p.grad
}

// SetGrad sets the gradient.
//
// Gradients are produced outside this module (backpropagation is not
// part of it) and handed over here or directly to an updater.
func (p *Parameter) SetGrad(grad []float32) {
	p.grad = grad
}

// ZeroGrad clears the gradient.
func (p *Parameter) ZeroGrad() {
	p.grad = nil
}

// AddInPlace adds delta element-wise to the parameter values.
//
// Returns an error if delta has a different length.
func (p *Parameter) AddInPlace(delta []float32) error {
	if len(delta) != len(p.data) {
		return fmt.Errorf("parameter %q: delta length %d, want %d", p.name, len(delta), len(p.data))
	}
	for i, d := range delta {
		p.data[i] += d
	}
	return nil
}
