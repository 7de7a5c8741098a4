// Package nn describes the layers whose parameters are trained.
//
// This package provides:
//   - Parameter: a named, sized buffer of trainable weights
//   - Layer: the interface updaters consume (a named parameter table)
//   - Convolution, Subsampling, Dense, Output layers
//   - InputType and a GraphBuilder that infers nIn from input types
//
// Layers here own parameters only. Forward and backward passes are
// supplied elsewhere; an updater only needs names, sizes and values.
package nn

// Layer is the interface every parameter owner implements.
//
// Parameters must return the same parameters in the same order on every
// call. Layers without trainable parameters (pooling, activations) return
// an empty slice and report NumParams() == 0.
type Layer interface {
	// Name returns the layer name, unique within its graph.
	Name() string

	// Parameters returns the parameter table in declaration order.
	Parameters() []*Parameter

	// Param returns the parameter with the given name, or nil.
	Param(name string) *Parameter

	// NumParams returns the total number of scalar parameters.
	NumParams() int
}

// baseLayer implements the parameter-table half of Layer.
type baseLayer struct {
	name   string
	params []*Parameter
}

func (l *baseLayer) Name() string {
	return l.name
}

func (l *baseLayer) Parameters() []*Parameter {
	return l.params
}

func (l *baseLayer) Param(name string) *Parameter {
	for _, p := range l.params {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

func (l *baseLayer) NumParams() int {
	n := 0
	for _, p := range l.params {
		n += p.Size()
	}
	return n
}

// ParamSizes returns the element count of each parameter of a layer,
// keyed by parameter name.
func ParamSizes(l Layer) map[string]int {
	sizes := make(map[string]int, len(l.Parameters()))
	for _, p := range l.Parameters() {
		sizes[p.Name()] = p.Size()
	}
	return sizes
}
