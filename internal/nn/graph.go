package nn

import (
	"errors"
	"fmt"
	"math/rand"
)

// LayerConf declares a layer before its input shape is known.
//
// GraphBuilder first infers the InputType reaching each layer and then asks
// the conf to build the layer for it.
type LayerConf interface {
	// OutputType returns the activation type this layer produces for in.
	OutputType(in InputType) (InputType, error)

	// Build creates the layer for the inferred input type.
	Build(name string, in InputType, rng *rand.Rand) Layer
}

type vertexDecl struct {
	name   string
	conf   LayerConf
	inputs []string
}

// GraphBuilder assembles a computation graph of named layers.
//
// Layers must be added after the vertices they read from, so insertion
// order is a valid topological order. The first error is remembered and
// returned from Build.
//
// Example:
//
//	g, err := nn.NewGraphBuilder().
//	    AddInputs("input").
//	    AddLayer("l0_cnn", nn.ConvolutionConf{...}, "input").
//	    AddLayer("l1_out", nn.OutputConf{NOut: 10}, "l0_cnn").
//	    SetOutputs("l1_out").
//	    SetInputTypes(nn.Convolutional(40, 40, 1)).
//	    Build()
type GraphBuilder struct {
	inputs     []string
	inputTypes []InputType
	vertices   []vertexDecl
	outputs    []string
	seed       int64
	names      map[string]bool
	err        error
}

// NewGraphBuilder creates an empty builder with seed 12345.
func NewGraphBuilder() *GraphBuilder {
	return &GraphBuilder{
		seed:  12345,
		names: make(map[string]bool),
	}
}

func (b *GraphBuilder) fail(format string, args ...any) *GraphBuilder {
	if b.err == nil {
		b.err = fmt.Errorf("graph: "+format, args...)
	}
	return b
}

// AddInputs declares the graph inputs.
func (b *GraphBuilder) AddInputs(names ...string) *GraphBuilder {
	for _, name := range names {
		if b.names[name] {
			return b.fail("duplicate vertex name %q", name)
		}
		b.names[name] = true
		b.inputs = append(b.inputs, name)
	}
	return b
}

// AddLayer adds a layer reading from the named inputs.
func (b *GraphBuilder) AddLayer(name string, conf LayerConf, inputs ...string) *GraphBuilder {
	if name == "" {
		return b.fail("empty layer name")
	}
	if b.names[name] {
		return b.fail("duplicate vertex name %q", name)
	}
	if conf == nil {
		return b.fail("layer %q has no configuration", name)
	}
	if len(inputs) == 0 {
		return b.fail("layer %q has no inputs", name)
	}
	for _, in := range inputs {
		if !b.names[in] {
			return b.fail("layer %q reads from unknown vertex %q", name, in)
		}
	}

	b.names[name] = true
	b.vertices = append(b.vertices, vertexDecl{name: name, conf: conf, inputs: inputs})
	return b
}

// SetOutputs declares which layers produce the graph outputs.
func (b *GraphBuilder) SetOutputs(names ...string) *GraphBuilder {
	b.outputs = names
	return b
}

// SetInputTypes declares the type of each graph input, in AddInputs order.
func (b *GraphBuilder) SetInputTypes(types ...InputType) *GraphBuilder {
	b.inputTypes = types
	return b
}

// WithSeed sets the seed used for weight initialization.
func (b *GraphBuilder) WithSeed(seed int64) *GraphBuilder {
	b.seed = seed
	return b
}

// Build infers every layer's input type and creates the layers.
func (b *GraphBuilder) Build() (*Graph, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.inputs) == 0 {
		return nil, errors.New("graph: no inputs declared")
	}
	if len(b.inputTypes) != len(b.inputs) {
		return nil, fmt.Errorf("graph: %d input types for %d inputs", len(b.inputTypes), len(b.inputs))
	}
	if len(b.outputs) == 0 {
		return nil, errors.New("graph: no outputs declared")
	}

	types := make(map[string]InputType, len(b.names))
	for i, name := range b.inputs {
		if err := b.inputTypes[i].validate(); err != nil {
			return nil, fmt.Errorf("graph: input %q: %w", name, err)
		}
		types[name] = b.inputTypes[i]
	}

	//nolint:gosec // math/rand is fine for weight initialization
	rng := rand.New(rand.NewSource(b.seed))

	g := &Graph{
		inputs:  b.inputs,
		index:   make(map[string]int, len(b.vertices)),
		inputOf: make(map[string][]string, len(b.vertices)),
		types:   make(map[string]InputType, len(b.vertices)),
	}

	for _, v := range b.vertices {
		inTypes := make([]InputType, len(v.inputs))
		for i, in := range v.inputs {
			inTypes[i] = types[in]
		}
		in, err := mergeInputs(inTypes)
		if err != nil {
			return nil, fmt.Errorf("graph: layer %q: %w", v.name, err)
		}
		out, err := v.conf.OutputType(in)
		if err != nil {
			return nil, fmt.Errorf("graph: layer %q: %w", v.name, err)
		}
		types[v.name] = out

		g.index[v.name] = len(g.layers)
		g.layers = append(g.layers, v.conf.Build(v.name, in, rng))
		g.inputOf[v.name] = v.inputs
		g.types[v.name] = in
	}

	for _, name := range b.outputs {
		if _, ok := g.index[name]; !ok {
			return nil, fmt.Errorf("graph: output %q is not a layer", name)
		}
	}
	g.outputs = b.outputs

	return g, nil
}

// Graph is a built computation graph.
type Graph struct {
	inputs  []string
	outputs []string
	layers  []Layer
	index   map[string]int
	inputOf map[string][]string
	types   map[string]InputType
}

// Layers returns the layers in topological order.
func (g *Graph) Layers() []Layer {
	return g.layers
}

// Layer returns the named layer, or nil.
func (g *Graph) Layer(name string) Layer {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	return g.layers[i]
}

// Inputs returns the graph input names.
func (g *Graph) Inputs() []string { return g.inputs }

// Outputs returns the graph output layer names.
func (g *Graph) Outputs() []string { return g.outputs }

// InputsOf returns the vertices a layer reads from.
func (g *Graph) InputsOf(name string) []string { return g.inputOf[name] }

// InputTypeOf returns the inferred input type of a layer.
func (g *Graph) InputTypeOf(name string) (InputType, bool) {
	t, ok := g.types[name]
	return t, ok
}

// NumParams returns the total parameter count of the graph.
func (g *Graph) NumParams() int {
	n := 0
	for _, l := range g.layers {
		n += l.NumParams()
	}
	return n
}
