package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/gradstate/internal/tensor"
)

// Dense implements a fully connected layer.
//
// Parameter table:
//
//	W: [in_features, out_features]
//	b: [1, out_features]
//
// A dense layer that follows a convolutional activation sees it flattened,
// so in_features = height * width * channels.
type Dense struct {
	baseLayer

	inFeatures  int
	outFeatures int
	activation  string
}

// NewDense creates a new Dense layer.
//
// Weights are initialized using Xavier/Glorot uniform distribution.
// Biases are initialized to zeros.
func NewDense(name string, inFeatures, outFeatures int, activation string, rng *rand.Rand) *Dense {
	if inFeatures <= 0 || outFeatures <= 0 {
		panic(fmt.Sprintf("dense %q: invalid features in=%d, out=%d", name, inFeatures, outFeatures))
	}

	weightShape := tensor.Shape{inFeatures, outFeatures}
	biasShape := tensor.Shape{1, outFeatures}

	return &Dense{
		baseLayer: baseLayer{
			name: name,
			params: []*Parameter{
				NewParameter("W", weightShape, Xavier(inFeatures, outFeatures, weightShape, rng)),
				NewParameter("b", biasShape, Zeros(biasShape)),
			},
		},
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		activation:  activation,
	}
}

// InFeatures returns the input width.
func (d *Dense) InFeatures() int { return d.inFeatures }

// OutFeatures returns the output width.
func (d *Dense) OutFeatures() int { return d.outFeatures }

// Activation returns the activation function name.
func (d *Dense) Activation() string { return d.activation }

// DenseConf declares a dense layer for GraphBuilder.
//
// NIn is only a hint: the width of the inferred input type replaces it.
type DenseConf struct {
	NIn        int
	NOut       int
	Activation string
}

// OutputType implements LayerConf.
func (c DenseConf) OutputType(_ InputType) (InputType, error) {
	if c.NOut <= 0 {
		return InputType{}, fmt.Errorf("invalid nOut %d", c.NOut)
	}
	return FeedForward(c.NOut), nil
}

// Build implements LayerConf.
func (c DenseConf) Build(name string, in InputType, rng *rand.Rand) Layer {
	return NewDense(name, in.Flat(), c.NOut, c.Activation, rng)
}

// LossFunction names the loss an Output layer is trained against.
type LossFunction string

// Loss functions.
const (
	LossMSE                    LossFunction = "mse"
	LossNegativeLogLikelihood  LossFunction = "negativeloglikelihood"
	LossMultiClassCrossEntropy LossFunction = "mcxent"
	LossBinaryCrossEntropy     LossFunction = "xent"
)

// Output is a dense layer that terminates a graph and carries its loss.
//
// Its parameter table is the same as Dense.
type Output struct {
	Dense

	loss LossFunction
}

// NewOutput creates an output layer.
func NewOutput(name string, inFeatures, outFeatures int, activation string, loss LossFunction, rng *rand.Rand) *Output {
	return &Output{
		Dense: *NewDense(name, inFeatures, outFeatures, activation, rng),
		loss:  loss,
	}
}

// Loss returns the loss function.
func (o *Output) Loss() LossFunction { return o.loss }

// OutputConf declares an output layer for GraphBuilder.
//
// NIn is only a hint: the width of the inferred input type replaces it.
type OutputConf struct {
	NIn        int
	NOut       int
	Activation string
	Loss       LossFunction
}

// OutputType implements LayerConf.
func (c OutputConf) OutputType(in InputType) (InputType, error) {
	return DenseConf{NIn: c.NIn, NOut: c.NOut}.OutputType(in)
}

// Build implements LayerConf.
func (c OutputConf) Build(name string, in InputType, rng *rand.Rand) Layer {
	return NewOutput(name, in.Flat(), c.NOut, c.Activation, c.Loss, rng)
}
