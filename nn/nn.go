// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math/rand"

	"github.com/born-ml/gradstate/internal/nn"
	"github.com/born-ml/gradstate/internal/tensor"
)

// Shape is the dimensions of a parameter.
type Shape = tensor.Shape

// Layer interface defines the parameter table every layer exposes.
type Layer = nn.Layer

// Parameter represents a trainable parameter in a neural network.
type Parameter = nn.Parameter

// NewParameter creates a new parameter with the given name, shape and data.
// A nil data slice allocates zeros.
func NewParameter(name string, shape Shape, data []float32) *Parameter {
	return nn.NewParameter(name, shape, data)
}

// ParamSizes returns the element count of each parameter of a layer.
func ParamSizes(l Layer) map[string]int {
	return nn.ParamSizes(l)
}

// Layers

// Convolution represents a 2D convolutional layer with "W" and "b".
type Convolution = nn.Convolution

// NewConvolution creates a convolution layer with Xavier initialization.
//
// Example:
//
//	rng := rand.New(rand.NewSource(1))
//	conv := nn.NewConvolution("conv", 1, 32, [2]int{3, 3}, [2]int{1, 1}, [2]int{1, 1}, rng)
func NewConvolution(name string, inChannels, outChannels int, kernel, stride, padding [2]int, rng *rand.Rand) *Convolution {
	return nn.NewConvolution(name, inChannels, outChannels, kernel, stride, padding, rng)
}

// PoolingType selects the reduction used by a Subsampling layer.
type PoolingType = nn.PoolingType

// Pooling types.
const (
	PoolingMax = nn.PoolingMax
	PoolingAvg = nn.PoolingAvg
)

// Subsampling represents a 2D pooling layer. It has no parameters.
type Subsampling = nn.Subsampling

// NewSubsampling creates a pooling layer.
func NewSubsampling(name string, pooling PoolingType, kernel, stride, padding [2]int) *Subsampling {
	return nn.NewSubsampling(name, pooling, kernel, stride, padding)
}

// Dense represents a fully connected layer.
type Dense = nn.Dense

// NewDense creates a dense layer with Xavier initialization.
func NewDense(name string, inFeatures, outFeatures int, activation string, rng *rand.Rand) *Dense {
	return nn.NewDense(name, inFeatures, outFeatures, activation, rng)
}

// LossFunction names the loss an Output layer is trained against.
type LossFunction = nn.LossFunction

// Loss functions.
const (
	LossMSE                    = nn.LossMSE
	LossNegativeLogLikelihood  = nn.LossNegativeLogLikelihood
	LossMultiClassCrossEntropy = nn.LossMultiClassCrossEntropy
	LossBinaryCrossEntropy     = nn.LossBinaryCrossEntropy
)

// Output represents a dense layer that terminates a graph.
type Output = nn.Output

// NewOutput creates an output layer.
func NewOutput(name string, inFeatures, outFeatures int, activation string, loss LossFunction, rng *rand.Rand) *Output {
	return nn.NewOutput(name, inFeatures, outFeatures, activation, loss, rng)
}

// Graph construction

// InputType describes the activations flowing into a layer.
type InputType = nn.InputType

// FeedForward returns a flat input type of width n.
func FeedForward(n int) InputType {
	return nn.FeedForward(n)
}

// Convolutional returns an image input type.
func Convolutional(height, width, channels int) InputType {
	return nn.Convolutional(height, width, channels)
}

// LayerConf is a layer declaration that a GraphBuilder can build.
type LayerConf = nn.LayerConf

// Layer declarations.
type (
	ConvolutionConf = nn.ConvolutionConf
	SubsamplingConf = nn.SubsamplingConf
	DenseConf       = nn.DenseConf
	OutputConf      = nn.OutputConf
)

// GraphBuilder declares a graph and infers layer sizes on Build.
type GraphBuilder = nn.GraphBuilder

// NewGraphBuilder creates an empty builder.
func NewGraphBuilder() *GraphBuilder {
	return nn.NewGraphBuilder()
}

// Graph is a built graph of layers in topological order.
type Graph = nn.Graph

// ReferenceConvNet builds the seven-layer convolutional network. Channel
// and unit counts are divided by scale.
func ReferenceConvNet(scale int) (*Graph, error) {
	return nn.ReferenceConvNet(scale)
}
