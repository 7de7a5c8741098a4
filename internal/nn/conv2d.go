package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/gradstate/internal/tensor"
)

// Convolution is a 2D convolutional layer.
//
// Parameter table:
//
//	W: [out_channels, in_channels, kernel_h, kernel_w]
//	b: [1, out_channels]
//
// Output spatial size:
//
//	out_h = (height + 2*padding_h - kernel_h) / stride_h + 1
//	out_w = (width + 2*padding_w - kernel_w) / stride_w + 1
type Convolution struct {
	baseLayer

	inChannels  int
	outChannels int
	kernel      [2]int
	stride      [2]int
	padding     [2]int
}

// NewConvolution creates a 2D convolutional layer with Xavier initialization.
//
// Parameters:
//   - name: Layer name
//   - inChannels: Number of input channels
//   - outChannels: Number of output channels (number of filters)
//   - kernel, stride, padding: [h, w] pairs
//   - rng: Source for weight initialization
//
// Initialization:
//   - Weights: Xavier/Glorot uniform initialization
//   - Bias: Zeros
func NewConvolution(name string, inChannels, outChannels int, kernel, stride, padding [2]int, rng *rand.Rand) *Convolution {
	if inChannels <= 0 || outChannels <= 0 {
		panic(fmt.Sprintf("convolution %q: invalid channels in=%d, out=%d", name, inChannels, outChannels))
	}
	if kernel[0] <= 0 || kernel[1] <= 0 {
		panic(fmt.Sprintf("convolution %q: invalid kernel size h=%d, w=%d", name, kernel[0], kernel[1]))
	}
	if stride[0] <= 0 || stride[1] <= 0 {
		panic(fmt.Sprintf("convolution %q: invalid stride %v", name, stride))
	}
	if padding[0] < 0 || padding[1] < 0 {
		panic(fmt.Sprintf("convolution %q: invalid padding %v", name, padding))
	}

	weightShape := tensor.Shape{outChannels, inChannels, kernel[0], kernel[1]}
	// fan_in = in_channels * kernel_h * kernel_w
	// fan_out = out_channels * kernel_h * kernel_w
	fanIn := inChannels * kernel[0] * kernel[1]
	fanOut := outChannels * kernel[0] * kernel[1]

	biasShape := tensor.Shape{1, outChannels}

	return &Convolution{
		baseLayer: baseLayer{
			name: name,
			params: []*Parameter{
				NewParameter("W", weightShape, Xavier(fanIn, fanOut, weightShape, rng)),
				NewParameter("b", biasShape, Zeros(biasShape)),
			},
		},
		inChannels:  inChannels,
		outChannels: outChannels,
		kernel:      kernel,
		stride:      stride,
		padding:     padding,
	}
}

// InChannels returns the number of input channels.
func (c *Convolution) InChannels() int { return c.inChannels }

// OutChannels returns the number of filters.
func (c *Convolution) OutChannels() int { return c.outChannels }

// ConvolutionConf declares a convolution layer for GraphBuilder.
//
// NIn is only a hint: when the graph has input types, the inferred channel
// count replaces it.
type ConvolutionConf struct {
	Kernel  [2]int
	Stride  [2]int
	Padding [2]int
	NIn     int
	NOut    int
}

// OutputType implements LayerConf.
func (c ConvolutionConf) OutputType(in InputType) (InputType, error) {
	if in.Kind != KindConvolutional {
		return InputType{}, fmt.Errorf("convolution needs a convolutional input, got %v", in)
	}
	if c.Stride[0] <= 0 || c.Stride[1] <= 0 {
		return InputType{}, fmt.Errorf("invalid stride %v", c.Stride)
	}
	h, err := convOutputSize(in.Height, c.Kernel[0], c.Stride[0], c.Padding[0])
	if err != nil {
		return InputType{}, err
	}
	w, err := convOutputSize(in.Width, c.Kernel[1], c.Stride[1], c.Padding[1])
	if err != nil {
		return InputType{}, err
	}
	return Convolutional(h, w, c.NOut), nil
}

// Build implements LayerConf.
func (c ConvolutionConf) Build(name string, in InputType, rng *rand.Rand) Layer {
	return NewConvolution(name, in.Channels, c.NOut, c.Kernel, c.Stride, c.Padding, rng)
}
