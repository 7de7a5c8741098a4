package nn

import (
	"fmt"
	"math/rand"
)

// PoolingType selects the reduction used by a Subsampling layer.
type PoolingType int

// Pooling types.
const (
	PoolingMax PoolingType = iota
	PoolingAvg
)

func (p PoolingType) String() string {
	switch p {
	case PoolingMax:
		return "max"
	case PoolingAvg:
		return "avg"
	default:
		return fmt.Sprintf("pooling(%d)", int(p))
	}
}

// Subsampling is a 2D pooling layer.
//
// Pooling reduces spatial dimensions and, unlike Convolution, has no
// learnable parameters: its parameter table is empty and any updater
// attached to it must stay empty as well.
type Subsampling struct {
	baseLayer

	pooling PoolingType
	kernel  [2]int
	stride  [2]int
	padding [2]int
}

// NewSubsampling creates a pooling layer.
func NewSubsampling(name string, pooling PoolingType, kernel, stride, padding [2]int) *Subsampling {
	if kernel[0] <= 0 || kernel[1] <= 0 {
		panic(fmt.Sprintf("subsampling %q: invalid kernel size %v", name, kernel))
	}
	if stride[0] <= 0 || stride[1] <= 0 {
		panic(fmt.Sprintf("subsampling %q: invalid stride %v", name, stride))
	}

	return &Subsampling{
		baseLayer: baseLayer{name: name},
		pooling:   pooling,
		kernel:    kernel,
		stride:    stride,
		padding:   padding,
	}
}

// Pooling returns the pooling type.
func (s *Subsampling) Pooling() PoolingType { return s.pooling }

// SubsamplingConf declares a pooling layer for GraphBuilder.
type SubsamplingConf struct {
	Pooling PoolingType
	Kernel  [2]int
	Stride  [2]int
	Padding [2]int
}

// OutputType implements LayerConf.
func (c SubsamplingConf) OutputType(in InputType) (InputType, error) {
	if in.Kind != KindConvolutional {
		return InputType{}, fmt.Errorf("subsampling needs a convolutional input, got %v", in)
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
	return Convolutional(h, w, in.Channels), nil
}

// Build implements LayerConf.
func (c SubsamplingConf) Build(name string, _ InputType, _ *rand.Rand) Layer {
	return NewSubsampling(name, c.Pooling, c.Kernel, c.Stride, c.Padding)
}
