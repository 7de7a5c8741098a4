package nn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/gradstate/internal/tensor"
)

func TestNewParameter(t *testing.T) {
	p := NewParameter("W", tensor.Shape{2, 3}, nil)

	assert.Equal(t, "W", p.Name())
	assert.Equal(t, 6, p.Size())
	assert.Equal(t, make([]float32, 6), p.Data())
	assert.Nil(t, p.Grad())

	// Shape is returned by copy.
	s := p.Shape()
	s[0] = 99
	assert.True(t, p.Shape().Equal(tensor.Shape{2, 3}))
}

func TestNewParameter_Panics(t *testing.T) {
	assert.Panics(t, func() { NewParameter("W", tensor.Shape{0, 3}, nil) })
	assert.Panics(t, func() { NewParameter("W", tensor.Shape{2}, []float32{1, 2, 3}) })
}

func TestParameter_GradAndAddInPlace(t *testing.T) {
	p := NewParameter("b", tensor.Shape{1, 2}, []float32{1, 2})

	p.SetGrad([]float32{0.5, 0.5})
	assert.Equal(t, []float32{0.5, 0.5}, p.Grad())
	p.ZeroGrad()
	assert.Nil(t, p.Grad())

	require.NoError(t, p.AddInPlace([]float32{-0.5, 1}))
	assert.Equal(t, []float32{0.5, 3}, p.Data())

	assert.Error(t, p.AddInPlace([]float32{1}))
	assert.Equal(t, []float32{0.5, 3}, p.Data(), "failed add must not touch values")
}

func TestConvolution_Parameters(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	c := NewConvolution("conv", 3, 8, [2]int{5, 5}, [2]int{1, 1}, [2]int{0, 0}, rng)

	require.Len(t, c.Parameters(), 2)
	assert.Equal(t, 8*3*5*5, c.Param("W").Size())
	assert.Equal(t, 8, c.Param("b").Size())
	assert.Equal(t, 8*3*5*5+8, c.NumParams())
	assert.Nil(t, c.Param("gamma"))

	// Xavier bound for fan_in=75, fan_out=200.
	bound := float32(math.Sqrt(6.0 / float64(75+200)))
	for _, v := range c.Param("W").Data() {
		assert.LessOrEqual(t, v, bound)
		assert.GreaterOrEqual(t, v, -bound)
	}
	assert.Equal(t, make([]float32, 8), c.Param("b").Data())
}

func TestConvolution_InvalidArgsPanic(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Panics(t, func() { NewConvolution("c", 0, 8, [2]int{3, 3}, [2]int{1, 1}, [2]int{}, rng) })
	assert.Panics(t, func() { NewConvolution("c", 1, 8, [2]int{0, 3}, [2]int{1, 1}, [2]int{}, rng) })
	assert.Panics(t, func() { NewConvolution("c", 1, 8, [2]int{3, 3}, [2]int{0, 1}, [2]int{}, rng) })
	assert.Panics(t, func() { NewConvolution("c", 1, 8, [2]int{3, 3}, [2]int{1, 1}, [2]int{-1, 0}, rng) })
}

func TestSubsampling_HasNoParameters(t *testing.T) {
	s := NewSubsampling("pool", PoolingAvg, [2]int{2, 2}, [2]int{2, 2}, [2]int{0, 0})

	assert.Empty(t, s.Parameters())
	assert.Equal(t, 0, s.NumParams())
	assert.Empty(t, ParamSizes(s))
	assert.Equal(t, "avg", s.Pooling().String())
}

func TestDenseAndOutput(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	d := NewDense("fc", 20, 4, "relu", rng)
	assert.Equal(t, map[string]int{"W": 80, "b": 4}, ParamSizes(d))

	o := NewOutput("out", 4, 3, "softmax", LossMSE, rng)
	var l Layer = o
	assert.Equal(t, "out", l.Name())
	assert.Equal(t, 4*3+3, l.NumParams())
	assert.Equal(t, LossMSE, o.Loss())

	assert.Panics(t, func() { NewDense("fc", 0, 4, "", rng) })
}

func TestInputType(t *testing.T) {
	assert.Equal(t, 40*40*3, Convolutional(40, 40, 3).Flat())
	assert.Equal(t, 7, FeedForward(7).Flat())
	assert.Equal(t, "40x40x3", Convolutional(40, 40, 3).String())
	assert.Equal(t, "ff(7)", FeedForward(7).String())

	merged, err := mergeInputs([]InputType{Convolutional(4, 4, 2), Convolutional(4, 4, 3)})
	require.NoError(t, err)
	assert.Equal(t, Convolutional(4, 4, 5), merged)

	_, err = mergeInputs([]InputType{Convolutional(4, 4, 2), Convolutional(5, 4, 3)})
	assert.Error(t, err)
	_, err = mergeInputs([]InputType{FeedForward(2), Convolutional(5, 4, 3)})
	assert.Error(t, err)
}
