package nn

import (
	"math"
	"math/rand"

	"github.com/born-ml/gradstate/internal/tensor"
)

// Xavier (Glorot) initialization for weights.
//
// Initializes weights with values drawn from a uniform distribution:
// U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out)))
//
// Parameters:
//   - fanIn: Number of input units
//   - fanOut: Number of output units
//   - shape: Shape of the weight buffer
//   - rng: Source of randomness (seeded by the graph builder)
func Xavier(fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand) []float32 {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))

	data := make([]float32, shape.NumElements())
	for i := range data {
		data[i] = float32((rng.Float64()*2.0 - 1.0) * bound)
	}
	return data
}

// Zeros creates a zero-filled buffer. Used for biases.
func Zeros(shape tensor.Shape) []float32 {
	return make([]float32, shape.NumElements())
}
