package optim

import "math"

// RMSProp divides the learning rate by a running RMS of recent gradients.
//
// One accumulator ("cache") per parameter:
//
//	cache = decay * cache + (1 - decay) * gradient²
//	delta = -lr * gradient / (sqrt(cache) + eps)
type RMSProp struct {
	lr    float32
	decay float32
	eps   float32
}

// RMSPropConfig holds configuration for RMSProp.
type RMSPropConfig struct {
	LR    float32 // Learning rate (default: 0.001)
	Decay float32 // Decay of the squared-gradient average (default: 0.95)
	Eps   float32 // Term for numerical stability (default: 1e-8)
}

// NewRMSProp creates an RMSProp rule.
func NewRMSProp(config RMSPropConfig) *RMSProp {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Decay == 0 {
		config.Decay = 0.95
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &RMSProp{lr: config.LR, decay: config.Decay, eps: config.Eps}
}

// Kind implements Rule.
func (r *RMSProp) Kind() Kind { return KindRMSProp }

// Slots implements Rule.
func (r *RMSProp) Slots() []string { return []string{"cache"} }

// Defaults implements Rule.
func (r *RMSProp) Defaults() Hyper { return Hyper{LR: r.lr} }

// Apply implements Rule.
func (r *RMSProp) Apply(acc [][]float32, grad, delta []float32, h Hyper, _ int) {
	cache := acc[0]
	for i, g := range grad {
		cache[i] = r.decay*cache[i] + (1-r.decay)*g*g
		delta[i] = -h.LR * g / (float32(math.Sqrt(float64(cache[i]))) + r.eps)
	}
}

// AdaGrad scales each coordinate by the inverse root of its summed
// squared gradients.
//
// One accumulator ("history") per parameter:
//
//	history += gradient²
//	delta = -lr * gradient / (sqrt(history) + eps)
type AdaGrad struct {
	lr  float32
	eps float32
}

// AdaGradConfig holds configuration for AdaGrad.
type AdaGradConfig struct {
	LR  float32 // Learning rate (default: 0.1)
	Eps float32 // Term for numerical stability (default: 1e-6)
}

// NewAdaGrad creates an AdaGrad rule.
func NewAdaGrad(config AdaGradConfig) *AdaGrad {
	if config.LR == 0 {
		config.LR = 0.1
	}
	if config.Eps == 0 {
		config.Eps = 1e-6
	}
	return &AdaGrad{lr: config.LR, eps: config.Eps}
}

// Kind implements Rule.
func (a *AdaGrad) Kind() Kind { return KindAdaGrad }

// Slots implements Rule.
func (a *AdaGrad) Slots() []string { return []string{"history"} }

// Defaults implements Rule.
func (a *AdaGrad) Defaults() Hyper { return Hyper{LR: a.lr} }

// Apply implements Rule.
func (a *AdaGrad) Apply(acc [][]float32, grad, delta []float32, h Hyper, _ int) {
	history := acc[0]
	for i, g := range grad {
		history[i] += g * g
		delta[i] = -h.LR * g / (float32(math.Sqrt(float64(history[i]))) + a.eps)
	}
}
