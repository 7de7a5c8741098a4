package optim

import "math"

// Adam implements the Adam (Adaptive Moment Estimation) update rule.
//
// Two accumulators per parameter:
//   - "m": exponential moving average of gradients (first moment)
//   - "v": exponential moving average of squared gradients (second moment)
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	delta = -lr * m_hat / (sqrt(v_hat) + eps)
//
// t is counted per parameter, so a parameter that first receives a
// gradient late still gets full bias correction.
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam struct {
	lr    float32
	beta1 float32
	beta2 float32
	eps   float32
}

// AdamConfig holds configuration for the Adam rule.
type AdamConfig struct {
	LR    float32    // Learning rate (default: 0.001)
	Betas [2]float32 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps   float32    // Term for numerical stability (default: 1e-8)
}

// NewAdam creates a new Adam rule.
//
// Default hyperparameters:
//   - LR: 0.001
//   - Beta1: 0.9
//   - Beta2: 0.999
//   - Eps: 1e-8
func NewAdam(config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	return &Adam{
		lr:    config.LR,
		beta1: config.Betas[0],
		beta2: config.Betas[1],
		eps:   config.Eps,
	}
}

// Kind implements Rule.
func (a *Adam) Kind() Kind { return KindAdam }

// Slots implements Rule.
func (a *Adam) Slots() []string { return []string{"m", "v"} }

// Defaults implements Rule.
func (a *Adam) Defaults() Hyper { return Hyper{LR: a.lr} }

// Apply implements Rule.
func (a *Adam) Apply(acc [][]float32, grad, delta []float32, h Hyper, step int) {
	biasCorrection1 := float32(1.0 - math.Pow(float64(a.beta1), float64(step)))
	biasCorrection2 := float32(1.0 - math.Pow(float64(a.beta2), float64(step)))

	m, v := acc[0], acc[1]
	for i, g := range grad {
		m[i] = a.beta1*m[i] + (1.0-a.beta1)*g
		v[i] = a.beta2*v[i] + (1.0-a.beta2)*g*g

		mHat := m[i] / biasCorrection1
		vHat := v[i] / biasCorrection2

		delta[i] = -h.LR * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
	}
}
