package optim

// SGD implements plain Stochastic Gradient Descent.
//
// Update rule:
//
//	delta = -lr * gradient
//
// SGD keeps no accumulators. Parameters are still tracked by name and
// size so updater state reports the same parameter set as the layer.
type SGD struct {
	lr float32
}

// SGDConfig holds configuration for SGD.
type SGDConfig struct {
	LR float32 // Learning rate (default: 0.01)
}

// NewSGD creates a new SGD rule.
func NewSGD(config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{lr: config.LR}
}

// Kind implements Rule.
func (s *SGD) Kind() Kind { return KindSGD }

// Slots implements Rule.
func (s *SGD) Slots() []string { return nil }

// Defaults implements Rule.
func (s *SGD) Defaults() Hyper { return Hyper{LR: s.lr} }

// Apply implements Rule.
func (s *SGD) Apply(_ [][]float32, grad, delta []float32, h Hyper, _ int) {
	for i, g := range grad {
		delta[i] = -h.LR * g
	}
}

// Momentum implements SGD with classical momentum.
//
// Update rule:
//
//	velocity = momentum * velocity - lr * gradient
//	delta = velocity
//
// Momentum helps accelerate SGD in relevant directions and dampens oscillations.
type Momentum struct {
	lr       float32
	momentum float32
}

// MomentumConfig holds configuration for the Momentum rule.
type MomentumConfig struct {
	LR       float32 // Learning rate (default: 0.01)
	Momentum float32 // Momentum factor (default: 0.9, range: [0, 1))
}

// NewMomentum creates a Momentum rule.
func NewMomentum(config MomentumConfig) *Momentum {
	if config.LR == 0 {
		config.LR = 0.01
	}
	if config.Momentum == 0 {
		config.Momentum = 0.9
	}
	return &Momentum{lr: config.LR, momentum: config.Momentum}
}

// Kind implements Rule.
func (m *Momentum) Kind() Kind { return KindMomentum }

// Slots implements Rule.
func (m *Momentum) Slots() []string { return []string{"velocity"} }

// Defaults implements Rule.
func (m *Momentum) Defaults() Hyper { return Hyper{LR: m.lr, Momentum: m.momentum} }

// Apply implements Rule.
func (m *Momentum) Apply(acc [][]float32, grad, delta []float32, h Hyper, _ int) {
	velocity := acc[0]
	for i, g := range grad {
		velocity[i] = h.Momentum*velocity[i] - h.LR*g
		delta[i] = velocity[i]
	}
}
