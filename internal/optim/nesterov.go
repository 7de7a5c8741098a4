package optim

// Nesterov implements Nesterov accelerated gradient.
//
// One accumulator ("v") per parameter. Update rule, element-wise:
//
//	v_new = momentum * v - lr * gradient
//	delta = momentum * v_new - (1 + momentum) * lr * gradient
//
// delta is added to the parameter. Starting from v = 0 with gradient 1,
// lr 0.01 and momentum 0.9: v_new = -0.01, delta = -0.028.
//
// Example:
//
//	rule := optim.NewNesterov(optim.NesterovConfig{
//	    LR:       0.01,
//	    Momentum: 0.9,
//	})
type Nesterov struct {
	lr       float32
	momentum float32
}

// NesterovConfig holds configuration for the Nesterov rule.
type NesterovConfig struct {
	LR       float32 // Learning rate (default: 0.01)
	Momentum float32 // Momentum coefficient (default: 0.9, range: [0, 1))
}

// NewNesterov creates a Nesterov rule.
func NewNesterov(config NesterovConfig) *Nesterov {
	if config.LR == 0 {
		config.LR = 0.01
	}
	if config.Momentum == 0 {
		config.Momentum = 0.9
	}
	return &Nesterov{lr: config.LR, momentum: config.Momentum}
}

// Kind implements Rule.
func (n *Nesterov) Kind() Kind { return KindNesterovs }

// Slots implements Rule.
func (n *Nesterov) Slots() []string { return []string{"v"} }

// Defaults implements Rule.
func (n *Nesterov) Defaults() Hyper { return Hyper{LR: n.lr, Momentum: n.momentum} }

// Apply implements Rule.
func (n *Nesterov) Apply(acc [][]float32, grad, delta []float32, h Hyper, _ int) {
	v := acc[0]
	mu := h.Momentum
	lr := h.LR
	for i, g := range grad {
		v[i] = mu*v[i] - lr*g
		delta[i] = mu*v[i] - (1+mu)*lr*g
	}
}
