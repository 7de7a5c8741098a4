// Package optim implements gradient updaters and the per-parameter state
// they keep between steps.
//
// This package provides:
//   - State: one set of accumulators per named parameter, sized like it
//   - Rule: the update formula (Nesterov, Momentum, Adam, RMSProp, AdaGrad, SGD)
//   - LayerUpdater: a State bound to one layer's parameter table
//   - GraphUpdater: one LayerUpdater per layer of a graph
//
// Example usage:
//
//	updater, err := optim.NewGraphUpdater(graph.Layers(), optim.Config{
//	    Updater:  optim.KindNesterovs,
//	    LR:       0.01,
//	    Momentum: 0.9,
//	})
//
//	// Training loop
//	for epoch := range epochs {
//	    grads := computeGradients(graph, batch) // external backprop
//	    if err := updater.Step(grads); err != nil {
//	        return err
//	    }
//	    updater.ZeroGrad()
//	}
package optim

import (
	"fmt"
	"strings"
)

// Optimizer is the base interface for all graph-level updaters.
//
// All optimizers must implement:
//   - Step: Apply gradient updates to parameters
//   - ZeroGrad: Clear gradients before next iteration
//   - GetLR: Get current learning rate (for monitoring/scheduling)
type Optimizer interface {
	// Step applies gradient updates to all parameters.
	//
	// Gradients are keyed by layer name, then parameter name. Parameters
	// without an entry fall back to Parameter.Grad(); if that is nil too
	// the parameter is skipped.
	Step(grads Gradients) error

	// ZeroGrad clears all parameter gradients.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float32
}

// Gradients maps layer name -> parameter name -> gradient values.
type Gradients map[string]map[string][]float32

// Hyper carries the per-step hyperparameters handed to a Rule.
//
// Momentum is read by Nesterov and Momentum rules only; Adam and RMSProp
// take their decay rates from their own config.
type Hyper struct {
	LR       float32 // Learning rate
	Momentum float32 // Momentum coefficient
}

// Kind names an update rule.
type Kind int

// Update rule kinds.
const (
	KindSGD Kind = iota
	KindMomentum
	KindNesterovs
	KindAdam
	KindRMSProp
	KindAdaGrad
)

var kindNames = map[Kind]string{
	KindSGD:       "sgd",
	KindMomentum:  "momentum",
	KindNesterovs: "nesterovs",
	KindAdam:      "adam",
	KindRMSProp:   "rmsprop",
	KindAdaGrad:   "adagrad",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind parses an updater name, case-insensitively.
// "nesterov" is accepted as an alias for "nesterovs".
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "nesterov" {
		return KindNesterovs, nil
	}
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("optim: unknown updater %q", s)
}

// Config is the configuration for a whole graph's updater.
//
// Zero values select the rule's defaults.
type Config struct {
	Updater  Kind       // Update rule
	LR       float32    // Learning rate
	Momentum float32    // Nesterovs / Momentum coefficient
	Betas    [2]float32 // Adam moment decay rates
	Decay    float32    // RMSProp decay rate
	Eps      float32    // Adam / RMSProp / AdaGrad stability term
}

// NewRule creates the rule selected by cfg.Updater.
func NewRule(cfg Config) (Rule, error) {
	switch cfg.Updater {
	case KindSGD:
		return NewSGD(SGDConfig{LR: cfg.LR}), nil
	case KindMomentum:
		return NewMomentum(MomentumConfig{LR: cfg.LR, Momentum: cfg.Momentum}), nil
	case KindNesterovs:
		return NewNesterov(NesterovConfig{LR: cfg.LR, Momentum: cfg.Momentum}), nil
	case KindAdam:
		return NewAdam(AdamConfig{LR: cfg.LR, Betas: cfg.Betas, Eps: cfg.Eps}), nil
	case KindRMSProp:
		return NewRMSProp(RMSPropConfig{LR: cfg.LR, Decay: cfg.Decay, Eps: cfg.Eps}), nil
	case KindAdaGrad:
		return NewAdaGrad(AdaGradConfig{LR: cfg.LR, Eps: cfg.Eps}), nil
	default:
		return nil, fmt.Errorf("optim: unknown updater %v", cfg.Updater)
	}
}

// Rule is an update formula with its accumulator layout.
//
// Apply is called with one buffer per name in Slots(), each the size of
// the parameter, plus a delta buffer of the same size to fill. step is the
// 1-based number of updates applied to this parameter, including this one.
// Apply must not retain any of the slices.
type Rule interface {
	// Kind identifies the rule.
	Kind() Kind

	// Slots names the accumulators kept per parameter. May be empty.
	Slots() []string

	// Defaults returns the hyperparameters from the rule's config.
	Defaults() Hyper

	// Apply updates the accumulators and writes the parameter delta.
	Apply(acc [][]float32, grad, delta []float32, h Hyper, step int)
}
