// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"log/slog"

	"github.com/born-ml/gradstate/internal/nn"
	"github.com/born-ml/gradstate/internal/optim"
	"github.com/born-ml/gradstate/internal/parallel"
)

// Optimizer interface defines the common interface for graph-level updaters.
type Optimizer = optim.Optimizer

// Gradients maps layer name -> parameter name -> gradient values.
type Gradients = optim.Gradients

// Hyper carries the learning rate and momentum for one update.
type Hyper = optim.Hyper

// Kind names an update rule.
type Kind = optim.Kind

// Update rule kinds.
const (
	KindSGD       = optim.KindSGD
	KindMomentum  = optim.KindMomentum
	KindNesterovs = optim.KindNesterovs
	KindAdam      = optim.KindAdam
	KindRMSProp   = optim.KindRMSProp
	KindAdaGrad   = optim.KindAdaGrad
)

// ParseKind parses an updater name such as "nesterovs" or "adam".
func ParseKind(s string) (Kind, error) {
	return optim.ParseKind(s)
}

// Errors reported by State and the updaters.
var (
	ErrShapeMismatch    = optim.ErrShapeMismatch
	ErrUnknownParameter = optim.ErrUnknownParameter
	ErrSizeMismatch     = optim.ErrSizeMismatch
	ErrInvalidSize      = optim.ErrInvalidSize
	ErrStateDrift       = optim.ErrStateDrift
	ErrUnknownLayer     = optim.ErrUnknownLayer
)

// Per-parameter state

// Absent is returned by State.SizeOf for names without accumulators.
const Absent = optim.Absent

// State owns the accumulators of one layer's parameters.
type State = optim.State

// Accumulator is one exported accumulator buffer.
type Accumulator = optim.Accumulator

// NewState creates an empty State that updates with rule.
func NewState(rule Rule) *State {
	return optim.NewState(rule)
}

// Update rules

// Rule is an update formula with its accumulator layout.
type Rule = optim.Rule

// Config selects a rule and its hyperparameters for a whole graph.
type Config = optim.Config

// NewRule creates the rule selected by cfg.Updater.
func NewRule(cfg Config) (Rule, error) {
	return optim.NewRule(cfg)
}

// Nesterov implements Nesterov accelerated gradient.
type Nesterov = optim.Nesterov

// NesterovConfig contains configuration for the Nesterov rule.
type NesterovConfig = optim.NesterovConfig

// NewNesterov creates a Nesterov rule.
//
// Example:
//
//	rule := optim.NewNesterov(optim.NesterovConfig{LR: 0.01, Momentum: 0.9})
func NewNesterov(config NesterovConfig) *Nesterov {
	return optim.NewNesterov(config)
}

// SGD implements plain stochastic gradient descent.
type SGD = optim.SGD

// SGDConfig contains configuration for SGD.
type SGDConfig = optim.SGDConfig

// NewSGD creates an SGD rule.
func NewSGD(config SGDConfig) *SGD {
	return optim.NewSGD(config)
}

// Momentum implements SGD with classical momentum.
type Momentum = optim.Momentum

// MomentumConfig contains configuration for the Momentum rule.
type MomentumConfig = optim.MomentumConfig

// NewMomentum creates a Momentum rule.
func NewMomentum(config MomentumConfig) *Momentum {
	return optim.NewMomentum(config)
}

// Adam implements Adam with per-parameter bias correction.
type Adam = optim.Adam

// AdamConfig contains configuration for Adam.
type AdamConfig = optim.AdamConfig

// NewAdam creates an Adam rule.
//
// Example:
//
//	rule := optim.NewAdam(optim.AdamConfig{
//	    LR:    0.001,
//	    Betas: [2]float32{0.9, 0.999},
//	})
func NewAdam(config AdamConfig) *Adam {
	return optim.NewAdam(config)
}

// RMSProp divides the learning rate by a running RMS of gradients.
type RMSProp = optim.RMSProp

// RMSPropConfig contains configuration for RMSProp.
type RMSPropConfig = optim.RMSPropConfig

// NewRMSProp creates an RMSProp rule.
func NewRMSProp(config RMSPropConfig) *RMSProp {
	return optim.NewRMSProp(config)
}

// AdaGrad scales by the inverse root of summed squared gradients.
type AdaGrad = optim.AdaGrad

// AdaGradConfig contains configuration for AdaGrad.
type AdaGradConfig = optim.AdaGradConfig

// NewAdaGrad creates an AdaGrad rule.
func NewAdaGrad(config AdaGradConfig) *AdaGrad {
	return optim.NewAdaGrad(config)
}

// Layer and graph updaters

// LayerUpdater applies a rule to one layer's parameters.
type LayerUpdater = optim.LayerUpdater

// NewLayerUpdater creates an updater for layer with an empty State.
func NewLayerUpdater(layer nn.Layer, rule Rule) *LayerUpdater {
	return optim.NewLayerUpdater(layer, rule)
}

// GraphUpdater keeps one LayerUpdater per layer of a graph.
type GraphUpdater = optim.GraphUpdater

// Option configures a GraphUpdater.
type Option = optim.Option

// WithLogger sets the GraphUpdater's logger.
func WithLogger(logger *slog.Logger) Option {
	return optim.WithLogger(logger)
}

// WithParallel sets the worker pool used by GraphUpdater.Step.
func WithParallel(cfg parallel.Config) Option {
	return optim.WithParallel(cfg)
}

// NewGraphUpdater creates one LayerUpdater per layer.
//
// Example:
//
//	graph, _ := nn.ReferenceConvNet(1)
//	updater, err := optim.NewGraphUpdater(graph.Layers(), optim.Config{
//	    Updater:  optim.KindNesterovs,
//	    Momentum: 0.9,
//	})
func NewGraphUpdater(layers []nn.Layer, cfg Config, opts ...Option) (*GraphUpdater, error) {
	return optim.NewGraphUpdater(layers, cfg, opts...)
}

// LayerSummary reports parameter and state sizes for one layer.
type LayerSummary = optim.LayerSummary

// NamedSize pairs a parameter name with an element count.
type NamedSize = optim.NamedSize

// StateEntry is one accumulator of one layer in a state dict.
type StateEntry = optim.StateEntry
