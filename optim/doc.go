// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides gradient updaters and the per-parameter state
// they keep between steps.
//
// # Overview
//
// This package contains:
//   - State: accumulators keyed by parameter name, each as large as its parameter
//   - Update rules: Nesterov, Momentum, SGD, Adam, RMSProp, AdaGrad
//   - GraphUpdater: one per-layer updater for every layer of a graph
//   - Optimizer interface for graph-level updaters
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/gradstate/nn"
//	    "github.com/born-ml/gradstate/optim"
//	)
//
//	func main() {
//	    graph, err := nn.ReferenceConvNet(1)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    updater, err := optim.NewGraphUpdater(graph.Layers(), optim.Config{
//	        Updater:  optim.KindNesterovs,
//	        LR:       0.01,
//	        Momentum: 0.9,
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    // Training loop
//	    for epoch := range 10 {
//	        grads := backprop(graph, batch) // gradients come from elsewhere
//	        if err := updater.Step(grads); err != nil {
//	            log.Fatal(err)
//	        }
//	        updater.ZeroGrad()
//	    }
//	}
//
// # Per-Parameter State
//
// A State can be used on its own, without layers:
//
//	state := optim.NewState(optim.NewNesterov(optim.NesterovConfig{}))
//	_ = state.Ensure("W", 900)
//	delta, err := state.Update("W", grad, optim.Hyper{LR: 0.01, Momentum: 0.9})
//
// Ensure allocates a zeroed accumulator of exactly the parameter's size;
// Update advances it and returns the delta to add to the parameter.
// SizeOf returns Absent (-1) for names that were never ensured.
//
// # Update Rules
//
// Nesterov accelerated gradient keeps one buffer "v":
//
//	v     = momentum * v - lr * g
//	delta = momentum * v - (1 + momentum) * lr * g
//
// Adam keeps "m" and "v", RMSProp "cache", AdaGrad "history", Momentum
// "velocity". SGD keeps no buffers but still tracks parameter sizes.
//
// # Checkpoints
//
// StateDict and LoadStateDict export and restore every accumulator. The
// gradstate command stores them in SQLite.
package optim
