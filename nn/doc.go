// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the parameter owners that updaters train.
//
// # Overview
//
// This package contains:
//   - Parameter: a named, shaped buffer of weights with its gradient
//   - Layer: the interface an updater consumes (a named parameter table)
//   - Layers: Convolution, Subsampling, Dense, Output
//   - GraphBuilder: wires layers and infers input sizes from InputType
//
// Forward and backward passes are not part of this package. An updater
// only needs parameter names, sizes and values.
//
// # Basic Usage
//
//	import "github.com/born-ml/gradstate/nn"
//
//	func main() {
//	    graph, err := nn.NewGraphBuilder().
//	        AddInputs("input").
//	        AddLayer("conv", nn.ConvolutionConf{
//	            Kernel: [2]int{3, 3}, Stride: [2]int{1, 1}, Padding: [2]int{1, 1}, NOut: 16,
//	        }, "input").
//	        AddLayer("out", nn.OutputConf{NOut: 10, Loss: nn.LossNegativeLogLikelihood}, "conv").
//	        SetOutputs("out").
//	        SetInputTypes(nn.Convolutional(28, 28, 1)).
//	        Build()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    for _, l := range graph.Layers() {
//	        fmt.Println(l.Name(), nn.ParamSizes(l))
//	    }
//	}
//
// # Parameter Tables
//
// Convolution and dense layers own "W" and "b". Pooling layers own no
// parameters. ReferenceConvNet builds the seven-layer network used by the
// gradstate command.
package nn
