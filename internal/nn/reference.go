package nn

// ReferenceConvNet builds the convolutional network used to check updater
// state sizing:
//
//	input  40x40x1
//	l0_cnn conv 3x3 s1 p1, 100 filters        -> 40x40x100
//	l1_max max pool 3x3 s2 p1                 -> 20x20x100
//	l2_max max pool 3x3 s2 p1                 -> 10x10x100
//	l3_cnn conv 3x3 s1 p1, 832 filters        -> 10x10x832
//	l4_max max pool 3x3 s2 p1                 -> 5x5x832
//	l5_fc  dense 1024
//	l6_out output 10, softmax, negative log likelihood
//
// l3_cnn declares nIn=1; input type inference replaces it with 100.
// scale divides every channel and unit count (minimum 1) so tests and
// quick runs can use the same topology at a fraction of the memory.
func ReferenceConvNet(scale int) (*Graph, error) {
	if scale < 1 {
		scale = 1
	}
	div := func(n int) int { return max(n/scale, 1) }

	k3 := [2]int{3, 3}
	s1 := [2]int{1, 1}
	s2 := [2]int{2, 2}
	p1 := [2]int{1, 1}

	return NewGraphBuilder().
		AddInputs("input").
		AddLayer("l0_cnn", ConvolutionConf{Kernel: k3, Stride: s1, Padding: p1, NIn: 1, NOut: div(100)}, "input").
		AddLayer("l1_max", SubsamplingConf{Pooling: PoolingMax, Kernel: k3, Stride: s2, Padding: p1}, "l0_cnn").
		AddLayer("l2_max", SubsamplingConf{Pooling: PoolingMax, Kernel: k3, Stride: s2, Padding: p1}, "l1_max").
		AddLayer("l3_cnn", ConvolutionConf{Kernel: k3, Stride: s1, Padding: p1, NIn: 1, NOut: div(832)}, "l2_max").
		AddLayer("l4_max", SubsamplingConf{Pooling: PoolingMax, Kernel: k3, Stride: s2, Padding: p1}, "l3_cnn").
		AddLayer("l5_fc", DenseConf{NOut: div(1024)}, "l4_max").
		AddLayer("l6_out", OutputConf{NIn: div(1024), NOut: 10, Activation: "softmax", Loss: LossNegativeLogLikelihood}, "l5_fc").
		SetOutputs("l6_out").
		SetInputTypes(Convolutional(40, 40, 1)).
		Build()
}
