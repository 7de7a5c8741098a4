package nn

import (
	"math/rand"
	"testing"
)

// TestConvolution_Creation tests Convolution layer creation.
func TestConvolution_Creation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	// 1 -> 6 channels, 5x5 kernel
	conv := NewConvolution("conv", 1, 6, [2]int{5, 5}, [2]int{1, 1}, [2]int{0, 0}, rng)

	if conv.InChannels() != 1 {
		t.Errorf("Expected in_channels=1, got %d", conv.InChannels())
	}
	if conv.OutChannels() != 6 {
		t.Errorf("Expected out_channels=6, got %d", conv.OutChannels())
	}

	w := conv.Param("W")
	if w == nil {
		t.Fatal("Expected parameter W")
	}
	if !w.Shape().Equal([]int{6, 1, 5, 5}) {
		t.Errorf("Expected W shape [6 1 5 5], got %v", w.Shape())
	}
	if b := conv.Param("b"); b == nil || b.Size() != 6 {
		t.Errorf("Expected bias of size 6, got %v", b)
	}
}

// TestConvolutionConf_OutputType tests output size inference.
func TestConvolutionConf_OutputType(t *testing.T) {
	tests := []struct {
		name    string
		conf    ConvolutionConf
		in      InputType
		want    InputType
		wantErr bool
	}{
		{
			name: "same padding",
			conf: ConvolutionConf{Kernel: [2]int{3, 3}, Stride: [2]int{1, 1}, Padding: [2]int{1, 1}, NOut: 8},
			in:   Convolutional(40, 40, 1),
			want: Convolutional(40, 40, 8),
		},
		{
			name: "valid padding",
			conf: ConvolutionConf{Kernel: [2]int{5, 5}, Stride: [2]int{1, 1}, NOut: 6},
			in:   Convolutional(28, 28, 1),
			want: Convolutional(24, 24, 6),
		},
		{
			name: "strided",
			conf: ConvolutionConf{Kernel: [2]int{3, 3}, Stride: [2]int{2, 2}, NOut: 4},
			in:   Convolutional(9, 7, 3),
			want: Convolutional(4, 3, 4),
		},
		{
			name:    "kernel too large",
			conf:    ConvolutionConf{Kernel: [2]int{5, 5}, Stride: [2]int{1, 1}, NOut: 4},
			in:      Convolutional(3, 3, 1),
			wantErr: true,
		},
		{
			name:    "feed-forward input",
			conf:    ConvolutionConf{Kernel: [2]int{3, 3}, Stride: [2]int{1, 1}, NOut: 4},
			in:      FeedForward(10),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.conf.OutputType(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("OutputType: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

// TestConvolutionConf_BuildUsesInferredChannels tests that Build ignores NIn.
func TestConvolutionConf_BuildUsesInferredChannels(t *testing.T) {
	conf := ConvolutionConf{Kernel: [2]int{3, 3}, Stride: [2]int{1, 1}, NIn: 1, NOut: 2}
	l := conf.Build("conv", Convolutional(10, 10, 5), rand.New(rand.NewSource(1)))

	if got := l.Param("W").Size(); got != 2*5*3*3 {
		t.Errorf("Expected W size 90, got %d", got)
	}
}
